// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package parse

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseSimpleCommand(t *testing.T) {
	node, err := Parse("ls -la /tmp")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmd, ok := node.(*SimpleCommand)
	if !ok {
		t.Fatalf("got %T, want *SimpleCommand", node)
	}
	if cmd.Name != "ls" || !reflect.DeepEqual(cmd.Args, []string{"-la", "/tmp"}) {
		t.Fatalf("parsed %q %v", cmd.Name, cmd.Args)
	}
}

func TestParsePipeline(t *testing.T) {
	node, err := Parse("cat file.txt | grep foo | wc -l")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pipe, ok := node.(*Pipeline)
	if !ok {
		t.Fatalf("got %T, want *Pipeline", node)
	}
	if len(pipe.Stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(pipe.Stages))
	}
	names := CommandNames(node)
	if !reflect.DeepEqual(names, []string{"cat", "grep", "wc"}) {
		t.Fatalf("CommandNames = %v", names)
	}
}

func TestParseAndOrLists(t *testing.T) {
	node, err := Parse("mkdir /tmp/x && cd /tmp/x || echo failed")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	or, ok := node.(*OrList)
	if !ok {
		t.Fatalf("got %T, want *OrList", node)
	}
	if _, ok := or.Left.(*AndList); !ok {
		t.Fatalf("left is %T, want *AndList", or.Left)
	}
}

func TestParseSequenceAndBackground(t *testing.T) {
	node, err := Parse("echo a; sleep 10 &; echo b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	seq, ok := node.(*Sequence)
	if !ok {
		t.Fatalf("got %T, want *Sequence", node)
	}
	if len(seq.Parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(seq.Parts))
	}
	if _, ok := seq.Parts[1].(*Background); !ok {
		t.Fatalf("part 1 is %T, want *Background", seq.Parts[1])
	}
}

func TestParseSubshellAndGroup(t *testing.T) {
	node, err := Parse("(cd /tmp && ls)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := node.(*Subshell); !ok {
		t.Fatalf("got %T, want *Subshell", node)
	}

	node, err = Parse("{ echo a; echo b; }")
	if err != nil {
		t.Fatalf("Parse group: %v", err)
	}
	if _, ok := node.(*Group); !ok {
		t.Fatalf("got %T, want *Group", node)
	}
}

func TestParseRedirects(t *testing.T) {
	node, err := Parse("grep foo < in.txt > out.txt 2>&1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmd := node.(*SimpleCommand)
	want := []Redirect{
		{Op: "<", Target: "in.txt"},
		{Op: ">", Target: "out.txt"},
		{Op: "2>&1"},
	}
	if !reflect.DeepEqual(cmd.Redirects, want) {
		t.Fatalf("redirects = %v, want %v", cmd.Redirects, want)
	}
}

func TestParseQuotedWordsKeepOperators(t *testing.T) {
	node, err := Parse(`echo "a | b; c"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmd := node.(*SimpleCommand)
	if len(cmd.Args) != 1 || cmd.Args[0] != `"a | b; c"` {
		t.Fatalf("args = %v", cmd.Args)
	}
}

func TestParseCommandSubstitutionStaysInWord(t *testing.T) {
	node, err := Parse("echo $(date | cut -d' ' -f1)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmd, ok := node.(*SimpleCommand)
	if !ok {
		t.Fatalf("got %T, want *SimpleCommand", node)
	}
	if len(cmd.Args) != 1 {
		t.Fatalf("args = %v", cmd.Args)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"echo 'unterminated",
		"(echo a",
		"ls | | wc",
		"&& echo",
		"echo >",
	}
	for _, src := range cases {
		node, err := Parse(src)
		if err == nil {
			t.Errorf("Parse(%q) succeeded with %v", src, node)
			continue
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Parse(%q) error type %T, want *ParseError", src, err)
		}
		if node != nil {
			t.Errorf("Parse(%q) returned partial tree alongside error", src)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	node, err := Parse("cat a.txt | grep x > out.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := node.Text(); got != "cat a.txt | grep x > out.txt" {
		t.Fatalf("Text = %q", got)
	}
}
