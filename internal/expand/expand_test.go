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

package expand

import (
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"bashport/internal/shell"
)

func newPreprocessor(ctx *shell.VariableContext) *Preprocessor {
	if ctx == nil {
		ctx = shell.NewVariableContext()
	}
	return New(ctx, "/home/claude", zerolog.Nop())
}

func TestBraceCommaList(t *testing.T) {
	got := expandBraceToken("{a,b}{1,2}")
	want := []string{"a1", "a2", "b1", "b2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expandBraceToken({a,b}{1,2}) = %v, want %v", got, want)
	}
}

func TestBraceCartesianCardinality(t *testing.T) {
	got := expandBraceToken("{prod,staging1}/{api{1..3},workerx}")
	if len(got) != 8 {
		t.Fatalf("got %d items, want 8: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, item := range got {
		if seen[item] {
			t.Fatalf("duplicate combination %q", item)
		}
		seen[item] = true
	}
	for _, want := range []string{"prod/api1", "prod/workerx", "staging1/api3"} {
		if !seen[want] {
			t.Errorf("missing combination %q", want)
		}
	}
}

func TestBraceNumericRanges(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"{1..4}", []string{"1", "2", "3", "4"}},
		{"{5..3}", []string{"5", "4", "3"}},
		{"{01..03}", []string{"01", "02", "03"}},
		{"{a..d}", []string{"a", "b", "c", "d"}},
		{"{c..a}", []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		if got := expandBraceToken(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("expandBraceToken(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBraceNestedGroups(t *testing.T) {
	got := expandBraceToken("{a,b{1,2}}")
	want := []string{"a", "b1", "b2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("nested groups = %v, want %v", got, want)
	}
}

func TestBraceLeavesParameterExpansionAlone(t *testing.T) {
	got := ExpandBraces("echo ${HOME}")
	if got != "echo ${HOME}" {
		t.Fatalf("parameter expansion was mangled: %q", got)
	}
}

func TestBraceLiteralGroupUntouched(t *testing.T) {
	got := expandBraceToken("{abc}")
	if !reflect.DeepEqual(got, []string{"{abc}"}) {
		t.Fatalf("literal group expanded: %v", got)
	}
}

func TestParameterExpansionFixtures(t *testing.T) {
	ctx := shell.NewVariableContext()
	ctx.Set("v", "archive.tar.gz")
	ctx.Set("w", "aa bb aa")
	ctx.Set("lo", "hello")
	ctx.Set("hi", "HELLO")

	tests := []struct {
		in   string
		want string
	}{
		{"${v%.*}", "archive.tar"},
		{"${v%%.*}", "archive"},
		{"${v#*.}", "tar.gz"},
		{"${v##*.}", "gz"},
		{"${w//aa/XX}", "XX bb XX"},
		{"${w/aa/XX}", "XX bb aa"},
		{"${lo^}", "Hello"},
		{"${hi,,}", "hello"},
		{"${lo^^}", "HELLO"},
		{"${hi,}", "hELLO"},
		{"${#v}", "14"},
		{"${unset:-fallback}", "fallback"},
		{"${unset}", ""},
		{"$v", "archive.tar.gz"},
	}
	for _, tt := range tests {
		if got := ExpandVariables(tt.in, ctx); got != tt.want {
			t.Errorf("ExpandVariables(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVariablesInsideSingleQuotesUntouched(t *testing.T) {
	ctx := shell.NewVariableContext()
	ctx.Set("X", "1")
	if got := ExpandVariables("echo '$X'", ctx); got != "echo '$X'" {
		t.Fatalf("single-quoted variable expanded: %q", got)
	}
}

func TestApostropheInsideDoubleQuotesIsLiteral(t *testing.T) {
	ctx := shell.NewVariableContext()
	ctx.Set("X", "1")
	if got := ExpandVariables(`echo "it's $X"`, ctx); got != `echo "it's 1"` {
		t.Fatalf("double-quoted apostrophe suppressed expansion: %q", got)
	}
	// Expansion stays off inside real single quotes that follow.
	if got := ExpandVariables(`echo "it's" '$X'`, ctx); got != `echo "it's" '$X'` {
		t.Fatalf("single-quote tracking broken after double quotes: %q", got)
	}
}

func TestCommandSubstitutionLeftIntact(t *testing.T) {
	ctx := shell.NewVariableContext()
	got := ExpandVariables("echo $(date +%s)", ctx)
	if got != "echo $(date +%s)" {
		t.Fatalf("command substitution was consumed: %q", got)
	}
}

func TestArithmetic(t *testing.T) {
	ctx := shell.NewVariableContext()
	ctx.Set("n", "10")
	tests := []struct {
		in   string
		want string
	}{
		{"echo $((5 + 3))", "echo 8"},
		{"echo $((2 * (3 + 4)))", "echo 14"},
		{"echo $((10 / 3))", "echo 3"},
		{"echo $((10 % 3))", "echo 1"},
		{"echo $((-5 + 2))", "echo -3"},
		{"echo $((n * 2))", "echo 20"},
		{"echo $(($n + 1))", "echo 11"},
		{"echo $((missing + 1))", "echo 1"},
	}
	for _, tt := range tests {
		got, err := ExpandArithmetic(tt.in, ctx)
		if err != nil {
			t.Errorf("ExpandArithmetic(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandArithmetic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArithmeticDivisionByZero(t *testing.T) {
	ctx := shell.NewVariableContext()
	if _, err := ExpandArithmetic("echo $((1 / 0))", ctx); err == nil {
		t.Fatal("division by zero did not error")
	}
}

func TestProcessPassOrder(t *testing.T) {
	ctx := shell.NewVariableContext()
	ctx.Set("TESTUPPER", "HELLO")
	p := newPreprocessor(ctx)

	got, err := p.Process("echo ${TESTUPPER,,}")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "echo hello" {
		t.Fatalf("Process = %q, want %q", got, "echo hello")
	}

	got, err = p.Process("echo $((5 + 3))")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "echo 8" {
		t.Fatalf("Process = %q, want %q", got, "echo 8")
	}
}

func TestProcessAliasesAndTilde(t *testing.T) {
	p := newPreprocessor(nil)

	got, err := p.Process("ll ~/src")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "ls -la /home/claude/src" {
		t.Fatalf("Process = %q", got)
	}

	got, err = p.Process("cd /tmp && ll")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(got, "&& ls -la") {
		t.Fatalf("alias after && not expanded: %q", got)
	}
}

func TestNormalizeTest(t *testing.T) {
	got := normalizeTest("[ -f /tmp/x ] && echo yes")
	if got != "test -f /tmp/x && echo yes" {
		t.Fatalf("normalizeTest = %q", got)
	}
}
