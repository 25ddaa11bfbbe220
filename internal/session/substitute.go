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

package session

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"bashport/internal/errors"
	"bashport/internal/expand"
)

// substitutionState tracks the temp files and deferred commands one
// request accumulates while its substitutions are rewritten.
type substitutionState struct {
	tempFiles []string
	// outputSubs are >(cmd) bodies to run after the main command,
	// fed the content their temp file collected.
	outputSubs []outputSub
}

type outputSub struct {
	path    string
	command string
}

func (st *substitutionState) cleanup() {
	for _, f := range st.tempFiles {
		os.Remove(f)
	}
}

func (st *substitutionState) tempFile(dir, pattern, content string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", errors.Wrap(errors.CodeExecution, "cannot create temp file", err)
	}
	name := f.Name()
	st.tempFiles = append(st.tempFiles, name)
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", errors.Wrap(errors.CodeExecution, "cannot write temp file", err)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(errors.CodeExecution, "cannot write temp file", err)
	}
	return name, nil
}

// rewriteSubstitutions replaces session-level constructs with plain
// file forms: command substitution output is spliced inline, heredocs
// and here-strings become input redirects from temp files, process
// substitutions become temp file paths. The returned state owns the
// temp files and any deferred output commands.
func (s *Session) rewriteSubstitutions(ctx context.Context, command string) (string, *substitutionState, error) {
	st := &substitutionState{}

	out, err := s.spliceCommandSubs(ctx, command)
	if err != nil {
		st.cleanup()
		return "", nil, err
	}
	// Here-strings first so the heredoc scanner never sees a <<< prefix.
	out, err = s.rewriteHereStrings(out, st)
	if err != nil {
		st.cleanup()
		return "", nil, err
	}
	out, err = s.rewriteHeredocs(out, st)
	if err != nil {
		st.cleanup()
		return "", nil, err
	}
	out, err = s.rewriteProcessSubs(ctx, out, st)
	if err != nil {
		st.cleanup()
		return "", nil, err
	}
	return out, st, nil
}

// spliceCommandSubs resolves $(...) and backtick substitutions,
// innermost first, scanning from the end so earlier indexes stay
// valid across splices.
func (s *Session) spliceCommandSubs(ctx context.Context, command string) (string, error) {
	const maxRounds = 32
	for round := 0; ; round++ {
		start, end, ok := lastCommandSub(command)
		if !ok {
			break
		}
		if round == maxRounds {
			return "", errors.New(errors.CodeParse,
				fmt.Sprintf("too many command substitutions, limit is %d", maxRounds))
		}
		inner := command[start+2 : end]
		output, err := s.captureOutput(ctx, inner)
		if err != nil {
			return "", err
		}
		command = command[:start] + output + command[end+1:]
	}
	for {
		start, end, ok := lastBacktickSub(command)
		if !ok {
			break
		}
		output, err := s.captureOutput(ctx, command[start+1:end])
		if err != nil {
			return "", err
		}
		command = command[:start] + output + command[end+1:]
	}
	return command, nil
}

// captureOutput runs a substitution body and returns its stdout in the
// form the shell would splice: trailing newlines gone, inner newlines
// folded to spaces.
func (s *Session) captureOutput(ctx context.Context, body string) (string, error) {
	res, err := s.runRaw(ctx, body)
	if err != nil {
		return "", err
	}
	out := strings.TrimRight(res.Stdout, "\n")
	return strings.ReplaceAll(out, "\n", " "), nil
}

// lastCommandSub finds the rightmost $( and its matching paren. The
// rightmost opener is innermost by construction. Single-quoted spans
// are opaque.
func lastCommandSub(text string) (start, end int, ok bool) {
	inSingle := false
	start = -1
	for i := 0; i < len(text)-1; i++ {
		if text[i] == '\'' {
			inSingle = !inSingle
			continue
		}
		if !inSingle && text[i] == '$' && text[i+1] == '(' {
			// $(( is arithmetic, not substitution.
			if i+2 < len(text) && text[i+2] == '(' {
				i += 2
				continue
			}
			start = i
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	depth := 0
	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return start, i, true
			}
		}
	}
	return 0, 0, false
}

func lastBacktickSub(text string) (start, end int, ok bool) {
	end = strings.LastIndexByte(text, '`')
	if end < 0 {
		return 0, 0, false
	}
	start = strings.LastIndexByte(text[:end], '`')
	if start < 0 {
		return 0, 0, false
	}
	return start, end, true
}

var heredocRe = regexp.MustCompile(`<<(-?)\s*(?:'(\w+)'|"(\w+)"|(\w+))`)

// rewriteHeredocs extracts each heredoc body to a temp file and
// replaces the operator with an input redirect. A quoted terminator
// suppresses variable expansion in the body; <<- strips leading tabs.
func (s *Session) rewriteHeredocs(command string, st *substitutionState) (string, error) {
	for {
		loc := heredocRe.FindStringSubmatchIndex(command)
		if loc == nil {
			return command, nil
		}
		m := heredocRe.FindStringSubmatch(command[loc[0]:])
		stripTabs := m[1] == "-"
		quoted := m[2] != "" || m[3] != ""
		terminator := m[2] + m[3] + m[4]

		nl := strings.IndexByte(command[loc[1]:], '\n')
		if nl < 0 {
			return "", errors.New(errors.CodeParse,
				fmt.Sprintf("heredoc %q has no body", terminator))
		}
		bodyStart := loc[1] + nl + 1

		var body []string
		rest := command[bodyStart:]
		lines := strings.Split(rest, "\n")
		consumed := 0
		found := false
		for _, line := range lines {
			consumed += len(line) + 1
			check := line
			if stripTabs {
				check = strings.TrimLeft(line, "\t")
			}
			if check == terminator {
				found = true
				break
			}
			if stripTabs {
				line = strings.TrimLeft(line, "\t")
			}
			body = append(body, line)
		}
		if !found {
			return "", errors.New(errors.CodeParse,
				fmt.Sprintf("heredoc terminator %q not found", terminator))
		}

		content := strings.Join(body, "\n")
		if len(body) > 0 {
			content += "\n"
		}
		if !quoted {
			content = expand.ExpandVariables(content, s.vars)
		}

		path, err := st.tempFile(s.tempDir, "heredoc-*.txt", content)
		if err != nil {
			return "", err
		}

		tailStart := bodyStart + consumed
		if tailStart > len(command) {
			tailStart = len(command)
		}
		head := command[:loc[0]] + "< " + quotePath(path)
		// Drop the newline between operator and body.
		gap := strings.TrimPrefix(command[loc[1]:bodyStart], "\n")
		command = head + gap + command[tailStart:]
	}
}

var hereStringRe = regexp.MustCompile(`<<<\s*('[^']*'|"[^"]*"|\S+)`)

func (s *Session) rewriteHereStrings(command string, st *substitutionState) (string, error) {
	for {
		m := hereStringRe.FindStringSubmatchIndex(command)
		if m == nil {
			return command, nil
		}
		word := command[m[2]:m[3]]
		content := expand.ExpandVariables(unquote(word), s.vars)
		path, err := st.tempFile(s.tempDir, "herestring-*.txt", content+"\n")
		if err != nil {
			return "", err
		}
		command = command[:m[0]] + "< " + quotePath(path) + command[m[1]:]
	}
}

// rewriteProcessSubs replaces <(cmd) with a temp file holding cmd's
// output and >(cmd) with a temp file whose content feeds cmd after the
// main command finishes.
func (s *Session) rewriteProcessSubs(ctx context.Context, command string, st *substitutionState) (string, error) {
	for {
		start, end, dir, ok := findProcessSub(command)
		if !ok {
			return command, nil
		}
		body := command[start+2 : end]
		if dir == '<' {
			res, err := s.runRaw(ctx, body)
			if err != nil {
				return "", err
			}
			path, err := st.tempFile(s.tempDir, "procsub-*.txt", res.Stdout)
			if err != nil {
				return "", err
			}
			command = command[:start] + quotePath(path) + command[end+1:]
			continue
		}
		path, err := st.tempFile(s.tempDir, "procsub-out-*.txt", "")
		if err != nil {
			return "", err
		}
		st.outputSubs = append(st.outputSubs, outputSub{path: path, command: body})
		command = command[:start] + quotePath(path) + command[end+1:]
	}
}

func findProcessSub(text string) (start, end int, dir byte, ok bool) {
	inSingle := false
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if c == '\'' {
			inSingle = !inSingle
			continue
		}
		if inSingle || (c != '<' && c != '>') || text[i+1] != '(' {
			continue
		}
		// 2>(...) is a redirect, not process substitution.
		if c == '>' && i > 0 && text[i-1] >= '0' && text[i-1] <= '9' {
			continue
		}
		depth := 0
		for j := i + 1; j < len(text); j++ {
			switch text[j] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return i, j, c, true
				}
			}
		}
		return 0, 0, 0, false
	}
	return 0, 0, 0, false
}

// drainOutputSubs feeds each >(cmd) body the bytes its temp file
// collected during the main command.
func (s *Session) drainOutputSubs(ctx context.Context, st *substitutionState) error {
	for _, sub := range st.outputSubs {
		data, err := os.ReadFile(sub.path)
		if err != nil {
			return errors.Wrap(errors.CodeExecution, "cannot read process substitution output", err)
		}
		if _, err := s.runRawWithStdin(ctx, sub.command, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func quotePath(path string) string {
	if strings.ContainsAny(path, " \t") {
		return `"` + path + `"`
	}
	return path
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
