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

// Package expand rewrites bash surface syntax into a form the parser can
// consume. Passes run in a fixed order; later passes assume earlier ones
// are done. Command substitution and heredocs are pipeline concerns and
// are handled by the session, not here.
package expand

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"bashport/internal/shell"
)

// Preprocessor applies command-level expansion passes against a session
// variable context.
type Preprocessor struct {
	ctx  *shell.VariableContext
	home string
	log  zerolog.Logger
}

// New builds a preprocessor bound to ctx. home is the sandbox home
// directory used for tilde expansion.
func New(ctx *shell.VariableContext, home string, log zerolog.Logger) *Preprocessor {
	return &Preprocessor{ctx: ctx, home: home, log: log}
}

// Process runs every pass in order: alias, tilde, test normalization,
// arithmetic, variables, braces.
func (p *Preprocessor) Process(text string) (string, error) {
	out := p.expandAliases(text)
	out = p.expandTilde(out)
	out = normalizeTest(out)

	out, err := ExpandArithmetic(out, p.ctx)
	if err != nil {
		return "", err
	}
	out = ExpandVariables(out, p.ctx)
	out = ExpandBraces(out)

	if out != text {
		p.log.Debug().Str("from", text).Str("to", out).Msg("preprocessed")
	}
	return out, nil
}

// expandAliases rewrites the leading word of each command segment
// through the alias table. Segments begin at the start of the line and
// after | ; && ||.
func (p *Preprocessor) expandAliases(text string) string {
	segments := splitSegments(text)
	changed := false
	for i, seg := range segments {
		trimmed := strings.TrimLeft(seg, " \t")
		lead := seg[:len(seg)-len(trimmed)]
		fields := strings.SplitN(trimmed, " ", 2)
		if len(fields) == 0 || fields[0] == "" {
			continue
		}
		if expansion, ok := shell.LookupAlias(fields[0]); ok {
			rest := ""
			if len(fields) == 2 {
				rest = " " + fields[1]
			}
			segments[i] = lead + expansion + rest
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(segments, "")
}

// splitSegments cuts text at command boundaries, keeping operators
// attached to the preceding segment so Join reassembles losslessly.
func splitSegments(text string) []string {
	var segments []string
	start := 0
	inSingle, inDouble := false, false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '|', ';', '&':
			if inSingle || inDouble {
				continue
			}
			end := i + 1
			if end < len(text) && (text[end] == '|' || text[end] == '&') && text[end] == text[i] {
				end++
			}
			segments = append(segments, text[start:end])
			start = end
			i = end - 1
		}
	}
	segments = append(segments, text[start:])
	return segments
}

// expandTilde resolves ~ at the start of a word to the sandbox home.
func (p *Preprocessor) expandTilde(text string) string {
	fields := strings.Split(text, " ")
	for i, f := range fields {
		if f == "~" {
			fields[i] = p.home
		} else if strings.HasPrefix(f, "~/") {
			fields[i] = p.home + f[1:]
		}
	}
	return strings.Join(fields, " ")
}

var testCommandRe = regexp.MustCompile(`(^|[;&|]\s*)\[\s+(.+?)\s+\]`)

// normalizeTest rewrites [ expr ] into test expr so single-bracket
// conditions parse as ordinary commands.
func normalizeTest(text string) string {
	return testCommandRe.ReplaceAllString(text, "${1}test ${2}")
}
