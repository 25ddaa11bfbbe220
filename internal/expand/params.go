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
	"regexp"
	"strconv"
	"strings"

	"bashport/internal/shell"
)

// ExpandVariables resolves $VAR and ${...} parameter forms against ctx.
// Command substitution spans $( ... ) are left intact for the pipeline
// preprocessor; text inside single quotes is never expanded. Unresolved
// variables expand to empty unless a default-value form supplies one.
func ExpandVariables(text string, ctx *shell.VariableContext) string {
	var out strings.Builder
	inSingle := false
	inDouble := false
	for i := 0; i < len(text); {
		c := text[i]
		if c == '"' && !inSingle {
			inDouble = !inDouble
			out.WriteByte(c)
			i++
			continue
		}
		// An apostrophe inside double quotes is literal, not a quote.
		if c == '\'' && !inDouble {
			inSingle = !inSingle
			out.WriteByte(c)
			i++
			continue
		}
		if c != '$' || inSingle || i+1 >= len(text) {
			out.WriteByte(c)
			i++
			continue
		}
		next := text[i+1]
		switch {
		case next == '(':
			// $( ... ) or $(( ... )): not ours, copy the balanced span.
			end := matchingParen(text, i+1)
			if end < 0 {
				out.WriteByte(c)
				i++
				continue
			}
			out.WriteString(text[i : end+1])
			i = end + 1
		case next == '{':
			end := matchingBrace(text, i+1)
			if end < 0 {
				out.WriteByte(c)
				i++
				continue
			}
			out.WriteString(expandParameter(text[i+2:end], ctx))
			i = end + 1
		case isNameStart(next):
			j := i + 1
			for j < len(text) && isNameChar(text[j]) {
				j++
			}
			name := text[i+1 : j]
			value, _ := ctx.Get(name)
			out.WriteString(value)
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

var paramOpRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(##|#|%%|%|//|/|\^\^|\^|,,|,|:-)?(.*)$`)

// expandParameter evaluates the body of a ${...} expression.
func expandParameter(body string, ctx *shell.VariableContext) string {
	if strings.HasPrefix(body, "#") {
		value, _ := ctx.Get(body[1:])
		return strconv.Itoa(len(value))
	}

	m := paramOpRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	name, op, arg := m[1], m[2], m[3]
	value, exists := ctx.Get(name)

	switch op {
	case "":
		return value
	case ":-":
		if !exists || value == "" {
			return arg
		}
		return value
	case "#":
		return stripPrefix(value, arg, false)
	case "##":
		return stripPrefix(value, arg, true)
	case "%":
		return stripSuffix(value, arg, false)
	case "%%":
		return stripSuffix(value, arg, true)
	case "/", "//":
		pat, rep := arg, ""
		if idx := strings.Index(arg, "/"); idx >= 0 {
			pat, rep = arg[:idx], arg[idx+1:]
		}
		return replacePattern(value, pat, rep, op == "//")
	case "^":
		return upperFirst(value)
	case "^^":
		return strings.ToUpper(value)
	case ",":
		return lowerFirst(value)
	case ",,":
		return strings.ToLower(value)
	}
	return value
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// globToRegexp converts a shell glob to an anchored-free regexp source.
func globToRegexp(pat string) string {
	var out strings.Builder
	for i := 0; i < len(pat); i++ {
		switch c := pat[i]; c {
		case '*':
			out.WriteString(".*")
		case '?':
			out.WriteByte('.')
		default:
			out.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return out.String()
}

// stripPrefix removes the shortest or longest glob-matching prefix.
func stripPrefix(value, pat string, longest bool) string {
	re, err := regexp.Compile("^" + globToRegexp(pat) + "$")
	if err != nil {
		return value
	}
	if longest {
		for end := len(value); end >= 0; end-- {
			if re.MatchString(value[:end]) {
				return value[end:]
			}
		}
	} else {
		for end := 0; end <= len(value); end++ {
			if re.MatchString(value[:end]) {
				return value[end:]
			}
		}
	}
	return value
}

// stripSuffix removes the shortest or longest glob-matching suffix.
func stripSuffix(value, pat string, longest bool) string {
	re, err := regexp.Compile("^" + globToRegexp(pat) + "$")
	if err != nil {
		return value
	}
	if longest {
		for start := 0; start <= len(value); start++ {
			if re.MatchString(value[start:]) {
				return value[:start]
			}
		}
	} else {
		for start := len(value); start >= 0; start-- {
			if re.MatchString(value[start:]) {
				return value[:start]
			}
		}
	}
	return value
}

// replacePattern substitutes glob pat with rep, first match or all.
func replacePattern(value, pat, rep string, all bool) string {
	re, err := regexp.Compile(globToRegexp(pat))
	if err != nil {
		return value
	}
	if all {
		return re.ReplaceAllLiteralString(value, rep)
	}
	replaced := false
	return re.ReplaceAllStringFunc(value, func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		return rep
	})
}
