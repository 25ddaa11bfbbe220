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
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Brace expansion is a recursive descent over balanced delimiters. Each
// token is rewritten by locating its first expandable group, resolving
// the group to items, and recursing on prefix+item+suffix. Recursion on
// the reassembled strings handles nesting and yields the cartesian
// product of adjacent groups without rescanning already-expanded text.

var (
	numRangeRe   = regexp.MustCompile(`^(-?\d+)\.\.(-?\d+)$`)
	alphaRangeRe = regexp.MustCompile(`^([a-zA-Z])\.\.([a-zA-Z])$`)
)

// ExpandBraces performs brace expansion on a full command string,
// token by token. Quoted tokens are left untouched.
func ExpandBraces(text string) string {
	fields := strings.Split(text, " ")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == "" || strings.HasPrefix(field, "'") || strings.HasPrefix(field, `"`) {
			out = append(out, field)
			continue
		}
		out = append(out, strings.Join(expandBraceToken(field), " "))
	}
	return strings.Join(out, " ")
}

// expandBraceToken expands one whitespace-delimited token into its full
// list of combinations, in left-to-right positional order.
func expandBraceToken(token string) []string {
	prefix, items, suffix, ok := findGroup(token)
	if !ok {
		return []string{token}
	}
	var results []string
	for _, item := range items {
		results = append(results, expandBraceToken(prefix+item+suffix)...)
	}
	return results
}

// findGroup locates the first expandable brace group in token and splits
// it into prefix, resolved items and suffix. Groups preceded by '$' are
// parameter expansions, and groups with neither a top-level comma nor a
// range are literal text; both are skipped.
func findGroup(token string) (prefix string, items []string, suffix string, ok bool) {
	for open := 0; open < len(token); open++ {
		if token[open] != '{' {
			continue
		}
		if open > 0 && token[open-1] == '$' {
			open = skipBalanced(token, open)
			continue
		}
		close := matchingBrace(token, open)
		if close < 0 {
			continue
		}
		body := token[open+1 : close]
		resolved := resolveGroup(body)
		if resolved == nil {
			// Literal group like {abc}; keep scanning inside it.
			continue
		}
		return token[:open], resolved, token[close+1:], true
	}
	return "", nil, "", false
}

// matchingBrace returns the index of the brace closing the one at open,
// or -1 when unbalanced.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipBalanced advances past a balanced group starting at open, for
// skipping ${...} spans.
func skipBalanced(s string, open int) int {
	if end := matchingBrace(s, open); end > 0 {
		return end
	}
	return open
}

// resolveGroup turns a brace body into its items, or nil when the body
// is not an expandable group.
func resolveGroup(body string) []string {
	if m := numRangeRe.FindStringSubmatch(body); m != nil {
		return numericRange(m[1], m[2])
	}
	if m := alphaRangeRe.FindStringSubmatch(body); m != nil {
		return alphaRange(m[1][0], m[2][0])
	}
	items := splitTopLevel(body, ',')
	if len(items) < 2 {
		return nil
	}
	return items
}

func numericRange(fromStr, toStr string) []string {
	from, _ := strconv.Atoi(fromStr)
	to, _ := strconv.Atoi(toStr)

	pad := 0
	if hasLeadingZero(fromStr) || hasLeadingZero(toStr) {
		if len(fromStr) > pad {
			pad = len(fromStr)
		}
		if len(toStr) > pad {
			pad = len(toStr)
		}
	}

	step := 1
	if from > to {
		step = -1
	}
	var items []string
	for i := from; ; i += step {
		if pad > 0 {
			items = append(items, fmt.Sprintf("%0*d", pad, i))
		} else {
			items = append(items, strconv.Itoa(i))
		}
		if i == to {
			break
		}
	}
	return items
}

func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0'
}

func alphaRange(from, to byte) []string {
	step := 1
	if from > to {
		step = -1
	}
	var items []string
	for c := int(from); ; c += step {
		items = append(items, string(rune(c)))
		if c == int(to) {
			break
		}
	}
	return items
}

// splitTopLevel splits body on sep, ignoring separators nested inside
// inner brace groups.
func splitTopLevel(body string, sep byte) []string {
	var items []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case sep:
			if depth == 0 {
				items = append(items, body[start:i])
				start = i + 1
			}
		}
	}
	items = append(items, body[start:])
	return items
}
