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

import "strings"

// TokenType enumerates lexical classes.
type TokenType int

const (
	TokWord TokenType = iota
	TokPipe
	TokSemi
	TokAndIf  // &&
	TokOrIf   // ||
	TokAmp    // &
	TokLess   // <
	TokGreat  // >
	TokDGreat // >>
	TokErrGreat  // 2>
	TokErrDGreat // 2>>
	TokErrToOut  // 2>&1
	TokAllGreat  // &>
	TokHeredoc      // <<
	TokHeredocStrip // <<-
	TokHereString   // <<<
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokEOF
)

func (t TokenType) String() string {
	switch t {
	case TokWord:
		return "word"
	case TokPipe:
		return "|"
	case TokSemi:
		return ";"
	case TokAndIf:
		return "&&"
	case TokOrIf:
		return "||"
	case TokAmp:
		return "&"
	case TokLess:
		return "<"
	case TokGreat:
		return ">"
	case TokDGreat:
		return ">>"
	case TokErrGreat:
		return "2>"
	case TokErrDGreat:
		return "2>>"
	case TokErrToOut:
		return "2>&1"
	case TokAllGreat:
		return "&>"
	case TokHeredoc:
		return "<<"
	case TokHeredocStrip:
		return "<<-"
	case TokHereString:
		return "<<<"
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	case TokLBrace:
		return "{"
	case TokRBrace:
		return "}"
	case TokEOF:
		return "end of input"
	}
	return "unknown"
}

// Token is one lexical unit with its source position.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// lex splits input into tokens. Quoted spans, $(...), $((...)),
// backticks, <(...) and >(...) stay inside a single word token.
func lex(src string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(src) {
		c := src[i]
		if c == ' ' || c == '\t' || c == '\n' {
			i++
			continue
		}

		// Operators, longest first.
		if tok, width := matchOperator(src, i); width > 0 {
			tokens = append(tokens, Token{Type: tok, Value: src[i : i+width], Pos: i})
			i += width
			continue
		}

		start := i
		word, next, err := lexWord(src, i)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, Token{Type: TokWord, Value: word, Pos: start})
		i = next
	}
	tokens = append(tokens, Token{Type: TokEOF, Pos: len(src)})
	return tokens, nil
}

// matchOperator recognizes an operator at position i, returning its
// token type and width, or width zero for none.
func matchOperator(src string, i int) (TokenType, int) {
	rest := src[i:]
	switch {
	case strings.HasPrefix(rest, "2>&1"):
		return TokErrToOut, 4
	case strings.HasPrefix(rest, "2>>"):
		return TokErrDGreat, 3
	case strings.HasPrefix(rest, "2>"):
		return TokErrGreat, 2
	case strings.HasPrefix(rest, "<<<"):
		return TokHereString, 3
	case strings.HasPrefix(rest, "<<-"):
		return TokHeredocStrip, 3
	case strings.HasPrefix(rest, "<<"):
		return TokHeredoc, 2
	case strings.HasPrefix(rest, "<("):
		return 0, 0 // part of a word
	case strings.HasPrefix(rest, ">("):
		return 0, 0
	case strings.HasPrefix(rest, "&&"):
		return TokAndIf, 2
	case strings.HasPrefix(rest, "&>"):
		return TokAllGreat, 2
	case strings.HasPrefix(rest, "||"):
		return TokOrIf, 2
	case strings.HasPrefix(rest, ">>"):
		return TokDGreat, 2
	case rest[0] == '|':
		return TokPipe, 1
	case rest[0] == ';':
		return TokSemi, 1
	case rest[0] == '&':
		return TokAmp, 1
	case rest[0] == '<':
		return TokLess, 1
	case rest[0] == '>':
		return TokGreat, 1
	case rest[0] == '(':
		return TokLParen, 1
	case rest[0] == ')':
		return TokRParen, 1
	case rest[0] == '{' && isBraceGroup(src, i):
		return TokLBrace, 1
	case rest[0] == '}' && isStandalone(src, i):
		return TokRBrace, 1
	}
	return 0, 0
}

// isBraceGroup reports whether '{' at i opens a command group rather
// than literal brace text; command groups require trailing whitespace.
func isBraceGroup(src string, i int) bool {
	return i+1 < len(src) && (src[i+1] == ' ' || src[i+1] == '\t')
}

// isStandalone reports whether '}' at i is a word of its own.
func isStandalone(src string, i int) bool {
	before := i == 0 || src[i-1] == ' ' || src[i-1] == '\t' || src[i-1] == ';'
	after := i+1 == len(src) || src[i+1] == ' ' || src[i+1] == '\t' || src[i+1] == ';'
	return before && after
}

// lexWord consumes one word starting at i, keeping quotes, command
// substitutions and process substitutions intact.
func lexWord(src string, i int) (string, int, error) {
	var out strings.Builder
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			return out.String(), i, nil
		case c == '\'' || c == '"':
			end := closingQuote(src, i)
			if end < 0 {
				return "", 0, &ParseError{Position: i, Expected: "closing quote", Found: "end of input"}
			}
			out.WriteString(src[i : end+1])
			i = end + 1
		case c == '`':
			end := strings.IndexByte(src[i+1:], '`')
			if end < 0 {
				return "", 0, &ParseError{Position: i, Expected: "closing backtick", Found: "end of input"}
			}
			out.WriteString(src[i : i+end+2])
			i += end + 2
		case c == '$' && i+1 < len(src) && src[i+1] == '(':
			end := closingParen(src, i+1)
			if end < 0 {
				return "", 0, &ParseError{Position: i, Expected: ")", Found: "end of input"}
			}
			out.WriteString(src[i : end+1])
			i = end + 1
		case (c == '<' || c == '>') && i+1 < len(src) && src[i+1] == '(':
			end := closingParen(src, i+1)
			if end < 0 {
				return "", 0, &ParseError{Position: i, Expected: ")", Found: "end of input"}
			}
			out.WriteString(src[i : end+1])
			i = end + 1
		default:
			if _, width := matchOperator(src, i); width > 0 {
				return out.String(), i, nil
			}
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), i, nil
}

// closingQuote finds the index of the quote matching src[i].
func closingQuote(src string, i int) int {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		if src[j] == q {
			return j
		}
	}
	return -1
}

// closingParen finds the ')' balancing the '(' at open.
func closingParen(src string, open int) int {
	depth := 0
	for j := open; j < len(src); j++ {
		switch src[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
