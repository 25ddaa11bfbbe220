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
	"strconv"
	"strings"

	"bashport/internal/errors"
	"bashport/internal/shell"
)

// ExpandArithmetic rewrites every $(( ... )) span with its integer
// result. Variable names inside the expression resolve through ctx;
// unbound names evaluate to zero, as bash does.
func ExpandArithmetic(text string, ctx *shell.VariableContext) (string, error) {
	var out strings.Builder
	for i := 0; i < len(text); {
		if i+2 < len(text) && text[i] == '$' && text[i+1] == '(' && text[i+2] == '(' {
			end := matchingParen(text, i+1)
			if end < 0 || end-1 >= len(text) || text[end-1] != ')' {
				return "", errors.New(errors.CodeParse, "unbalanced arithmetic expansion")
			}
			inner := text[i+3 : end-1]
			n, err := evalArith(inner, ctx)
			if err != nil {
				return "", err
			}
			out.WriteString(strconv.FormatInt(n, 10))
			i = end + 1
			continue
		}
		out.WriteByte(text[i])
		i++
	}
	return out.String(), nil
}

// evalArith evaluates + - * / % with parentheses and unary minus over
// 64-bit integers.
func evalArith(expr string, ctx *shell.VariableContext) (int64, error) {
	p := &arithParser{src: expr, ctx: ctx}
	n, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, errors.New(errors.CodeParse,
			fmt.Sprintf("unexpected %q in arithmetic expression", p.src[p.pos:]))
	}
	return n, nil
}

type arithParser struct {
	src string
	pos int
	ctx *shell.VariableContext
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *arithParser) parseAddSub() (int64, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		op := p.src[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseMulDiv()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *arithParser) parseMulDiv() (int64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		op := p.src[p.pos]
		if op != '*' && op != '/' && op != '%' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, errors.New(errors.CodeParse, "division by zero")
			}
			left /= right
		case '%':
			if right == 0 {
				return 0, errors.New(errors.CodeParse, "division by zero")
			}
			left %= right
		}
	}
}

func (p *arithParser) parseUnary() (int64, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
		n, err := p.parseUnary()
		return -n, err
	}
	if p.pos < len(p.src) && p.src[p.pos] == '+' {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *arithParser) parsePrimary() (int64, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, errors.New(errors.CodeParse, "unexpected end of arithmetic expression")
	}
	c := p.src[p.pos]
	switch {
	case c == '(':
		p.pos++
		n, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return 0, errors.New(errors.CodeParse, "missing closing parenthesis")
		}
		p.pos++
		return n, nil
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		return strconv.ParseInt(p.src[start:p.pos], 10, 64)
	case c == '$' || isNameStart(c):
		if c == '$' {
			p.pos++
			if p.pos >= len(p.src) || !isNameStart(p.src[p.pos]) {
				return 0, errors.New(errors.CodeParse, "bad variable reference in arithmetic")
			}
		}
		start := p.pos
		for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
			p.pos++
		}
		value, _ := p.ctx.Get(p.src[start:p.pos])
		if value == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, nil
		}
		return n, nil
	}
	return 0, errors.New(errors.CodeParse,
		fmt.Sprintf("unexpected %q in arithmetic expression", c))
}
