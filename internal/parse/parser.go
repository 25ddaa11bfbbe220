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

// Package parse turns preprocessed command text into a command tree.
// Grammar, loosest binding first: sequence (';', trailing '&'), and/or
// lists ('&&', '||'), pipelines ('|'), then atoms: subshells, groups
// and simple commands with redirects.
package parse

// Parse builds the tree for one command line.
func Parse(src string) (Node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokEOF {
		return nil, &ParseError{Position: tok.Pos, Expected: "end of input", Found: tok.Type.String()}
	}
	return node, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseSequence() (Node, error) {
	var parts []Node
	for {
		part, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}
		if p.peek().Type == TokAmp {
			p.next()
			part = &Background{Body: part}
		}
		parts = append(parts, part)

		if p.peek().Type != TokSemi {
			break
		}
		p.next()
		// Allow a trailing semicolon.
		if t := p.peek().Type; t == TokEOF || t == TokRParen || t == TokRBrace {
			break
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return &Sequence{Parts: parts}, nil
}

func (p *parser) parseAndOr() (Node, error) {
	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case TokAndIf:
			p.next()
			right, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			left = &AndList{Left: left, Right: right}
		case TokOrIf:
			p.next()
			right, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			left = &OrList{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parsePipeline() (Node, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != TokPipe {
		return first, nil
	}
	stages := []Node{first}
	for p.peek().Type == TokPipe {
		p.next()
		stage, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return &Pipeline{Stages: stages}, nil
}

func (p *parser) parseAtom() (Node, error) {
	switch tok := p.peek(); tok.Type {
	case TokLParen:
		p.next()
		body, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if closer := p.next(); closer.Type != TokRParen {
			return nil, &ParseError{Position: closer.Pos, Expected: ")", Found: closer.Type.String()}
		}
		return &Subshell{Body: body}, nil
	case TokLBrace:
		p.next()
		body, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if closer := p.next(); closer.Type != TokRBrace {
			return nil, &ParseError{Position: closer.Pos, Expected: "}", Found: closer.Type.String()}
		}
		return &Group{Body: body}, nil
	case TokWord:
		return p.parseSimpleCommand()
	default:
		return nil, &ParseError{Position: tok.Pos, Expected: "command", Found: tok.Type.String()}
	}
}

func (p *parser) parseSimpleCommand() (Node, error) {
	cmd := &SimpleCommand{}
	for {
		switch tok := p.peek(); tok.Type {
		case TokWord:
			p.next()
			if cmd.Name == "" {
				cmd.Name = tok.Value
			} else {
				cmd.Args = append(cmd.Args, tok.Value)
			}
		case TokLess, TokGreat, TokDGreat, TokErrGreat, TokErrDGreat,
			TokAllGreat, TokHeredoc, TokHeredocStrip, TokHereString:
			op := p.next()
			target := p.next()
			if target.Type != TokWord {
				return nil, &ParseError{Position: target.Pos, Expected: "redirect target", Found: target.Type.String()}
			}
			cmd.Redirects = append(cmd.Redirects, Redirect{Op: op.Type.String(), Target: target.Value})
		case TokErrToOut:
			p.next()
			cmd.Redirects = append(cmd.Redirects, Redirect{Op: tok.Type.String()})
		default:
			if cmd.Name == "" {
				return nil, &ParseError{Position: tok.Pos, Expected: "command name", Found: tok.Type.String()}
			}
			return cmd, nil
		}
	}
}
