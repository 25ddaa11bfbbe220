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
	"fmt"
	"strings"
)

// Node is a parsed command tree element. Parsing is total: any input
// yields either a well-formed tree or a ParseError, never both.
type Node interface {
	node()
	Text() string
}

// Redirect attaches a stream redirection to a simple command.
type Redirect struct {
	Op     string
	Target string
}

// SimpleCommand is one command name plus arguments and redirects.
type SimpleCommand struct {
	Name      string
	Args      []string
	Redirects []Redirect
}

// Pipeline chains stages through a shared stdin/stdout path.
type Pipeline struct {
	Stages []Node
}

// AndList runs Right only when Left exits zero.
type AndList struct {
	Left, Right Node
}

// OrList runs Right only when Left exits non-zero.
type OrList struct {
	Left, Right Node
}

// Sequence runs parts unconditionally in order.
type Sequence struct {
	Parts []Node
}

// Subshell runs its body against a copied variable context.
type Subshell struct {
	Body Node
}

// Group runs its body in the current context.
type Group struct {
	Body Node
}

// Background marks a part for detached execution.
type Background struct {
	Body Node
}

// ProcessSubstitution is a <(...) or >(...) span captured as a word.
type ProcessSubstitution struct {
	Direction string // "<" or ">"
	Body      string
}

func (*SimpleCommand) node()       {}
func (*Pipeline) node()            {}
func (*AndList) node()             {}
func (*OrList) node()              {}
func (*Sequence) node()            {}
func (*Subshell) node()            {}
func (*Group) node()               {}
func (*Background) node()          {}
func (*ProcessSubstitution) node() {}

func (c *SimpleCommand) Text() string {
	parts := make([]string, 0, 1+len(c.Args)+len(c.Redirects))
	parts = append(parts, c.Name)
	parts = append(parts, c.Args...)
	for _, r := range c.Redirects {
		if r.Target == "" {
			parts = append(parts, r.Op)
		} else {
			parts = append(parts, r.Op+" "+r.Target)
		}
	}
	return strings.Join(parts, " ")
}

func (p *Pipeline) Text() string {
	parts := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		parts[i] = s.Text()
	}
	return strings.Join(parts, " | ")
}

func (a *AndList) Text() string {
	return a.Left.Text() + " && " + a.Right.Text()
}

func (o *OrList) Text() string {
	return o.Left.Text() + " || " + o.Right.Text()
}

func (s *Sequence) Text() string {
	parts := make([]string, len(s.Parts))
	for i, p := range s.Parts {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "; ")
}

func (s *Subshell) Text() string {
	return "(" + s.Body.Text() + ")"
}

func (g *Group) Text() string {
	return "{ " + g.Body.Text() + "; }"
}

func (b *Background) Text() string {
	return b.Body.Text() + " &"
}

func (p *ProcessSubstitution) Text() string {
	return p.Direction + "(" + p.Body + ")"
}

// ParseError reports malformed input with position context.
type ParseError struct {
	Position int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: expected %s, found %s",
		e.Position, e.Expected, e.Found)
}

// Walk calls fn for every node in the tree, parents before children.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch v := n.(type) {
	case *Pipeline:
		for _, s := range v.Stages {
			Walk(s, fn)
		}
	case *AndList:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *OrList:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *Sequence:
		for _, p := range v.Parts {
			Walk(p, fn)
		}
	case *Subshell:
		Walk(v.Body, fn)
	case *Group:
		Walk(v.Body, fn)
	case *Background:
		Walk(v.Body, fn)
	}
}

// CommandNames collects the names of every simple command in the tree,
// in source order.
func CommandNames(n Node) []string {
	var names []string
	Walk(n, func(node Node) {
		if cmd, ok := node.(*SimpleCommand); ok {
			names = append(names, cmd.Name)
		}
	})
	return names
}
