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

package shell

import "regexp"

// VariableContext holds shell variable bindings for one session.
// Subshells operate on a Copy; mutations inside a subshell never
// reach the parent context.
type VariableContext struct {
	vars map[string]string
}

// NewVariableContext returns an empty variable context.
func NewVariableContext() *VariableContext {
	return &VariableContext{vars: make(map[string]string)}
}

// Set binds name to value, replacing any previous binding.
func (c *VariableContext) Set(name, value string) {
	c.vars[name] = value
}

// Get returns the value bound to name and whether it exists.
func (c *VariableContext) Get(name string) (string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Has reports whether name is bound.
func (c *VariableContext) Has(name string) bool {
	_, ok := c.vars[name]
	return ok
}

// Delete removes a binding if present.
func (c *VariableContext) Delete(name string) {
	delete(c.vars, name)
}

// Clear removes all bindings.
func (c *VariableContext) Clear() {
	c.vars = make(map[string]string)
}

// Len returns the number of bindings.
func (c *VariableContext) Len() int {
	return len(c.vars)
}

// Names returns all bound names in unspecified order.
func (c *VariableContext) Names() []string {
	names := make([]string, 0, len(c.vars))
	for name := range c.vars {
		names = append(names, name)
	}
	return names
}

// Copy returns an independent snapshot for subshell execution.
func (c *VariableContext) Copy() *VariableContext {
	dup := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		dup[k] = v
	}
	return &VariableContext{vars: dup}
}

var assignmentRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)

// ParseAssignment recognizes a bare name=value command. Surrounding
// single or double quotes on the value are stripped.
func ParseAssignment(text string) (name, value string, ok bool) {
	m := assignmentRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	name, value = m[1], m[2]
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return name, value, true
}
