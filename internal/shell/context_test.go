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

import "testing"

func TestVariableContextSetGet(t *testing.T) {
	ctx := NewVariableContext()
	ctx.Set("NAME", "value")

	got, ok := ctx.Get("NAME")
	if !ok || got != "value" {
		t.Fatalf("Get(NAME) = %q, %v; want value, true", got, ok)
	}
	if _, ok := ctx.Get("MISSING"); ok {
		t.Fatal("Get(MISSING) reported existing binding")
	}
}

func TestVariableContextCopyIsolation(t *testing.T) {
	parent := NewVariableContext()
	parent.Set("X", "1")

	child := parent.Copy()
	child.Set("X", "2")
	child.Set("Y", "3")

	if v, _ := parent.Get("X"); v != "1" {
		t.Errorf("parent X = %q after child mutation, want 1", v)
	}
	if parent.Has("Y") {
		t.Error("child binding Y leaked into parent")
	}
	if v, _ := child.Get("X"); v != "2" {
		t.Errorf("child X = %q, want 2", v)
	}
}

func TestVariableContextDeleteClear(t *testing.T) {
	ctx := NewVariableContext()
	ctx.Set("A", "1")
	ctx.Set("B", "2")

	ctx.Delete("A")
	if ctx.Has("A") {
		t.Error("A still bound after Delete")
	}
	ctx.Clear()
	if ctx.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", ctx.Len())
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in    string
		name  string
		value string
		ok    bool
	}{
		{"FOO=bar", "FOO", "bar", true},
		{"X=", "X", "", true},
		{`GREETING="hello world"`, "GREETING", "hello world", true},
		{"GREETING='hi'", "GREETING", "hi", true},
		{"_private=1", "_private", "1", true},
		{"2bad=1", "", "", false},
		{"echo hello", "", "", false},
		{"a-b=1", "", "", false},
	}
	for _, tt := range tests {
		name, value, ok := ParseAssignment(tt.in)
		if ok != tt.ok || name != tt.name || value != tt.value {
			t.Errorf("ParseAssignment(%q) = %q, %q, %v; want %q, %q, %v",
				tt.in, name, value, ok, tt.name, tt.value, tt.ok)
		}
	}
}

func TestLookupAlias(t *testing.T) {
	if got, ok := LookupAlias("ll"); !ok || got != "ls -la" {
		t.Fatalf("LookupAlias(ll) = %q, %v", got, ok)
	}
	if _, ok := LookupAlias("nosuch"); ok {
		t.Fatal("LookupAlias(nosuch) resolved")
	}
}
