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

package tools

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"bashport/internal/session"
	"bashport/internal/strategy"
)

func newBashToolRegistry(t *testing.T) *Registry {
	t.Helper()
	sess := session.New(session.Options{
		Provider: strategy.StaticProvider{},
		Workdir:  t.TempDir(),
		Log:      zerolog.Nop(),
	})
	r := NewRegistry()
	if err := r.RegisterTool(NewBashTool(sess)); err != nil {
		t.Fatalf("register: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestBashToolExecutesBuiltin(t *testing.T) {
	r := newBashToolRegistry(t)
	res := r.Execute(t.Context(), "execute_bash_command", map[string]interface{}{
		"command": "pwd",
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if !strings.Contains(res.Result, "Exit code: 0") {
		t.Errorf("result = %q", res.Result)
	}
}

func TestBashToolAcceptsDescriptionArg(t *testing.T) {
	r := newBashToolRegistry(t)
	res := r.Execute(t.Context(), "execute_bash_command", map[string]interface{}{
		"command":     "pwd",
		"description": "show working directory",
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if !strings.Contains(res.Result, "Exit code: 0") {
		t.Errorf("result = %q", res.Result)
	}
}

func TestBashToolReportsSecurityViolation(t *testing.T) {
	r := newBashToolRegistry(t)
	res := r.Execute(t.Context(), "execute_bash_command", map[string]interface{}{
		"command": "systemctl restart nginx",
	})
	if res.Error != nil {
		t.Fatalf("refusals are in-band: %v", res.Error)
	}
	if !strings.Contains(res.Result, "SECURITY VIOLATION") {
		t.Errorf("result = %q", res.Result)
	}
}

func TestBashToolRequiresCommand(t *testing.T) {
	r := newBashToolRegistry(t)
	res := r.Execute(t.Context(), "execute_bash_command", map[string]interface{}{})
	if res.Error == nil {
		t.Fatal("expected validation error for missing command")
	}
}
