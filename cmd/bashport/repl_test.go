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

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"bashport/internal/config"
	"bashport/internal/dispatch"
	"bashport/internal/session"
	"bashport/internal/strategy"
	"bashport/internal/tools"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	logger := zerolog.Nop()
	cfg := config.DefaultConfig()
	provider := strategy.StaticProvider{Caps: strategy.Capabilities{}}
	host := dispatch.NewHost("", t.TempDir(), logger)
	host.SetTestMode(true)
	sess := session.New(session.Options{
		Provider:   provider,
		Dispatcher: host,
		Workdir:    t.TempDir(),
		Log:        logger,
	})
	registry := tools.NewRegistry()
	if err := registry.RegisterTool(tools.NewBashTool(sess)); err != nil {
		t.Fatalf("failed to register tool: %v", err)
	}
	t.Cleanup(registry.Close)
	return &app{
		cfg:      cfg,
		provider: provider,
		host:     host,
		sess:     sess,
		registry: registry,
		logger:   logger,
	}
}

func TestHandleCommandQuit(t *testing.T) {
	a := newTestApp(t)
	if !handleCommand(":quit", a) {
		t.Fatal("expected :quit to signal exit")
	}
	if !handleCommand(":exit", a) {
		t.Fatal("expected :exit to signal exit")
	}
}

func TestHandleCommandUnknown(t *testing.T) {
	a := newTestApp(t)
	if handleCommand(":bogus", a) {
		t.Fatal("unknown command must not exit the loop")
	}
}

func TestHandleCommandTestModeToggles(t *testing.T) {
	a := newTestApp(t)
	before := a.host.TestMode()
	if handleCommand(":test-mode", a) {
		t.Fatal("expected :test-mode to keep the loop running")
	}
	if a.host.TestMode() == before {
		t.Fatal("expected test mode to toggle")
	}
}

func TestAvailableCommandsHaveDescriptions(t *testing.T) {
	for _, cmd := range getAvailableCommands() {
		if cmd.Name == "" || cmd.Description == "" {
			t.Fatalf("command %+v missing name or description", cmd)
		}
	}
}

func TestExecuteRoutesThroughRegistry(t *testing.T) {
	a := newTestApp(t)
	output, code := a.execute(context.Background(), "pwd")
	if code != 0 {
		t.Fatalf("expected success, got exit code %d: %s", code, output)
	}
	if !strings.Contains(output, "Exit code: 0") {
		t.Fatalf("expected formatted result, got %q", output)
	}
}

func TestExecuteBlockedCommandReported(t *testing.T) {
	a := newTestApp(t)
	output, code := a.execute(context.Background(), "systemctl restart nginx")
	if code != 0 {
		t.Fatalf("refusals are reported in-band, got exit code %d", code)
	}
	if !strings.Contains(output, "SECURITY VIOLATION") {
		t.Fatalf("expected security refusal, got %q", output)
	}
}
