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
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func echoTool(name string) Tool {
	return &ToolDefinition{
		NameValue:       name,
		ParametersValue: map[string]interface{}{"type": "object"},
		ExecuteFunc: func(_ context.Context, args map[string]interface{}) (string, error) {
			return StringArg(args, "text"), nil
		},
		ValidateFunc: RequireStringArg("text", "text is required"),
		VersionValue: "1.0.0",
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistryWithPolicy(PolicyFromLists([]string{"echo"}, nil))
	defer r.Close()
	if err := r.RegisterTool(echoTool("echo")); err != nil {
		t.Fatal(err)
	}

	res := r.Execute(t.Context(), "echo", map[string]interface{}{"text": "hi"})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res.Result != "hi" {
		t.Errorf("result = %q", res.Result)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	res := r.Execute(t.Context(), "nope", nil)
	if !errors.Is(res.Error, ErrToolNotFound) {
		t.Errorf("error = %v", res.Error)
	}
}

func TestRegistryPolicyBlocks(t *testing.T) {
	r := NewRegistryWithPolicy(PolicyFromLists(nil, nil))
	defer r.Close()
	if err := r.RegisterTool(echoTool("echo")); err != nil {
		t.Fatal(err)
	}
	res := r.Execute(t.Context(), "echo", map[string]interface{}{"text": "x"})
	if !errors.Is(res.Error, ErrToolNotAllowed) {
		t.Errorf("error = %v", res.Error)
	}

	// Force bypasses policy.
	res = r.ExecuteWithOptions(t.Context(), "echo", map[string]interface{}{"text": "x"}, ExecuteOptions{Force: true})
	if res.Error != nil {
		t.Errorf("forced call failed: %v", res.Error)
	}
}

func TestRegistryConfirmationRequired(t *testing.T) {
	r := NewRegistryWithPolicy(PolicyFromLists([]string{"echo"}, []string{"echo"}))
	defer r.Close()
	if err := r.RegisterTool(echoTool("echo")); err != nil {
		t.Fatal(err)
	}
	res := r.Execute(t.Context(), "echo", map[string]interface{}{"text": "x"})
	if !errors.Is(res.Error, ErrToolRequiresConfirmation) {
		t.Errorf("error = %v", res.Error)
	}
}

func TestRegistryValidatesArguments(t *testing.T) {
	r := NewRegistryWithPolicy(PolicyFromLists([]string{"echo"}, nil))
	defer r.Close()
	if err := r.RegisterTool(echoTool("echo")); err != nil {
		t.Fatal(err)
	}
	res := r.Execute(t.Context(), "echo", map[string]interface{}{})
	if !errors.Is(res.Error, ErrInvalidArguments) {
		t.Errorf("error = %v", res.Error)
	}
}

func TestIncompatibleToolRejected(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	bad := &ToolDefinition{
		NameValue:          "bad",
		CompatibleWithFunc: func(string) bool { return false },
	}
	if err := r.RegisterTool(bad); err == nil {
		t.Fatal("expected registration error")
	}
}

func TestOpenAIToolCallRoundTrip(t *testing.T) {
	r := NewRegistryWithPolicy(PolicyFromLists([]string{"echo"}, nil))
	defer r.Close()
	if err := r.RegisterTool(echoTool("echo")); err != nil {
		t.Fatal(err)
	}

	defs := r.OpenAITools()
	if len(defs) != 1 || defs[0].Function.Name != "echo" {
		t.Fatalf("defs = %+v", defs)
	}

	res := r.ExecuteOpenAIToolCall(t.Context(), openai.ToolCall{
		Function: openai.FunctionCall{Name: "echo", Arguments: `{"text":"roundtrip"}`},
	})
	if res.Error != nil || res.Result != "roundtrip" {
		t.Errorf("res = %+v", res)
	}

	res = r.ExecuteOpenAIToolCall(t.Context(), openai.ToolCall{
		Function: openai.FunctionCall{Name: "echo", Arguments: `{not json`},
	})
	if !errors.Is(res.Error, ErrInvalidArguments) {
		t.Errorf("error = %v", res.Error)
	}
}

func TestBashToolSchema(t *testing.T) {
	params := mustSchemaParametersFor[executeBashArgs]()
	props, ok := params["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("params = %v", params)
	}
	if _, ok := props["command"]; !ok {
		t.Error("schema must describe the command property")
	}
}

func TestSanitizeOutputStripsANSI(t *testing.T) {
	ConfigureOutputFilters(OutputFilterConfig{MaxChars: 100, StripANSI: true, StripControl: true})
	defer ConfigureOutputFilters(DefaultOutputFilterConfig())

	out, truncated := sanitizeToolOutput("\x1b[31mred\x1b[0m text\x00")
	if truncated {
		t.Error("should not truncate")
	}
	if out != "red text" {
		t.Errorf("out = %q", out)
	}
}

func TestSanitizeOutputTruncates(t *testing.T) {
	ConfigureOutputFilters(OutputFilterConfig{MaxChars: 10})
	defer ConfigureOutputFilters(DefaultOutputFilterConfig())

	out, truncated := sanitizeToolOutput(strings.Repeat("a", 50))
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !strings.HasPrefix(out, strings.Repeat("a", 10)) {
		t.Errorf("out = %q", out)
	}
}

func TestCooldownLimitsRepeatCalls(t *testing.T) {
	rl := newToolRateLimiter(0, 50*time.Millisecond)
	defer rl.Stop()
	if err := rl.Allow(); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := rl.Allow(); !errors.Is(err, ErrToolInCooldown) {
		t.Errorf("second call error = %v", err)
	}
}
