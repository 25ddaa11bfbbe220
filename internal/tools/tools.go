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

// Package tools exposes command execution to an LLM agent as OpenAI
// function-calling tools, with a registry enforcing policy, rate
// limits, timeouts, and output sanitization.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

// HostAPIVersion identifies the tool API version supported by this host.
const HostAPIVersion = "v1"

// Default allow/confirm lists.
var (
	DefaultAllowList   = []string{"execute_bash_command"}
	DefaultConfirmList = []string{}
)

// ExecutorFunc is the function signature for tool implementations.
type ExecutorFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool is a callable function with validation and execution hooks.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
	Validate(args map[string]interface{}) error
	Version() string
	CompatibleWith(hostVersion string) bool
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Function  string
	Result    string
	Error     error
	Truncated bool
}

// Permission describes the policy for a tool.
type Permission struct {
	Allowed             bool
	RequireConfirmation bool
}

// Policy configures which tools are allowed and which require confirmation.
type Policy struct {
	Allowed             map[string]bool
	RequireConfirmation map[string]bool
}

// DefaultPolicy returns the default allow/confirm policy.
func DefaultPolicy() Policy {
	return PolicyFromLists(DefaultAllowList, DefaultConfirmList)
}

// PolicyFromLists builds a policy from allow/confirmation lists.
func PolicyFromLists(allow, confirm []string) Policy {
	allowMap := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowMap[name] = true
	}
	confirmMap := make(map[string]bool, len(confirm))
	for _, name := range confirm {
		confirmMap[name] = true
	}
	return Policy{Allowed: allowMap, RequireConfirmation: confirmMap}
}

// ExecuteOptions controls how tool execution is handled.
type ExecuteOptions struct {
	// Force bypasses policy checks and confirmation requirements.
	Force bool
}

// Registry holds the available tools with their permissions.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	permissions map[string]Permission
	limiters    map[string]*toolRateLimiter
	timeouts    TimeoutConfig
}

// NewRegistry creates an empty registry under the default policy.
func NewRegistry() *Registry {
	return NewRegistryWithPolicy(DefaultPolicy())
}

// NewRegistryWithPolicy creates a registry with the provided policy.
func NewRegistryWithPolicy(policy Policy) *Registry {
	r := &Registry{
		tools:       make(map[string]Tool),
		permissions: make(map[string]Permission),
		limiters:    make(map[string]*toolRateLimiter),
		timeouts:    DefaultTimeoutConfig(),
	}
	r.applyPolicy(DefaultPolicy())
	r.applyPolicy(policy)
	r.configureRateLimits(DefaultRateLimitConfig())
	return r
}

// RegisterTool adds a tool to the registry. Tools built against a
// different host API version are rejected.
func (r *Registry) RegisterTool(tool Tool) error {
	if !tool.CompatibleWith(HostAPIVersion) {
		return fmt.Errorf("tool %q targets an incompatible API version %q", tool.Name(), tool.Version())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	if _, ok := r.permissions[tool.Name()]; !ok {
		// Unknown tools default to blocked + confirmation.
		r.permissions[tool.Name()] = Permission{Allowed: false, RequireConfirmation: true}
	}
	return nil
}

func (r *Registry) applyPolicy(policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	merge := func(name string) {
		perm, ok := r.permissions[name]
		if !ok {
			perm = Permission{Allowed: false, RequireConfirmation: true}
		}
		if policy.Allowed != nil {
			perm.Allowed = policy.Allowed[name]
		}
		if policy.RequireConfirmation != nil {
			perm.RequireConfirmation = policy.RequireConfirmation[name]
		}
		r.permissions[name] = perm
	}
	for name := range r.tools {
		merge(name)
	}
	for name := range policy.Allowed {
		merge(name)
	}
	for name := range policy.RequireConfirmation {
		merge(name)
	}
}

// ApplyPolicy merges a policy into the registry permissions.
func (r *Registry) ApplyPolicy(policy Policy) {
	r.applyPolicy(policy)
}

// ConfigureTimeouts replaces the timeout configuration.
func (r *Registry) ConfigureTimeouts(config TimeoutConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts = config
}

// ConfigureRateLimits rebuilds the per-tool limiters.
func (r *Registry) ConfigureRateLimits(config RateLimitConfig) {
	r.configureRateLimits(config)
}

func (r *Registry) configureRateLimits(config RateLimitConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rl := range r.limiters {
		rl.Stop()
	}
	r.limiters = make(map[string]*toolRateLimiter)
	seen := map[string]bool{}
	for name, rate := range config.PerTool {
		r.limiters[name] = newToolRateLimiter(rate, config.Cooldowns[name])
		seen[name] = true
	}
	for name, cooldown := range config.Cooldowns {
		if !seen[name] {
			r.limiters[name] = newToolRateLimiter(config.DefaultPerMinute, cooldown)
		}
	}
}

// GetToolNames returns the registered tool names, sorted.
func (r *Registry) GetToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetTools returns the registered tools.
func (r *Registry) GetTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	return out
}

// OpenAITools returns the registry as OpenAI tool definitions.
func (r *Registry) OpenAITools() []openai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]openai.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs the named tool with the given arguments.
func (r *Registry) Execute(ctx context.Context, function string, args map[string]interface{}) *ToolResult {
	return r.ExecuteWithOptions(ctx, function, args, ExecuteOptions{})
}

// ExecuteWithOptions runs the tool under the registry's policy, rate
// limits, and timeout, then sanitizes its output.
func (r *Registry) ExecuteWithOptions(ctx context.Context, function string, args map[string]interface{}, opts ExecuteOptions) *ToolResult {
	result := &ToolResult{Function: function}

	tool, exists := r.getTool(function)
	if !exists {
		result.Error = fmt.Errorf("%w: %s", ErrToolNotFound, function)
		result.Result = fmt.Sprintf("Error: Tool '%s' not found. Available tools: %v", function, r.GetToolNames())
		return result
	}

	if !opts.Force {
		perm := r.getPermission(function)
		if !perm.Allowed {
			result.Error = fmt.Errorf("%w: %s", ErrToolNotAllowed, function)
			result.Result = fmt.Sprintf("Tool '%s' is blocked by policy. Enable it to proceed.", function)
			return result
		}
		if perm.RequireConfirmation {
			result.Error = fmt.Errorf("%w: %s", ErrToolRequiresConfirmation, function)
			result.Result = fmt.Sprintf("Tool '%s' requires explicit approval before running.", function)
			return result
		}
	}

	if err := r.getLimiter(function).Allow(); err != nil {
		result.Error = err
		result.Result = fmt.Sprintf("Error: %v", err)
		return result
	}

	if err := tool.Validate(args); err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		result.Result = fmt.Sprintf("Error: %v", result.Error)
		return result
	}

	if timeout := r.timeoutFor(function); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := tool.Execute(ctx, args)
	result.Error = err
	result.Result, result.Truncated = sanitizeToolOutput(output)
	if err != nil && result.Result == "" {
		result.Result = fmt.Sprintf("Error: %v", err)
	}
	return result
}

// ExecuteOpenAIToolCall executes an OpenAI tool call payload.
func (r *Registry) ExecuteOpenAIToolCall(ctx context.Context, call openai.ToolCall) *ToolResult {
	name := call.Function.Name
	if name == "" {
		return &ToolResult{
			Function: "unknown_tool",
			Error:    fmt.Errorf("tool call missing function name"),
		}
	}
	args := map[string]interface{}{}
	if strings.TrimSpace(call.Function.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return &ToolResult{
				Function: name,
				Error:    fmt.Errorf("%w: %v", ErrInvalidArguments, err),
			}
		}
	}
	return r.Execute(ctx, name, args)
}

// SetAllowed toggles whether a tool is allowed.
func (r *Registry) SetAllowed(name string, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.Allowed = allowed
	r.permissions[name] = perm
}

// SetRequireConfirmation toggles per-tool confirmation.
func (r *Registry) SetRequireConfirmation(name string, require bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.RequireConfirmation = require
	r.permissions[name] = perm
}

// GetPermission returns the current permission entry for a tool.
func (r *Registry) GetPermission(name string) Permission {
	return r.getPermission(name)
}

// Close stops the registry's rate limiter goroutines.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rl := range r.limiters {
		rl.Stop()
	}
	r.limiters = make(map[string]*toolRateLimiter)
}

func (r *Registry) getTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) getPermission(name string) Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if perm, ok := r.permissions[name]; ok {
		return perm
	}
	return Permission{Allowed: false, RequireConfirmation: true}
}

func (r *Registry) getLimiter(name string) *toolRateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

func (r *Registry) timeoutFor(name string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timeouts.TimeoutForTool(name)
}
