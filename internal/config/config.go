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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"bashport/internal/strategy"
	"bashport/internal/tools"
	"bashport/internal/winpath"
)

// Config represents the application configuration.
type Config struct {
	WorkspaceRoot      string            `json:"workspace_root"`
	LogLevel           string            `json:"log_level,omitempty"`
	PathAliases        map[string]string `json:"path_aliases,omitempty"`
	Capabilities       *CapabilityConfig `json:"capabilities,omitempty"`
	AllowedDrives      []string          `json:"allowed_drives,omitempty"`
	Tools              ToolSettings      `json:"tools,omitempty"`
	ToolRateLimits     ToolRateLimits    `json:"tool_rate_limits,omitempty"`
	ToolTimeouts       ToolTimeouts      `json:"tool_timeouts,omitempty"`
	ToolOutputFilters  ToolOutputFilters `json:"tool_output_filters,omitempty"`
	CommandHistoryFile string            `json:"command_history_file,omitempty"`
}

// CapabilityConfig overrides host capability probing.
type CapabilityConfig struct {
	Bash       *bool             `json:"bash,omitempty"`
	BashPath   string            `json:"bash_path,omitempty"`
	NativeBins map[string]string `json:"native_bins,omitempty"`
}

// ToolSettings describes tool allow/ask/deny lists.
type ToolSettings struct {
	Allow               []string `json:"allow"`
	Ask                 []string `json:"ask,omitempty"`
	Deny                []string `json:"deny,omitempty"`
	RequireConfirmation []string `json:"require_confirmation,omitempty"`
}

// ToolRateLimits configures tool rate limits and cooldowns.
type ToolRateLimits struct {
	DefaultPerMinute int            `json:"default_per_minute,omitempty"`
	PerTool          map[string]int `json:"per_tool,omitempty"`
	CooldownSeconds  map[string]int `json:"cooldown_seconds,omitempty"`
}

// ToolTimeouts configures tool execution timeouts.
type ToolTimeouts struct {
	DefaultSeconds int            `json:"default_seconds,omitempty"`
	PerToolSeconds map[string]int `json:"per_tool_seconds,omitempty"`
}

// ToolOutputFilters configures output sanitization for tool results.
type ToolOutputFilters struct {
	MaxChars     int  `json:"max_chars,omitempty"`
	StripANSI    bool `json:"strip_ansi,omitempty"`
	StripControl bool `json:"strip_control,omitempty"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		WorkspaceRoot: `C:\agent\workspace`,
		LogLevel:      "info",
		ToolTimeouts: ToolTimeouts{
			PerToolSeconds: map[string]int{
				"execute_bash_command": int(tools.DefaultTimeoutConfig().PerTool["execute_bash_command"].Seconds()),
			},
		},
		ToolOutputFilters: ToolOutputFilters{
			MaxChars:     tools.DefaultOutputFilterConfig().MaxChars,
			StripANSI:    tools.DefaultOutputFilterConfig().StripANSI,
			StripControl: tools.DefaultOutputFilterConfig().StripControl,
		},
		CommandHistoryFile: ".bashport_history",
	}
}

// LoadConfig loads configuration from a JSON file and applies env
// overrides. A missing file yields defaults, a malformed one an error.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, err
		}
		normalized, err := normalizeConfigJSON(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(normalized, config); err != nil {
			return nil, err
		}
	}

	if val := os.Getenv("BASHPORT_WORKSPACE"); val != "" {
		config.WorkspaceRoot = val
	}
	if val := os.Getenv("BASHPORT_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if config.WorkspaceRoot == "" {
		return nil, fmt.Errorf("workspace root is required (set workspace_root in config.json or BASHPORT_WORKSPACE)")
	}

	return config, nil
}

// Aliases returns the path alias table, derived from the workspace
// root when no explicit table is configured.
func (c *Config) Aliases() []winpath.Alias {
	if len(c.PathAliases) == 0 {
		return winpath.DefaultAliases(c.WorkspaceRoot)
	}
	keys := make([]string, 0, len(c.PathAliases))
	for k := range c.PathAliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	aliases := make([]winpath.Alias, 0, len(keys))
	for _, k := range keys {
		aliases = append(aliases, winpath.Alias{Sandbox: k, Host: c.PathAliases[k]})
	}
	return aliases
}

// Provider returns the capability provider: a fixed snapshot when the
// config overrides capabilities, otherwise nil so the caller probes
// the host.
func (c *Config) Provider() strategy.CapabilityProvider {
	if c.Capabilities == nil {
		return nil
	}
	caps := strategy.Capabilities{
		BashPath:   c.Capabilities.BashPath,
		NativeBins: c.Capabilities.NativeBins,
	}
	if c.Capabilities.Bash != nil {
		caps.BashAvailable = *c.Capabilities.Bash
	} else {
		caps.BashAvailable = caps.BashPath != ""
	}
	if caps.BashAvailable && caps.BashPath == "" {
		caps.BashAvailable = false
	}
	return strategy.StaticProvider{Caps: caps}
}

// ToolPolicy converts config settings into a tool policy.
func (c *Config) ToolPolicy() tools.Policy {
	if c.Tools.Allow == nil && c.Tools.Ask == nil &&
		c.Tools.Deny == nil && c.Tools.RequireConfirmation == nil {
		return tools.DefaultPolicy()
	}
	confirm := append([]string{}, c.Tools.Ask...)
	confirm = append(confirm, c.Tools.RequireConfirmation...)
	policy := tools.PolicyFromLists(c.Tools.Allow, confirm)
	for _, name := range c.Tools.Deny {
		policy.Allowed[name] = false
	}
	return policy
}

// ToolRateLimitsConfig returns rate limiting configuration for tools.
func (c *Config) ToolRateLimitsConfig() tools.RateLimitConfig {
	cooldowns := make(map[string]time.Duration, len(c.ToolRateLimits.CooldownSeconds))
	for name, seconds := range c.ToolRateLimits.CooldownSeconds {
		if seconds <= 0 {
			continue
		}
		cooldowns[name] = time.Duration(seconds) * time.Second
	}
	perTool := make(map[string]int, len(c.ToolRateLimits.PerTool))
	for name, rate := range c.ToolRateLimits.PerTool {
		perTool[name] = rate
	}
	perMinute := c.ToolRateLimits.DefaultPerMinute
	if perMinute <= 0 {
		perMinute = tools.DefaultRateLimitConfig().DefaultPerMinute
	}
	return tools.RateLimitConfig{
		DefaultPerMinute: perMinute,
		PerTool:          perTool,
		Cooldowns:        cooldowns,
	}
}

// ToolTimeoutsConfig returns timeout configuration for tools.
func (c *Config) ToolTimeoutsConfig() tools.TimeoutConfig {
	perTool := make(map[string]time.Duration, len(c.ToolTimeouts.PerToolSeconds))
	for name, seconds := range c.ToolTimeouts.PerToolSeconds {
		if seconds <= 0 {
			continue
		}
		perTool[name] = time.Duration(seconds) * time.Second
	}
	var defaultTimeout time.Duration
	if c.ToolTimeouts.DefaultSeconds > 0 {
		defaultTimeout = time.Duration(c.ToolTimeouts.DefaultSeconds) * time.Second
	}
	return tools.TimeoutConfig{
		Default: defaultTimeout,
		PerTool: perTool,
	}
}

// ToolOutputFiltersConfig returns output filter configuration for tools.
func (c *Config) ToolOutputFiltersConfig() tools.OutputFilterConfig {
	return tools.OutputFilterConfig{
		MaxChars:     c.ToolOutputFilters.MaxChars,
		StripANSI:    c.ToolOutputFilters.StripANSI,
		StripControl: c.ToolOutputFilters.StripControl,
	}
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings.
func (c *Config) Validate(registry *tools.Registry) []ValidationWarning {
	var warnings []ValidationWarning

	switch c.LogLevel {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, ValidationWarning{
			Field:   "log_level",
			Message: fmt.Sprintf("unknown log level %q, using info", c.LogLevel),
		})
	}

	for sandbox, host := range c.PathAliases {
		if len(sandbox) == 0 || sandbox[0] != '/' {
			warnings = append(warnings, ValidationWarning{
				Field:   "path_aliases",
				Message: fmt.Sprintf("sandbox path %q must be absolute", sandbox),
			})
		}
		if host == "" {
			warnings = append(warnings, ValidationWarning{
				Field:   "path_aliases",
				Message: fmt.Sprintf("alias %q has an empty host path", sandbox),
			})
		}
	}

	if c.Capabilities != nil && c.Capabilities.Bash != nil &&
		*c.Capabilities.Bash && c.Capabilities.BashPath == "" {
		warnings = append(warnings, ValidationWarning{
			Field:   "capabilities.bash",
			Message: "bash enabled without bash_path, full-script execution stays disabled",
		})
	}

	if registry != nil {
		registered := make(map[string]bool)
		for _, tool := range registry.GetTools() {
			registered[tool.Name()] = true
		}
		check := func(field string, names []string) {
			for _, name := range names {
				if !registered[name] {
					warnings = append(warnings, ValidationWarning{
						Field:   field,
						Message: fmt.Sprintf("tool %q is not registered", name),
					})
				}
			}
		}
		check("tools.allow", c.Tools.Allow)
		check("tools.ask", c.Tools.Ask)
		check("tools.deny", c.Tools.Deny)
		check("tools.require_confirmation", c.Tools.RequireConfirmation)
	}

	return warnings
}
