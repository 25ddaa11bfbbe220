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
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"bashport/internal/config"
	"bashport/internal/dispatch"
	"bashport/internal/session"
	"bashport/internal/strategy"
	"bashport/internal/tools"
	"bashport/internal/winpath"
)

const bashToolName = "execute_bash_command"

// app bundles the wired runtime shared by the REPL, batch, and
// one-shot entry points.
type app struct {
	cfg      *config.Config
	provider strategy.CapabilityProvider
	host     *dispatch.Host
	sess     *session.Session
	registry *tools.Registry
	logger   zerolog.Logger
}

func buildApp(configPath string, logger zerolog.Logger) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(level)
	}

	provider := cfg.Provider()
	if provider == nil {
		provider = strategy.NewHostProvider(logger)
	}
	caps := provider.Capabilities()

	aliases := cfg.Aliases()
	workdir := winpath.NewTranslator(aliases).Home().Host

	host := dispatch.NewHost(caps.BashPath, workdir, logger)
	sess := session.New(session.Options{
		Aliases:       aliases,
		Provider:      provider,
		Dispatcher:    host,
		Workdir:       workdir,
		AllowedDrives: cfg.AllowedDrives,
		Log:           logger,
	})

	registry := tools.NewRegistryWithPolicy(cfg.ToolPolicy())
	if err := registry.RegisterTool(tools.NewBashTool(sess)); err != nil {
		return nil, fmt.Errorf("failed to register tool: %w", err)
	}
	registry.ConfigureTimeouts(cfg.ToolTimeoutsConfig())
	registry.ConfigureRateLimits(cfg.ToolRateLimitsConfig())
	tools.ConfigureOutputFilters(cfg.ToolOutputFiltersConfig())

	for _, warning := range cfg.Validate(registry) {
		logger.Warn().Str("field", warning.Field).Msg(warning.Message)
	}

	return &app{
		cfg:      cfg,
		provider: provider,
		host:     host,
		sess:     sess,
		registry: registry,
		logger:   logger,
	}, nil
}

func (a *app) Close() {
	a.registry.Close()
}

// execute runs one command line through the tool registry and returns
// the text to display plus a process exit code.
func (a *app) execute(ctx context.Context, command string) (string, int) {
	result := a.registry.ExecuteWithOptions(ctx, bashToolName,
		map[string]interface{}{"command": command},
		tools.ExecuteOptions{Force: true})
	if result.Error != nil {
		return fmt.Sprintf("Error: %v", result.Error), 1
	}
	return result.Result, 0
}

// printToolSchema emits the registry's OpenAI tool definitions so an
// agent host can load them without linking this module.
func printToolSchema(a *app) int {
	data, err := json.MarshalIndent(a.registry.OpenAITools(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

func runOneShot(a *app, command string) int {
	output, code := a.execute(context.Background(), command)
	if code != 0 {
		fmt.Fprintln(os.Stderr, output)
		return code
	}
	fmt.Println(output)
	return 0
}
