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

// Package strategy decides how a parsed command line executes: whole
// pipeline delegated to bash, per-command manual walking, or blocked.
// Classification is blacklist-based so unknown commands degrade to
// emulation attempts instead of refusals.
package strategy

import (
	"fmt"

	"github.com/rs/zerolog"

	"bashport/internal/parse"
	"bashport/internal/shell"
)

// Strategy selects the execution tier for one request.
type Strategy string

const (
	BashFull Strategy = "bash_full"
	Manual   Strategy = "manual"
	Blocked  Strategy = "blocked"
)

// CommandInfo classifies one simple command. Derived per analysis,
// never persisted.
type CommandInfo struct {
	Name           string
	IsBuiltin      bool
	IsNative       bool
	IsBlacklisted  bool
	NeedsEmulation bool
}

// AnalysisResult carries the chosen strategy with its justification.
type AnalysisResult struct {
	Strategy Strategy
	Reason   string
	Commands []CommandInfo
}

// Analyzer walks a command tree against host capabilities.
type Analyzer struct {
	provider CapabilityProvider
	log      zerolog.Logger
}

// NewAnalyzer builds an analyzer over the given capability provider.
func NewAnalyzer(provider CapabilityProvider, log zerolog.Logger) *Analyzer {
	return &Analyzer{provider: provider, log: log}
}

// Classify derives CommandInfo for one command name.
func Classify(name string, caps Capabilities) CommandInfo {
	info := CommandInfo{Name: name}
	info.IsBlacklisted = shell.Administrative[name]
	if info.IsBlacklisted {
		return info
	}
	info.IsNative = caps.HasNative(name)
	info.IsBuiltin = shell.Builtins[name]
	info.NeedsEmulation = !info.IsNative && !info.IsBuiltin
	return info
}

// Analyze picks the strategy for node.
//
// Policy: a blacklist hit always blocks before any execution attempt.
// A single native-resolved stage forces manual walking, never
// bash_full, because native output must be spliced into the pipeline
// stdin/stdout chain by hand.
func (a *Analyzer) Analyze(node parse.Node) AnalysisResult {
	caps := a.provider.Capabilities()

	names := parse.CommandNames(node)
	commands := make([]CommandInfo, 0, len(names))
	for _, name := range names {
		commands = append(commands, Classify(name, caps))
	}

	result := a.decide(node, commands, caps)
	result.Commands = commands

	a.log.Debug().
		Str("strategy", string(result.Strategy)).
		Str("reason", result.Reason).
		Int("commands", len(commands)).
		Msg("strategy decided")
	return result
}

func (a *Analyzer) decide(node parse.Node, commands []CommandInfo, caps Capabilities) AnalysisResult {
	for _, info := range commands {
		if info.IsBlacklisted {
			return AnalysisResult{
				Strategy: Blocked,
				Reason:   fmt.Sprintf("administrative/unsupported command: %s", info.Name),
			}
		}
	}

	nativeCount := 0
	emulated := 0
	unreliable := false
	for _, info := range commands {
		if info.IsNative {
			nativeCount++
		}
		if info.NeedsEmulation {
			emulated++
		}
		if shell.BashUnreliable[info.Name] {
			unreliable = true
		}
	}

	if !caps.BashAvailable {
		if nativeCount > 0 {
			return AnalysisResult{Strategy: Manual, Reason: "native binaries available, bash is not"}
		}
		return AnalysisResult{Strategy: Manual, Reason: "bash unavailable, full emulation"}
	}

	if nativeCount > 0 {
		return AnalysisResult{
			Strategy: Manual,
			Reason:   fmt.Sprintf("%d native stage(s), walking per command", nativeCount),
		}
	}

	if hasComplexStructure(node) && !unreliable {
		return AnalysisResult{Strategy: BashFull, Reason: "complex shell structure, delegating to bash"}
	}

	if emulated == 0 && !unreliable {
		return AnalysisResult{Strategy: BashFull, Reason: "all builtin commands, delegating to bash"}
	}

	allPassthrough := true
	for _, info := range commands {
		if shell.BashUnreliable[info.Name] {
			allPassthrough = false
			break
		}
		if !info.IsBuiltin && !shell.BashPassthrough[info.Name] {
			allPassthrough = false
			break
		}
	}
	if allPassthrough {
		return AnalysisResult{Strategy: BashFull, Reason: "all commands safe for bash passthrough"}
	}

	return AnalysisResult{
		Strategy: Manual,
		Reason:   fmt.Sprintf("%d command(s) need emulation", emulated),
	}
}

// hasComplexStructure reports subshells, groups or background parts,
// which only a real shell reproduces faithfully.
func hasComplexStructure(node parse.Node) bool {
	found := false
	parse.Walk(node, func(n parse.Node) {
		switch n.(type) {
		case *parse.Subshell, *parse.Group, *parse.Background:
			found = true
		}
	})
	return found
}
