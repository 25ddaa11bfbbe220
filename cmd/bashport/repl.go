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
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
)

func runREPL(a *app) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bashport> ",
		HistoryFile:     a.cfg.CommandHistoryFile,
		AutoComplete:    getCommandCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		a.logger.Fatal().Err(err).Msg("Failed to initialize readline")
	}
	defer rl.Close()

	caps := a.provider.Capabilities()
	fmt.Println("Bashport by Dyne.org")
	fmt.Printf("Workspace: %s\n", a.cfg.WorkspaceRoot)
	if caps.BashAvailable {
		fmt.Printf("Bash: %s\n", caps.BashPath)
	} else {
		fmt.Println("Bash: not available, commands run through translation")
	}
	fmt.Println()

	for {
		line, err := rl.Readline()
		if action := classifyReadlineError(line, err); action != readlineUnhandled {
			if action == readlineExit {
				break
			}
			continue
		}
		if err != nil {
			a.logger.Debug().Err(err).Msg("Readline interrupted")
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		a.logger.Info().Str("user_input", line).Msg("User input received")

		if strings.HasPrefix(line, ":") {
			if handleCommand(line, a) {
				break
			}
			continue
		}

		output, _ := a.execute(context.Background(), line)
		fmt.Println(output)
	}

	a.logger.Info().Msg("Session ended")
}

// Command represents a REPL meta-command.
type Command struct {
	Name        string
	Description string
}

// getAvailableCommands returns the list of all meta-commands.
func getAvailableCommands() []Command {
	return []Command{
		{Name: "help", Description: "Show available commands"},
		{Name: "caps", Description: "Show detected host capabilities"},
		{Name: "stats", Description: "Show per-interpreter execution counts"},
		{Name: "vars", Description: "Show session shell variables"},
		{Name: "test-mode", Description: "Toggle dry-run mode, or set it with on/off"},
		{Name: "quit", Description: "Exit the application"},
		{Name: "exit", Description: "Exit the application"},
	}
}

// handleCommand processes meta-commands, returns true if should quit.
func handleCommand(input string, a *app) bool {
	rest := strings.TrimPrefix(input, ":")
	fields := strings.Fields(strings.ToLower(rest))
	cmdName := ""
	arg := ""
	if len(fields) > 0 {
		cmdName = fields[0]
	}
	if len(fields) > 1 {
		arg = fields[1]
	}

	a.logger.Debug().Str("command", cmdName).Msg("Executing meta-command")

	switch cmdName {
	case "help":
		showHelp()
		return false

	case "caps":
		showCapabilities(a)
		return false

	case "stats":
		showStats(a)
		return false

	case "vars":
		showVars(a)
		return false

	case "test-mode":
		enabled := !a.host.TestMode()
		switch arg {
		case "on":
			enabled = true
		case "off":
			enabled = false
		}
		a.host.SetTestMode(enabled)
		if enabled {
			fmt.Println("Test mode enabled, commands are logged but not executed")
		} else {
			fmt.Println("Test mode disabled")
		}
		return false

	case "quit", "exit":
		return true

	default:
		fmt.Printf("Unknown command: :%s (type :help for available commands)\n", cmdName)
		return false
	}
}

func showHelp() {
	fmt.Println("\nAvailable Commands:")
	seen := make(map[string]bool)
	for _, cmd := range getAvailableCommands() {
		if seen[cmd.Name] {
			continue
		}
		seen[cmd.Name] = true
		fmt.Printf("  :%-12s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nAnything else is executed as a bash-style command.")
	fmt.Println()
}

func showCapabilities(a *app) {
	caps := a.provider.Capabilities()
	fmt.Println("\nHost Capabilities:")
	if caps.BashAvailable {
		fmt.Printf("  bash: %s\n", caps.BashPath)
	} else {
		fmt.Println("  bash: not available")
	}
	if len(caps.NativeBins) == 0 {
		fmt.Println("  native binaries: none")
		fmt.Println()
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, '\t', 0)
	fmt.Fprintln(w, "  Binary\tPath")
	for _, name := range sortedKeys(caps.NativeBins) {
		fmt.Fprintf(w, "  %s\t%s\n", name, caps.NativeBins[name])
	}
	w.Flush()
	fmt.Println()
}

func showStats(a *app) {
	stats := a.host.Stats()
	if len(stats) == 0 {
		fmt.Println("No commands executed yet")
		return
	}
	fmt.Println("\nExecution Counts:")
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, '\t', 0)
	fmt.Fprintln(w, "  Interpreter\tCount")
	for _, name := range sortedKeys(stats) {
		fmt.Fprintf(w, "  %s\t%d\n", name, stats[name])
	}
	w.Flush()
	fmt.Println()
}

func showVars(a *app) {
	vars := a.sess.Vars()
	names := vars.Names()
	if len(names) == 0 {
		fmt.Println("No session variables set")
		return
	}
	fmt.Println("\nSession Variables:")
	for _, name := range names {
		value, _ := vars.Get(name)
		fmt.Printf("  %s=%s\n", name, value)
	}
	fmt.Println()
}

// getCommandCompleter builds a readline completer from available commands
func getCommandCompleter() *readline.PrefixCompleter {
	commands := getAvailableCommands()
	items := make([]readline.PrefixCompleterInterface, len(commands))
	for i, cmd := range commands {
		items[i] = readline.PcItem(":" + cmd.Name)
	}
	return readline.NewPrefixCompleter(items...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
