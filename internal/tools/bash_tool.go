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
	"fmt"
	"time"

	apperrors "bashport/internal/errors"
	"bashport/internal/session"
)

const bashToolVersion = "1.0.0"

type executeBashArgs struct {
	Command        string  `json:"command" jsonschema:"description=The bash command to execute. Supports pipes; redirects; && and || chains; variable and brace expansion; command substitution and heredocs"`
	Description    string  `json:"description,omitempty" jsonschema:"description=Short human-readable summary of what the command does"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" jsonschema:"description=Optional timeout in seconds; defaults to 120"`
}

// NewBashTool wraps a session as the execute_bash_command tool.
func NewBashTool(sess *session.Session) Tool {
	return &ToolDefinition{
		NameValue: "execute_bash_command",
		DescriptionValue: "Execute a bash-style command on the host machine. " +
			"Paths use the sandbox layout (/home/claude, /mnt/user-data/uploads, /mnt/user-data/outputs). " +
			"Variable assignments persist across calls within the session.",
		ParametersValue: mustSchemaParametersFor[executeBashArgs](),
		ValidateFunc:    RequireStringArg("command", "command is required"),
		ExecuteFunc: func(ctx context.Context, args map[string]interface{}) (string, error) {
			command := StringArg(args, "command")
			if desc := StringArg(args, "description"); desc != "" {
				log := sess.Log()
				log.Info().Str("description", desc).Msg("command intent")
			}
			if secs := IntArg(args, "timeout_seconds"); secs > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
				defer cancel()
			}
			out, err := sess.Execute(ctx, command)
			if err != nil {
				return formatExecuteError(err), nil
			}
			return out, nil
		},
		VersionValue: bashToolVersion,
	}
}

// formatExecuteError renders refusals in the agent-facing shape:
// policy refusals carry the SECURITY VIOLATION prefix so callers can
// distinguish them from ordinary failures.
func formatExecuteError(err error) string {
	if apperrors.CodeOf(err) == apperrors.CodeValidation {
		return fmt.Sprintf("SECURITY VIOLATION: %v", err)
	}
	return fmt.Sprintf("Error: %v", err)
}
