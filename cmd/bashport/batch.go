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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// runBatchMode executes one command per stdin line. Session state
// carries across lines, so assignments and cd persist. The exit code
// is the last failing command's, zero when all succeed.
func runBatchMode(a *app) int {
	a.logger.Debug().Msg("Running in batch mode")

	exitCode := 0
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		a.logger.Info().Str("user_input", line).Msg("User input received")

		start := time.Now()
		output, code := a.execute(context.Background(), line)
		a.logger.Info().
			Int("exit_code", code).
			Dur("duration_ms", time.Since(start)).
			Msg("Command finished")

		fmt.Println(output)
		if code != 0 {
			exitCode = code
		}
	}

	if err := scanner.Err(); err != nil {
		a.logger.Error().Err(err).Msg("Error reading input")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return exitCode
}
