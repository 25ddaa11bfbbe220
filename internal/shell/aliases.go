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

package shell

import "sync"

// Default command aliases expanded before any other preprocessing pass.
var defaultAliases = map[string]string{
	"ll": "ls -la",
	"la": "ls -a",
	"l":  "ls -l",
}

var (
	aliasMu sync.RWMutex
	aliases = copyAliases(defaultAliases)
)

// DefaultAliases returns the built-in alias table.
func DefaultAliases() map[string]string {
	return copyAliases(defaultAliases)
}

// ConfigureAliases replaces the process-wide alias table. Called once at
// startup before sessions are created.
func ConfigureAliases(table map[string]string) {
	aliasMu.Lock()
	defer aliasMu.Unlock()
	if table == nil {
		aliases = copyAliases(defaultAliases)
		return
	}
	aliases = copyAliases(table)
}

// LookupAlias resolves a command name through the alias table.
func LookupAlias(name string) (string, bool) {
	aliasMu.RLock()
	defer aliasMu.RUnlock()
	expansion, ok := aliases[name]
	return expansion, ok
}

func copyAliases(src map[string]string) map[string]string {
	dup := make(map[string]string, len(src))
	for k, v := range src {
		dup[k] = v
	}
	return dup
}
