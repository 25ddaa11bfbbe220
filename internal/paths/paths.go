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

// Package paths resolves host-side file targets named by commands:
// redirect targets and cd destinations. Relative paths anchor to the
// session's working directory, never to the process working directory.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ValidateTarget rejects raw target strings that cannot name a file.
func ValidateTarget(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	return nil
}

// ResolveTarget turns a command-supplied target into a host path.
// Absolute paths pass through cleaned, relative ones join the working
// directory. Windows drive paths count as absolute even when the
// process runs elsewhere.
func ResolveTarget(target, workdir string) (string, error) {
	if err := ValidateTarget(target); err != nil {
		return "", err
	}
	if isAbsolute(target) {
		return filepath.Clean(target), nil
	}
	return filepath.Clean(filepath.Join(workdir, target)), nil
}

// isAbsolute treats both host-native and Windows drive forms as
// absolute, since the session handles paths from either convention.
func isAbsolute(path string) bool {
	if filepath.IsAbs(path) {
		return true
	}
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return true
	}
	return false
}
