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

// Package sandbox rejects command lines that would escape the sandbox
// root or damage the host. The validator runs on both raw and
// preprocessed text before anything is spawned; a hit is terminal and
// fail-closed, ambiguity resolves to rejection.
package sandbox

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"bashport/internal/errors"
)

// Commands that are never allowed in any form: disk and filesystem
// surgery, power control, privilege escalation, service and package
// management.
var dangerousCommands = map[string]bool{
	"dd": true, "mkfs": true, "fdisk": true, "parted": true, "shred": true,
	"reboot": true, "shutdown": true, "halt": true, "poweroff": true,
	"sudo": true, "su": true, "chroot": true,
	"systemctl": true, "service": true,
	"apt-get": true, "apt": true, "yum": true, "dnf": true, "pacman": true,
	"format": true, "diskpart": true, "bcdedit": true, "reg": true,
}

// Commands allowed in general but checked against protected paths.
var restrictedCommands = map[string]bool{
	"rm": true, "mv": true, "cp": true, "chmod": true, "chown": true, "ln": true,
}

// Unix roots that restricted commands may never touch.
var protectedUnixPaths = []string{
	"/etc", "/sys", "/dev", "/proc", "/boot", "/root",
	"/bin", "/sbin", "/lib", "/lib64", "/usr/bin", "/usr/sbin", "/usr/lib",
	"/var/lib", "/var/run",
}

// Windows directories that no command may reference for writing.
var protectedWindowsPaths = []string{
	`c:\windows`, `c:\program files`, `c:\program files (x86)`,
	`c:\programdata`, `c:\users\default`,
}

// Wildcard or root deletions. Checked against the whole command text.
var dangerousRmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+/\s*$`),
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+/(\s|$)`),
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+\*`),
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+~(\s|/|$)`),
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+\$HOME\b`),
}

// Validator scans command text for policy violations.
type Validator struct {
	workspaceRoot string
	allowedDrives []string
	log           zerolog.Logger
}

// NewValidator builds a validator anchored at workspaceRoot. Drive
// letters outside allowedDrives are refused; empty means the workspace
// drive only.
func NewValidator(workspaceRoot string, allowedDrives []string, log zerolog.Logger) *Validator {
	if len(allowedDrives) == 0 && len(workspaceRoot) >= 2 && workspaceRoot[1] == ':' {
		allowedDrives = []string{strings.ToLower(workspaceRoot[:1])}
	}
	return &Validator{
		workspaceRoot: workspaceRoot,
		allowedDrives: allowedDrives,
		log:           log,
	}
}

// Validate returns a coded validation error when command violates
// policy, nil otherwise.
func (v *Validator) Validate(command string) error {
	lower := strings.ToLower(command)

	for name, re := range dangerousCommandRes {
		if re.MatchString(lower) {
			return v.violation(fmt.Sprintf("dangerous command %q is not permitted", name))
		}
	}

	for _, pat := range dangerousRmPatterns {
		if pat.MatchString(command) {
			return v.violation("destructive rm pattern detected")
		}
	}

	if err := v.checkRestricted(lower); err != nil {
		return err
	}

	for _, protected := range protectedWindowsPaths {
		if strings.Contains(lower, protected) {
			return v.violation(fmt.Sprintf("access to protected path %q", protected))
		}
	}

	if err := v.checkDrives(lower); err != nil {
		return err
	}

	if strings.Contains(command, "..") && escapesWorkspace(command) {
		return v.violation("parent-directory traversal outside the sandbox root")
	}

	return nil
}

func (v *Validator) violation(reason string) error {
	v.log.Warn().Str("reason", reason).Msg("sandbox violation")
	return errors.New(errors.CodeValidation, reason)
}

// checkRestricted refuses restricted commands whose arguments touch a
// protected Unix root.
func (v *Validator) checkRestricted(lower string) error {
	fields := strings.Fields(lower)
	active := false
	name := ""
	for _, f := range fields {
		if restrictedCommands[f] {
			active = true
			name = f
			continue
		}
		if !active || strings.HasPrefix(f, "-") {
			continue
		}
		for _, protected := range protectedUnixPaths {
			if f == protected || strings.HasPrefix(f, protected+"/") {
				return v.violation(fmt.Sprintf("%s may not touch %s", name, protected))
			}
		}
	}
	return nil
}

var drivePathRe = regexp.MustCompile(`(?i)\b([a-z]):[\\/]`)

// checkDrives refuses absolute Windows paths on drives outside the
// allowed set.
func (v *Validator) checkDrives(lower string) error {
	if len(v.allowedDrives) == 0 {
		return nil
	}
	for _, m := range drivePathRe.FindAllStringSubmatch(lower, -1) {
		drive := strings.ToLower(m[1])
		allowed := false
		for _, ok := range v.allowedDrives {
			if drive == strings.ToLower(ok) {
				allowed = true
				break
			}
		}
		if !allowed {
			return v.violation(fmt.Sprintf("drive %s: is outside the sandbox", drive))
		}
	}
	return nil
}

// escapesWorkspace checks whether any .. bearing argument climbs above
// the sandbox root. Counting segments is enough: relative paths start
// at or below the root, so more ups than downs escapes.
func escapesWorkspace(command string) bool {
	for _, f := range strings.Fields(command) {
		if !strings.Contains(f, "..") {
			continue
		}
		depth := 0
		for _, seg := range strings.FieldsFunc(f, func(r rune) bool { return r == '/' || r == '\\' }) {
			switch seg {
			case "..":
				depth--
			case ".", "":
			default:
				depth++
			}
			if depth < 0 {
				return true
			}
		}
	}
	return false
}

// commandWordRe matches name as a standalone command word, so that
// ddrescue never matches dd.
func commandWordRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[\s;&|(` + "`" + `])` + regexp.QuoteMeta(name) + `($|[\s;&|)>.])`)
}

// Compiled once; Validate runs twice per request.
var dangerousCommandRes = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(dangerousCommands))
	for name := range dangerousCommands {
		res[name] = commandWordRe(name)
	}
	return res
}()
