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

package sandbox

import (
	"testing"

	"github.com/rs/zerolog"

	"bashport/internal/errors"
)

func newValidator() *Validator {
	return NewValidator(`C:\workspace`, nil, zerolog.Nop())
}

func TestDangerousCommandsRejected(t *testing.T) {
	v := newValidator()
	for _, cmd := range []string{
		"dd if=/dev/zero of=/dev/sda",
		"sudo cat /etc/shadow",
		"shutdown -h now",
		"echo hi; mkfs.ext4 /dev/sdb1",
		"ls && reboot",
		"diskpart /s evil.txt",
	} {
		err := v.Validate(cmd)
		if err == nil {
			t.Errorf("Validate(%q) accepted a dangerous command", cmd)
			continue
		}
		if errors.CodeOf(err) != errors.CodeValidation {
			t.Errorf("Validate(%q) error code = %q, want validation", cmd, errors.CodeOf(err))
		}
	}
}

func TestWordBoundaryMatching(t *testing.T) {
	v := newValidator()
	// ddrescue contains dd but is not dd; suppress false positives.
	if err := v.Validate("ddrescue img out"); err != nil {
		t.Fatalf("ddrescue was rejected: %v", err)
	}
	if err := v.Validate("echo sudoku"); err != nil {
		t.Fatalf("sudoku was rejected: %v", err)
	}
}

func TestPrecompiledPatternsCoverDangerousSet(t *testing.T) {
	if len(dangerousCommandRes) != len(dangerousCommands) {
		t.Fatalf("compiled %d patterns for %d commands",
			len(dangerousCommandRes), len(dangerousCommands))
	}
	for name, re := range dangerousCommandRes {
		if !re.MatchString(name + " --help") {
			t.Errorf("pattern for %q does not match it as a command word", name)
		}
		if re.MatchString("x" + name + "y") {
			t.Errorf("pattern for %q matches inside a longer word", name)
		}
	}
}

func TestDestructiveRmPatterns(t *testing.T) {
	v := newValidator()
	for _, cmd := range []string{
		"rm -rf /",
		"rm -rf *",
		"rm -r -f ~",
		"rm -rf $HOME",
	} {
		if err := v.Validate(cmd); err == nil {
			t.Errorf("Validate(%q) accepted destructive rm", cmd)
		}
	}
	// Scoped deletion stays allowed.
	if err := v.Validate("rm -rf /home/claude/build"); err != nil {
		t.Fatalf("scoped rm -rf rejected: %v", err)
	}
}

func TestRestrictedCommandsOnProtectedPaths(t *testing.T) {
	v := newValidator()
	for _, cmd := range []string{
		"rm /etc/passwd",
		"mv /boot/vmlinuz /tmp",
		"chmod 777 /sys/kernel",
		"cp secret /root/",
	} {
		if err := v.Validate(cmd); err == nil {
			t.Errorf("Validate(%q) accepted protected path access", cmd)
		}
	}
	if err := v.Validate("cat /etc/hostname"); err != nil {
		t.Fatalf("read-only /etc access rejected: %v", err)
	}
}

func TestWindowsProtectedPathsAndDrives(t *testing.T) {
	v := newValidator()
	if err := v.Validate(`del C:\Windows\System32\config`); err == nil {
		t.Error("system directory access accepted")
	}
	if err := v.Validate(`copy secret.txt D:\exfil\`); err == nil {
		t.Error("foreign drive access accepted")
	}
	if err := v.Validate(`type C:\workspace\notes.txt`); err != nil {
		t.Fatalf("workspace drive access rejected: %v", err)
	}
}

func TestTraversalEscape(t *testing.T) {
	v := newValidator()
	if err := v.Validate("cat ../../../../etc/shadow"); err == nil {
		t.Error("deep traversal accepted")
	}
	if err := v.Validate("cat src/../README.md"); err != nil {
		t.Fatalf("benign traversal rejected: %v", err)
	}
}

func TestBenignCommandsPass(t *testing.T) {
	v := newValidator()
	for _, cmd := range []string{
		"ls -la /home/claude",
		"grep -r TODO src/",
		"echo hello | wc -c",
		"tar czf out.tar.gz project/",
	} {
		if err := v.Validate(cmd); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", cmd, err)
		}
	}
}
