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

package paths

import (
	"path/filepath"
	"testing"
)

func TestValidateTargetRejectsNullByte(t *testing.T) {
	if err := ValidateTarget("bad\x00path"); err == nil {
		t.Fatal("expected error for null byte path")
	}
}

func TestValidateTargetRejectsEmpty(t *testing.T) {
	if err := ValidateTarget("   "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestResolveTargetRelativeJoinsWorkdir(t *testing.T) {
	workdir := t.TempDir()
	resolved, err := ResolveTarget("out.txt", workdir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != filepath.Join(workdir, "out.txt") {
		t.Fatalf("expected target under workdir, got %s", resolved)
	}
}

func TestResolveTargetAbsolutePassesThrough(t *testing.T) {
	workdir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "other.txt")
	resolved, err := ResolveTarget(abs, workdir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != abs {
		t.Fatalf("expected absolute target unchanged, got %s", resolved)
	}
}

func TestResolveTargetWindowsDriveIsAbsolute(t *testing.T) {
	resolved, err := ResolveTarget(`C:\agent\workspace\out.txt`, "/unused")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != `C:\agent\workspace\out.txt` {
		t.Fatalf("expected drive path unchanged, got %s", resolved)
	}
}
