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

package strategy

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Capabilities is a snapshot of what the host can run. Immutable for
// the duration of one request.
type Capabilities struct {
	BashAvailable bool
	BashPath      string
	NativeBins    map[string]string
}

// HasNative reports whether name resolves to a native binary, applying
// the python3 to python rename.
func (c Capabilities) HasNative(name string) bool {
	if _, ok := c.NativeBins[name]; ok {
		return true
	}
	if name == "python3" {
		_, ok := c.NativeBins["python"]
		return ok
	}
	return false
}

// NativePath returns the resolved binary path for name.
func (c Capabilities) NativePath(name string) (string, bool) {
	if p, ok := c.NativeBins[name]; ok {
		return p, true
	}
	if name == "python3" {
		p, ok := c.NativeBins["python"]
		return p, ok
	}
	return "", false
}

// CapabilityProvider yields capability snapshots. Injected at session
// construction so tests supply fixed fakes.
type CapabilityProvider interface {
	Capabilities() Capabilities
}

// StaticProvider returns a fixed snapshot, for tests and overrides.
type StaticProvider struct {
	Caps Capabilities
}

func (s StaticProvider) Capabilities() Capabilities {
	return s.Caps
}

// Well-known Git for Windows bash locations, checked after PATH.
var bashDefaultPaths = []string{
	`C:\Program Files\Git\bin\bash.exe`,
	`C:\Program Files\Git\usr\bin\bash.exe`,
	`C:\Program Files (x86)\Git\bin\bash.exe`,
}

// Candidate native binaries and their default install locations when
// not on PATH. Git for Windows ships most of the text tools.
var nativeBinCandidates = map[string][]string{
	"diff":   {`C:\Program Files\Git\usr\bin\diff.exe`},
	"tar":    {`C:\Windows\System32\tar.exe`, `C:\Program Files\Git\usr\bin\tar.exe`},
	"awk":    {`C:\Program Files\Git\usr\bin\awk.exe`},
	"sed":    {`C:\Program Files\Git\usr\bin\sed.exe`},
	"grep":   {`C:\Program Files\Git\usr\bin\grep.exe`},
	"jq":     {},
	"python": {},
}

// HostProvider probes the live host once and caches the result.
type HostProvider struct {
	log  zerolog.Logger
	once sync.Once
	caps Capabilities
}

// NewHostProvider builds a probing provider.
func NewHostProvider(log zerolog.Logger) *HostProvider {
	return &HostProvider{log: log}
}

func (h *HostProvider) Capabilities() Capabilities {
	h.once.Do(func() {
		h.caps = h.probe()
	})
	return h.caps
}

func (h *HostProvider) probe() Capabilities {
	caps := Capabilities{NativeBins: make(map[string]string)}

	if path, err := exec.LookPath("bash"); err == nil {
		caps.BashAvailable = true
		caps.BashPath = path
	} else {
		for _, candidate := range bashDefaultPaths {
			if fileExists(candidate) {
				caps.BashAvailable = true
				caps.BashPath = candidate
				break
			}
		}
	}

	for name, defaults := range nativeBinCandidates {
		if path, err := exec.LookPath(name); err == nil {
			caps.NativeBins[name] = path
			continue
		}
		for _, candidate := range defaults {
			if fileExists(candidate) {
				caps.NativeBins[name] = candidate
				break
			}
		}
	}

	h.log.Debug().
		Bool("bash", caps.BashAvailable).
		Int("native_bins", len(caps.NativeBins)).
		Msg("capability probe complete")
	return caps
}

func fileExists(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && !info.IsDir()
}
