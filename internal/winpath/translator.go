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

// Package winpath maps sandbox-view Unix paths to host Windows paths
// and back. Translation runs over full command text, must leave URLs
// and flags alone, and is idempotent on already-host-rooted paths.
package winpath

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Alias pairs one sandbox root with its host directory.
type Alias struct {
	Sandbox string
	Host    string
}

// Known top-level Unix directories reversed out of the sandbox home on
// the way back: <home>/tmp becomes /tmp again.
var relativeDirs = []string{
	"tmp", "var", "etc", "opt", "usr", "srv", "run", "sys", "proc",
	"dev", "bin", "sbin", "lib", "lib64", "boot", "root", "mnt", "media",
}

// Path remainder: slash-led segments of non-delimiter characters.
const restPat = `((?:/[^\s"';|&<>)]+)*)`
const hostRestPat = `((?:[\\/][^\s"';|&<>)]+)*)`

// Boundary after a match keeps /home/claude from matching inside
// /home/claudette.
const afterPat = `($|[^A-Za-z0-9_.-])`

// Translator performs bidirectional path mapping for one workspace.
type Translator struct {
	aliases    []Alias // sorted longest sandbox root first
	home       Alias   // fallback root for unrecognized absolute paths
	homeIdx    int
	sandboxRes []*regexp.Regexp
	hostRes    []*regexp.Regexp
	relDirRes  []*regexp.Regexp
}

// DefaultAliases returns the standard sandbox layout under root.
func DefaultAliases(root string) []Alias {
	root = strings.TrimRight(root, `\/`)
	return []Alias{
		{Sandbox: "/mnt/user-data/uploads", Host: root + `\uploads`},
		{Sandbox: "/mnt/user-data/outputs", Host: root + `\outputs`},
		{Sandbox: "/home/claude", Host: root + `\claude`},
	}
}

// NewTranslator builds a translator over the alias table. The first
// alias rooted under /home becomes the fallback for unknown absolute
// paths; absent one, the last alias does.
func NewTranslator(aliases []Alias) *Translator {
	sorted := append([]Alias(nil), aliases...)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Sandbox) > len(sorted[j].Sandbox)
	})

	t := &Translator{aliases: sorted, homeIdx: len(sorted) - 1}
	for i, a := range sorted {
		if strings.HasPrefix(a.Sandbox, "/home/") {
			t.homeIdx = i
			break
		}
	}
	t.home = sorted[t.homeIdx]

	for _, a := range sorted {
		t.sandboxRes = append(t.sandboxRes, regexp.MustCompile(
			regexp.QuoteMeta(a.Sandbox)+restPat+afterPat))
		hostQuoted := strings.ReplaceAll(regexp.QuoteMeta(a.Host), `\\`, `[\\/]`)
		t.hostRes = append(t.hostRes, regexp.MustCompile(
			`(?i)`+hostQuoted+hostRestPat+afterPat))
	}
	for _, dir := range relativeDirs {
		t.relDirRes = append(t.relDirRes, regexp.MustCompile(
			regexp.QuoteMeta(t.home.Sandbox+"/"+dir)+afterPat))
	}
	return t
}

// Home returns the sandbox home alias.
func (t *Translator) Home() Alias {
	return t.home
}

func marker(i int) string {
	return fmt.Sprintf("\x00%d\x00", i)
}

var markerRe = regexp.MustCompile("\x00(\\d+)\x00" + restPat)

// fallbackRe finds absolute Unix paths outside the alias table. The
// leading character class keeps URL authority sections (preceded by
// ':' or '/') and relative paths out of reach.
var fallbackRe = regexp.MustCompile(`(^|[\s"'=(])(/[A-Za-z0-9._+-]+(?:/[^\s"';|&<>)]+)*)`)

// ToHost rewrites every sandbox path in text to its host equivalent.
// Alias roots become markers first so one alias expansion can never be
// re-translated by another or by the fallback pass.
func (t *Translator) ToHost(text string) string {
	out := text
	for i, re := range t.sandboxRes {
		out = re.ReplaceAllString(out, marker(i)+`${1}${2}`)
	}

	// Any other absolute Unix path nests under the sandbox home so the
	// mapping stays deterministic and reversible.
	out = fallbackRe.ReplaceAllString(out, `${1}`+marker(t.homeIdx)+`${2}`)

	out = markerRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := markerRe.FindStringSubmatch(m)
		idx, _ := strconv.Atoi(sub[1])
		rest := strings.ReplaceAll(sub[2], "/", `\`)
		return t.aliases[idx].Host + rest
	})
	return out
}

// ToSandbox rewrites host paths in text back to the sandbox view, then
// lifts home-nested system directories back to their roots.
func (t *Translator) ToSandbox(text string) string {
	out := text
	for i, re := range t.hostRes {
		idx := i
		out = re.ReplaceAllStringFunc(out, func(m string) string {
			sub := re.FindStringSubmatch(m)
			rest := strings.ReplaceAll(sub[1], `\`, "/")
			return t.aliases[idx].Sandbox + rest + sub[2]
		})
	}

	for i, dir := range relativeDirs {
		out = t.relDirRes[i].ReplaceAllString(out, "/"+dir+`${1}`)
	}
	return out
}

var driveRe = regexp.MustCompile(`([A-Za-z]):[\\/]`)

// ToGitBash converts host Windows paths into the /c/ form Git Bash
// expects and flips remaining backslashes.
func ToGitBash(text string) string {
	out := driveRe.ReplaceAllStringFunc(text, func(m string) string {
		return "/" + strings.ToLower(m[:1]) + "/"
	})
	return strings.ReplaceAll(out, `\`, "/")
}
