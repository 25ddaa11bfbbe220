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

// Package emulate translates Unix utility invocations into equivalent
// cmd.exe or PowerShell fragments, with an in-process tier for the
// utilities u-root implements. Fidelity is close enough to be useful,
// not byte-identical to native tool output.
package emulate

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"bashport/internal/errors"
)

// Kind selects the host interpreter for a translated fragment.
type Kind string

const (
	KindCmd        Kind = "cmd"
	KindPowerShell Kind = "powershell"
)

// Script is one translated command fragment.
type Script struct {
	Kind    Kind
	Command string
}

type translateFunc func(argv []string) (Script, error)

// Emulator holds the per-utility translation catalogue.
type Emulator struct {
	table map[string]translateFunc
	log   zerolog.Logger
}

// NewEmulator builds the catalogue.
func NewEmulator(log zerolog.Logger) *Emulator {
	e := &Emulator{log: log}
	e.table = map[string]translateFunc{
		"pwd":      fixedCmd("cd"),
		"whoami":   fixedCmd("whoami"),
		"hostname": fixedCmd("hostname"),
		"true":     fixedCmd("exit 0"),
		"false":    fixedCmd("exit 1"),
		"clear":    fixedCmd("cls"),

		"cd":       translateCd,
		"ls":       translateLs,
		"cat":      translateCat,
		"echo":     translateEcho,
		"mkdir":    translateMkdir,
		"rm":       translateRm,
		"cp":       translateCp,
		"mv":       translateMv,
		"touch":    translateTouch,
		"head":     translateHead,
		"tail":     translateTail,
		"wc":       translateWc,
		"grep":     translateGrep,
		"sort":     translateSort,
		"uniq":     translateUniq,
		"which":    translateWhich,
		"env":      translateEnv,
		"printenv": translateEnv,
		"export":   translateExport,
		"date":     translateDate,
		"sleep":    translateSleep,
		"basename": translateBasename,
		"dirname":  translateDirname,
		"seq":      translateSeq,
		"find":     translateFind,
		"sed":      translateSed,
		"cut":      translateCut,
		"tr":       translateTr,
		"diff":     translateDiff,
		"tee":      translateTee,
		"stat":     translateStat,
		"test":     translateTest,
		"tar":      translateTar,

		"sha256sum": hashTranslator("SHA256"),
		"sha1sum":   hashTranslator("SHA1"),
		"md5sum":    hashTranslator("MD5"),
		"base64":    translateBase64,
	}
	return e
}

// Supported reports whether name has a translation rule, directly or
// through the interpreter rename.
func (e *Emulator) Supported(name string) bool {
	_, ok := e.table[RenameInterpreter(name)]
	return ok
}

// Translate produces a host-shell fragment for argv. Unknown commands
// yield a coded translation error, never a garbled script.
func (e *Emulator) Translate(argv []string) (Script, error) {
	if len(argv) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "empty command")
	}
	name := RenameInterpreter(argv[0])
	fn, ok := e.table[name]
	if !ok {
		return Script{}, errors.New(errors.CodeTranslation,
			fmt.Sprintf("command %q is not supported on this host", argv[0]))
	}
	rewritten := append([]string{name}, argv[1:]...)
	script, err := fn(rewritten)
	if err != nil {
		return Script{}, err
	}
	e.log.Debug().Str("from", strings.Join(argv, " ")).
		Str("to", script.Command).Str("kind", string(script.Kind)).
		Msg("translated")
	return script, nil
}

// RenameInterpreter maps an unavailable interpreter name to an
// available one. Name-only: python3 the command becomes python, a file
// called python3.txt stays untouched because only argv[0] flows here.
func RenameInterpreter(name string) string {
	if name == "python3" {
		return "python"
	}
	return name
}

func fixedCmd(command string) translateFunc {
	return func([]string) (Script, error) {
		return Script{Kind: KindCmd, Command: command}, nil
	}
}

func ps(command string) Script {
	return Script{Kind: KindPowerShell, Command: command}
}

func cmdScript(command string) Script {
	return Script{Kind: KindCmd, Command: command}
}

// splitFlags separates leading dash options from positional arguments.
func splitFlags(args []string) (flags string, positional []string) {
	var b strings.Builder
	for _, a := range args {
		if strings.HasPrefix(a, "-") && a != "-" && a != "--" {
			b.WriteString(strings.TrimLeft(a, "-"))
			continue
		}
		if a == "--" {
			continue
		}
		positional = append(positional, a)
	}
	return b.String(), positional
}

// psQuote single-quotes a value for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(stripQuotes(s), "'", "''") + "'"
}

// stripQuotes removes one layer of surrounding shell quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
