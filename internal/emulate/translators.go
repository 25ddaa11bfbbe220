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

package emulate

import (
	"fmt"
	"strconv"
	"strings"

	"bashport/internal/errors"
)

func translateCd(argv []string) (Script, error) {
	if len(argv) < 2 {
		return cmdScript("cd"), nil
	}
	return cmdScript(fmt.Sprintf(`cd /d "%s"`, stripQuotes(argv[1]))), nil
}

func translateLs(argv []string) (Script, error) {
	flags, paths := splitFlags(argv[1:])
	target := "*"
	if len(paths) > 0 {
		target = paths[0]
	}
	// dir covers the plain listing, PowerShell the formatted ones.
	if strings.ContainsAny(flags, "lhF") {
		cmd := fmt.Sprintf("Get-ChildItem %s", psQuote(target))
		if strings.Contains(flags, "a") {
			cmd += " -Force"
		}
		if strings.Contains(flags, "l") {
			cmd += " | Format-Table Mode, LastWriteTime, Length, Name"
		} else {
			cmd += " | ForEach-Object Name"
		}
		return ps(cmd), nil
	}
	var opts []string
	if strings.Contains(flags, "a") {
		opts = append(opts, "/a")
	}
	if strings.Contains(flags, "R") {
		opts = append(opts, "/s")
	}
	if strings.Contains(flags, "t") {
		opts = append(opts, "/o:d")
	}
	if strings.Contains(flags, "S") {
		opts = append(opts, "/o:s")
	}
	opts = append(opts, "/b")
	out := "dir " + strings.Join(opts, " ")
	if len(paths) > 0 {
		out += " " + strings.Join(paths, " ")
	}
	return cmdScript(out), nil
}

func translateCat(argv []string) (Script, error) {
	flags, files := splitFlags(argv[1:])
	number := strings.ContainsAny(flags, "nb")
	if len(files) == 0 {
		if number {
			return ps(`$n = 1; $input | ForEach-Object { "{0,6} {1}" -f $n++, $_ }`), nil
		}
		return ps("$input"), nil
	}
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = psQuote(f)
	}
	cmd := "Get-Content " + strings.Join(quoted, ", ")
	if number {
		cmd = `$n = 1; ` + cmd + ` | ForEach-Object { "{0,6} {1}" -f $n++, $_ }`
	}
	return ps(cmd), nil
}

func translateEcho(argv []string) (Script, error) {
	flags, words := splitFlags(argv[1:])
	text := strings.Join(words, " ")
	noNewline := strings.Contains(flags, "n")
	escapes := strings.Contains(flags, "e")
	if escapes {
		text = strings.NewReplacer(`\n`, "`n", `\t`, "`t", `\r`, "`r").Replace(text)
	}
	if noNewline || escapes {
		op := "Write-Host"
		if noNewline {
			op += " -NoNewline"
		}
		return ps(fmt.Sprintf("%s %s", op, psQuote(text))), nil
	}
	if text == "" {
		return cmdScript("echo."), nil
	}
	return cmdScript("echo " + text), nil
}

func translateMkdir(argv []string) (Script, error) {
	_, dirs := splitFlags(argv[1:])
	if len(dirs) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "mkdir requires a directory name")
	}
	// cmd.exe mkdir creates parents, so -p needs no extra handling.
	quoted := make([]string, len(dirs))
	for i, d := range dirs {
		quoted[i] = fmt.Sprintf("%q", stripQuotes(d))
	}
	return cmdScript("mkdir " + strings.Join(quoted, " ")), nil
}

func translateRm(argv []string) (Script, error) {
	flags, paths := splitFlags(argv[1:])
	if len(paths) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "rm requires a target")
	}
	recursive := strings.ContainsAny(flags, "rR")
	force := strings.Contains(flags, "f")
	var parts []string
	for _, p := range paths {
		q := stripQuotes(p)
		if recursive {
			dirFlags := "/s"
			if force {
				dirFlags += " /q"
			}
			// Target may be a file even with -r, fall through to del.
			parts = append(parts, fmt.Sprintf(`(rmdir %s "%s" 2>nul || del /f /q "%s")`, dirFlags, q, q))
		} else if force {
			parts = append(parts, fmt.Sprintf(`del /f /q "%s"`, q))
		} else {
			parts = append(parts, fmt.Sprintf(`del /q "%s"`, q))
		}
	}
	return cmdScript(strings.Join(parts, " && ")), nil
}

func translateCp(argv []string) (Script, error) {
	flags, paths := splitFlags(argv[1:])
	if len(paths) < 2 {
		return Script{}, errors.New(errors.CodeTranslation, "cp requires a source and a destination")
	}
	src := stripQuotes(paths[0])
	dst := stripQuotes(paths[len(paths)-1])
	if strings.ContainsAny(flags, "rRa") {
		return cmdScript(fmt.Sprintf(`xcopy "%s" "%s" /e /i /y`, src, dst)), nil
	}
	return cmdScript(fmt.Sprintf(`copy /y "%s" "%s"`, src, dst)), nil
}

func translateMv(argv []string) (Script, error) {
	_, paths := splitFlags(argv[1:])
	if len(paths) < 2 {
		return Script{}, errors.New(errors.CodeTranslation, "mv requires a source and a destination")
	}
	return cmdScript(fmt.Sprintf(`move /y "%s" "%s"`,
		stripQuotes(paths[0]), stripQuotes(paths[len(paths)-1]))), nil
}

func translateTouch(argv []string) (Script, error) {
	_, files := splitFlags(argv[1:])
	if len(files) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "touch requires a filename")
	}
	var parts []string
	for _, f := range files {
		q := psQuote(f)
		parts = append(parts, fmt.Sprintf(
			"if (Test-Path %s) { (Get-Item %s).LastWriteTime = Get-Date } else { New-Item -ItemType File -Path %s | Out-Null }",
			q, q, q))
	}
	return ps(strings.Join(parts, "; ")), nil
}

func translateHead(argv []string) (Script, error) {
	n, files := lineCountArg(argv[1:], 10)
	if len(files) == 0 {
		return ps(fmt.Sprintf("$input | Select-Object -First %d", n)), nil
	}
	return ps(fmt.Sprintf("Get-Content %s -TotalCount %d", psQuote(files[0]), n)), nil
}

func translateTail(argv []string) (Script, error) {
	n, files := lineCountArg(argv[1:], 10)
	if len(files) == 0 {
		return ps(fmt.Sprintf("$input | Select-Object -Last %d", n)), nil
	}
	return ps(fmt.Sprintf("Get-Content %s -Tail %d", psQuote(files[0]), n)), nil
}

// lineCountArg handles -n N, -nN and the historical -N spelling.
func lineCountArg(args []string, def int) (int, []string) {
	n := def
	var files []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-n" && i+1 < len(args):
			if v, err := strconv.Atoi(args[i+1]); err == nil {
				n = v
			}
			i++
		case strings.HasPrefix(a, "-n"):
			if v, err := strconv.Atoi(a[2:]); err == nil {
				n = v
			}
		case strings.HasPrefix(a, "-"):
			if v, err := strconv.Atoi(a[1:]); err == nil {
				n = v
			}
		default:
			files = append(files, a)
		}
	}
	return n, files
}

func translateWc(argv []string) (Script, error) {
	flags, files := splitFlags(argv[1:])
	source := "$input"
	if len(files) > 0 {
		source = "Get-Content " + psQuote(files[0])
	}
	switch {
	case strings.Contains(flags, "l"):
		return ps(fmt.Sprintf("(%s | Measure-Object -Line).Lines", source)), nil
	case strings.Contains(flags, "w"):
		return ps(fmt.Sprintf("(%s | Measure-Object -Word).Words", source)), nil
	case strings.Contains(flags, "c"), strings.Contains(flags, "m"):
		return ps(fmt.Sprintf("(%s | Measure-Object -Character).Characters", source)), nil
	}
	return ps(fmt.Sprintf("%s | Measure-Object -Line -Word -Character | Format-Table Lines, Words, Characters", source)), nil
}

func translateGrep(argv []string) (Script, error) {
	flags, rest := splitFlags(argv[1:])
	if len(rest) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "grep requires a pattern")
	}
	pattern := psQuote(rest[0])
	files := rest[1:]
	var opts []string
	if !strings.Contains(flags, "i") {
		opts = append(opts, "-CaseSensitive")
	}
	if strings.Contains(flags, "v") {
		opts = append(opts, "-NotMatch")
	}
	var cmd string
	if len(files) == 0 {
		cmd = fmt.Sprintf("$input | Select-String -Pattern %s %s", pattern, strings.Join(opts, " "))
	} else {
		quoted := make([]string, len(files))
		for i, f := range files {
			quoted[i] = psQuote(f)
		}
		cmd = fmt.Sprintf("Select-String -Pattern %s -Path %s %s", pattern, strings.Join(quoted, ", "), strings.Join(opts, " "))
	}
	if strings.Contains(flags, "n") {
		cmd += ` | ForEach-Object { "{0}:{1}" -f $_.LineNumber, $_.Line }`
	} else if strings.Contains(flags, "c") {
		cmd = "(" + cmd + " | Measure-Object).Count"
	} else {
		cmd += " | ForEach-Object Line"
	}
	return ps(strings.TrimSpace(cmd)), nil
}

func translateSort(argv []string) (Script, error) {
	flags, files := splitFlags(argv[1:])
	source := "$input"
	if len(files) > 0 {
		source = "Get-Content " + psQuote(files[0])
	}
	cmd := source + " | Sort-Object"
	if strings.Contains(flags, "n") {
		cmd += " { [double]$_ }"
	}
	if strings.Contains(flags, "r") {
		cmd += " -Descending"
	}
	if strings.Contains(flags, "u") {
		cmd += " -Unique"
	}
	return ps(cmd), nil
}

func translateUniq(argv []string) (Script, error) {
	flags, files := splitFlags(argv[1:])
	source := "$input"
	if len(files) > 0 {
		source = "Get-Content " + psQuote(files[0])
	}
	if strings.Contains(flags, "c") {
		return ps(source + ` | Group-Object | ForEach-Object { "{0,7} {1}" -f $_.Count, $_.Name }`), nil
	}
	// uniq collapses adjacent duplicates only, Get-Unique matches that
	// on sorted input which is the common pipeline shape.
	return ps(source + " | Get-Unique"), nil
}

func translateWhich(argv []string) (Script, error) {
	_, names := splitFlags(argv[1:])
	if len(names) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "which requires a command name")
	}
	return cmdScript("where " + RenameInterpreter(stripQuotes(names[0]))), nil
}

func translateEnv(argv []string) (Script, error) {
	_, names := splitFlags(argv[1:])
	if len(names) > 0 {
		return ps(fmt.Sprintf("[Environment]::GetEnvironmentVariable(%s)", psQuote(names[0]))), nil
	}
	return cmdScript("set"), nil
}

func translateExport(argv []string) (Script, error) {
	if len(argv) < 2 {
		return cmdScript("set"), nil
	}
	name, value, ok := strings.Cut(argv[1], "=")
	if !ok {
		return cmdScript("set " + argv[1]), nil
	}
	return cmdScript(fmt.Sprintf("set %s=%s", name, stripQuotes(value))), nil
}

func translateDate(argv []string) (Script, error) {
	for _, a := range argv[1:] {
		if strings.HasPrefix(a, "+") {
			format := strings.Trim(a[1:], `"'`)
			switch format {
			case "%s":
				return ps("[int][double]::Parse((Get-Date -UFormat %s))"), nil
			case "%Y-%m-%d":
				return ps("Get-Date -Format 'yyyy-MM-dd'"), nil
			case "%H:%M:%S":
				return ps("Get-Date -Format 'HH:mm:ss'"), nil
			default:
				return ps("Get-Date -UFormat " + psQuote(format)), nil
			}
		}
	}
	return ps("Get-Date"), nil
}

func translateSleep(argv []string) (Script, error) {
	if len(argv) < 2 {
		return Script{}, errors.New(errors.CodeTranslation, "sleep requires a duration")
	}
	d := strings.TrimSuffix(stripQuotes(argv[1]), "s")
	if _, err := strconv.ParseFloat(d, 64); err != nil {
		return Script{}, errors.New(errors.CodeTranslation, "sleep supports numeric seconds only")
	}
	return ps("Start-Sleep -Seconds " + d), nil
}

func translateBasename(argv []string) (Script, error) {
	if len(argv) < 2 {
		return Script{}, errors.New(errors.CodeTranslation, "basename requires a path")
	}
	return ps("Split-Path -Leaf " + psQuote(argv[1])), nil
}

func translateDirname(argv []string) (Script, error) {
	if len(argv) < 2 {
		return Script{}, errors.New(errors.CodeTranslation, "dirname requires a path")
	}
	return ps("Split-Path -Parent " + psQuote(argv[1])), nil
}

func translateSeq(argv []string) (Script, error) {
	_, nums := splitFlags(argv[1:])
	first, step, last := 1, 1, 0
	var err error
	switch len(nums) {
	case 1:
		last, err = strconv.Atoi(nums[0])
	case 2:
		if first, err = strconv.Atoi(nums[0]); err == nil {
			last, err = strconv.Atoi(nums[1])
		}
	case 3:
		if first, err = strconv.Atoi(nums[0]); err == nil {
			if step, err = strconv.Atoi(nums[1]); err == nil {
				last, err = strconv.Atoi(nums[2])
			}
		}
	default:
		return Script{}, errors.New(errors.CodeTranslation, "seq requires 1 to 3 numeric arguments")
	}
	if err != nil {
		return Script{}, errors.New(errors.CodeTranslation, "seq arguments must be integers")
	}
	if step == 1 {
		return ps(fmt.Sprintf("%d..%d", first, last)), nil
	}
	return ps(fmt.Sprintf("for ($i = %d; $i -le %d; $i += %d) { $i }", first, last, step)), nil
}

func translateFind(argv []string) (Script, error) {
	root := "."
	pattern := "*"
	typeFilter := ""
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-name", "-iname":
			if i+1 < len(args) {
				pattern = stripQuotes(args[i+1])
				i++
			}
		case "-type":
			if i+1 < len(args) {
				typeFilter = args[i+1]
				i++
			}
		default:
			if !strings.HasPrefix(args[i], "-") {
				root = stripQuotes(args[i])
			}
		}
	}
	cmd := fmt.Sprintf("Get-ChildItem -Path %s -Filter %s -Recurse", psQuote(root), psQuote(pattern))
	switch typeFilter {
	case "f":
		cmd += " -File"
	case "d":
		cmd += " -Directory"
	}
	return ps(cmd + " | ForEach-Object FullName"), nil
}

var errSedUnsupported = errors.New(errors.CodeTranslation,
	"sed supports only the s/pattern/replacement/ form")

func translateSed(argv []string) (Script, error) {
	_, rest := splitFlags(argv[1:])
	if len(rest) == 0 {
		return Script{}, errSedUnsupported
	}
	expr := stripQuotes(rest[0])
	if !strings.HasPrefix(expr, "s") || len(expr) < 4 {
		return Script{}, errSedUnsupported
	}
	sep := string(expr[1])
	fields := strings.Split(expr[2:], sep)
	if len(fields) < 2 {
		return Script{}, errSedUnsupported
	}
	pat, rep := fields[0], fields[1]
	global := len(fields) > 2 && strings.Contains(fields[2], "g")
	source := "$input"
	if len(rest) > 1 {
		source = "Get-Content " + psQuote(rest[1])
	}
	// -replace is regex and replaces all matches, first-only needs the
	// [regex] overload with a count.
	if global {
		return ps(fmt.Sprintf("%s | ForEach-Object { $_ -replace %s, %s }",
			source, psQuote(pat), psQuote(rep))), nil
	}
	return ps(fmt.Sprintf("%s | ForEach-Object { [regex]::new(%s).Replace($_, %s, 1) }",
		source, psQuote(pat), psQuote(rep))), nil
}

func translateCut(argv []string) (Script, error) {
	delim := "\t"
	fieldSpec := ""
	var files []string
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-d" && i+1 < len(args):
			delim = stripQuotes(args[i+1])
			i++
		case strings.HasPrefix(a, "-d"):
			delim = stripQuotes(a[2:])
		case a == "-f" && i+1 < len(args):
			fieldSpec = args[i+1]
			i++
		case strings.HasPrefix(a, "-f"):
			fieldSpec = a[2:]
		case !strings.HasPrefix(a, "-"):
			files = append(files, a)
		}
	}
	if fieldSpec == "" {
		return Script{}, errors.New(errors.CodeTranslation, "cut requires -f")
	}
	var idx []string
	for _, part := range strings.Split(fieldSpec, ",") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return Script{}, errors.New(errors.CodeTranslation, "cut field list must be comma-separated positive integers")
		}
		idx = append(idx, strconv.Itoa(n-1))
	}
	source := "$input"
	if len(files) > 0 {
		source = "Get-Content " + psQuote(files[0])
	}
	return ps(fmt.Sprintf("%s | ForEach-Object { ($_ -split %s)[%s] -join %s }",
		source, psQuote(delim), strings.Join(idx, ","), psQuote(delim))), nil
}

func translateTr(argv []string) (Script, error) {
	flags, sets := splitFlags(argv[1:])
	if strings.Contains(flags, "d") {
		if len(sets) < 1 {
			return Script{}, errors.New(errors.CodeTranslation, "tr -d requires a character set")
		}
		return ps(fmt.Sprintf("$input | ForEach-Object { $_ -replace ('[' + [regex]::Escape(%s) + ']'), '' }",
			psQuote(sets[0]))), nil
	}
	if len(sets) < 2 {
		return Script{}, errors.New(errors.CodeTranslation, "tr requires two character sets")
	}
	from, to := stripQuotes(sets[0]), stripQuotes(sets[1])
	switch {
	case from == "a-z" && to == "A-Z":
		return ps("$input | ForEach-Object { $_.ToUpper() }"), nil
	case from == "A-Z" && to == "a-z":
		return ps("$input | ForEach-Object { $_.ToLower() }"), nil
	case len(from) == 1 && len(to) == 1:
		return ps(fmt.Sprintf("$input | ForEach-Object { $_.Replace(%s, %s) }",
			psQuote(from), psQuote(to))), nil
	}
	return Script{}, errors.New(errors.CodeTranslation, "tr supports case folding and single-character sets")
}

func translateDiff(argv []string) (Script, error) {
	flags, files := splitFlags(argv[1:])
	if len(files) < 2 {
		return Script{}, errors.New(errors.CodeTranslation, "diff requires two files")
	}
	a, b := stripQuotes(files[0]), stripQuotes(files[1])
	if strings.Contains(flags, "u") {
		return ps(fmt.Sprintf("Compare-Object (Get-Content '%s') (Get-Content '%s') | Format-Table", a, b)), nil
	}
	return cmdScript(fmt.Sprintf(`fc "%s" "%s"`, a, b)), nil
}

func translateTee(argv []string) (Script, error) {
	flags, files := splitFlags(argv[1:])
	if len(files) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "tee requires a filename")
	}
	cmd := "$input | Tee-Object -FilePath " + psQuote(files[0])
	if strings.Contains(flags, "a") {
		cmd += " -Append"
	}
	return ps(cmd), nil
}

func translateStat(argv []string) (Script, error) {
	_, files := splitFlags(argv[1:])
	if len(files) == 0 {
		return Script{}, errors.New(errors.CodeTranslation, "stat requires a path")
	}
	return ps(fmt.Sprintf("Get-Item %s | Format-List Name, Length, Mode, CreationTime, LastWriteTime, LastAccessTime",
		psQuote(files[0]))), nil
}

func translateTest(argv []string) (Script, error) {
	args := argv[1:]
	if len(args) == 2 {
		path := psQuote(args[1])
		switch args[0] {
		case "-e":
			return ps(fmt.Sprintf("if (Test-Path %s) { exit 0 } else { exit 1 }", path)), nil
		case "-f":
			return ps(fmt.Sprintf("if (Test-Path %s -PathType Leaf) { exit 0 } else { exit 1 }", path)), nil
		case "-d":
			return ps(fmt.Sprintf("if (Test-Path %s -PathType Container) { exit 0 } else { exit 1 }", path)), nil
		case "-s":
			return ps(fmt.Sprintf("if ((Test-Path %s -PathType Leaf) -and (Get-Item %s).Length -gt 0) { exit 0 } else { exit 1 }", path, path)), nil
		case "-z":
			if stripQuotes(args[1]) == "" {
				return cmdScript("exit 0"), nil
			}
			return cmdScript("exit 1"), nil
		case "-n":
			if stripQuotes(args[1]) != "" {
				return cmdScript("exit 0"), nil
			}
			return cmdScript("exit 1"), nil
		}
	}
	if len(args) == 3 {
		op, ok := map[string]string{
			"=": "-eq", "==": "-eq", "!=": "-ne",
			"-eq": "-eq", "-ne": "-ne", "-lt": "-lt",
			"-le": "-le", "-gt": "-gt", "-ge": "-ge",
		}[args[1]]
		if ok {
			left, right := psQuote(args[0]), psQuote(args[2])
			if strings.HasPrefix(args[1], "-") {
				left, right = "[double]"+left, "[double]"+right
			}
			return ps(fmt.Sprintf("if (%s %s %s) { exit 0 } else { exit 1 }", left, op, right)), nil
		}
	}
	return Script{}, errors.New(errors.CodeTranslation, "unsupported test expression")
}

func translateTar(argv []string) (Script, error) {
	// Windows 10+ bundles bsdtar, pass arguments through unchanged.
	return cmdScript(strings.Join(argv, " ")), nil
}

func hashTranslator(algorithm string) translateFunc {
	return func(argv []string) (Script, error) {
		_, files := splitFlags(argv[1:])
		if len(files) == 0 {
			return Script{}, errors.New(errors.CodeTranslation,
				strings.ToLower(algorithm)+"sum requires a filename")
		}
		return ps(fmt.Sprintf(
			`$h = Get-FileHash -Algorithm %s %s; "{0}  {1}" -f $h.Hash.ToLower(), %s`,
			algorithm, psQuote(files[0]), psQuote(files[0]))), nil
	}
}

func translateBase64(argv []string) (Script, error) {
	flags, files := splitFlags(argv[1:])
	decode := strings.Contains(flags, "d")
	if len(files) == 0 {
		if decode {
			return ps("[Text.Encoding]::UTF8.GetString([Convert]::FromBase64String(($input -join '')))"), nil
		}
		return ps("[Convert]::ToBase64String([Text.Encoding]::UTF8.GetBytes(($input -join \"`n\")))"), nil
	}
	path := psQuote(files[0])
	if decode {
		return ps(fmt.Sprintf("[Text.Encoding]::UTF8.GetString([Convert]::FromBase64String((Get-Content %s -Raw)))", path)), nil
	}
	return ps(fmt.Sprintf("[Convert]::ToBase64String([IO.File]::ReadAllBytes(%s))", path)), nil
}
