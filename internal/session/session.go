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

// Package session orchestrates one bash-style request end to end:
// path translation, validation, substitution rewriting, expansion,
// parsing, strategy analysis, and dispatch. Variable assignments
// persist across requests within one Session.
package session

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"bashport/internal/dispatch"
	"bashport/internal/emulate"
	"bashport/internal/errors"
	"bashport/internal/expand"
	"bashport/internal/parse"
	"bashport/internal/paths"
	"bashport/internal/sandbox"
	"bashport/internal/shell"
	"bashport/internal/strategy"
	"bashport/internal/winpath"
)

// Session holds per-conversation execution state.
type Session struct {
	vars       *shell.VariableContext
	translator *winpath.Translator
	validator  *sandbox.Validator
	analyzer   *strategy.Analyzer
	provider   strategy.CapabilityProvider
	emulator   *emulate.Emulator
	dispatcher dispatch.Dispatcher
	workdir    string
	tempDir    string
	log        zerolog.Logger
}

// Options wires a Session's collaborators.
type Options struct {
	Aliases       []winpath.Alias
	Provider      strategy.CapabilityProvider
	Dispatcher    dispatch.Dispatcher
	Workdir       string
	TempDir       string
	AllowedDrives []string
	Log           zerolog.Logger
}

// New builds a session. Workdir is the host-side working directory,
// TempDir defaults to the system temp dir.
func New(opts Options) *Session {
	aliases := opts.Aliases
	if len(aliases) == 0 {
		aliases = winpath.DefaultAliases(opts.Workdir)
	}
	tr := winpath.NewTranslator(aliases)
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Session{
		vars:       shell.NewVariableContext(),
		translator: tr,
		validator:  sandbox.NewValidator(opts.Workdir, opts.AllowedDrives, opts.Log),
		analyzer:   strategy.NewAnalyzer(opts.Provider, opts.Log),
		provider:   opts.Provider,
		emulator:   emulate.NewEmulator(opts.Log),
		dispatcher: opts.Dispatcher,
		workdir:    opts.Workdir,
		tempDir:    tempDir,
		log:        opts.Log,
	}
}

// Vars exposes the session's variable context.
func (s *Session) Vars() *shell.VariableContext { return s.vars }

// Workdir returns the current host working directory.
func (s *Session) Workdir() string { return s.workdir }

// Log exposes the session logger for callers that annotate requests.
func (s *Session) Log() zerolog.Logger { return s.log }

// Execute runs one request and returns its formatted outcome. The
// error path covers refusals: validation, parse, translation, and
// capability failures. A command that ran but exited non-zero is a
// normal result, not an error.
func (s *Session) Execute(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", errors.New(errors.CodeValidation, "empty command")
	}

	host := s.translator.ToHost(command)
	if err := s.validator.Validate(host); err != nil {
		return "", err
	}

	rewritten, st, err := s.rewriteSubstitutions(ctx, host)
	if err != nil {
		return "", err
	}
	defer st.cleanup()

	res, err := s.runPrepared(ctx, rewritten, "")
	if err != nil {
		return "", err
	}
	if err := s.drainOutputSubs(ctx, st); err != nil {
		return "", err
	}

	return s.format(res), nil
}

// runRaw executes a substitution body against the current session
// state, skipping the outer formatting.
func (s *Session) runRaw(ctx context.Context, command string) (dispatch.Result, error) {
	return s.runRawWithStdin(ctx, command, "")
}

func (s *Session) runRawWithStdin(ctx context.Context, command, stdin string) (dispatch.Result, error) {
	if err := s.validator.Validate(command); err != nil {
		return dispatch.Result{}, err
	}
	return s.runPrepared(ctx, command, stdin)
}

// runPrepared takes a command whose session-level substitutions are
// already resolved: expand, parse, re-validate, analyze, dispatch.
func (s *Session) runPrepared(ctx context.Context, command, stdin string) (dispatch.Result, error) {
	pre := expand.New(s.vars, s.translator.Home().Host, s.log)
	processed, err := pre.Process(command)
	if err != nil {
		return dispatch.Result{}, err
	}

	node, err := parse.Parse(processed)
	if err != nil {
		return dispatch.Result{}, err
	}

	// Expansion can surface paths and commands the raw text hid.
	if err := s.validator.Validate(processed); err != nil {
		return dispatch.Result{}, err
	}

	analysis := s.analyzer.Analyze(node)
	switch analysis.Strategy {
	case strategy.Blocked:
		return dispatch.Result{}, errors.New(errors.CodeValidation, analysis.Reason)
	case strategy.BashFull:
		return s.dispatcher.RunBash(ctx, winpath.ToGitBash(processed))
	default:
		return s.walk(ctx, node, s.vars, stdin)
	}
}

// format renders a result the way callers report it, with host paths
// translated back to the sandbox view.
func (s *Session) format(res dispatch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exit code: %d", res.ExitCode)
	if out := strings.TrimRight(s.translator.ToSandbox(res.Stdout), "\n"); out != "" {
		b.WriteString("\n\n")
		b.WriteString(out)
	}
	if errOut := strings.TrimRight(s.translator.ToSandbox(res.Stderr), "\n"); errOut != "" {
		b.WriteString("\n\n--- stderr ---\n")
		b.WriteString(errOut)
	}
	return b.String()
}

// walk executes a parsed tree stage by stage. Native binaries win over
// emulation; in-process implementations win over script translation.
func (s *Session) walk(ctx context.Context, node parse.Node, vars *shell.VariableContext, stdin string) (dispatch.Result, error) {
	switch v := node.(type) {
	case *parse.Sequence:
		var merged dispatch.Result
		for _, part := range v.Parts {
			res, err := s.walk(ctx, part, vars, stdin)
			if err != nil {
				return merged, err
			}
			merged = appendResult(merged, res)
		}
		return merged, nil

	case *parse.AndList:
		left, err := s.walk(ctx, v.Left, vars, stdin)
		if err != nil || left.ExitCode != 0 {
			return left, err
		}
		right, err := s.walk(ctx, v.Right, vars, stdin)
		return appendResult(left, right), err

	case *parse.OrList:
		left, err := s.walk(ctx, v.Left, vars, stdin)
		if err != nil || left.ExitCode == 0 {
			return left, err
		}
		right, err := s.walk(ctx, v.Right, vars, stdin)
		return appendResult(dispatch.Result{Stdout: left.Stdout, Stderr: left.Stderr}, right), err

	case *parse.Pipeline:
		cur := stdin
		var last dispatch.Result
		var errAcc []string
		for _, stage := range v.Stages {
			res, err := s.walk(ctx, stage, vars, cur)
			if err != nil {
				return last, err
			}
			if res.Stderr != "" {
				errAcc = append(errAcc, res.Stderr)
			}
			cur = res.Stdout
			last = res
		}
		last.Stderr = strings.Join(errAcc, "")
		return last, nil

	case *parse.Subshell:
		return s.walk(ctx, v.Body, vars.Copy(), stdin)

	case *parse.Group:
		return s.walk(ctx, v.Body, vars, stdin)

	case *parse.Background:
		// No job table in manual mode, the body runs synchronously.
		return s.walk(ctx, v.Body, vars, stdin)

	case *parse.SimpleCommand:
		return s.runSimple(ctx, v, vars, stdin)
	}
	return dispatch.Result{}, errors.New(errors.CodeExecution,
		fmt.Sprintf("cannot execute node %T", node))
}

func appendResult(acc, next dispatch.Result) dispatch.Result {
	acc.Stdout += next.Stdout
	acc.Stderr += next.Stderr
	acc.ExitCode = next.ExitCode
	return acc
}

func (s *Session) runSimple(ctx context.Context, cmd *parse.SimpleCommand, vars *shell.VariableContext, stdin string) (dispatch.Result, error) {
	if name, value, ok := shell.ParseAssignment(cmd.Name); ok && len(cmd.Args) == 0 {
		vars.Set(name, value)
		return dispatch.Result{}, nil
	}

	if res, handled, err := s.runBuiltin(cmd, vars); handled {
		return res, err
	}

	caps := s.provider.Capabilities()
	name := cmd.Name
	argv := append([]string{name}, cmd.Args...)

	// Input redirects become stdin regardless of tier; PowerShell has
	// no < operator and native binaries see no shell at all.
	stdin, redirects, err := s.consumeInputRedirect(stdin, cmd.Redirects)
	if err != nil {
		return dispatch.Result{}, err
	}

	if path, ok := caps.NativePath(name); ok {
		res, err := s.dispatcher.RunNative(ctx, path, cmd.Args, stdin)
		if err != nil {
			return res, err
		}
		return s.applyRedirects(res, redirects)
	}

	if emulate.HasCore(emulate.RenameInterpreter(name)) {
		out, err := emulate.RunCore(ctx, s.workdir, stdin, argv)
		if err != nil {
			return dispatch.Result{Stderr: err.Error() + "\n", ExitCode: 1}, nil
		}
		return s.applyRedirects(dispatch.Result{Stdout: out}, redirects)
	}

	script, err := s.emulator.Translate(argv)
	if err != nil {
		return dispatch.Result{}, err
	}
	fragment := script.Command + redirectSuffix(redirects)
	var res dispatch.Result
	if script.Kind == emulate.KindPowerShell {
		res, err = s.dispatcher.RunPowerShell(ctx, fragment, stdin)
	} else {
		res, err = s.dispatcher.RunCmd(ctx, fragment, stdin)
	}
	return res, err
}

// runBuiltin handles the builtins that mutate session state and so
// cannot be delegated to a host process.
func (s *Session) runBuiltin(cmd *parse.SimpleCommand, vars *shell.VariableContext) (dispatch.Result, bool, error) {
	switch cmd.Name {
	case "cd":
		target := s.translator.Home().Host
		if len(cmd.Args) > 0 {
			resolved, err := paths.ResolveTarget(unquote(cmd.Args[0]), s.workdir)
			if err != nil {
				return dispatch.Result{}, true, errors.Wrap(errors.CodeValidation, "cd failed", err)
			}
			target = resolved
		}
		s.workdir = target
		return dispatch.Result{}, true, nil
	case "pwd":
		return dispatch.Result{Stdout: s.workdir + "\n"}, true, nil
	case "export":
		for _, arg := range cmd.Args {
			if name, value, ok := shell.ParseAssignment(arg); ok {
				vars.Set(name, value)
			}
		}
		return dispatch.Result{}, true, nil
	case "unset":
		for _, arg := range cmd.Args {
			vars.Delete(arg)
		}
		return dispatch.Result{}, true, nil
	case "true":
		return dispatch.Result{}, true, nil
	case "false":
		return dispatch.Result{ExitCode: 1}, true, nil
	}
	return dispatch.Result{}, false, nil
}

// consumeInputRedirect resolves a < redirect into stdin and returns
// the remaining redirects.
func (s *Session) consumeInputRedirect(stdin string, redirects []parse.Redirect) (string, []parse.Redirect, error) {
	var rest []parse.Redirect
	for _, r := range redirects {
		if r.Op != "<" {
			rest = append(rest, r)
			continue
		}
		target, err := paths.ResolveTarget(unquote(r.Target), s.workdir)
		if err != nil {
			return "", nil, errors.Wrap(errors.CodeValidation, "redirect failed", err)
		}
		data, err := os.ReadFile(target)
		if err != nil {
			return "", nil, errors.Wrap(errors.CodeExecution, "redirect failed", err)
		}
		stdin = string(data)
	}
	return stdin, rest, nil
}

// applyRedirects implements > and >> for stages that never touch a
// host shell. Other redirect forms only exist inside script fragments.
func (s *Session) applyRedirects(res dispatch.Result, redirects []parse.Redirect) (dispatch.Result, error) {
	for _, r := range redirects {
		target, terr := paths.ResolveTarget(unquote(r.Target), s.workdir)
		if terr != nil && (r.Op == ">" || r.Op == ">>") {
			return res, errors.Wrap(errors.CodeValidation, "redirect failed", terr)
		}
		switch r.Op {
		case ">":
			if err := os.WriteFile(target, []byte(res.Stdout), 0o644); err != nil {
				return res, errors.Wrap(errors.CodeExecution, "redirect failed", err)
			}
			res.Stdout = ""
		case ">>":
			f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return res, errors.Wrap(errors.CodeExecution, "redirect failed", err)
			}
			if _, err := f.WriteString(res.Stdout); err != nil {
				f.Close()
				return res, errors.Wrap(errors.CodeExecution, "redirect failed", err)
			}
			f.Close()
			res.Stdout = ""
		default:
			return res, errors.New(errors.CodeTranslation,
				fmt.Sprintf("redirect %q is not supported for native stages", r.Op))
		}
	}
	return res, nil
}

func redirectSuffix(redirects []parse.Redirect) string {
	var b strings.Builder
	for _, r := range redirects {
		b.WriteString(" ")
		b.WriteString(r.Op)
		if r.Target != "" {
			b.WriteString(" ")
			b.WriteString(r.Target)
		}
	}
	return b.String()
}
