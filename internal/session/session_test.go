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

package session

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"bashport/internal/dispatch"
	"bashport/internal/errors"
	"bashport/internal/strategy"
	"bashport/internal/winpath"
)

// fakeDispatcher records every dispatch and replies from a script map
// keyed by substring.
type fakeDispatcher struct {
	calls   []string
	replies map[string]dispatch.Result
}

func (f *fakeDispatcher) reply(key string) dispatch.Result {
	for sub, res := range f.replies {
		if strings.Contains(key, sub) {
			return res
		}
	}
	return dispatch.Result{Stdout: "ok\n"}
}

func (f *fakeDispatcher) RunBash(_ context.Context, script string) (dispatch.Result, error) {
	f.calls = append(f.calls, "bash: "+script)
	return f.reply(script), nil
}

func (f *fakeDispatcher) RunCmd(_ context.Context, command, _ string) (dispatch.Result, error) {
	f.calls = append(f.calls, "cmd: "+command)
	if res := f.reply(command); res.Stdout != "ok\n" || res.Stderr != "" {
		return res, nil
	}
	if rest, ok := strings.CutPrefix(command, "echo "); ok {
		return dispatch.Result{Stdout: rest + "\n"}, nil
	}
	return f.reply(command), nil
}

func (f *fakeDispatcher) RunPowerShell(_ context.Context, command, stdin string) (dispatch.Result, error) {
	f.calls = append(f.calls, "powershell: "+command)
	if res := f.reply(command); res.Stdout != "ok\n" || res.Stderr != "" {
		return res, nil
	}
	// Echo stdin back so pipeline chaining is observable.
	return dispatch.Result{Stdout: stdin}, nil
}

func (f *fakeDispatcher) RunNative(_ context.Context, path string, args []string, _ string) (dispatch.Result, error) {
	f.calls = append(f.calls, "native: "+path+" "+strings.Join(args, " "))
	return f.reply(path), nil
}

func newTestSession(t *testing.T, caps strategy.Capabilities) (*Session, *fakeDispatcher) {
	t.Helper()
	fd := &fakeDispatcher{replies: map[string]dispatch.Result{}}
	s := New(Options{
		Aliases:    winpath.DefaultAliases(`C:\agent\workspace`),
		Provider:   strategy.StaticProvider{Caps: caps},
		Dispatcher: fd,
		Workdir:    `C:\agent\workspace\claude`,
		TempDir:    t.TempDir(),
		Log:        zerolog.Nop(),
	})
	return s, fd
}

func bashCaps() strategy.Capabilities {
	return strategy.Capabilities{
		BashAvailable: true,
		BashPath:      `C:\Program Files\Git\bin\bash.exe`,
	}
}

func TestExecuteBashFullTranslatesPaths(t *testing.T) {
	s, fd := newTestSession(t, bashCaps())
	fd.replies["grep"] = dispatch.Result{Stdout: "match\n"}

	out, err := s.Execute(t.Context(), "grep -r main /home/claude/src | head -5")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fd.calls) != 1 || !strings.HasPrefix(fd.calls[0], "bash: ") {
		t.Fatalf("expected one bash dispatch, got %v", fd.calls)
	}
	// The bash script sees Git Bash form of the host path.
	if !strings.Contains(fd.calls[0], "/c/agent/workspace/claude/src") {
		t.Errorf("bash script = %q", fd.calls[0])
	}
	if !strings.HasPrefix(out, "Exit code: 0") {
		t.Errorf("output = %q", out)
	}
}

func TestExecuteBlockedCommand(t *testing.T) {
	s, fd := newTestSession(t, bashCaps())
	_, err := s.Execute(t.Context(), "echo before && systemctl restart nginx")
	if err == nil {
		t.Fatal("expected block")
	}
	if errors.CodeOf(err) != errors.CodeValidation {
		t.Errorf("code = %q", errors.CodeOf(err))
	}
	if len(fd.calls) != 0 {
		t.Errorf("nothing may execute, got %v", fd.calls)
	}
}

func TestExecuteValidationBeforeDispatch(t *testing.T) {
	s, fd := newTestSession(t, bashCaps())
	_, err := s.Execute(t.Context(), "rm -rf /")
	if err == nil {
		t.Fatal("expected violation")
	}
	if errors.CodeOf(err) != errors.CodeValidation {
		t.Errorf("code = %q", errors.CodeOf(err))
	}
	if len(fd.calls) != 0 {
		t.Errorf("nothing may execute, got %v", fd.calls)
	}
}

func TestExecuteManualWithNativeStage(t *testing.T) {
	caps := bashCaps()
	caps.NativeBins = map[string]string{"jq": `C:\tools\jq.exe`}
	s, fd := newTestSession(t, caps)
	fd.replies["jq.exe"] = dispatch.Result{Stdout: "\"v1\"\n"}

	out, err := s.Execute(t.Context(), "jq .version package.json")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fd.calls) != 1 || !strings.HasPrefix(fd.calls[0], "native: ") {
		t.Fatalf("expected native dispatch, got %v", fd.calls)
	}
	if !strings.Contains(out, `"v1"`) {
		t.Errorf("output = %q", out)
	}
}

func TestAssignmentPersistsAcrossRequests(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	if _, err := s.Execute(t.Context(), "NAME=world"); err != nil {
		t.Fatalf("assignment: %v", err)
	}
	out, err := s.Execute(t.Context(), "echo $NAME")
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if !strings.Contains(out, "world") {
		t.Errorf("output = %q", out)
	}
}

func TestExportAndUnset(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	if _, err := s.Execute(t.Context(), "export MODE=fast"); err != nil {
		t.Fatalf("export: %v", err)
	}
	if v, _ := s.Vars().Get("MODE"); v != "fast" {
		t.Errorf("MODE = %q", v)
	}
	if _, err := s.Execute(t.Context(), "unset MODE"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if s.Vars().Has("MODE") {
		t.Error("MODE should be gone")
	}
}

func TestAndListShortCircuits(t *testing.T) {
	s, fd := newTestSession(t, strategy.Capabilities{})
	out, err := s.Execute(t.Context(), "false && echo never")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out, "Exit code: 1") {
		t.Errorf("output = %q", out)
	}
	for _, c := range fd.calls {
		if strings.Contains(c, "never") {
			t.Errorf("right side ran: %v", fd.calls)
		}
	}
}

func TestOrListRunsFallback(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	out, err := s.Execute(t.Context(), "false || echo rescued")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "rescued") {
		t.Errorf("output = %q", out)
	}
	if !strings.HasPrefix(out, "Exit code: 0") {
		t.Errorf("output = %q", out)
	}
}

func TestSubshellIsolatesVariables(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{
		// No bash: subshell must fall back to the manual walk.
	})
	if _, err := s.Execute(t.Context(), "OUTER=kept"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Execute(t.Context(), "(OUTER=clobbered; INNER=x)"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Vars().Get("OUTER"); v != "kept" {
		t.Errorf("OUTER = %q, want kept", v)
	}
	if s.Vars().Has("INNER") {
		t.Error("INNER must not leak")
	}
}

func TestCommandSubstitutionSplices(t *testing.T) {
	s, fd := newTestSession(t, strategy.Capabilities{})
	fd.replies["Get-Date"] = dispatch.Result{Stdout: "2026-08-31\n"}

	out, err := s.Execute(t.Context(), `echo "built on $(date +%Y-%m-%d)"`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "built on 2026-08-31") {
		t.Errorf("output = %q", out)
	}
}

func TestCommandSubstitutionLimitRejected(t *testing.T) {
	s, fd := newTestSession(t, strategy.Capabilities{})
	fd.replies["Get-Date"] = dispatch.Result{Stdout: "2026-08-31\n"}

	// One above the splice limit. The leftover $( ) must not be
	// dispatched as literal text.
	command := "echo " + strings.TrimSpace(strings.Repeat("$(date) ", 33))
	_, err := s.Execute(t.Context(), command)
	if err == nil {
		t.Fatal("expected error for excessive command substitutions")
	}
	if errors.CodeOf(err) != errors.CodeParse {
		t.Errorf("code = %v, want %v", errors.CodeOf(err), errors.CodeParse)
	}
	for _, call := range fd.calls {
		if strings.Contains(call, "$(") {
			t.Errorf("literal substitution text dispatched: %q", call)
		}
	}
}

func TestHeredocBecomesInputRedirect(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	out, err := s.Execute(t.Context(), "cat << EOF\nline one\nline two\nEOF")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "line one\nline two") {
		t.Errorf("output = %q", out)
	}
}

func TestHeredocQuotedTerminatorSkipsExpansion(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	if _, err := s.Execute(t.Context(), "NAME=world"); err != nil {
		t.Fatal(err)
	}
	out, err := s.Execute(t.Context(), "cat << 'EOF'\nhello $NAME\nEOF")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "hello $NAME") {
		t.Errorf("output = %q", out)
	}
}

func TestHereString(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	out, err := s.Execute(t.Context(), `cat <<< "inline input"`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "inline input") {
		t.Errorf("output = %q", out)
	}
}

func TestUnterminatedHeredocFails(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	_, err := s.Execute(t.Context(), "cat << EOF\nno terminator here")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.CodeOf(err) != errors.CodeParse {
		t.Errorf("code = %q", errors.CodeOf(err))
	}
}

func TestOutputTranslatedBackToSandbox(t *testing.T) {
	s, fd := newTestSession(t, strategy.Capabilities{})
	fd.replies["Select-String"] = dispatch.Result{Stdout: "C:\\agent\\workspace\\claude\\report.txt: match\n"}

	out, err := s.Execute(t.Context(), "grep -r match /home/claude")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "/home/claude/report.txt") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, `C:\agent`) {
		t.Errorf("host path leaked: %q", out)
	}
}

func TestCdUpdatesWorkdir(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	if _, err := s.Execute(t.Context(), "cd /home/claude/project"); err != nil {
		t.Fatalf("cd: %v", err)
	}
	if got := s.Workdir(); got != `C:\agent\workspace\claude\project` {
		t.Errorf("workdir = %q", got)
	}
	out, err := s.Execute(t.Context(), "pwd")
	if err != nil {
		t.Fatalf("pwd: %v", err)
	}
	if !strings.Contains(out, "/home/claude/project") {
		t.Errorf("pwd output = %q", out)
	}
}

func TestEmptyCommandRejected(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	if _, err := s.Execute(t.Context(), "   "); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnknownCommandWithoutEmulation(t *testing.T) {
	s, _ := newTestSession(t, strategy.Capabilities{})
	_, err := s.Execute(t.Context(), "terraform plan")
	if err == nil {
		t.Fatal("expected translation error")
	}
	if errors.CodeOf(err) != errors.CodeTranslation {
		t.Errorf("code = %q", errors.CodeOf(err))
	}
}
