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

// Package dispatch runs translated commands in host interpreters and
// collects their output. All blocking calls take a context; a run with
// no deadline gets the dispatcher's default timeout.
package dispatch

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bashport/internal/errors"
)

// DefaultTimeout bounds a single host process when the caller's
// context carries no deadline.
const DefaultTimeout = 120 * time.Second

// Result is the collected outcome of one host process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Dispatcher runs command fragments in the host's interpreters.
type Dispatcher interface {
	// RunBash executes a whole script through Git Bash.
	RunBash(ctx context.Context, script string) (Result, error)
	// RunCmd executes one cmd.exe fragment.
	RunCmd(ctx context.Context, command, stdin string) (Result, error)
	// RunPowerShell executes one PowerShell fragment.
	RunPowerShell(ctx context.Context, command, stdin string) (Result, error)
	// RunNative executes a binary directly, without a shell.
	RunNative(ctx context.Context, path string, args []string, stdin string) (Result, error)
}

// Host dispatches to real processes on the local machine.
type Host struct {
	bashPath string
	workdir  string
	timeout  time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	testMode bool
	counts   map[string]int
}

// NewHost builds a dispatcher rooted at workdir. bashPath may be empty
// when Git Bash is unavailable; RunBash then fails with a capability
// error.
func NewHost(bashPath, workdir string, log zerolog.Logger) *Host {
	return &Host{
		bashPath: bashPath,
		workdir:  workdir,
		timeout:  DefaultTimeout,
		log:      log,
		counts:   make(map[string]int),
	}
}

// SetTimeout overrides the default per-process timeout.
func (h *Host) SetTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

// SetTestMode toggles dry-run dispatch: commands are reported, not run.
func (h *Host) SetTestMode(on bool) {
	h.mu.Lock()
	h.testMode = on
	h.mu.Unlock()
}

// TestMode reports the current dry-run state.
func (h *Host) TestMode() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.testMode
}

// Stats returns a copy of the per-interpreter dispatch counters.
func (h *Host) Stats() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

func (h *Host) record(kind string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[kind]++
	return h.testMode
}

func (h *Host) RunBash(ctx context.Context, script string) (Result, error) {
	if h.record("bash") {
		return dryRun("bash", script), nil
	}
	if h.bashPath == "" {
		return Result{}, errors.New(errors.CodeCapability, "bash is not available on this host")
	}
	return h.run(ctx, "bash", "", h.bashPath, "-c", script)
}

func (h *Host) RunCmd(ctx context.Context, command, stdin string) (Result, error) {
	if h.record("cmd") {
		return dryRun("cmd", command), nil
	}
	return h.run(ctx, "cmd", stdin, "cmd.exe", "/d", "/c", command)
}

func (h *Host) RunPowerShell(ctx context.Context, command, stdin string) (Result, error) {
	if h.record("powershell") {
		return dryRun("powershell", command), nil
	}
	return h.run(ctx, "powershell", stdin, "powershell", "-NoProfile", "-Command", command)
}

func (h *Host) RunNative(ctx context.Context, path string, args []string, stdin string) (Result, error) {
	display := strings.Join(append([]string{path}, args...), " ")
	if h.record("native") {
		return dryRun("native", display), nil
	}
	return h.run(ctx, "native", stdin, path, args...)
}

func dryRun(kind, command string) Result {
	return Result{Stdout: fmt.Sprintf("[TEST MODE] Would execute (%s): %s", kind, command)}
}

func (h *Host) run(ctx context.Context, kind, stdin, name string, args ...string) (Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = h.workdir
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	hideWindow(cmd)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			return res, errors.Wrap(errors.CodeTimeout,
				fmt.Sprintf("%s command timed out after %s", kind, elapsed.Round(time.Second)), err)
		case stderrors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			return res, errors.Wrap(errors.CodeExecution,
				fmt.Sprintf("failed to start %s command", kind), err)
		}
	}

	h.log.Debug().Str("kind", kind).Int("exit", res.ExitCode).
		Dur("elapsed", elapsed).Msg("dispatched")
	return res, nil
}
