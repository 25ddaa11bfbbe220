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
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/u-root/u-root/pkg/core"
	corebase64 "github.com/u-root/u-root/pkg/core/base64"
	corecat "github.com/u-root/u-root/pkg/core/cat"
	corecp "github.com/u-root/u-root/pkg/core/cp"
	corels "github.com/u-root/u-root/pkg/core/ls"
	coremkdir "github.com/u-root/u-root/pkg/core/mkdir"
	coremv "github.com/u-root/u-root/pkg/core/mv"
	corerm "github.com/u-root/u-root/pkg/core/rm"
	coreshasum "github.com/u-root/u-root/pkg/core/shasum"
	coretouch "github.com/u-root/u-root/pkg/core/touch"
)

// coreFactories maps utility names to in-process implementations.
// These run without spawning a host shell, so they work the same
// whether or not Git Bash or PowerShell is installed.
var coreFactories = map[string]func() core.Command{
	"base64":    func() core.Command { return corebase64.New() },
	"cat":       func() core.Command { return corecat.New() },
	"cp":        func() core.Command { return corecp.New() },
	"ls":        func() core.Command { return corels.New() },
	"mkdir":     func() core.Command { return coremkdir.New() },
	"mv":        func() core.Command { return coremv.New() },
	"rm":        func() core.Command { return corerm.New() },
	"sha256sum": func() core.Command { return coreshasum.New() },
	"shasum":    func() core.Command { return coreshasum.New() },
	"touch":     func() core.Command { return coretouch.New() },
}

// HasCore reports whether name runs in-process.
func HasCore(name string) bool {
	_, ok := coreFactories[name]
	return ok
}

// RunCore executes argv with the in-process implementation of argv[0],
// reading stdin and working relative to workdir. The returned error
// carries the command's stderr when it produced any.
func RunCore(ctx context.Context, workdir, stdin string, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty command")
	}
	factory, ok := coreFactories[argv[0]]
	if !ok {
		return "", fmt.Errorf("no in-process implementation for %q", argv[0])
	}

	cmd := factory()
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.SetIO(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetWorkingDir(workdir)

	args := argv[1:]
	if argv[0] == "sha256sum" {
		args = append([]string{"-a", "256"}, args...)
	}

	if err := cmd.RunContext(ctx, args...); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg != "" {
			return "", fmt.Errorf("%v: %s", err, errMsg)
		}
		return "", err
	}
	return stdout.String(), nil
}
