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

package shell

// Closed command sets used by strategy analysis and dispatch. These are
// deliberately blacklists rather than whitelists so that new bash builtins
// degrade gracefully instead of being refused outright. Extend by adding
// entries here, nowhere else.

// Builtins are commands the shell itself provides. A pipeline made only
// of builtins can be delegated wholesale to a bash-compatible shell.
var Builtins = map[string]bool{
	"cd": true, "echo": true, "export": true, "pwd": true, "test": true,
	"true": true, "false": true, "set": true, "unset": true, "alias": true,
	"read": true, "printf": true, "exit": true, "return": true, "shift": true,
	"source": true, ".": true, "eval": true, "type": true, "wait": true,
}

// Administrative holds host-administration commands that never run under
// any tier. Service managers, package managers, kernel and network
// configuration, user and mount management.
var Administrative = map[string]bool{
	"systemctl": true, "service": true, "init": true, "telinit": true,
	"apt": true, "apt-get": true, "yum": true, "dnf": true, "pacman": true,
	"zypper": true, "snap": true, "dpkg": true, "rpm": true,
	"modprobe": true, "insmod": true, "rmmod": true, "lsmod": true,
	"ifconfig": true, "ip": true, "iptables": true, "route": true,
	"useradd": true, "usermod": true, "userdel": true, "groupadd": true,
	"passwd": true, "chpasswd": true,
	"mount": true, "umount": true, "swapon": true, "swapoff": true,
	"sysctl": true, "ldconfig": true, "update-grub": true,
}

// BashUnreliable lists commands that exist in a Git Bash environment but
// misbehave there, usually MSYS path mangling or missing binaries. These
// are routed to native or emulated execution instead of bash passthrough.
var BashUnreliable = map[string]bool{
	"jq": true, "wget": true, "curl": true, "timeout": true,
	"sha256sum": true, "zip": true, "watch": true,
}

// BashPassthrough lists text-processing commands whose Git Bash builds
// behave correctly and are preferred over emulation.
var BashPassthrough = map[string]bool{
	"find": true, "awk": true, "sed": true, "grep": true, "diff": true,
	"tar": true, "sort": true, "uniq": true, "cut": true, "tr": true,
	"head": true, "tail": true, "wc": true, "xargs": true, "tee": true,
	"comm": true, "paste": true, "join": true,
}
