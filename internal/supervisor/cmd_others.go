// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !windows
// +build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// command builds the exec.Cmd for a process's shell invocation, placing it
// in its own process group so a single signal to -pid reaches every
// descendant it may have forked.
func command(shellPath, shellFlag, line string) *exec.Cmd {
	c := exec.Command(shellPath, shellFlag, line)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return c
}

// signalGroup delivers sig to every process in pid's process group. pid
// must be the group leader, which is guaranteed for every process started
// through command.
func signalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGQUIT:
		return "SIGQUIT"
	case syscall.SIGABRT:
		return "SIGABRT"
	default:
		return sig.String()
	}
}
