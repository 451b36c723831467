// Copyright 2024 github.com/ucirello, cirello.io, U. Cirello
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

package supervisor

import (
	"fmt"
	"syscall"
	"time"

	"cirello.io/foreshell/internal/output"
)

const reapPollInterval = 100 * time.Millisecond

// Reap polls for dead children with a non-blocking wait4(-1, WNOHANG)
// until no children remain (ECHILD), at which point it closes done. Every
// exit is reported on mux. Only a normal exit triggers the shutdown
// cascade; a signaled death is not cascaded here, since the signal either
// came from a cascade already in progress or was delivered directly to
// that one process and carries no verdict on the rest of the formation.
func Reap(registry *Registry, mux *output.Multiplexer, shutdown *Shutdown, done chan<- struct{}) {
	defer close(done)
	for {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, syscall.WNOHANG, nil)
		if err == syscall.ECHILD {
			return
		}
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			time.Sleep(reapPollInterval)
			continue
		}
		if pid == 0 {
			time.Sleep(reapPollInterval)
			continue
		}

		proc := registry.Remove(pid)
		name := fmt.Sprintf("pid %d", pid)
		if proc != nil {
			name = proc.Name
		}

		switch {
		case status.Exited():
			code := status.ExitStatus()
			mux.System(fmt.Sprintf("%s exited with code %d", name, code))
			shutdown.Cascade(syscall.SIGTERM, code)
		case status.Signaled():
			mux.System(fmt.Sprintf("%s terminated by %s", name, signalName(status.Signal())))
		}
	}
}
