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
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"cirello.io/foreshell/internal/output"
)

// Shutdown runs the signal cascade exactly once: send sig to every
// registered process group, then escalate to SIGKILL for any survivor
// still around after timeout. The exit code passed to the first Cascade
// call wins and becomes the program's final exit status once the Reaper
// observes the formation has fully drained.
type Shutdown struct {
	registry *Registry
	mux      *output.Multiplexer
	timeout  time.Duration

	once     sync.Once
	exitCode atomic.Int32
}

// NewShutdown returns a Shutdown bound to registry, reporting through mux,
// escalating to SIGKILL after timeout.
func NewShutdown(registry *Registry, mux *output.Multiplexer, timeout time.Duration) *Shutdown {
	return &Shutdown{registry: registry, mux: mux, timeout: timeout}
}

// Cascade signals every currently registered process with sig. Only the
// first call has any effect; later calls are no-ops, matching the
// invariant that a shutdown, once started, cannot be restarted or
// redirected to a different signal.
func (s *Shutdown) Cascade(sig syscall.Signal, code int) {
	s.once.Do(func() {
		s.exitCode.Store(int32(code))
		for _, pid := range s.registry.PIDs() {
			if err := signalGroup(pid, sig); err != nil {
				s.mux.System(fmt.Sprintf("signal %s to pid %d: %v", signalName(sig), pid, err))
			}
		}
		time.AfterFunc(s.timeout, func() {
			survivors := s.registry.PIDs()
			if len(survivors) == 0 {
				return
			}
			s.mux.System(fmt.Sprintf("%d process(es) still alive after %s, sending SIGKILL", len(survivors), s.timeout))
			for _, pid := range survivors {
				_ = signalGroup(pid, syscall.SIGKILL)
			}
		})
	})
}

// ExitCode returns the exit code recorded by the first Cascade call, or 0
// if Cascade was never called (a clean run with no signaled shutdown).
func (s *Shutdown) ExitCode() int {
	return int(s.exitCode.Load())
}

// WatchSignals blocks until SIGINT, SIGTERM, or SIGHUP arrives, or done is
// closed, whichever happens first. On a signal it logs the notice and
// triggers a graceful cascade with exit code 0.
func WatchSignals(mux *output.Multiplexer, shutdown *Shutdown, done <-chan struct{}) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)
	select {
	case sig := <-sigs:
		name := "signal"
		if s, ok := sig.(syscall.Signal); ok {
			name = signalName(s)
		}
		mux.System(fmt.Sprintf("%s received, shutting down", name))
		shutdown.Cascade(syscall.SIGTERM, 0)
	case <-done:
	}
}
