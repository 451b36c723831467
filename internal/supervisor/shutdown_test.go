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
	"bytes"
	"strings"
	"syscall"
	"testing"
	"time"

	"cirello.io/foreshell/internal/output"
)

func TestCascadeOnlyRunsOnce(t *testing.T) {
	var buf bytes.Buffer
	mux := output.New(&buf, 8, false)
	registry := NewRegistry()
	s := NewShutdown(registry, mux, time.Second)

	s.Cascade(syscall.SIGTERM, 3)
	s.Cascade(syscall.SIGTERM, 7)

	if got := s.ExitCode(); got != 3 {
		t.Errorf("ExitCode() = %d, want 3 (first call wins)", got)
	}
}

func TestCascadeDefaultExitCodeIsZero(t *testing.T) {
	var buf bytes.Buffer
	mux := output.New(&buf, 8, false)
	s := NewShutdown(NewRegistry(), mux, time.Second)

	if got := s.ExitCode(); got != 0 {
		t.Errorf("ExitCode() before any Cascade = %d, want 0", got)
	}
}

// TestCascadeEscalatesToSIGKILLForSurvivor starts a real child that ignores
// SIGTERM and asserts Cascade's escalation timer sends it SIGKILL once
// timeout has passed, per the invariant that SIGKILL is sent if and only if
// a child is still alive at timeout seconds after the initial signal.
func TestCascadeEscalatesToSIGKILLForSurvivor(t *testing.T) {
	var buf bytes.Buffer
	mux := output.New(&buf, 8, false)
	registry := NewRegistry()

	cmd := command("/bin/sh", "-c", "trap '' TERM; sleep 5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cmd.Process.Kill()
	registry.Add(&Process{Name: "web.1", PID: cmd.Process.Pid, cmd: cmd})

	s := NewShutdown(registry, mux, 150*time.Millisecond)
	s.Cascade(syscall.SIGTERM, 0)

	stateCh := make(chan error, 1)
	go func() {
		_, err := cmd.Process.Wait()
		stateCh <- err
	}()

	select {
	case err := <-stateCh:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("child was not reaped after SIGKILL escalation")
	}

	out := buf.String()
	if !strings.Contains(out, "still alive") || !strings.Contains(out, "SIGKILL") {
		t.Errorf("expected SIGKILL escalation to be logged, got %q", out)
	}
}

// TestWatchSignalsCascadesOnSIGINT sends a real SIGINT to the test process
// and asserts WatchSignals catches it, logs the notice, triggers a graceful
// cascade (exit code 0), and signals the real child registered alongside it.
func TestWatchSignalsCascadesOnSIGINT(t *testing.T) {
	var buf bytes.Buffer
	mux := output.New(&buf, 8, false)
	registry := NewRegistry()

	cmd := command("/bin/sh", "-c", "sleep 5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cmd.Process.Kill()
	registry.Add(&Process{Name: "web.1", PID: cmd.Process.Pid, cmd: cmd})

	s := NewShutdown(registry, mux, time.Second)
	done := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		WatchSignals(mux, s, done)
		close(watchDone)
	}()

	// Give WatchSignals' signal.Notify a moment to register before the
	// self-signal is raised, otherwise it could be missed.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("self-signal: %v", err)
	}

	select {
	case <-watchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchSignals did not return after SIGINT")
	}

	if got := s.ExitCode(); got != 0 {
		t.Errorf("ExitCode() = %d, want 0 (graceful signal shutdown)", got)
	}
	if !strings.Contains(buf.String(), "SIGINT received") {
		t.Errorf("expected a SIGINT notice to be logged, got %q", buf.String())
	}

	state, err := cmd.Process.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if state.Exited() {
		t.Errorf("expected the child to be killed by the cascade's SIGTERM, got a clean exit")
	}
}
