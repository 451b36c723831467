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

	"golang.org/x/sync/errgroup"

	"cirello.io/foreshell/internal/envfile"
	"cirello.io/foreshell/internal/output"
	"cirello.io/foreshell/internal/procfile"
	"cirello.io/foreshell/internal/portalloc"
)

// Formation bundles everything the orchestrator needs beyond the parsed
// Procfile itself.
type Formation struct {
	Shell    string
	ShellArg string
	BaseEnv  []string
	EnvFile  envfile.Env
	BasePort int
	Timeout  time.Duration
	Mux      *output.Multiplexer
}

// Run starts every replica of every process type in pf, waits for them
// all to reach the startup barrier together, then supervises them until
// the entire formation has exited, cascading a shutdown the moment any
// one of them exits normally or the process receives SIGINT, SIGTERM, or
// SIGHUP. A child killed by a signal is reported but does not start a
// cascade.
//
// It returns the exit code the whole run should end with: the code of
// whichever event first started the cascade (the exited child's code, or
// 0 for a received signal), or 0 if no cascade was ever started.
func Run(pf *procfile.Procfile, f Formation) (int, error) {
	return RunWithRegistry(NewRegistry(), pf, f)
}

// RunWithRegistry is Run but against a caller-supplied Registry, so a
// caller (e.g. the status web) can observe the formation as it starts
// rather than only after Run has already built its own.
func RunWithRegistry(registry *Registry, pf *procfile.Procfile, f Formation) (int, error) {
	entries := pf.Entries()
	processLen := pf.ProcessLen()
	if processLen == 0 {
		return 0, nil
	}

	barrier := NewBarrier(processLen + 1)
	shutdown := NewShutdown(registry, f.Mux, f.Timeout)

	ctx := Context{
		Registry: registry,
		Mux:      f.Mux,
		Barrier:  barrier,
		Shell:    f.Shell,
		ShellArg: f.ShellArg,
		BaseEnv:  f.BaseEnv,
		EnvFile:  f.EnvFile,
	}

	var group errgroup.Group
	for procIndex, e := range entries {
		e := e
		procIndex := procIndex
		for replica := 1; replica <= e.Concurrency; replica++ {
			replica := replica
			port := portalloc.For(f.BasePort, procIndex, replica)
			req := SpawnRequest{
				Name:        e.Name,
				DisplayName: procfile.DisplayName(e.Name, replica),
				ProcIndex:   procIndex,
				Replica:     replica,
				Command:     e.Command,
				Port:        port,
			}
			group.Go(func() error { return Spawn(ctx, req) })
		}
	}

	barrier.Arrive()
	if err := barrier.Wait(); err != nil {
		for _, pid := range registry.PIDs() {
			_ = signalGroup(pid, syscall.SIGKILL)
		}
		_ = group.Wait()
		return 1, fmt.Errorf("formation failed to start: %w", err)
	}

	f.Mux.System(fmt.Sprintf("%d process(es) started", processLen))

	done := make(chan struct{})
	go Reap(registry, f.Mux, shutdown, done)
	go WatchSignals(f.Mux, shutdown, done)

	spawnErr := make(chan error, 1)
	go func() { spawnErr <- group.Wait() }()

	<-done
	err := <-spawnErr
	return shutdown.ExitCode(), err
}
