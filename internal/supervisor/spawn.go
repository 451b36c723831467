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
	"io"
	"strconv"
	"sync"

	"cirello.io/foreshell/internal/envfile"
	"cirello.io/foreshell/internal/output"
)

// SpawnRequest describes a single replica to start.
type SpawnRequest struct {
	Name        string // process type name, e.g. "web"
	DisplayName string // "web.1"
	ProcIndex   int    // 0-based position of the type in the Procfile
	Replica     int    // 1-based replica number
	Command     string
	Port        int
}

// Context bundles everything a spawned process needs to register itself,
// announce its output, and synchronize with its siblings before doing any
// work.
type Context struct {
	Registry *Registry
	Mux      *output.Multiplexer
	Barrier  *Barrier
	Shell    string // e.g. "/bin/sh"
	ShellArg string // e.g. "-c"
	BaseEnv  []string
	EnvFile  envfile.Env
}

// Spawn starts one replica, registers it, waits for every sibling to
// reach the same point, then streams its combined stdout/stderr into the
// multiplexer until it closes its pipes. It returns once both pipes have
// reached EOF; it does not wait for the process itself, since the wait4
// reaping is done by the Reaper, not here.
func Spawn(ctx Context, req SpawnRequest) error {
	cmd := command(ctx.Shell, ctx.ShellArg, req.Command)

	env := make(envfile.Env, len(ctx.EnvFile))
	copy(env, ctx.EnvFile)
	env.Set("PORT", strconv.Itoa(req.Port))
	env.Set("PS", req.DisplayName)
	cmd.Env = env.Merge(ctx.BaseEnv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		ctx.Barrier.Abort(fmt.Errorf("%s: stdout pipe: %w", req.DisplayName, err))
		return fmt.Errorf("%s: stdout pipe: %w", req.DisplayName, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		ctx.Barrier.Abort(fmt.Errorf("%s: stderr pipe: %w", req.DisplayName, err))
		return fmt.Errorf("%s: stderr pipe: %w", req.DisplayName, err)
	}

	if err := cmd.Start(); err != nil {
		ctx.Barrier.Abort(fmt.Errorf("%s: start: %w", req.DisplayName, err))
		return fmt.Errorf("%s: start: %w", req.DisplayName, err)
	}

	proc := &Process{Name: req.DisplayName, ProcIndex: req.ProcIndex, PID: cmd.Process.Pid, cmd: cmd}
	ctx.Registry.Add(proc)
	ctx.Barrier.Arrive()

	if err := ctx.Barrier.Wait(); err != nil {
		return err
	}

	ctx.Mux.System(fmt.Sprintf("%s start at pid: %d", req.DisplayName, proc.PID))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); streamPipe(ctx.Mux, req.DisplayName, req.ProcIndex, stdout) }()
	go func() { defer wg.Done(); streamPipe(ctx.Mux, req.DisplayName, req.ProcIndex, stderr) }()
	wg.Wait()

	return nil
}

func streamPipe(mux *output.Multiplexer, name string, procIndex int, r io.Reader) {
	mux.Stream(name, procIndex, r)
}
