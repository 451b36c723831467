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

// Package supervisor spawns and supervises a formation of Procfile
// processes: it assigns ports and env, barrier-synchronizes startup,
// reaps children without blocking, and cascades a shutdown signal to every
// surviving process the moment any one of them dies or the supervisor
// itself is asked to stop.
package supervisor

import (
	"os/exec"
	"sync"
)

// Process is one running child: a single replica of a single process
// type from the Procfile.
type Process struct {
	Name      string // display name, e.g. "web.1"
	ProcIndex int    // 0-based position of the process type in the Procfile
	PID       int
	cmd       *exec.Cmd
}

// Registry tracks every process currently alive. It is safe for
// concurrent use by the spawner, the reaper, and the shutdown cascade.
type Registry struct {
	mu    sync.Mutex
	byPID map[int]*Process
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byPID: make(map[int]*Process)}
}

// Add registers a newly started process.
func (r *Registry) Add(p *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPID[p.PID] = p
}

// Remove drops pid from the registry and returns the Process that was
// removed, or nil if pid was not registered (e.g. a child of this process
// that was not started through Spawn but was reaped by the same wait4(-1)
// call).
func (r *Registry) Remove(pid int) *Process {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.byPID[pid]
	delete(r.byPID, pid)
	return p
}

// Len reports how many processes are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPID)
}

// PIDs returns a snapshot of every currently registered pid.
func (r *Registry) PIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	pids := make([]int, 0, len(r.byPID))
	for pid := range r.byPID {
		pids = append(pids, pid)
	}
	return pids
}

// Info is the externally visible shape of a Process, used by status
// reporting that has no business touching the underlying *exec.Cmd.
type Info struct {
	Name string `json:"name"`
	PID  int    `json:"pid"`
}

// Snapshot returns the name and pid of every currently registered
// process.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Info, 0, len(r.byPID))
	for _, p := range r.byPID {
		out = append(out, Info{Name: p.Name, PID: p.PID})
	}
	return out
}
