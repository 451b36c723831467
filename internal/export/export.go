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

// Package export renders a resolved formation into on-disk service
// definitions for a process supervisor other than this one. Options is
// the whole of the contract: everything an Exporter needs to know about
// the run it is being asked to describe.
package export

import (
	"fmt"
	"strconv"

	"cirello.io/foreshell/internal/envfile"
	"cirello.io/foreshell/internal/portalloc"
	"cirello.io/foreshell/internal/procfile"
)

// Options is the resolved, exporter-agnostic description of one run.
type Options struct {
	Procfile *procfile.Procfile
	Env      envfile.Env

	App      string // service name prefix; defaults to "app" if empty
	Location string // directory services are written under
	RunPath  string // directory runit watches (sv-style); defaults to Location
	LogPath  string // directory log output is written under
	User     string // user services run as; defaults to "root"

	BasePort       int
	TimeoutSeconds int
}

func (o Options) appName() string {
	if o.App == "" {
		return "app"
	}
	return o.App
}

func (o Options) userName() string {
	if o.User == "" {
		return "root"
	}
	return o.User
}

func (o Options) runPath() string {
	if o.RunPath == "" {
		return o.Location
	}
	return o.RunPath
}

// Exporter renders Options into whatever on-disk or in-cluster form a
// target process supervisor expects.
type Exporter interface {
	Export(opts Options) error
}

// replica is one resolved (name, instance) pair an Exporter renders a
// service definition for.
type replica struct {
	ServiceName string
	ProcessName string
	Command     string
	Port        int
}

func replicasOf(opts Options) []replica {
	var out []replica
	for procIndex, e := range opts.Procfile.Entries() {
		for n := 1; n <= e.Concurrency; n++ {
			out = append(out, replica{
				ServiceName: fmt.Sprintf("%s-%s-%d", opts.appName(), e.Name, n),
				ProcessName: procfile.DisplayName(e.Name, n),
				Command:     e.Command,
				Port:        portalloc.For(opts.BasePort, procIndex, n),
			})
		}
	}
	return out
}

func (r replica) envWithPort(base envfile.Env) envfile.Env {
	env := make(envfile.Env, len(base))
	copy(env, base)
	env.Set("PORT", strconv.Itoa(r.Port))
	env.Set("PS", r.ProcessName)
	return env
}
