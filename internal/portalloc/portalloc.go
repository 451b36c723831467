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

// Package portalloc resolves the TCP port assigned to each process
// replica, deriving it from a base port plus the replica's position in
// the formation.
package portalloc

import (
	"os"
	"strconv"

	"cirello.io/foreshell/internal/envfile"
)

const defaultBasePort = 5000

// Base resolves the base port for a run. The first of these that is set
// wins: an explicit flag value, the PORT key in the env file, the
// ambient PORT environment variable, or the literal default 5000.
func Base(env envfile.Env, explicit string) (int, error) {
	if explicit != "" {
		return strconv.Atoi(explicit)
	}
	if v, ok := env.Lookup("PORT"); ok && v != "" {
		return strconv.Atoi(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		return strconv.Atoi(v)
	}
	return defaultBasePort, nil
}

// For computes the port for the replica1Based-th replica (1-based) of the
// procIndex-th process type (0-based, advancing once per process type,
// not per replica). Replicas of distinct types never collide so long as
// no type has 100 or more replicas.
func For(base, procIndex, replica1Based int) int {
	return base + procIndex*100 + (replica1Based - 1)
}
