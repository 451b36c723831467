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

// Package envfile parses ".env"-style KEY=VALUE files into an ordered
// mapping, with no quoting or shell interpolation.
package envfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Pair is one KEY=VALUE entry, in the order it appeared in the file.
type Pair struct {
	Key   string
	Value string
}

// Env is an ordered KEY=VALUE mapping. Order of first appearance is
// preserved so that re-serializing it is deterministic.
type Env []Pair

// String renders the environment back as newline separated KEY=VALUE
// pairs, used for round-trip tests and debugging.
func (e Env) String() string {
	var b strings.Builder
	for i, p := range e {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s=%s", p.Key, p.Value)
	}
	return b.String()
}

// Lookup returns the value for key and whether it was present.
func (e Env) Lookup(key string) (string, bool) {
	for _, p := range e {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Set overwrites the value for key, or appends it if not already present.
func (e *Env) Set(key, value string) {
	for i, p := range *e {
		if p.Key == key {
			(*e)[i].Value = value
			return
		}
	}
	*e = append(*e, Pair{Key: key, Value: value})
}

// Merge layers e over base, an os.Environ()-shaped slice of "KEY=VALUE"
// strings. Keys from e win over base; base keys absent from e are kept
// as-is. The relative order of base is preserved, with e's keys appended
// after any base keys they don't already overwrite.
func (e Env) Merge(base []string) []string {
	result := make([]string, len(base))
	copy(result, base)
	index := make(map[string]int, len(result))
	for i, kv := range result {
		if key, _, ok := strings.Cut(kv, "="); ok {
			index[key] = i
		}
	}
	for _, p := range e {
		line := p.Key + "=" + p.Value
		if i, ok := index[p.Key]; ok {
			result[i] = line
		} else {
			index[p.Key] = len(result)
			result = append(result, line)
		}
	}
	return result
}

// Read loads the env file at path. A missing file is not an error: it
// yields an empty Env, matching the teacher's treatment of an absent
// ".env" as "nothing to load" rather than a configuration error.
func Read(path string) (Env, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads KEY=VALUE lines from r. Blank lines and lines starting with
// "#" are ignored. The first "=" on a line separates key from value;
// values are taken literally, with no quoting or expansion.
func Parse(r io.Reader) (Env, error) {
	var env Env
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		env.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot parse env file: %w", err)
	}
	return env, nil
}
