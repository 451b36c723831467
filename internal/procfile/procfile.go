// Copyright 2017 github.com/ucirello
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

// Package procfile parses a Procfile (https://devcenter.heroku.com/articles/procfile)
// and resolves the formation (per process type replica count) that a run
// should use.
//
// Example:
//
//	web: optional=true ./server serve
//	worker: ./worker -queue default
//
// Special tokens:
//
//   - optional=true (in a process type line): the process type is skipped
//     by default unless named explicitly via --optional.
package procfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Entry is one named process type declared in a Procfile.
type Entry struct {
	Name        string
	Command     string
	Concurrency int
	Optional    bool
}

// Procfile is the parsed, ordered process table. Order is preserved from the
// source file so that process indexes (and therefore port and color
// assignment) are stable within a run.
type Procfile struct {
	order   []string
	entries map[string]*Entry
}

// New returns an empty Procfile.
func New() *Procfile {
	return &Procfile{entries: make(map[string]*Entry)}
}

// Read parses the Procfile at path. A missing file is an error: unlike the
// env file, a process manager with no process table has nothing to run.
func Read(path string) (*Procfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open procfile: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an extended Procfile from r. Each non-blank, non-comment line
// of the form "name: command" produces one entry with default concurrency 1.
// Duplicate names overwrite the earlier entry's command and concurrency but
// keep its original position in iteration order.
func Parse(r io.Reader) (*Procfile, error) {
	pf := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		optional := false
		var commandParts []string
		for _, field := range strings.Split(strings.TrimSpace(rest), " ") {
			if field == "optional=true" {
				optional = true
				continue
			}
			commandParts = append(commandParts, field)
		}
		entry := &Entry{
			Name:        name,
			Command:     strings.TrimSpace(strings.Join(commandParts, " ")),
			Concurrency: 1,
			Optional:    optional,
		}
		if _, ok := pf.entries[name]; !ok {
			pf.order = append(pf.order, name)
		}
		pf.entries[name] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot parse procfile: %w", err)
	}
	return pf, nil
}

// Entries returns the process table in stable iteration order.
func (p *Procfile) Entries() []*Entry {
	out := make([]*Entry, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.entries[name])
	}
	return out
}

// Get returns the entry named name, if any.
func (p *Procfile) Get(name string) (*Entry, bool) {
	e, ok := p.entries[name]
	return e, ok
}

// Filter keeps only entries for which keep returns true, preserving order.
func (p *Procfile) Filter(keep func(*Entry) bool) {
	var order []string
	entries := make(map[string]*Entry)
	for _, name := range p.order {
		e := p.entries[name]
		if keep(e) {
			order = append(order, name)
			entries[name] = e
		}
	}
	p.order, p.entries = order, entries
}

// SetConcurrency applies a formation string of the form
// "name=N,name=N,...". The pseudo-name "all" sets every entry's
// concurrency and is processed first regardless of its position in the
// string; later items override per name. Unknown names are ignored.
// A malformed item is skipped, leaving the prior concurrency in place.
func (p *Procfile) SetConcurrency(formation string) {
	formation = strings.TrimSpace(formation)
	if formation == "" {
		return
	}
	items := strings.Split(formation, ",")
	var all *int
	type override struct {
		name  string
		count int
	}
	var overrides []override
	for _, item := range items {
		name, count, ok := parseFormationItem(item)
		if !ok {
			continue
		}
		if name == "all" {
			c := count
			all = &c
			continue
		}
		overrides = append(overrides, override{name, count})
	}
	if all != nil {
		for _, e := range p.entries {
			e.Concurrency = *all
		}
	}
	for _, o := range overrides {
		if e, ok := p.entries[o.name]; ok {
			e.Concurrency = o.count
		}
	}
}

func parseFormationItem(item string) (name string, count int, ok bool) {
	name, countStr, found := strings.Cut(strings.TrimSpace(item), "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return "", 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || n < 0 {
		return "", 0, false
	}
	return name, n, true
}

// ProcessLen returns the sum of concurrency across every entry, used to
// size the spawn start barrier.
func (p *Procfile) ProcessLen() int {
	total := 0
	for _, e := range p.entries {
		total += e.Concurrency
	}
	return total
}

// Padding returns the maximum display-name width across every replica of
// every entry, counted in runes rather than bytes so multi-byte process
// type names still align. Used to right-pad multiplexed output labels.
func (p *Procfile) Padding() int {
	widest := 0
	for _, name := range p.order {
		e := p.entries[name]
		for replica := 1; replica <= e.Concurrency; replica++ {
			w := utf8.RuneCountInString(DisplayName(name, replica))
			if w > widest {
				widest = w
			}
		}
	}
	return widest
}

// DisplayName formats the "<proctype>.<replica>" name used in output and
// in the PS environment variable. replica is 1-based.
func DisplayName(name string, replica int) string {
	return fmt.Sprintf("%s.%d", name, replica)
}
