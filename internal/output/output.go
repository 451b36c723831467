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

// Package output multiplexes the stdout/stderr of every supervised child
// into a single labeled, colored, line-ordered stream.
package output

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// SystemName is the reserved process name used for supervisor-originated
// messages (spawn announcements, exits, signal notices). It is kept out of
// the per-process-type color rotation so it never collides with a real
// process type's color.
const SystemName = "system"

const ringSize = 4096

// palette is the rotation of colors assigned to process types by
// procIndex mod len(palette). System messages get their own color, not a
// slot in this rotation.
var palette = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgMagenta),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgRed),
}

var systemColor = color.New(color.FgWhite, color.Bold)

// Line is one emitted line, kept for subscribers of the status web feed.
// Text is the raw line, without the timestamp and name prefix.
type Line struct {
	Name string
	Text string
}

// Multiplexer serializes writes from many concurrent readers into one
// sink, line by line, with a stable column-aligned, colored prefix.
type Multiplexer struct {
	mu        sync.Mutex
	w         io.Writer
	padding   int
	timestamp bool

	ring     []Line
	ringNext int
	ringFull bool

	subsMu sync.Mutex
	subs   []chan Line
}

// New returns a Multiplexer writing to w. padding is the column width
// labels are right-padded to (see procfile.Padding). When timestamp is
// false, the "[HH:MM:SS] " prefix segment is omitted.
func New(w io.Writer, padding int, timestamp bool) *Multiplexer {
	return &Multiplexer{w: w, padding: padding, timestamp: timestamp}
}

func colorFor(name string, procIndex int) *color.Color {
	if name == SystemName {
		return systemColor
	}
	return palette[procIndex%len(palette)]
}

// Line writes one already-read line of output from the given process.
// Safe for concurrent use; writes from distinct callers never interleave
// within a single line.
func (m *Multiplexer) Line(name string, procIndex int, text string) {
	prefix := m.formatPrefix(name)
	c := colorFor(name, procIndex)

	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, "%s %s\n", c.Sprint(prefix), text)
	m.record(Line{Name: name, Text: text})
}

// System emits a supervisor-originated message under the reserved
// "system" name.
func (m *Multiplexer) System(text string) {
	m.Line(SystemName, -1, text)
}

func (m *Multiplexer) formatPrefix(name string) string {
	padded := fmt.Sprintf("%-*s", m.padding, name)
	if !m.timestamp {
		return padded + " |"
	}
	return fmt.Sprintf("[%s] %s |", time.Now().Format("15:04:05"), padded)
}

func (m *Multiplexer) record(l Line) {
	if m.ring == nil {
		m.ring = make([]Line, ringSize)
	}
	m.ring[m.ringNext] = l
	m.ringNext = (m.ringNext + 1) % ringSize
	if m.ringNext == 0 {
		m.ringFull = true
	}
	m.subsMu.Lock()
	for _, sub := range m.subs {
		select {
		case sub <- l:
		default:
		}
	}
	m.subsMu.Unlock()
}

// Recent returns up to ringSize of the most recently emitted lines, in
// chronological order.
func (m *Multiplexer) Recent() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ringFull {
		out := make([]Line, m.ringNext)
		copy(out, m.ring[:m.ringNext])
		return out
	}
	out := make([]Line, ringSize)
	copy(out, m.ring[m.ringNext:])
	copy(out[ringSize-m.ringNext:], m.ring[:m.ringNext])
	return out
}

// Subscribe registers a channel that receives every subsequently emitted
// Line. Callers must drain or Unsubscribe to avoid leaking the channel;
// sends are non-blocking, so a slow subscriber only misses lines, it
// never stalls the hot path.
func (m *Multiplexer) Subscribe() <-chan Line {
	ch := make(chan Line, 256)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe removes a channel previously returned by Subscribe.
func (m *Multiplexer) Unsubscribe(ch <-chan Line) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, sub := range m.subs {
		if sub == ch {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// Stream reads newline-delimited text from r until EOF or error, calling
// Line for each. It runs synchronously; callers run it in its own
// goroutine per pipe (stdout, stderr).
func (m *Multiplexer) Stream(name string, procIndex int, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 2*1024*1024)
	for scanner.Scan() {
		m.Line(name, procIndex, scanner.Text())
	}
}
