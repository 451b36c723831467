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

package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestLineFormatWithoutTimestamp(t *testing.T) {
	var buf bytes.Buffer
	mux := New(&buf, len("worker.1"), false)
	mux.Line("web.1", 0, "booted")

	want := "web.1    | booted\n"
	if got := buf.String(); got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}

func TestLineFormatWithTimestamp(t *testing.T) {
	var buf bytes.Buffer
	mux := New(&buf, len("web.1"), true)
	mux.Line("web.1", 0, "booted")

	got := buf.String()
	if !strings.HasPrefix(got, "[") {
		t.Errorf("expected timestamp prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "web.1 | booted\n") {
		t.Errorf("expected padded name and line, got %q", got)
	}
}

func TestSystemMessageUsesReservedName(t *testing.T) {
	var buf bytes.Buffer
	mux := New(&buf, len(SystemName), false)
	mux.System("shutting down")

	if got := buf.String(); got != "system | shutting down\n" {
		t.Errorf("System() = %q", got)
	}
}

func TestConcurrentLinesNeverInterleave(t *testing.T) {
	var buf bytes.Buffer
	mux := New(&buf, 8, false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mux.Line("worker.1", 0, strings.Repeat("x", 100))
		}(i)
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.Contains(line, strings.Repeat("x", 100)) {
			t.Fatalf("line interleaved: %q", line)
		}
	}
}

func TestSubscribeReceivesLines(t *testing.T) {
	var buf bytes.Buffer
	mux := New(&buf, 8, false)
	ch := mux.Subscribe()
	defer mux.Unsubscribe(ch)

	mux.Line("web.1", 0, "hello")
	select {
	case l := <-ch:
		if l.Text != "hello" || l.Name != "web.1" {
			t.Errorf("got %+v", l)
		}
	default:
		t.Fatal("expected a buffered line on the subscriber channel")
	}
}

func TestRecentWrapsRingBuffer(t *testing.T) {
	var buf bytes.Buffer
	mux := New(&buf, 8, false)
	for i := 0; i < ringSize+10; i++ {
		mux.Line("web.1", 0, strings.Repeat("a", 1))
	}
	recent := mux.Recent()
	if len(recent) != ringSize {
		t.Errorf("Recent() len = %d, want %d", len(recent), ringSize)
	}
}

func TestStreamEmitsEachLine(t *testing.T) {
	var buf bytes.Buffer
	mux := New(&buf, 8, false)
	mux.Stream("web.1", 0, strings.NewReader("one\ntwo\nthree"))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %v", len(lines), lines)
	}
}
