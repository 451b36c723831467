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
	"testing"
	"time"

	"cirello.io/foreshell/internal/output"
	"cirello.io/foreshell/internal/procfile"
)

func testFormation(buf *bytes.Buffer) Formation {
	return Formation{
		Shell:    "/bin/sh",
		ShellArg: "-c",
		BaseEnv:  []string{"PATH=/usr/bin:/bin"},
		BasePort: 5000,
		Timeout:  200 * time.Millisecond,
		Mux:      output.New(buf, 8, false),
	}
}

func TestRunEmptyProcfileReturnsImmediately(t *testing.T) {
	var buf bytes.Buffer
	pf := procfile.New()
	code, err := Run(pf, testFormation(&buf))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
}

func TestRunAllProcessesExitCleanly(t *testing.T) {
	var buf bytes.Buffer
	pf, err := procfile.Parse(strings.NewReader("web: echo hello; exit 0\n"))
	if err != nil {
		t.Fatal(err)
	}

	code, err := Run(pf, testFormation(&buf))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected child output to be captured, got %q", buf.String())
	}
}

func TestRunCascadesOnNonZeroExit(t *testing.T) {
	var buf bytes.Buffer
	pf, err := procfile.Parse(strings.NewReader("web: exit 3\nworker: sleep 5\n"))
	if err != nil {
		t.Fatal(err)
	}

	code, err := Run(pf, testFormation(&buf))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 3 {
		t.Errorf("code = %d, want 3", code)
	}
	out := buf.String()
	if !strings.Contains(out, "web.1 exited with code 3") {
		t.Errorf("expected exit announcement, got %q", out)
	}
}

func TestRunFormationConcurrency(t *testing.T) {
	var buf bytes.Buffer
	pf, err := procfile.Parse(strings.NewReader("web: echo $PS-$PORT; exit 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	pf.SetConcurrency("web=2")

	code, err := Run(pf, testFormation(&buf))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
	out := buf.String()
	if !strings.Contains(out, "web.1-5000") {
		t.Errorf("expected web.1 on port 5000, got %q", out)
	}
	if !strings.Contains(out, "web.2-5001") {
		t.Errorf("expected web.2 on port 5001, got %q", out)
	}
}

func TestRunSpawnFailureIsFatal(t *testing.T) {
	var buf bytes.Buffer
	pf, err := procfile.Parse(strings.NewReader("web: sleep 5\n"))
	if err != nil {
		t.Fatal(err)
	}

	f := testFormation(&buf)
	f.Shell = "/nonexistent-shell-binary"
	code, err := Run(pf, f)
	if err == nil {
		t.Fatal("expected an error for an unstartable shell")
	}
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
}
