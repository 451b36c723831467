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

package portalloc

import (
	"testing"

	"cirello.io/foreshell/internal/envfile"
)

func TestBaseResolutionOrder(t *testing.T) {
	tests := []struct {
		name     string
		env      envfile.Env
		explicit string
		ambient  string
		want     int
	}{
		{name: "explicit wins", env: envfile.Env{{Key: "PORT", Value: "7000"}}, explicit: "6000", ambient: "8000", want: 6000},
		{name: "env file wins over ambient", env: envfile.Env{{Key: "PORT", Value: "7000"}}, ambient: "8000", want: 7000},
		{name: "ambient wins over default", ambient: "8000", want: 8000},
		{name: "default", want: defaultBasePort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", tt.ambient)
			got, err := Base(tt.env, tt.explicit)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Base() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFor(t *testing.T) {
	tests := []struct {
		name               string
		base, proc, replica int
		want               int
	}{
		{"first proc first replica", 5000, 0, 1, 5000},
		{"first proc second replica", 5000, 0, 2, 5001},
		{"second proc first replica", 5000, 1, 1, 5100},
		{"explicit base", 6000, 1, 2, 6101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := For(tt.base, tt.proc, tt.replica); got != tt.want {
				t.Errorf("For(%d,%d,%d) = %d, want %d", tt.base, tt.proc, tt.replica, got, tt.want)
			}
		})
	}
}

func TestEndToEndPortAssignment(t *testing.T) {
	// Procfile: web=2, worker=1, no port flag, no env file, no ambient PORT.
	t.Setenv("PORT", "")
	base, err := Base(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if base != 5000 {
		t.Fatalf("base = %d, want 5000", base)
	}
	if got := For(base, 0, 1); got != 5000 {
		t.Errorf("web.1 = %d, want 5000", got)
	}
	if got := For(base, 0, 2); got != 5001 {
		t.Errorf("web.2 = %d, want 5001", got)
	}
	if got := For(base, 1, 1); got != 5100 {
		t.Errorf("worker.1 = %d, want 5100", got)
	}
}
