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

import "sync"

// Barrier releases every waiter once all parties have arrived, or as soon
// as one party aborts it. It is one-shot: create a new Barrier per run.
type Barrier struct {
	mu        sync.Mutex
	remaining int
	err       error
	release   sync.Once
	released  chan struct{}
}

// NewBarrier returns a Barrier that releases once parties Arrive calls
// have happened (or one Abort call arrives first).
func NewBarrier(parties int) *Barrier {
	return &Barrier{remaining: parties, released: make(chan struct{})}
}

// Arrive counts one party in. The barrier releases when the last party
// arrives.
func (b *Barrier) Arrive() {
	b.mu.Lock()
	b.remaining--
	done := b.remaining <= 0
	b.mu.Unlock()
	if done {
		b.release.Do(func() { close(b.released) })
	}
}

// Abort releases the barrier immediately, regardless of how many parties
// have arrived, and makes every Wait call return err.
func (b *Barrier) Abort(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
	b.release.Do(func() { close(b.released) })
}

// Wait blocks until the barrier releases, returning the error passed to
// Abort, if any.
func (b *Barrier) Wait() error {
	<-b.released
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
