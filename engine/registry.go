/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/iec61850/goose"
	"github.com/facebookincubator/iec61850/value"
)

// Snapshot is a consistent, point-in-time read of one control block's
// runtime state, safe for a caller outside the owning task to inspect.
type Snapshot struct {
	StNum           uint64
	SqNum           uint64
	CurrentInterval time.Duration
}

// entry is everything the registry and the owning worker task share about
// one active control block. Only the command ingester mutates the
// registry's map; only the owning worker goroutine mutates cfg/rt, and it
// publishes a Snapshot after every change.
type entry struct {
	updateCh chan []value.Value
	stopCh   chan struct{}
	snapshot atomic.Pointer[Snapshot]
}

func (e *entry) publish(rt goose.Runtime) {
	e.snapshot.Store(&Snapshot{
		StNum:           rt.StNum,
		SqNum:           rt.SqNum,
		CurrentInterval: rt.CurrentInterval,
	})
}

// Registry maps goCbRef to its active control block. It is the only
// process-wide mutable state the engine owns.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry constructs an empty control-block registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// register inserts a new entry for goCbRef, replacing any existing one: an
// init on a live goCbRef resets it. It returns the previous entry and
// whether one existed, so the caller can cancel the superseded task.
func (r *Registry) register(goCbRef string, e *entry) (previous *entry, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, existed = r.entries[goCbRef]
	r.entries[goCbRef] = e
	return previous, existed
}

// lookup returns the entry for goCbRef, if any.
func (r *Registry) lookup(goCbRef string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[goCbRef]
	return e, ok
}

// remove deletes goCbRef's entry, if present.
func (r *Registry) remove(goCbRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, goCbRef)
}

// Snapshot returns a consistent snapshot of goCbRef's runtime state.
func (r *Registry) Snapshot(goCbRef string) (Snapshot, bool) {
	e, ok := r.lookup(goCbRef)
	if !ok {
		return Snapshot{}, false
	}
	s := e.snapshot.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// ActiveGoCbRefs returns the currently registered control-block keys.
func (r *Registry) ActiveGoCbRefs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	return out
}
