/** Copyright 2025-2026 The devmem Authors.

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

package session

import (
	"sync"

	"github.com/devmem-io/devmem/pkg/common"
)

// Registry is the index-keyed table a role keeps of its live session
// objects: the producer registers every published allocation, the
// consumer every resolved view.  Entries stay registered until the
// protocol licenses their release.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[int32]T
	order   []int32
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[int32]T)}
}

// Register records the session object for a record index.  Indexes are
// registered at most once.
func (r *Registry[T]) Register(index int32, item T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[index]; ok {
		return common.Errorf(common.KInvalid,
			"Invalid internal state: record %d has already been registered", index)
	}
	r.entries[index] = item
	r.order = append(r.order, index)
	return nil
}

// Get returns the session object registered for a record index.
func (r *Registry[T]) Get(index int32) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.entries[index]
	return item, ok
}

// Live returns the number of registered entries.
func (r *Registry[T]) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Indexes returns the registered record indexes in registration order.
func (r *Registry[T]) Indexes() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int32(nil), r.order...)
}

// Items returns the registered objects in registration order.
func (r *Registry[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]T, 0, len(r.order))
	for _, index := range r.order {
		items = append(items, r.entries[index])
	}
	return items
}

// Drain removes and returns every registered object in registration
// order.  The caller owns their release.
func (r *Registry[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]T, 0, len(r.order))
	for _, index := range r.order {
		items = append(items, r.entries[index])
	}
	r.entries = make(map[int32]T)
	r.order = nil
	return items
}
