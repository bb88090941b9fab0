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

// Package device implements the shared-segment arena that backs device
// allocations.  A producer process allocates segments, populates them and
// exports portable handles; a consumer process resolves those handles into
// read-only views of the same physical pages.  Handles are plain bytes, so
// they can travel over any transport without descriptor passing.
package device

import (
	"sync"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/memory"
	"github.com/devmem-io/devmem/pkg/common/types"
)

// Options configures an arena attachment.
type Options struct {
	// Ordinal selects the device the context attaches to.  Handles minted
	// on one ordinal do not resolve on another.
	Ordinal uint16
	// ArenaDir overrides the directory backing arena segments.  Empty
	// selects DefaultArenaDir().
	ArenaDir string
}

type segmentKey struct {
	token   types.ArenaToken
	segment types.SegmentID
}

// Context is a process-local attachment to a device arena.  Producers
// allocate, populate and export segments through it; consumers resolve
// handles received from a peer into views.
type Context struct {
	ordinal  uint16
	arenaDir string
	token    types.ArenaToken

	mu          sync.Mutex
	nextSegment types.SegmentID
	allocations map[types.SegmentID]*Allocation
	resolved    map[segmentKey]*ResolvedBuffer
	footprint   uint64
	closed      bool
}

// Open attaches to the arena of the given device ordinal.  The returned
// context carries a fresh arena token; segments it allocates are named
// under that token.
func Open(opts Options) (*Context, error) {
	dir := opts.ArenaDir
	if dir == "" {
		dir = DefaultArenaDir()
	}
	c := &Context{
		ordinal:     opts.Ordinal,
		arenaDir:    dir,
		token:       types.GenerateArenaToken(),
		allocations: make(map[types.SegmentID]*Allocation),
		resolved:    make(map[segmentKey]*ResolvedBuffer),
	}
	if err := c.warmup(); err != nil {
		return nil, err
	}
	return c, nil
}

// warmup probes the arena directory with a throwaway segment; an unusable
// directory fails Open instead of the first allocation.
func (c *Context) warmup() error {
	f, err := createSegment(c.arenaDir, c.token, c.nextSegment, 8)
	if err != nil {
		return err
	}
	_ = f.Close()
	return removeSegment(c.arenaDir, c.token, c.nextSegment)
}

// Ordinal returns the device ordinal this context is attached to.
func (c *Context) Ordinal() uint16 {
	return c.ordinal
}

// Token returns the arena token segments of this context are named under.
func (c *Context) Token() types.ArenaToken {
	return c.token
}

// Allocate creates a zero-filled segment of size bytes and maps it
// writable into this process.
func (c *Context) Allocate(size uint64) (*Allocation, error) {
	if size == 0 {
		return nil, common.Error(common.KInvalid, "cannot allocate an empty segment")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, common.Error(common.KInvalid, "the arena context has been closed")
	}
	c.nextSegment++
	segment := c.nextSegment
	f, err := createSegment(c.arenaDir, c.token, segment, size)
	if err != nil {
		return nil, err
	}
	data, err := memory.Map(int(f.Fd()), size, true)
	_ = f.Close()
	if err != nil {
		_ = removeSegment(c.arenaDir, c.token, segment)
		return nil, common.Errorf(common.KAllocationFailed,
			"failed to map segment %d: %v", segment, err)
	}
	alloc := &Allocation{segment: segment, size: size, data: data}
	c.allocations[segment] = alloc
	c.footprint += size
	return alloc, nil
}

// Free unmaps an allocation and unlinks its backing file.  Views other
// processes have already resolved stay valid until they close them.
func (c *Context) Free(a *Allocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freeLocked(a)
}

func (c *Context) freeLocked(a *Allocation) error {
	if a.freed {
		return common.Errorf(common.KAllocationFreed,
			"segment %d has already been freed", a.segment)
	}
	if got, ok := c.allocations[a.segment]; !ok || got != a {
		return common.Errorf(common.KAllocationNotFound,
			"segment %d is not an allocation of this context", a.segment)
	}
	delete(c.allocations, a.segment)
	c.footprint -= a.size
	a.freed = true
	data := a.data
	a.data = nil
	if err := memory.Unmap(data); err != nil {
		return common.Errorf(common.KAllocationFailed,
			"failed to unmap segment %d: %v", a.segment, err)
	}
	return removeSegment(c.arenaDir, c.token, a.segment)
}

// Synchronize flushes every live allocation's pending stores to its
// backing segment.  Producers call it between populating an allocation
// and exporting its handle.
func (c *Context) Synchronize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.allocations {
		if err := memory.Sync(a.data); err != nil {
			return common.Errorf(common.KIOError,
				"failed to synchronize segment %d: %v", a.segment, err)
		}
	}
	return nil
}

// Footprint returns the total size in bytes of live allocations.
func (c *Context) Footprint() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.footprint
}

// Live returns the number of live allocations.
func (c *Context) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.allocations)
}

// Views returns the number of open resolved views.
func (c *Context) Views() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resolved)
}

// Close releases every live allocation and open view.  Further use of
// the context fails.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var first error
	allocations := make([]*Allocation, 0, len(c.allocations))
	for _, a := range c.allocations {
		allocations = append(allocations, a)
	}
	for _, a := range allocations {
		if err := c.freeLocked(a); err != nil && first == nil {
			first = err
		}
	}
	views := make([]*ResolvedBuffer, 0, len(c.resolved))
	for _, b := range c.resolved {
		views = append(views, b)
	}
	for _, b := range views {
		b.refs = 1
		if err := b.closeLocked(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
