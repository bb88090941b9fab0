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

package device

import (
	"github.com/cespare/xxhash/v2"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/memory"
	"github.com/devmem-io/devmem/pkg/common/types"
)

// Export seals an allocation and mints the portable handle for it.  The
// handle captures a digest of the segment content at export time and
// Resolve verifies it, so an allocation must be fully populated before
// its handle is exported.
func (c *Context) Export(a *Allocation) (types.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.freed {
		return types.Handle{}, common.Errorf(common.KHandleExport,
			"cannot export segment %d: it has been freed", a.segment)
	}
	if got, ok := c.allocations[a.segment]; !ok || got != a {
		return types.Handle{}, common.Errorf(common.KHandleExport,
			"cannot export segment %d: not an allocation of this context", a.segment)
	}
	a.sealed = true
	return types.Handle{
		Version: types.HandleVersion,
		Flags:   types.HandleFlagSealed | types.HandleFlagHostShared,
		Ordinal: c.ordinal,
		Token:   c.token,
		Segment: a.segment,
		Size:    a.size,
		Offset:  0,
		Digest:  xxhash.Sum64(a.data),
	}, nil
}

// Resolve maps the segment behind a handle into this process as a
// read-only view.  Resolving the same segment again returns the shared
// view with its reference count raised.
func (c *Context) Resolve(h types.Handle) (*ResolvedBuffer, error) {
	if !h.HostShared() {
		return nil, common.Errorf(common.KIncompatibleContext,
			"handle %s was not minted by a host-shared arena", h)
	}
	if !h.Sealed() {
		return nil, common.Errorf(common.KHandleResolve,
			"handle %s was never sealed by an export", h)
	}
	if h.Ordinal != c.ordinal {
		return nil, common.Errorf(common.KIncompatibleContext,
			"handle %s belongs to device %d, context is attached to device %d",
			h, h.Ordinal, c.ordinal)
	}
	if h.Size == 0 {
		return nil, common.Errorf(common.KHandleResolve,
			"handle %s references an empty segment", h)
	}
	if h.Segment == types.InvalidSegmentID() {
		return nil, common.Errorf(common.KHandleResolve,
			"handle %s carries no segment", h)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, common.Error(common.KInvalid, "the arena context has been closed")
	}
	key := segmentKey{h.Token, h.Segment}
	if buf, ok := c.resolved[key]; ok {
		buf.refs++
		return buf, nil
	}

	f, size, err := openSegment(c.arenaDir, h.Token, h.Segment)
	if err != nil {
		return nil, err
	}
	if h.Offset > size || h.Size > size-h.Offset {
		_ = f.Close()
		return nil, common.Errorf(common.KSizeMismatch,
			"handle %s references %d bytes at offset %d, segment holds %d bytes",
			h, h.Size, h.Offset, size)
	}
	data, err := memory.Map(int(f.Fd()), size, false)
	_ = f.Close()
	if err != nil {
		return nil, common.Errorf(common.KHandleResolve,
			"failed to map segment %d: %v", h.Segment, err)
	}
	window := memory.Slice(data, h.Offset, h.Size)
	if digest := xxhash.Sum64(window); digest != h.Digest {
		_ = memory.Unmap(data)
		return nil, common.Errorf(common.KDigestMismatch,
			"handle %s carries digest %016x, segment content digests to %016x",
			h, h.Digest, digest)
	}
	buf := &ResolvedBuffer{ctx: c, key: key, handle: h, mapping: data, refs: 1}
	c.resolved[key] = buf
	return buf, nil
}

// ResolvedBuffer is a read-only view of a peer's exported segment.
type ResolvedBuffer struct {
	ctx     *Context
	key     segmentKey
	handle  types.Handle
	mapping []byte
	refs    int
}

// Handle returns the handle this view was resolved from.
func (b *ResolvedBuffer) Handle() types.Handle {
	return b.handle
}

// Size returns the view length in bytes.
func (b *ResolvedBuffer) Size() uint64 {
	return b.handle.Size
}

// Bytes exposes the view window.  The slice stays valid until Close.
func (b *ResolvedBuffer) Bytes() ([]byte, error) {
	if b.mapping == nil {
		return nil, common.Errorf(common.KHandleResolve,
			"the view of segment %d has been closed", b.handle.Segment)
	}
	return memory.Slice(b.mapping, b.handle.Offset, b.handle.Size), nil
}

// Close drops one reference to the view; the last close unmaps it.
// Closing an already closed view is a no-op.
func (b *ResolvedBuffer) Close() error {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	return b.closeLocked()
}

func (b *ResolvedBuffer) closeLocked() error {
	if b.mapping == nil {
		return nil
	}
	b.refs--
	if b.refs > 0 {
		return nil
	}
	delete(b.ctx.resolved, b.key)
	mapping := b.mapping
	b.mapping = nil
	if err := memory.Unmap(mapping); err != nil {
		return common.Errorf(common.KHandleResolve,
			"failed to unmap segment %d: %v", b.handle.Segment, err)
	}
	return nil
}
