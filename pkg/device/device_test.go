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
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/memory"
	"github.com/devmem-io/devmem/pkg/common/types"
)

func openArena(t *testing.T, dir string, ordinal uint16) *Context {
	t.Helper()
	ctx, err := Open(Options{Ordinal: ordinal, ArenaDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestAllocateZeroFilled(t *testing.T) {
	ctx := openArena(t, t.TempDir(), 0)

	alloc, err := ctx.Allocate(32)
	require.NoError(t, err)
	data, err := alloc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), data)
	assert.Equal(t, uint64(32), ctx.Footprint())
	assert.Equal(t, 1, ctx.Live())

	require.NoError(t, ctx.Free(alloc))
	assert.Equal(t, uint64(0), ctx.Footprint())
	assert.Equal(t, 0, ctx.Live())

	_, err = alloc.Bytes()
	assert.Equal(t, common.KAllocationFreed, common.CodeOf(err))
}

func TestAllocateEmpty(t *testing.T) {
	ctx := openArena(t, t.TempDir(), 0)
	_, err := ctx.Allocate(0)
	assert.Equal(t, common.KInvalid, common.CodeOf(err))
}

func TestWriteValues(t *testing.T) {
	ctx := openArena(t, t.TempDir(), 0)
	alloc, err := ctx.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, WriteValues(alloc, 0, []int32{3, 6}))

	data, err := alloc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 6}, memory.Cast[int32](data, 2))

	err = WriteValues(alloc, 4, []int32{1, 2})
	assert.Equal(t, common.KInvalid, common.CodeOf(err))
}

func TestExportResolveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	producer := openArena(t, dir, 0)
	consumer := openArena(t, dir, 0)

	alloc, err := producer.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, WriteValues(alloc, 0, []int32{4, 8}))
	require.NoError(t, producer.Synchronize())

	handle, err := producer.Export(alloc)
	require.NoError(t, err)
	assert.True(t, handle.Sealed())
	assert.True(t, handle.HostShared())
	assert.True(t, alloc.Sealed())

	// The handle survives its wire encoding.
	decoded, err := types.DecodeHandle(handle.Encode())
	require.NoError(t, err)

	view, err := consumer.Resolve(decoded)
	require.NoError(t, err)
	data, err := view.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 8}, memory.Cast[int32](data, 2))

	require.NoError(t, view.Close())
	require.NoError(t, producer.Free(alloc))
}

func TestWriteAfterExportRejected(t *testing.T) {
	ctx := openArena(t, t.TempDir(), 0)
	alloc, err := ctx.Allocate(8)
	require.NoError(t, err)
	_, err = ctx.Export(alloc)
	require.NoError(t, err)

	err = WriteValues(alloc, 0, []int32{1, 2})
	require.Error(t, err)
	assert.Equal(t, common.KAllocationSealed, common.CodeOf(err))
	assert.True(t, common.IsAllocationError(err))
}

func TestResolveDetectsContentDrift(t *testing.T) {
	dir := t.TempDir()
	producer := openArena(t, dir, 0)
	consumer := openArena(t, dir, 0)

	alloc, err := producer.Allocate(8)
	require.NoError(t, err)
	handle, err := producer.Export(alloc)
	require.NoError(t, err)

	// Mutating the segment behind the seal leaves the exported digest
	// stale; resolving the handle reports the drift.
	data, err := alloc.Bytes()
	require.NoError(t, err)
	data[0] = 0xff

	_, err = consumer.Resolve(handle)
	require.Error(t, err)
	assert.Equal(t, common.KDigestMismatch, common.CodeOf(err))
	assert.True(t, common.IsHandleResolveError(err))
}

func TestResolveStaleHandle(t *testing.T) {
	dir := t.TempDir()
	producer := openArena(t, dir, 0)
	consumer := openArena(t, dir, 0)

	alloc, err := producer.Allocate(8)
	require.NoError(t, err)
	handle, err := producer.Export(alloc)
	require.NoError(t, err)
	require.NoError(t, producer.Free(alloc))

	_, err = consumer.Resolve(handle)
	require.Error(t, err)
	assert.Equal(t, common.KStaleHandle, common.CodeOf(err))
	assert.True(t, common.IsHandleResolveError(err))
}

func TestResolveRejectsForeignHandles(t *testing.T) {
	dir := t.TempDir()
	producer := openArena(t, dir, 0)
	other := openArena(t, dir, 1)

	alloc, err := producer.Allocate(8)
	require.NoError(t, err)
	handle, err := producer.Export(alloc)
	require.NoError(t, err)

	_, err = other.Resolve(handle)
	assert.Equal(t, common.KIncompatibleContext, common.CodeOf(err))

	unsealed := handle
	unsealed.Flags = types.HandleFlagHostShared
	_, err = producer.Resolve(unsealed)
	assert.Equal(t, common.KHandleResolve, common.CodeOf(err))

	foreign := handle
	foreign.Flags = types.HandleFlagSealed
	_, err = producer.Resolve(foreign)
	assert.Equal(t, common.KIncompatibleContext, common.CodeOf(err))

	blank := handle
	blank.Segment = types.InvalidSegmentID()
	_, err = producer.Resolve(blank)
	assert.Equal(t, common.KHandleResolve, common.CodeOf(err))
}

func TestResolveRejectsDamagedGeometry(t *testing.T) {
	dir := t.TempDir()
	producer := openArena(t, dir, 0)
	consumer := openArena(t, dir, 0)

	alloc, err := producer.Allocate(8)
	require.NoError(t, err)
	handle, err := producer.Export(alloc)
	require.NoError(t, err)

	oversized := handle
	oversized.Size = handle.Size + 1
	_, err = consumer.Resolve(oversized)
	assert.Equal(t, common.KSizeMismatch, common.CodeOf(err))

	// The window check must not wrap around when offset + size overflows.
	wrapped := handle
	wrapped.Offset = math.MaxUint64 - wrapped.Size + 1
	_, err = consumer.Resolve(wrapped)
	require.Error(t, err)
	assert.Equal(t, common.KSizeMismatch, common.CodeOf(err))
	assert.True(t, common.IsHandleResolveError(err))
}

func TestResolveSharesViews(t *testing.T) {
	dir := t.TempDir()
	producer := openArena(t, dir, 0)
	consumer := openArena(t, dir, 0)

	alloc, err := producer.Allocate(8)
	require.NoError(t, err)
	handle, err := producer.Export(alloc)
	require.NoError(t, err)

	first, err := consumer.Resolve(handle)
	require.NoError(t, err)
	second, err := consumer.Resolve(handle)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, consumer.Views())

	require.NoError(t, first.Close())
	assert.Equal(t, 1, consumer.Views())
	require.NoError(t, second.Close())
	assert.Equal(t, 0, consumer.Views())

	_, err = second.Bytes()
	assert.Equal(t, common.KHandleResolve, common.CodeOf(err))
}

func TestCloseReleasesEverything(t *testing.T) {
	dir := t.TempDir()
	ctx, err := Open(Options{ArenaDir: dir})
	require.NoError(t, err)

	alloc, err := ctx.Allocate(16)
	require.NoError(t, err)
	_, err = ctx.Export(alloc)
	require.NoError(t, err)

	require.NoError(t, ctx.Close())
	assert.Equal(t, 0, ctx.Live())
	assert.Equal(t, 0, ctx.Views())

	_, err = ctx.Allocate(8)
	assert.Equal(t, common.KInvalid, common.CodeOf(err))
	require.NoError(t, ctx.Close())
}

func TestOpenRejectsUnusableArena(t *testing.T) {
	_, err := Open(Options{ArenaDir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Equal(t, common.KAllocationFailed, common.CodeOf(err))
	assert.True(t, common.IsAllocationError(err))
}
