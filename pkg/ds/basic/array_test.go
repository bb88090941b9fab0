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

package basic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/types"
	"github.com/devmem-io/devmem/pkg/device"
)

func exportRecord(t *testing.T, ctx *device.Context, index int32, values []int32) types.TransferRecord {
	t.Helper()

	alloc, err := ctx.Allocate(uint64(len(values)) * types.SizeOf[int32]())
	if err != nil {
		t.Fatalf("allocate segment failed: %+v", err)
	}
	if err := device.WriteValues(alloc, 0, values); err != nil {
		t.Fatalf("populate segment failed: %+v", err)
	}
	if err := ctx.Synchronize(); err != nil {
		t.Fatalf("synchronize arena failed: %+v", err)
	}
	handle, err := ctx.Export(alloc)
	if err != nil {
		t.Fatalf("export handle failed: %+v", err)
	}
	return types.TransferRecord{Index: index, Handle: handle}
}

func TestVector(t *testing.T) {
	ctx, err := device.Open(device.Options{ArenaDir: t.TempDir()})
	require.NoError(t, err)
	defer ctx.Close()

	record := exportRecord(t, ctx, 3, []int32{3, 6})

	// view the record
	var vec Vector[int32]
	if err := vec.Construct(ctx, record); err != nil {
		t.Fatalf("construct vector failed: %+v", err)
	}

	// validate content
	assert.Equal(t, uint64(2), vec.Len())
	assert.Equal(t, int32(3), vec.At(0))
	assert.Equal(t, int32(6), vec.At(1))
	assert.Equal(t, record, vec.Record)

	require.NoError(t, vec.Release())
	assert.Zero(t, ctx.Views())
}

func TestVectorRejectsRaggedSegment(t *testing.T) {
	ctx, err := device.Open(device.Options{ArenaDir: t.TempDir()})
	require.NoError(t, err)
	defer ctx.Close()

	// a 6-byte segment cannot carry int32 elements
	alloc, err := ctx.Allocate(6)
	require.NoError(t, err)
	require.NoError(t, ctx.Synchronize())
	handle, err := ctx.Export(alloc)
	require.NoError(t, err)

	var vec Vector[int32]
	err = vec.Construct(ctx, types.TransferRecord{Index: 1, Handle: handle})
	require.Error(t, err)
	assert.Equal(t, common.KTypeError, common.CodeOf(err))
	assert.Zero(t, ctx.Views())
}
