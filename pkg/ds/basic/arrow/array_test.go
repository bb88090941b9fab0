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

package arrow

import (
	"testing"

	"github.com/apache/arrow/go/v11/arrow/array"
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

func TestInt32Array(t *testing.T) {
	ctx, err := device.Open(device.Options{ArenaDir: t.TempDir()})
	require.NoError(t, err)
	defer ctx.Close()

	record := exportRecord(t, ctx, 2, []int32{2, 4})

	// view the record
	var arr Int32Array
	if err := arr.Construct(ctx, record); err != nil {
		t.Fatalf("construct array failed: %+v", err)
	}

	// validate content
	assert.Equal(t, uint64(2), arr.Length)
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, int32(2), arr.Value(0))
	assert.Equal(t, int32(4), arr.Value(1))
	assert.NotNil(t, arr.GetArray())

	require.NoError(t, arr.Release())
	assert.Zero(t, ctx.Views())
}

func TestBuildFrame(t *testing.T) {
	ctx, err := device.Open(device.Options{ArenaDir: t.TempDir()})
	require.NoError(t, err)
	defer ctx.Close()

	views := make([]*Int32Array, 0, 3)
	for i := int32(1); i <= 3; i++ {
		record := exportRecord(t, ctx, i, []int32{i, 2 * i})
		arr := &Int32Array{}
		if err := arr.Construct(ctx, record); err != nil {
			t.Fatalf("construct array %d failed: %+v", i, err)
		}
		views = append(views, arr)
	}
	defer func() {
		for _, view := range views {
			_ = view.Release()
		}
	}()

	frame, err := BuildFrame(views, 2)
	require.NoError(t, err)
	defer frame.Release()

	assert.Equal(t, int64(3), frame.NumRows())
	assert.Equal(t, int64(3), frame.NumCols())

	indexes := frame.Column(0).(*array.Int32)
	first := frame.Column(1).(*array.Int32)
	second := frame.Column(2).(*array.Int32)
	for i := 0; i < 3; i++ {
		assert.Equal(t, int32(i+1), indexes.Value(i))
		assert.Equal(t, int32(i+1), first.Value(i))
		assert.Equal(t, int32(2*(i+1)), second.Value(i))
	}
}

func TestBuildFrameRejectsMismatchedWidth(t *testing.T) {
	ctx, err := device.Open(device.Options{ArenaDir: t.TempDir()})
	require.NoError(t, err)
	defer ctx.Close()

	record := exportRecord(t, ctx, 1, []int32{1, 2})
	arr := &Int32Array{}
	require.NoError(t, arr.Construct(ctx, record))
	defer arr.Release()

	_, err = BuildFrame([]*Int32Array{arr}, 3)
	require.Error(t, err)
	assert.Equal(t, common.KTypeError, common.CodeOf(err))
}
