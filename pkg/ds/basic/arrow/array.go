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

// Package arrow presents resolved device segments as Apache Arrow
// arrays, backed directly by the shared pages.
package arrow

import (
	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/types"
	"github.com/devmem-io/devmem/pkg/device"
)

// Array is one record's segment presented as an Arrow array.
type Array interface {
	GetArray() arrow.Array
	Release() error
}

// Int32Array views one transfer record's segment as an Arrow int32
// array.  Record payloads are int32 sequences, so this is the shape
// every session record resolves into.
type Int32Array struct {
	Record types.TransferRecord
	*array.Int32
	Length uint64
	buffer *device.ResolvedBuffer
}

func (arr *Int32Array) Construct(ctx *device.Context, record types.TransferRecord) (err error) {
	arr.Record = record
	if arr.buffer, err = ctx.Resolve(record.Handle); err != nil {
		return err
	}
	elem := types.SizeOf[int32]()
	if record.Handle.Size%elem != 0 {
		_ = arr.buffer.Close()
		return common.Errorf(common.KTypeError,
			"segment of %d bytes does not divide into %d-byte elements",
			record.Handle.Size, elem)
	}
	arr.Length = record.Handle.Size / elem
	data, err := arr.buffer.Bytes()
	if err != nil {
		return err
	}
	arr.Int32 = array.NewInt32Data(
		array.NewData(
			&arrow.Int32Type{},
			int(arr.Length),
			[]*memory.Buffer{nil, memory.NewBufferBytes(data)},
			[]arrow.ArrayData{},
			0,
			0,
		),
	)
	return nil
}

func (arr *Int32Array) GetArray() arrow.Array {
	return arr.Int32
}

// Release retires the view and drops its mapping reference.
func (arr *Int32Array) Release() error {
	if arr.Int32 != nil {
		arr.Int32.Release()
		arr.Int32 = nil
	}
	return arr.buffer.Close()
}
