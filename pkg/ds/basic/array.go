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

// Package basic provides typed local views over resolved device
// segments.
package basic

import (
	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/memory"
	"github.com/devmem-io/devmem/pkg/common/types"
	"github.com/devmem-io/devmem/pkg/device"
)

// Vector is a typed, read-only view of one transfer record's segment.
// Construct resolves the record's handle; the element slice aliases the
// shared pages, no bytes are copied.
type Vector[T types.Number] struct {
	Record types.TransferRecord
	Size   uint64
	buffer *device.ResolvedBuffer

	Values []T
}

func (v *Vector[T]) Construct(ctx *device.Context, record types.TransferRecord) (err error) {
	v.Record = record
	if v.buffer, err = ctx.Resolve(record.Handle); err != nil {
		return err
	}
	elem := types.SizeOf[T]()
	if record.Handle.Size%elem != 0 {
		_ = v.buffer.Close()
		return common.Errorf(common.KTypeError,
			"segment of %d bytes does not divide into %d-byte elements",
			record.Handle.Size, elem)
	}
	v.Size = record.Handle.Size / elem
	data, err := v.buffer.Bytes()
	if err != nil {
		return err
	}
	v.Values = memory.Cast[T](data, v.Size)
	return nil
}

func (v *Vector[T]) Len() uint64 {
	return v.Size
}

func (v *Vector[T]) At(index uint64) T {
	return v.Values[index]
}

// Release retires the view.  Values must not be used afterwards.
func (v *Vector[T]) Release() error {
	v.Values = nil
	return v.buffer.Close()
}
