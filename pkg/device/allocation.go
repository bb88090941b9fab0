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
	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/memory"
	"github.com/devmem-io/devmem/pkg/common/types"
)

// Allocation is a writable arena segment owned by the process that
// allocated it.  Exporting a handle seals the allocation: content is
// frozen from that point and further writes are rejected.
type Allocation struct {
	segment types.SegmentID
	size    uint64
	data    []byte
	sealed  bool
	freed   bool
}

func (a *Allocation) Segment() types.SegmentID {
	return a.segment
}

func (a *Allocation) Size() uint64 {
	return a.size
}

func (a *Allocation) Sealed() bool {
	return a.sealed
}

// Bytes exposes the mapped segment.  The slice stays valid until Free.
func (a *Allocation) Bytes() ([]byte, error) {
	if a.freed {
		return nil, common.Errorf(common.KAllocationFreed,
			"segment %d has been freed", a.segment)
	}
	return a.data, nil
}

// Write copies p into the segment at offset.
func (a *Allocation) Write(offset uint64, p []byte) error {
	if err := a.writable(offset, uint64(len(p))); err != nil {
		return err
	}
	copy(a.data[offset:], p)
	return nil
}

// WriteValues lays values out in the segment at offset, in the native
// element encoding.
func WriteValues[T types.Number](a *Allocation, offset uint64, values []T) error {
	if len(values) == 0 {
		return nil
	}
	length := uint64(len(values)) * types.SizeOf[T]()
	if err := a.writable(offset, length); err != nil {
		return err
	}
	copy(memory.Cast[T](a.data[offset:], uint64(len(values))), values)
	return nil
}

func (a *Allocation) writable(offset, length uint64) error {
	if a.freed {
		return common.Errorf(common.KAllocationFreed,
			"segment %d has been freed", a.segment)
	}
	if a.sealed {
		return common.Errorf(common.KAllocationSealed,
			"segment %d is sealed, its handle has been exported", a.segment)
	}
	if offset > a.size || length > a.size-offset {
		return common.Errorf(common.KInvalid,
			"write of %d bytes at offset %d exceeds segment size %d",
			length, offset, a.size)
	}
	return nil
}
