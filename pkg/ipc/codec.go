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

package ipc

import (
	"encoding/binary"

	"github.com/devmem-io/devmem/pkg/common/types"
)

// The data channel carries fixed-size transfer records with no framing:
// a 4-byte record index followed by the encoded handle.  Producer and
// consumer run on the same host, so the index travels in native byte
// order.
const (
	indexSize  = 4
	RecordSize = indexSize + types.HandleSize
)

// WriteRecord publishes one transfer record as two transfers: the
// record index, then the encoded handle.
func WriteRecord(ch *Channel, record types.TransferRecord) error {
	var index [indexSize]byte
	binary.NativeEndian.PutUint32(index[:], uint32(record.Index))
	if err := ch.Send(index[:]); err != nil {
		return err
	}
	return ch.Send(record.Handle.Encode())
}

// ReadIndex receives the index half of a transfer record.
func ReadIndex(ch *Channel) (int32, error) {
	var buf [indexSize]byte
	if err := ch.Receive(buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.NativeEndian.Uint32(buf[:])), nil
}

// ReadHandle receives and decodes the handle half of a transfer record.
func ReadHandle(ch *Channel) (types.Handle, error) {
	buf := make([]byte, types.HandleSize)
	if err := ch.Receive(buf); err != nil {
		return types.Handle{}, err
	}
	return types.DecodeHandle(buf)
}

// ReadRecord receives one full transfer record.
func ReadRecord(ch *Channel) (types.TransferRecord, error) {
	index, err := ReadIndex(ch)
	if err != nil {
		return types.TransferRecord{}, err
	}
	handle, err := ReadHandle(ch)
	if err != nil {
		return types.TransferRecord{}, err
	}
	return types.TransferRecord{Index: index, Handle: handle}, nil
}
