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

package types

import (
	"encoding/binary"
	"fmt"

	"github.com/devmem-io/devmem/pkg/common"
)

// HandleSize is the fixed byte length of an encoded memory handle on the
// wire. Peers treat the block as opaque; only a device context of the same
// backend interprets the fields.
const HandleSize = 64

const HandleVersion = 1

const (
	// HandleFlagSealed marks the backing allocation immutable since export.
	HandleFlagSealed = 1 << 0
	// HandleFlagHostShared marks handles minted by the host shared-segment
	// backend; a handle without it belongs to a different device class and
	// cannot be resolved here.
	HandleFlagHostShared = 1 << 1
)

var handleMagic = [4]byte{'D', 'V', 'M', 'H'}

// Handle is the process-portable reference to a device allocation. Encoded
// form is byte-exact and platform-stable: magic, version, flags and ordinal
// up front, then the little-endian locator fields, zero padding to
// HandleSize. The digest is the content hash captured at export time;
// resolve verifies it so the populate-before-export ordering is enforced
// rather than assumed.
type Handle struct {
	Version uint8
	Flags   uint8
	Ordinal uint16
	Token   ArenaToken
	Segment SegmentID
	Size    uint64
	Offset  uint64
	Digest  uint64
}

func (h Handle) Encode() []byte {
	buf := make([]byte, HandleSize)
	copy(buf[0:4], handleMagic[:])
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.LittleEndian.PutUint16(buf[6:8], h.Ordinal)
	binary.LittleEndian.PutUint64(buf[8:16], h.Token)
	binary.LittleEndian.PutUint64(buf[16:24], h.Segment)
	binary.LittleEndian.PutUint64(buf[24:32], h.Size)
	binary.LittleEndian.PutUint64(buf[32:40], h.Offset)
	binary.LittleEndian.PutUint64(buf[40:48], h.Digest)
	return buf
}

func DecodeHandle(data []byte) (Handle, error) {
	var h Handle
	if len(data) != HandleSize {
		return h, common.ShortRead(HandleSize, len(data))
	}
	if [4]byte(data[0:4]) != handleMagic {
		return h, common.Errorf(common.KInvalid, "bad handle magic %x", data[0:4])
	}
	if data[4] != HandleVersion {
		return h, common.Errorf(common.KInvalid, "unsupported handle version %d", data[4])
	}
	h.Version = data[4]
	h.Flags = data[5]
	h.Ordinal = binary.LittleEndian.Uint16(data[6:8])
	h.Token = binary.LittleEndian.Uint64(data[8:16])
	h.Segment = binary.LittleEndian.Uint64(data[16:24])
	h.Size = binary.LittleEndian.Uint64(data[24:32])
	h.Offset = binary.LittleEndian.Uint64(data[32:40])
	h.Digest = binary.LittleEndian.Uint64(data[40:48])
	return h, nil
}

func (h Handle) Sealed() bool {
	return h.Flags&HandleFlagSealed != 0
}

func (h Handle) HostShared() bool {
	return h.Flags&HandleFlagHostShared != 0
}

// String renders the encoded handle as hex for diagnostics, the same shape
// the CUDA tooling prints IPC handles in.
func (h Handle) String() string {
	encoded := h.Encode()
	out := make([]byte, 2, 2+2*len(encoded))
	out[0], out[1] = '0', 'x'
	for _, b := range encoded {
		out = fmt.Appendf(out, "%02X", b)
	}
	return string(out)
}
