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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmem-io/devmem/pkg/common"
)

func TestHandleRoundTrip(t *testing.T) {
	h := Handle{
		Version: HandleVersion,
		Flags:   HandleFlagSealed | HandleFlagHostShared,
		Ordinal: 3,
		Token:   0x0123456789abcdef,
		Segment: 42,
		Size:    8,
		Offset:  0,
		Digest:  0xfeedface,
	}

	encoded := h.Encode()
	require.Len(t, encoded, HandleSize)

	decoded, err := DecodeHandle(encoded)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestHandleEncodePadding(t *testing.T) {
	h := Handle{Version: HandleVersion, Segment: 1, Size: 16}
	encoded := h.Encode()
	for i := 48; i < HandleSize; i++ {
		assert.Zero(t, encoded[i], "padding byte %d", i)
	}
}

func TestDecodeHandleShort(t *testing.T) {
	h := Handle{Version: HandleVersion, Segment: 7, Size: 8}
	_, err := DecodeHandle(h.Encode()[:HandleSize-1])
	require.Error(t, err)
	assert.Equal(t, common.KShortRead, common.CodeOf(err))
	assert.True(t, common.IsTransportError(err))
}

func TestDecodeHandleBadMagic(t *testing.T) {
	encoded := Handle{Version: HandleVersion}.Encode()
	encoded[0] = 'X'
	_, err := DecodeHandle(encoded)
	require.Error(t, err)
	assert.Equal(t, common.KInvalid, common.CodeOf(err))
}

func TestDecodeHandleBadVersion(t *testing.T) {
	encoded := Handle{Version: HandleVersion}.Encode()
	encoded[4] = HandleVersion + 1
	_, err := DecodeHandle(encoded)
	require.Error(t, err)
	assert.Equal(t, common.KInvalid, common.CodeOf(err))
}

func TestHandleString(t *testing.T) {
	h := Handle{Version: HandleVersion, Segment: 0xab}
	s := h.String()
	assert.True(t, strings.HasPrefix(s, "0x"))
	assert.Len(t, s, 2+2*HandleSize)
	// "DVMH" magic renders first.
	assert.Equal(t, "0x44564D48", s[:10])
}
