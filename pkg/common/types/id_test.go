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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentID(t *testing.T) {
	var s string = SegmentIDToString(1234)
	m, _ := SegmentIDFromString(s)
	assert.Equal(t, s, "m00000000000004d2")
	assert.Equal(t, m, uint64(1234))
}

func TestArenaToken(t *testing.T) {
	var s string = ArenaTokenToString(1234)
	a, _ := ArenaTokenFromString(s)
	assert.Equal(t, s, "a00000000000004d2")
	assert.Equal(t, a, uint64(1234))
}

func TestGenerateArenaToken(t *testing.T) {
	token := GenerateArenaToken()
	assert.NotEqual(t, token, UnspecifiedArenaToken())
}
