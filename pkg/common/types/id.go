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
	"fmt"
	"os"
	"strconv"
	"time"
)

// SegmentID names one allocation inside an arena. IDs are minted
// sequentially by the owning device context and are never reused within a
// session.
type SegmentID = uint64

func SegmentIDToString(id SegmentID) string {
	return fmt.Sprintf("m%016x", id)
}

func SegmentIDFromString(id string) (SegmentID, error) {
	return strconv.ParseUint(id[1:], 16, 64)
}

func InvalidSegmentID() SegmentID {
	return 0xffffffffffffffff
}

// ArenaToken namespaces every segment a device context creates, so handles
// from an unrelated producer (or a previous session) cannot resolve here by
// accident.
type ArenaToken = uint64

func GenerateArenaToken() ArenaToken {
	now := uint64(time.Now().UnixNano())
	return 0x7fffffffffffffff & (now ^ uint64(os.Getpid())<<48)
}

func ArenaTokenToString(token ArenaToken) string {
	return fmt.Sprintf("a%016x", token)
}

func ArenaTokenFromString(token string) (ArenaToken, error) {
	return strconv.ParseUint(token[1:], 16, 64)
}

func UnspecifiedArenaToken() ArenaToken {
	return 0xffffffffffffffff
}
