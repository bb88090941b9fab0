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
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Number constrains the element types a local view may be built over.
type Number interface {
	constraints.Integer | constraints.Float
}

// SizeOf reports the in-memory byte width of a view element.
func SizeOf[T Number]() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}
