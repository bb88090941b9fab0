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

// TransferRecord is the unit the producer publishes on the data channel:
// the producer-assigned allocation index paired with the exported handle.
// Indexes run 1..N, assigned and delivered in increasing order.
type TransferRecord struct {
	Index  int32
	Handle Handle
}
