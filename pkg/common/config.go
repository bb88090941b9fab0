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

package common

import "fmt"

const (
	DEVMEM_VERSION_MAJOR = 0
	DEVMEM_VERSION_MINOR = 2
	DEVMEM_VERSION_PATCH = 1

	DEVMEM_VERSION = ((DEVMEM_VERSION_MAJOR*1000)+DEVMEM_VERSION_MINOR)*1000 +
		DEVMEM_VERSION_PATCH
)

var DEVMEM_VERSION_STRING = fmt.Sprintf(
	"%d.%d.%d",
	DEVMEM_VERSION_MAJOR,
	DEVMEM_VERSION_MINOR,
	DEVMEM_VERSION_PATCH,
)
