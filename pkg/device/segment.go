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
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/types"
)

// shmDir is preferred for arena segments: on Linux it is a tmpfs, so
// segment pages live in memory rather than on disk.
const shmDir = "/dev/shm"

// DefaultArenaDir returns the directory backing arena segments when
// Options.ArenaDir is left empty.
func DefaultArenaDir() string {
	if info, err := os.Stat(shmDir); err == nil && info.IsDir() {
		return shmDir
	}
	return os.TempDir()
}

// segmentPath derives the arena file for a segment from fields carried
// inside every handle, so any process can reconstruct the path from the
// handle alone.
func segmentPath(dir string, token types.ArenaToken, segment types.SegmentID) string {
	return filepath.Join(dir, fmt.Sprintf("devmem-%s-%s",
		types.ArenaTokenToString(token), types.SegmentIDToString(segment)))
}

// createSegment creates the zero-filled backing file for a fresh segment.
// The file is created exclusively; a colliding name fails the allocation.
func createSegment(
	dir string, token types.ArenaToken, segment types.SegmentID, size uint64,
) (*os.File, error) {
	path := segmentPath(dir, token, segment)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, common.Errorf(common.KAllocationFailed,
			"failed to create segment %s: %v", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		code := common.KAllocationFailed
		if errors.Is(err, unix.ENOSPC) {
			code = common.KNotEnoughMemory
		}
		return nil, common.Errorf(code,
			"failed to resize segment %s to %d bytes: %v", path, size, err)
	}
	return f, nil
}

// openSegment opens an existing segment read-only and reports its size.
func openSegment(
	dir string, token types.ArenaToken, segment types.SegmentID,
) (*os.File, uint64, error) {
	path := segmentPath(dir, token, segment)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, common.Errorf(common.KStaleHandle,
				"segment %s no longer exists", path)
		}
		return nil, 0, common.Errorf(common.KHandleResolve,
			"failed to open segment %s: %v", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, common.Errorf(common.KHandleResolve,
			"failed to stat segment %s: %v", path, err)
	}
	return f, uint64(info.Size()), nil
}

// removeSegment unlinks a segment's backing file.  Mappings already
// established survive the unlink.
func removeSegment(dir string, token types.ArenaToken, segment types.SegmentID) error {
	path := segmentPath(dir, token, segment)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return common.Errorf(common.KAllocationFailed,
			"failed to remove segment %s: %v", path, err)
	}
	return nil
}
