package memory

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Map maps length bytes of the file behind fd into the address space.
// The mapping is MAP_SHARED: stores become visible to every other
// process that maps the same file.
func Map(fd int, length uint64, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(fd, 0, int(length), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap: failed to map %d bytes", length)
	}
	return data, nil
}

// Unmap releases a mapping created by Map.
func Unmap(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return errors.Wrapf(err, "munmap: failed to unmap %d bytes", len(data))
	}
	return nil
}

// Sync flushes stores made through the mapping back to the underlying
// file, after which readers that map the same file observe them.
func Sync(data []byte) error {
	if err := unix.Msync(data, unix.MS_SYNC); err != nil {
		return errors.Wrapf(err, "msync: failed to sync %d bytes", len(data))
	}
	return nil
}
