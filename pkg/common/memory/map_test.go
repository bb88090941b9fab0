package memory

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSharedVisibility(t *testing.T) {
	name := filepath.Join(t.TempDir(), "segment")
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(64))

	data, err := Map(int(f.Fd()), 64, true)
	require.NoError(t, err)
	copy(data, []byte("hello"))
	require.NoError(t, Sync(data))

	// A second, read-only mapping of the same file sees the stores.
	r, err := os.Open(name)
	require.NoError(t, err)
	defer r.Close()
	view, err := Map(int(r.Fd()), 64, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), view[:5])

	assert.NoError(t, Unmap(view))
	assert.NoError(t, Unmap(data))
}

func TestCast(t *testing.T) {
	s := make([]byte, 8)
	binary.NativeEndian.PutUint32(s[0:4], 1)
	binary.NativeEndian.PutUint32(s[4:8], 2)
	values := Cast[int32](s, 2)
	require.Len(t, values, 2)
	assert.Equal(t, int32(1), values[0])
	assert.Equal(t, int32(2), values[1])
}
