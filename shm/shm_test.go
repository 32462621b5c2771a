package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRegion(t *testing.T) {
	r, err := NewRegion(4096)
	require.NoError(t, err)
	require.Len(t, r.Bytes(), 4096)
	assert.Equal(t, 4096, r.Len())

	info, err := r.File().Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())

	r.Bytes()[10] = 0xAB
	r.Ref()
	require.NoError(t, r.Release())
	assert.Equal(t, byte(0xAB), r.Bytes()[10])

	require.NoError(t, r.Release())
	assert.Nil(t, r.Bytes())
	assert.NoError(t, r.Release())
	assert.Panics(t, func() { r.Ref() })
}

func TestRegion_Resize(t *testing.T) {
	r, err := NewRegion(64)
	require.NoError(t, err)
	defer r.Release()

	r.Bytes()[63] = 7
	assert.Error(t, r.Resize(32))
	require.NoError(t, r.Resize(64))
	require.NoError(t, r.Resize(256))
	assert.Len(t, r.Bytes(), 256)
	assert.Equal(t, byte(7), r.Bytes()[63])

	info, err := r.File().Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(256), info.Size())
}

func TestRegion_SharedMapping(t *testing.T) {
	r, err := NewRegion(16)
	require.NoError(t, err)
	defer r.Release()

	other, err := Map(r.File(), 16, unix.PROT_READ)
	require.NoError(t, err)
	defer other.Unmap()

	copy(r.Bytes(), "shared memory!!!")
	assert.Equal(t, "shared memory!!!", string(other))
}

func TestNewRegion_InvalidSize(t *testing.T) {
	_, err := NewRegion(0)
	assert.Error(t, err)
}
