package sfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// plantInode writes a hand-built record into slot 0 of the first
// inode-table block, behind the engine's back.
func plantInode(t *testing.T, dev Device, in Inode) {
	t.Helper()

	var buf [BlockSize]byte
	require.NoError(t, dev.ReadBlock(1, &buf))
	encodeInode(&in, &buf, 0)
	require.NoError(t, dev.WriteBlock(1, &buf))
}

func TestMountRejectsCorruptDirectPointer(t *testing.T) {
	r := require.New(t)
	dev := newTestDevice(16)

	var fs FileSystem
	r.NoError(fs.Format(dev))

	plantInode(t, dev, Inode{
		Valid:  true,
		Size:   BlockSize,
		Direct: [PointersPerInode]BlockID{999},
	})

	r.ErrorIs(fs.Mount(dev), ErrBadPointer{Block: 999})

	_, err := fs.Create()
	r.ErrorIs(err, ErrNotMounted)
}

func TestMountRejectsCorruptIndirectPointer(t *testing.T) {
	r := require.New(t)
	dev := newTestDevice(16)

	var fs FileSystem
	r.NoError(fs.Format(dev))

	plantInode(t, dev, Inode{
		Valid:    true,
		Size:     6 * BlockSize,
		Indirect: 4000,
	})

	r.ErrorIs(fs.Mount(dev), ErrBadPointer{Block: 4000})
}

func TestRemoveRejectsCorruptPointer(t *testing.T) {
	r := require.New(t)
	dev := newTestDevice(16)

	var fs FileSystem
	r.NoError(fs.Format(dev))
	r.NoError(fs.Mount(dev))

	ino, err := fs.Create()
	r.NoError(err)

	before := fs.bitmap.inUseCount()

	plantInode(t, dev, Inode{
		Valid:  true,
		Size:   BlockSize,
		Direct: [PointersPerInode]BlockID{999},
	})

	r.ErrorIs(fs.Remove(ino), ErrBadPointer{Block: 999})

	// nothing was released
	r.Equal(before, fs.bitmap.inUseCount())
}
