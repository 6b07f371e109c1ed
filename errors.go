package sfs

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyMounted is returned by Mount and Format while the
	// filesystem is bound to a device.
	ErrAlreadyMounted = errors.New("device already mounted")

	// ErrNotMounted is returned by operations that need a mounted device.
	ErrNotMounted = errors.New("no device mounted")

	// ErrNoFreeInode is returned by Create when the inode table is full.
	ErrNoFreeInode = errors.New("no free inode")

	// ErrDeviceFull is returned when no free block exists for allocation.
	ErrDeviceFull = errors.New("device full")

	// ErrOffsetOutOfRange is returned by Read for offsets at or past the
	// end of the file.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrOffsetTooLarge is returned by Write for ranges beyond the
	// direct+indirect pointer budget.
	ErrOffsetTooLarge = errors.New("offset too large")
)

// ErrBadMagic reports a block 0 whose tag is not Magic.
type ErrBadMagic struct {
	Found uint32
}

func (err ErrBadMagic) Error() string {
	return fmt.Sprintf(
		"bad magic: wanted `%#08x`; found `%#08x`",
		Magic,
		err.Found,
	)
}

// ErrBadLayout reports a superblock field that disagrees with the geometry
// recomputed from the device's block count.
type ErrBadLayout struct {
	Field string
	Want  uint32
	Found uint32
}

func (err ErrBadLayout) Error() string {
	return fmt.Sprintf(
		"bad layout: %s: wanted %d; found %d",
		err.Field,
		err.Want,
		err.Found,
	)
}

// ErrBadPointer reports an on-disk block pointer outside the device
// extent. It can only come from a corrupted image.
type ErrBadPointer struct {
	Block BlockID
}

func (err ErrBadPointer) Error() string {
	return fmt.Sprintf("bad block pointer: %d", err.Block)
}

// ErrBadInode reports an inode number that is out of range or whose record
// is not valid.
type ErrBadInode struct {
	Ino InodeID
}

func (err ErrBadInode) Error() string {
	return fmt.Sprintf("bad inode: %d", err.Ino)
}
