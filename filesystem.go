package sfs

import (
	"fmt"
)

// FileSystem is an inode-based file system engine over a Device. The zero
// value is an unmounted filesystem; Mount binds it to a device, Unmount
// releases the binding. A FileSystem is single-threaded: no operation may
// run concurrently with another on the same instance.
type FileSystem struct {
	dev    Device
	super  Superblock
	bitmap *bitmap
}

// Format writes a fresh filesystem onto dev: a superblock in block 0 and
// zeroes everywhere else. Formatting the currently mounted device is
// rejected. A device failure part-way through leaves the image in an
// undefined state; the only recovery is another Format.
func (fs *FileSystem) Format(dev Device) error {
	if fs.dev != nil && fs.dev == dev {
		return ErrAlreadyMounted
	}

	super := Superblock{
		Blocks:      dev.Blocks(),
		InodeBlocks: inodeBlocks(dev.Blocks()),
	}
	super.Inodes = super.InodeBlocks * InodesPerBlock

	var buf [BlockSize]byte
	super.encode(&buf)
	if err := dev.WriteBlock(0, &buf); err != nil {
		return fmt.Errorf("formatting: writing superblock: %w", err)
	}

	var empty [BlockSize]byte
	for b := BlockID(1); b < BlockID(super.Blocks); b++ {
		if err := dev.WriteBlock(b, &empty); err != nil {
			return fmt.Errorf("formatting: clearing block %d: %w", b, err)
		}
	}

	return nil
}

// Mount binds fs to dev: it validates the superblock against the device's
// actual geometry and rebuilds the free-block bitmap from the inode table.
// On any failure no binding is established.
func (fs *FileSystem) Mount(dev Device) error {
	if fs.dev != nil {
		return ErrAlreadyMounted
	}

	var buf [BlockSize]byte
	if err := dev.ReadBlock(0, &buf); err != nil {
		return fmt.Errorf("mounting: reading superblock: %w", err)
	}

	super, err := decodeSuperblock(&buf)
	if err != nil {
		return fmt.Errorf("mounting: %w", err)
	}

	if super.Blocks != dev.Blocks() {
		return fmt.Errorf("mounting: %w", ErrBadLayout{
			Field: "blocks",
			Want:  dev.Blocks(),
			Found: super.Blocks,
		})
	}
	if want := inodeBlocks(dev.Blocks()); super.InodeBlocks != want {
		return fmt.Errorf("mounting: %w", ErrBadLayout{
			Field: "inode blocks",
			Want:  want,
			Found: super.InodeBlocks,
		})
	}
	if want := super.InodeBlocks * InodesPerBlock; super.Inodes != want {
		return fmt.Errorf("mounting: %w", ErrBadLayout{
			Field: "inodes",
			Want:  want,
			Found: super.Inodes,
		})
	}

	bm, err := buildBitmap(dev, &super)
	if err != nil {
		return fmt.Errorf("mounting: %w", err)
	}

	fs.dev = dev
	fs.super = super
	fs.bitmap = bm

	return nil
}

// Unmount drops the device binding and the bitmap. The bitmap is never
// persisted: the next Mount rebuilds it from the inode table.
func (fs *FileSystem) Unmount() {
	fs.dev = nil
	fs.super = Superblock{}
	fs.bitmap = nil
}

// allocBlock claims the first free block, zero-filling its persisted
// contents before marking it in the bitmap. Zeroing first keeps stale bytes
// from a previous life out of a block later read as a pointer block.
func (fs *FileSystem) allocBlock() (BlockID, error) {
	b, ok := fs.bitmap.findFree()
	if !ok {
		return 0, ErrDeviceFull
	}

	var empty [BlockSize]byte
	if err := fs.dev.WriteBlock(b, &empty); err != nil {
		return 0, fmt.Errorf("clearing block %d: %w", b, err)
	}

	fs.bitmap.set(b)
	return b, nil
}

// releaseBlock marks a block free. Releasing an already-free block is a
// no-op; persisted contents are left alone.
func (fs *FileSystem) releaseBlock(b BlockID) {
	fs.bitmap.clear(b)
}
