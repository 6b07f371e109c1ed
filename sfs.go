package sfs // import "github.com/keks/sfs"

import (
	"io"
)

// Basic Types

// ReadWriterAt is both a ReaderAt and a WriterAt.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Layout constants. The on-disk format is fixed: changing any of these
// breaks compatibility with existing images.
const (
	// BlockSize is the size of every block in bytes.
	BlockSize = 4096

	// Magic tags block 0 of a formatted device.
	Magic uint32 = 0xf0f03410

	// InodeSize is the size of one inode record in bytes.
	InodeSize = 32

	// InodesPerBlock is the number of inode records in one table block.
	InodesPerBlock = BlockSize / InodeSize

	// PointersPerInode is the number of direct block pointers per inode.
	PointersPerInode = 5

	// PointersPerBlock is the number of block pointers in a pointer block.
	PointersPerBlock = BlockSize / 4

	// MaxFileSize is the largest addressable file in bytes.
	MaxFileSize = (PointersPerInode + PointersPerBlock) * BlockSize
)

// BlockID identifies blocks. Block 0 is always the superblock, so 0 doubles
// as the "no block" value in pointer fields.
type BlockID uint32

// InodeID identifies inode records across the inode-table blocks.
type InodeID uint32

// Device is a block-addressable store. The filesystem layer touches
// persistent storage only through it.
type Device interface {
	// Blocks returns the number of addressable blocks.
	Blocks() uint32

	// ReadBlock fills buf with the contents of block n.
	ReadBlock(n BlockID, buf *[BlockSize]byte) error

	// WriteBlock persists buf as the contents of block n.
	WriteBlock(n BlockID, buf *[BlockSize]byte) error
}

// inodeBlocks returns the number of blocks reserved for the inode table on
// a device of the given size: one tenth of the device, rounded up.
func inodeBlocks(blocks uint32) uint32 {
	return (blocks + 9) / 10
}
