package sfs

import (
	"encoding/binary"
	"fmt"
)

// A block has exactly one live interpretation at a time: superblock, inode
// table block, or pointer block. Each interpretation gets its own value type
// and an explicit encode/decode pair; nothing aliases the raw buffer.

// Superblock describes the on-disk layout. It is written once by Format and
// immutable afterwards.
type Superblock struct {
	Blocks      uint32 // total blocks on the device
	InodeBlocks uint32 // blocks reserved for the inode table
	Inodes      uint32 // inode record capacity
}

func decodeSuperblock(buf *[BlockSize]byte) (Superblock, error) {
	magic := binary.LittleEndian.Uint32(buf[0:])
	if magic != Magic {
		return Superblock{}, fmt.Errorf(
			"decoding superblock: %w",
			ErrBadMagic{magic},
		)
	}

	return Superblock{
		Blocks:      binary.LittleEndian.Uint32(buf[4:]),
		InodeBlocks: binary.LittleEndian.Uint32(buf[8:]),
		Inodes:      binary.LittleEndian.Uint32(buf[12:]),
	}, nil
}

func (sb *Superblock) encode(buf *[BlockSize]byte) {
	binary.LittleEndian.PutUint32(buf[0:], Magic)
	binary.LittleEndian.PutUint32(buf[4:], sb.Blocks)
	binary.LittleEndian.PutUint32(buf[8:], sb.InodeBlocks)
	binary.LittleEndian.PutUint32(buf[12:], sb.Inodes)
}

// Inode is one file's metadata record.
type Inode struct {
	Valid    bool
	Size     uint32
	Direct   [PointersPerInode]BlockID
	Indirect BlockID
}

// decodeInode reads the record at the given slot of an inode-table block.
func decodeInode(buf *[BlockSize]byte, slot uint32) Inode {
	base := slot * InodeSize

	var in Inode
	in.Valid = binary.LittleEndian.Uint32(buf[base:]) == 1
	in.Size = binary.LittleEndian.Uint32(buf[base+4:])
	for i := range in.Direct {
		in.Direct[i] = BlockID(binary.LittleEndian.Uint32(buf[base+8+4*uint32(i):]))
	}
	in.Indirect = BlockID(binary.LittleEndian.Uint32(buf[base+28:]))

	return in
}

// encodeInode writes the record into its slot of an inode-table block.
func encodeInode(in *Inode, buf *[BlockSize]byte, slot uint32) {
	base := slot * InodeSize

	var valid uint32
	if in.Valid {
		valid = 1
	}
	binary.LittleEndian.PutUint32(buf[base:], valid)
	binary.LittleEndian.PutUint32(buf[base+4:], in.Size)
	for i := range in.Direct {
		binary.LittleEndian.PutUint32(buf[base+8+4*uint32(i):], uint32(in.Direct[i]))
	}
	binary.LittleEndian.PutUint32(buf[base+28:], uint32(in.Indirect))
}

// decodePointers interprets a block as an array of block indices. A zero
// entry is an unused slot: block 0 is the superblock and can never be a
// data or pointer target.
func decodePointers(buf *[BlockSize]byte) [PointersPerBlock]BlockID {
	var ptrs [PointersPerBlock]BlockID
	for i := range ptrs {
		ptrs[i] = BlockID(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return ptrs
}

func encodePointers(ptrs *[PointersPerBlock]BlockID, buf *[BlockSize]byte) {
	for i := range ptrs {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(ptrs[i]))
	}
}
