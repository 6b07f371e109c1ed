package sfs

import (
	"fmt"
)

// bitmap tracks which blocks are owned by some valid inode or reserved for
// layout metadata. It lives only in memory: Mount rebuilds it from the
// inode table, Unmount discards it.
type bitmap struct {
	bits []byte
	n    uint32
}

func newBitmap(n uint32) *bitmap {
	return &bitmap{
		bits: make([]byte, (n+7)/8),
		n:    n,
	}
}

func (bm *bitmap) set(b BlockID) {
	bm.bits[b/8] |= 1 << (b % 8)
}

func (bm *bitmap) clear(b BlockID) {
	bm.bits[b/8] &^= 1 << (b % 8)
}

func (bm *bitmap) inUse(b BlockID) bool {
	return bm.bits[b/8]&(1<<(b%8)) != 0
}

// findFree returns the lowest free block index.
func (bm *bitmap) findFree() (BlockID, bool) {
	for byt := range bm.bits {
		if bm.bits[byt] == 0xff {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			b := BlockID(byt*8 + bit)
			if b >= BlockID(bm.n) {
				return 0, false
			}
			if bm.bits[byt]&(1<<bit) == 0 {
				return b, true
			}
		}
	}
	return 0, false
}

// inUseCount returns the number of blocks currently marked in use.
func (bm *bitmap) inUseCount() uint32 {
	var count uint32
	for b := BlockID(0); b < BlockID(bm.n); b++ {
		if bm.inUse(b) {
			count++
		}
	}
	return count
}

// buildBitmap reconstructs the free-block bitmap by scanning the inode
// table: block 0 and the table blocks are always in use, and so is every
// block reachable from a valid inode, directly or through its indirect
// pointer block.
func buildBitmap(dev Device, super *Superblock) (*bitmap, error) {
	bm := newBitmap(super.Blocks)

	bm.set(0)
	for b := BlockID(1); b <= BlockID(super.InodeBlocks); b++ {
		bm.set(b)
	}

	var buf [BlockSize]byte
	for tbl := BlockID(1); tbl <= BlockID(super.InodeBlocks); tbl++ {
		if err := dev.ReadBlock(tbl, &buf); err != nil {
			return nil, fmt.Errorf("scanning inode block %d: %w", tbl, err)
		}

		for slot := uint32(0); slot < InodesPerBlock; slot++ {
			in := decodeInode(&buf, slot)
			if !in.Valid {
				continue
			}

			for _, b := range in.Direct {
				if b == 0 {
					continue
				}
				if uint32(b) >= super.Blocks {
					return nil, fmt.Errorf(
						"scanning inode table: %w",
						ErrBadPointer{b},
					)
				}
				bm.set(b)
			}

			if in.Indirect == 0 {
				continue
			}
			if uint32(in.Indirect) >= super.Blocks {
				return nil, fmt.Errorf(
					"scanning inode table: %w",
					ErrBadPointer{in.Indirect},
				)
			}
			bm.set(in.Indirect)

			var ptrbuf [BlockSize]byte
			if err := dev.ReadBlock(in.Indirect, &ptrbuf); err != nil {
				return nil, fmt.Errorf(
					"scanning indirect block %d: %w",
					in.Indirect,
					err,
				)
			}
			ptrs := decodePointers(&ptrbuf)
			for _, b := range ptrs {
				if b == 0 {
					continue
				}
				if uint32(b) >= super.Blocks {
					return nil, fmt.Errorf(
						"scanning inode table: %w",
						ErrBadPointer{b},
					)
				}
				bm.set(b)
			}
		}
	}

	return bm, nil
}
