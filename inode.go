package sfs

import (
	"fmt"
)

// tableBlock returns the inode-table block holding ino and the slot within
// that block.
func (fs *FileSystem) tableBlock(ino InodeID) (BlockID, uint32) {
	return BlockID(uint32(ino)/InodesPerBlock + 1), uint32(ino) % InodesPerBlock
}

// loadInode reads the record for ino together with its owning table block.
// The caller mutates the record, encodes it back into buf and persists buf.
func (fs *FileSystem) loadInode(ino InodeID, buf *[BlockSize]byte) (Inode, error) {
	if fs.dev == nil {
		return Inode{}, ErrNotMounted
	}
	if uint32(ino) >= fs.super.Inodes {
		return Inode{}, ErrBadInode{ino}
	}

	tbl, slot := fs.tableBlock(ino)
	if err := fs.dev.ReadBlock(tbl, buf); err != nil {
		return Inode{}, fmt.Errorf("reading inode block %d: %w", tbl, err)
	}

	return decodeInode(buf, slot), nil
}

// Create allocates the lowest-numbered free inode: valid, size zero, all
// pointers zero. The owning table block is persisted before the inode id is
// returned.
func (fs *FileSystem) Create() (InodeID, error) {
	if fs.dev == nil {
		return 0, ErrNotMounted
	}

	var buf [BlockSize]byte
	for tbl := BlockID(1); tbl <= BlockID(fs.super.InodeBlocks); tbl++ {
		if err := fs.dev.ReadBlock(tbl, &buf); err != nil {
			return 0, fmt.Errorf("creating: reading inode block %d: %w", tbl, err)
		}

		for slot := uint32(0); slot < InodesPerBlock; slot++ {
			in := decodeInode(&buf, slot)
			if in.Valid {
				continue
			}

			in = Inode{Valid: true}
			encodeInode(&in, &buf, slot)
			if err := fs.dev.WriteBlock(tbl, &buf); err != nil {
				return 0, fmt.Errorf(
					"creating: writing inode block %d: %w",
					tbl,
					err,
				)
			}

			return InodeID(uint32(tbl-1)*InodesPerBlock + slot), nil
		}
	}

	return 0, ErrNoFreeInode
}

// Remove destroys an inode and returns its blocks to the free pool. The
// cleared record is persisted before any bitmap mutation, so a write
// failure leaves both the table and the bitmap as they were.
func (fs *FileSystem) Remove(ino InodeID) error {
	var buf [BlockSize]byte
	in, err := fs.loadInode(ino, &buf)
	if err != nil {
		return fmt.Errorf("removing inode %d: %w", ino, err)
	}
	if !in.Valid {
		return fmt.Errorf("removing inode %d: %w", ino, ErrBadInode{ino})
	}

	// Gather everything the inode references before touching anything.
	// Pointer values are validated here so a corrupted record surfaces a
	// typed error instead of wrecking the bitmap.
	var owned []BlockID
	for _, b := range in.Direct {
		if b == 0 {
			continue
		}
		if uint32(b) >= fs.super.Blocks {
			return fmt.Errorf("removing inode %d: %w", ino, ErrBadPointer{b})
		}
		owned = append(owned, b)
	}
	if in.Indirect != 0 {
		if uint32(in.Indirect) >= fs.super.Blocks {
			return fmt.Errorf(
				"removing inode %d: %w",
				ino,
				ErrBadPointer{in.Indirect},
			)
		}
		owned = append(owned, in.Indirect)

		var ptrbuf [BlockSize]byte
		if err := fs.dev.ReadBlock(in.Indirect, &ptrbuf); err != nil {
			return fmt.Errorf(
				"removing inode %d: reading indirect block %d: %w",
				ino,
				in.Indirect,
				err,
			)
		}
		ptrs := decodePointers(&ptrbuf)
		for _, b := range ptrs {
			if b == 0 {
				continue
			}
			if uint32(b) >= fs.super.Blocks {
				return fmt.Errorf(
					"removing inode %d: %w",
					ino,
					ErrBadPointer{b},
				)
			}
			owned = append(owned, b)
		}
	}

	in = Inode{}
	tbl, slot := fs.tableBlock(ino)
	encodeInode(&in, &buf, slot)
	if err := fs.dev.WriteBlock(tbl, &buf); err != nil {
		return fmt.Errorf("removing inode %d: writing inode block %d: %w", ino, tbl, err)
	}

	for _, b := range owned {
		fs.releaseBlock(b)
	}

	return nil
}

// Stat returns the size of an inode in bytes.
func (fs *FileSystem) Stat(ino InodeID) (uint32, error) {
	var buf [BlockSize]byte
	in, err := fs.loadInode(ino, &buf)
	if err != nil {
		return 0, fmt.Errorf("stating inode %d: %w", ino, err)
	}
	if !in.Valid {
		return 0, fmt.Errorf("stating inode %d: %w", ino, ErrBadInode{ino})
	}

	return in.Size, nil
}
