package sfs

import (
	"fmt"
)

// resolve maps a logical block number within a file to the concrete block
// backing it: direct pointers first, then the single indirect level. A zero
// result means the range is addressable but the block was never written.
func (fs *FileSystem) resolve(in *Inode, logical uint32) (BlockID, error) {
	if logical < PointersPerInode {
		return in.Direct[logical], nil
	}

	q := logical - PointersPerInode
	if q >= PointersPerBlock {
		return 0, ErrOffsetTooLarge
	}
	if in.Indirect == 0 {
		return 0, nil
	}

	var buf [BlockSize]byte
	if err := fs.dev.ReadBlock(in.Indirect, &buf); err != nil {
		return 0, fmt.Errorf("reading indirect block %d: %w", in.Indirect, err)
	}
	ptrs := decodePointers(&buf)

	return ptrs[q], nil
}

// Read copies up to len(p) bytes starting at offset into p. Reads past the
// end of the file are clamped to the file size; blocks inside the range
// that were never written read as zeros. Returns the number of bytes
// copied.
func (fs *FileSystem) Read(ino InodeID, p []byte, offset uint32) (int, error) {
	var tblbuf [BlockSize]byte
	in, err := fs.loadInode(ino, &tblbuf)
	if err != nil {
		return 0, fmt.Errorf("reading inode %d: %w", ino, err)
	}
	if !in.Valid {
		return 0, fmt.Errorf("reading inode %d: %w", ino, ErrBadInode{ino})
	}
	if offset >= in.Size {
		return 0, fmt.Errorf("reading inode %d: %w", ino, ErrOffsetOutOfRange)
	}

	// clamp to the bytes on hand; compare in uint64 so giant buffers
	// cannot wrap the count
	n := in.Size - offset
	if uint64(len(p)) < uint64(n) {
		n = uint32(len(p))
	}

	var copied uint32
	for copied < n {
		pos := offset + copied
		within := pos % BlockSize
		chunk := minu32(BlockSize-within, n-copied)

		b, err := fs.resolve(&in, pos/BlockSize)
		if err != nil {
			return int(copied), fmt.Errorf("reading inode %d: %w", ino, err)
		}

		dst := p[copied : copied+chunk]
		if b == 0 {
			for i := range dst {
				dst[i] = 0
			}
		} else {
			var blk [BlockSize]byte
			if err := fs.dev.ReadBlock(b, &blk); err != nil {
				return int(copied), fmt.Errorf(
					"reading inode %d: block %d: %w",
					ino,
					b,
					err,
				)
			}
			copy(dst, blk[within:within+chunk])
		}

		copied += chunk
	}

	return int(n), nil
}

// writeTx records the blocks a single Write call has claimed so a failure
// can hand all of them back, restoring the bitmap to its pre-call state.
type writeTx struct {
	fs        *FileSystem
	allocated []BlockID
}

func (tx *writeTx) alloc() (BlockID, error) {
	b, err := tx.fs.allocBlock()
	if err != nil {
		return 0, err
	}
	tx.allocated = append(tx.allocated, b)
	return b, nil
}

func (tx *writeTx) rollback() {
	for _, b := range tx.allocated {
		tx.fs.releaseBlock(b)
	}
}

// Write copies len(p) bytes from p into the file starting at offset,
// allocating data blocks and the indirect pointer block lazily. Metadata is
// persisted only after every data block write has succeeded; on any failure
// the blocks claimed by this call are released and the inode is left as it
// was. Returns len(p) on success.
func (fs *FileSystem) Write(ino InodeID, p []byte, offset uint32) (int, error) {
	var tblbuf [BlockSize]byte
	in, err := fs.loadInode(ino, &tblbuf)
	if err != nil {
		return 0, fmt.Errorf("writing inode %d: %w", ino, err)
	}
	if !in.Valid {
		return 0, fmt.Errorf("writing inode %d: %w", ino, ErrBadInode{ino})
	}

	if uint64(offset)+uint64(len(p)) > MaxFileSize {
		return 0, fmt.Errorf("writing inode %d: %w", ino, ErrOffsetTooLarge)
	}
	n := uint32(len(p))
	if n == 0 {
		return 0, nil
	}

	// The pointer block is loaded (or freshly created) at most once per
	// call and persisted at the end if any entry changed. origPtrs keeps
	// the pre-call entries of a pre-existing pointer block: once that
	// block has been rewritten, a late failure must put the original
	// entries back, or the on-disk inode would keep reaching blocks the
	// rolled-back bitmap considers free.
	var ptrs, origPtrs [PointersPerBlock]BlockID
	var ptrsLoaded, ptrsDirty bool
	var indirectPreexisting, ptrsPersisted bool

	tx := writeTx{fs: fs}
	fail := func(err error) (int, error) {
		if ptrsPersisted && indirectPreexisting {
			var buf [BlockSize]byte
			encodePointers(&origPtrs, &buf)
			// best effort: the rollback itself cannot fail
			fs.dev.WriteBlock(in.Indirect, &buf)
		}
		tx.rollback()
		return 0, fmt.Errorf("writing inode %d: %w", ino, err)
	}

	var written uint32
	for written < n {
		pos := offset + written
		logical := pos / BlockSize
		within := pos % BlockSize
		chunk := minu32(BlockSize-within, n-written)

		var b BlockID
		if logical < PointersPerInode {
			b = in.Direct[logical]
			if b == 0 {
				if b, err = tx.alloc(); err != nil {
					return fail(err)
				}
				in.Direct[logical] = b
			}
		} else {
			q := logical - PointersPerInode
			if in.Indirect == 0 {
				ib, err := tx.alloc()
				if err != nil {
					return fail(err)
				}
				in.Indirect = ib
				ptrsLoaded = true
				ptrsDirty = true
			} else if !ptrsLoaded {
				var buf [BlockSize]byte
				if err := fs.dev.ReadBlock(in.Indirect, &buf); err != nil {
					return fail(fmt.Errorf(
						"reading indirect block %d: %w",
						in.Indirect,
						err,
					))
				}
				ptrs = decodePointers(&buf)
				origPtrs = ptrs
				ptrsLoaded = true
				indirectPreexisting = true
			}

			b = ptrs[q]
			if b == 0 {
				if b, err = tx.alloc(); err != nil {
					return fail(err)
				}
				ptrs[q] = b
				ptrsDirty = true
			}
		}

		var blk [BlockSize]byte
		if chunk < BlockSize {
			// Partial chunk: keep the rest of the block's bytes.
			if err := fs.dev.ReadBlock(b, &blk); err != nil {
				return fail(fmt.Errorf("reading block %d: %w", b, err))
			}
		}
		copy(blk[within:], p[written:written+chunk])
		if err := fs.dev.WriteBlock(b, &blk); err != nil {
			return fail(fmt.Errorf("writing block %d: %w", b, err))
		}

		written += chunk
	}

	if ptrsDirty {
		var buf [BlockSize]byte
		encodePointers(&ptrs, &buf)
		ptrsPersisted = true
		if err := fs.dev.WriteBlock(in.Indirect, &buf); err != nil {
			return fail(fmt.Errorf(
				"writing indirect block %d: %w",
				in.Indirect,
				err,
			))
		}
	}

	if end := offset + n; end > in.Size {
		in.Size = end
	}
	tbl, slot := fs.tableBlock(ino)
	encodeInode(&in, &tblbuf, slot)
	if err := fs.dev.WriteBlock(tbl, &tblbuf); err != nil {
		return fail(fmt.Errorf("writing inode block %d: %w", tbl, err))
	}

	return int(n), nil
}

func minu32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
