package sfs

import (
	"fmt"
	"io"
)

// Dump writes a diagnostic report of a formatted device to w: superblock
// counts, then every valid inode with its size and block lists. It works on
// raw reads only and needs no mounted filesystem.
func Dump(dev Device, w io.Writer) error {
	var buf [BlockSize]byte
	if err := dev.ReadBlock(0, &buf); err != nil {
		return fmt.Errorf("dumping: reading superblock: %w", err)
	}

	super, err := decodeSuperblock(&buf)
	if err != nil {
		return fmt.Errorf("dumping: %w", err)
	}

	fmt.Fprintf(w, "SuperBlock:\n")
	fmt.Fprintf(w, "    magic number is valid\n")
	fmt.Fprintf(w, "    %d blocks\n", super.Blocks)
	fmt.Fprintf(w, "    %d inode blocks\n", super.InodeBlocks)
	fmt.Fprintf(w, "    %d inodes\n", super.Inodes)

	for tbl := BlockID(1); tbl <= BlockID(super.InodeBlocks); tbl++ {
		if err := dev.ReadBlock(tbl, &buf); err != nil {
			return fmt.Errorf("dumping: reading inode block %d: %w", tbl, err)
		}

		for slot := uint32(0); slot < InodesPerBlock; slot++ {
			in := decodeInode(&buf, slot)
			if !in.Valid {
				continue
			}

			fmt.Fprintf(w, "Inode %d:\n", uint32(tbl-1)*InodesPerBlock+slot)
			fmt.Fprintf(w, "    size: %d bytes\n", in.Size)

			fmt.Fprintf(w, "    direct blocks:")
			for _, b := range in.Direct {
				if b != 0 {
					fmt.Fprintf(w, " %d", b)
				}
			}
			fmt.Fprintf(w, "\n")

			if in.Indirect == 0 {
				continue
			}

			fmt.Fprintf(w, "    indirect block: %d\n", in.Indirect)

			var ptrbuf [BlockSize]byte
			if err := dev.ReadBlock(in.Indirect, &ptrbuf); err != nil {
				return fmt.Errorf(
					"dumping: reading indirect block %d: %w",
					in.Indirect,
					err,
				)
			}
			ptrs := decodePointers(&ptrbuf)

			fmt.Fprintf(w, "    indirect data blocks:")
			for _, b := range ptrs {
				if b != 0 {
					fmt.Fprintf(w, " %d", b)
				}
			}
			fmt.Fprintf(w, "\n")
		}
	}

	return nil
}
