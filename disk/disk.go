// Package disk implements block devices for the sfs engine: fixed-size
// block I/O with bounds checking over a flat file or an in-memory buffer.
package disk

import (
	"errors"
	"fmt"
	"os"

	"github.com/keks/sfs"
)

// ErrOutOfBounds is returned for block indices outside the device extent.
var ErrOutOfBounds = errors.New("block out of bounds")

// Disk is a fixed-extent block device over a lower ReadWriterAt. It keeps
// read/write counters the way the reference disk emulator does.
type Disk struct {
	lower  sfs.ReadWriterAt
	file   *os.File // non-nil when the Disk owns the backing file
	blocks uint32

	reads  uint64
	writes uint64
}

// New wraps an existing ReadWriterAt as a device of the given block count.
func New(rwa sfs.ReadWriterAt, blocks uint32) *Disk {
	return &Disk{
		lower:  rwa,
		blocks: blocks,
	}
}

// NewMemory returns a device backed by a buffer. Useful for tests and
// scratch images.
func NewMemory(blocks uint32) *Disk {
	return New(make(memory, int64(blocks)*sfs.BlockSize), blocks)
}

// Open opens or creates a disk image at path with the given block count,
// truncating the file to blocks*BlockSize when the size differs.
func Open(path string, blocks uint32) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening disk image %q: %w", path, err)
	}

	want := int64(blocks) * sfs.BlockSize
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening disk image %q: %w", path, err)
	}
	if fi.Size() != want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, fmt.Errorf("sizing disk image %q: %w", path, err)
		}
	}

	d := New(f, blocks)
	d.file = f
	return d, nil
}

// OpenImage opens an existing disk image, deriving the block count from the
// file size.
func OpenImage(path string) (*Disk, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening disk image %q: %w", path, err)
	}
	if fi.Size() == 0 || fi.Size()%sfs.BlockSize != 0 {
		return nil, fmt.Errorf(
			"opening disk image %q: size %d is not a whole number of blocks",
			path,
			fi.Size(),
		)
	}

	return Open(path, uint32(fi.Size()/sfs.BlockSize))
}

// Blocks returns the number of addressable blocks.
func (d *Disk) Blocks() uint32 {
	return d.blocks
}

// ReadBlock fills buf with the contents of block n.
func (d *Disk) ReadBlock(n sfs.BlockID, buf *[sfs.BlockSize]byte) error {
	if uint32(n) >= d.blocks {
		return fmt.Errorf("disk: read block %d of %d: %w", n, d.blocks, ErrOutOfBounds)
	}

	if _, err := d.lower.ReadAt(buf[:], int64(n)*sfs.BlockSize); err != nil {
		return fmt.Errorf("disk: read block %d: %w", n, err)
	}

	d.reads++
	return nil
}

// WriteBlock persists buf as the contents of block n.
func (d *Disk) WriteBlock(n sfs.BlockID, buf *[sfs.BlockSize]byte) error {
	if uint32(n) >= d.blocks {
		return fmt.Errorf("disk: write block %d of %d: %w", n, d.blocks, ErrOutOfBounds)
	}

	if _, err := d.lower.WriteAt(buf[:], int64(n)*sfs.BlockSize); err != nil {
		return fmt.Errorf("disk: write block %d: %w", n, err)
	}

	d.writes++
	return nil
}

// Reads returns the number of successful block reads.
func (d *Disk) Reads() uint64 { return d.reads }

// Writes returns the number of successful block writes.
func (d *Disk) Writes() uint64 { return d.writes }

// Close releases the backing file if the Disk owns one.
func (d *Disk) Close() error {
	if d.file == nil {
		return nil
	}
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("closing disk image: %w", err)
	}
	d.file = nil
	return nil
}

// memory is a fixed-size in-memory ReadWriterAt.
type memory []byte

func (m memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m)) {
		return 0, fmt.Errorf("memory: read at %d: %w", off, ErrOutOfBounds)
	}

	n := copy(p, m[off:])
	if n < len(p) {
		return n, fmt.Errorf("memory: read at %d: %w", off, ErrOutOfBounds)
	}
	return n, nil
}

func (m memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m)) {
		return 0, fmt.Errorf("memory: write at %d: %w", off, ErrOutOfBounds)
	}

	return copy(m[off:], p), nil
}
