package sfs

import (
	"errors"
)

var errInjected = errors.New("injected device failure")

// testDevice is an in-memory Device with injectable failures.
type testDevice struct {
	data      [][BlockSize]byte
	failRead  func(BlockID) bool
	failWrite func(BlockID) bool
}

func newTestDevice(blocks uint32) *testDevice {
	return &testDevice{data: make([][BlockSize]byte, blocks)}
}

func (d *testDevice) Blocks() uint32 {
	return uint32(len(d.data))
}

func (d *testDevice) ReadBlock(n BlockID, buf *[BlockSize]byte) error {
	if d.failRead != nil && d.failRead(n) {
		return errInjected
	}
	if uint32(n) >= d.Blocks() {
		return errors.New("block out of bounds")
	}

	*buf = d.data[n]
	return nil
}

func (d *testDevice) WriteBlock(n BlockID, buf *[BlockSize]byte) error {
	if d.failWrite != nil && d.failWrite(n) {
		return errInjected
	}
	if uint32(n) >= d.Blocks() {
		return errors.New("block out of bounds")
	}

	d.data[n] = *buf
	return nil
}
