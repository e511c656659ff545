// Package blockdev adapts a window of the internal flash's writable
// area to the tinyfs block device interface, so filesystem layers can
// mount on top of the controller without knowing about sectors or the
// erase-avoidance machinery.
package blockdev

import (
	"fmt"

	"tinygo.org/x/tinyfs"

	"github.com/pablo-mansanet-bluefruit/blue-hal/flash"
)

// Device is a tinyfs.BlockDevice backed by a run of equally sized
// writable sectors. Filesystems assume a uniform erase block, so the
// window must not mix sector sizes.
type Device struct {
	c          *flash.Controller
	start      flash.Address
	size       int64
	sectorSize int64

	// blank holds one erased sector's worth of 0xFF for EraseBlocks.
	blank []byte
}

var _ tinyfs.BlockDevice = (*Device)(nil)

// New returns a block device over [start, start+size). The window must
// lie inside the writable area, begin on a sector boundary, and span
// only sectors of one size.
func New(c *flash.Controller, start flash.Address, size int) (*Device, error) {
	if size <= 0 {
		return nil, fmt.Errorf("blockdev: invalid window size %d", size)
	}

	window := flash.Range{Low: start, High: start.Add(size)}
	if !c.Map().IsWritable(window) {
		return nil, fmt.Errorf("blockdev: window [%#x, %#x) is not writable", uint32(window.Low), uint32(window.High))
	}

	span := c.Map().Span(window)
	sectorSize := span[0].Size
	for _, s := range span {
		if s.Size != sectorSize {
			return nil, fmt.Errorf("blockdev: window mixes sector sizes %d and %d", sectorSize, s.Size)
		}
	}
	if start != span[0].Start() || window.High != span[len(span)-1].End() {
		return nil, fmt.Errorf("blockdev: window [%#x, %#x) is not sector aligned", uint32(window.Low), uint32(window.High))
	}

	blank := make([]byte, sectorSize)
	for i := range blank {
		blank[i] = 0xFF
	}
	return &Device{
		c:          c,
		start:      start,
		size:       int64(size),
		sectorSize: int64(sectorSize),
		blank:      blank,
	}, nil
}

func (d *Device) Size() int64           { return d.size }
func (d *Device) WriteBlockSize() int64 { return 4 }
func (d *Device) EraseBlockSize() int64 { return d.sectorSize }

func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	if err := d.check(off, len(p)); err != nil {
		return 0, err
	}
	if err := d.c.Read(d.start.Add(int(off)), p); err != nil {
		return 0, fmt.Errorf("blockdev: read at %d: %w", off, err)
	}
	return len(p), nil
}

func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	if err := d.check(off, len(p)); err != nil {
		return 0, err
	}
	address := d.start.Add(int(off))
	if err := flash.Retry(func() error { return d.c.Write(address, p) }); err != nil {
		return 0, fmt.Errorf("blockdev: write at %d: %w", off, err)
	}
	return len(p), nil
}

// EraseBlocks erases count erase blocks starting at block index start.
// The erase is expressed through the controller's public write surface:
// an all-0xFF rewrite leaves the sector erased.
func (d *Device) EraseBlocks(start, count int64) error {
	if start < 0 || count < 0 || (start+count)*d.sectorSize > d.size {
		return fmt.Errorf("blockdev: erase blocks [%d, %d) out of range", start, start+count)
	}
	for block := start; block < start+count; block++ {
		address := d.start.Add(int(block * d.sectorSize))
		if err := flash.Retry(func() error { return d.c.Write(address, d.blank) }); err != nil {
			return fmt.Errorf("blockdev: erase block %d: %w", block, err)
		}
	}
	return nil
}

func (d *Device) check(off int64, n int) error {
	if off < 0 || off+int64(n) > d.size {
		return fmt.Errorf("blockdev: access at %d+%d outside window of %d bytes", off, n, d.size)
	}
	return nil
}
