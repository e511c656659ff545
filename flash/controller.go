package flash

import (
	"encoding/binary"
	"fmt"

	"github.com/pablo-mansanet-bluefruit/blue-hal/hal"
)

// transferSize is the staging buffer used by WriteFromBlocks to
// amortize the per-sector decision logic over many small inputs.
const transferSize = 4 * kb

// Controller drives the MCU's internal NOR flash. It exclusively owns
// the peripheral for its lifetime: no other code may touch the flash
// control registers while a Controller exists.
//
// Write, Erase and the internal primitives never spin. When the
// peripheral is mid-operation they return ErrWouldBlock and the caller
// retries, typically through Block.
type Controller struct {
	dev hal.FlashPeripheral
	mem MemoryMap

	// scratch holds one full sector during erase-and-rewrite, sized to
	// the largest sector in the map.
	scratch []byte
}

// NewController validates the memory map and takes ownership of the
// peripheral. A malformed map (non-contiguous or invalid sectors) is a
// build-configuration defect: construction panics rather than handing
// out a driver that could erase the wrong sector.
func NewController(dev hal.FlashPeripheral, mem MemoryMap) *Controller {
	if !mem.sound() {
		panic("flash: memory map is not sound")
	}
	return &Controller{
		dev:     dev,
		mem:     mem,
		scratch: make([]byte, mem.maxSectorSize()),
	}
}

// Label identifies the concrete driver for diagnostics.
func (c *Controller) Label() string { return "stm32f4 flash (Internal)" }

// Map returns the memory map the controller was built with.
func (c *Controller) Map() MemoryMap { return c.mem }

// Range returns the half-open bounds of the writable area, the only
// addresses external callers may target.
func (c *Controller) Range() (Address, Address) {
	return c.mem.WritableStart(), c.mem.WritableEnd()
}

// Read copies len(p) bytes starting at address. Reads go straight
// through the memory-mapped space: no peripheral operation, no
// blocking.
func (c *Controller) Read(address Address, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	r := Range{Low: address, High: address.Add(len(p))}
	if !c.mem.IsWritable(r) {
		return ErrMemoryNotReachable
	}
	if err := c.dev.Read(uint32(address), p); err != nil {
		return fmt.Errorf("flash: read at %#x: %w", uint32(address), err)
	}
	return nil
}

// Write stores p at address, splitting the request into per-sector
// operations in ascending address order. Each sector is either
// programmed in place (when the new bytes only clear bits of the
// current content) or erased and rewritten with the untouched remainder
// of the sector preserved.
func (c *Controller) Write(address Address, p []byte) error {
	if uint32(address)%4 != 0 {
		return ErrMisalignedAccess
	}
	if len(p) == 0 {
		return nil
	}
	r := Range{Low: address, High: address.Add(len(p))}
	if !c.mem.IsWritable(r) {
		return ErrMemoryNotReachable
	}

	// Early yield if an operation is already in flight.
	if c.dev.Busy() {
		return ErrWouldBlock
	}

	it := c.mem.Overlaps(p, address)
	for sub, ok := it.Next(); ok; sub, ok = it.Next() {
		sector := sub.Sector
		content := c.scratch[:sector.Size]
		offset := sub.Address.Diff(sector.Start())

		if err := c.Read(sector.Start(), content); err != nil {
			return err
		}
		if isBitSubset(sub.Data, content[offset:]) {
			// The new bytes only clear bits: program in place,
			// skipping the erase cycle.
			if err := Retry(func() error { return c.program(sub.Data, sector, sub.Address) }); err != nil {
				return err
			}
			continue
		}
		if err := Retry(func() error { return c.eraseSector(sector) }); err != nil {
			return err
		}
		copy(content[offset:], sub.Data)
		if err := Retry(func() error { return c.program(content, sector, sector.Start()) }); err != nil {
			return err
		}
	}
	return nil
}

// Erase erases every writable sector. Reserved, system, OTP and option
// byte sectors are never touched by this path. Returns ErrWouldBlock
// only when the peripheral is busy before the first sector; once
// underway, each sector's erase is driven to completion so every
// writable sector is erased exactly once per call.
func (c *Controller) Erase() error {
	if c.dev.Busy() {
		return ErrWouldBlock
	}
	for _, s := range c.mem.Sectors() {
		if !s.IsWritable() {
			continue
		}
		sector := s
		if err := Retry(func() error { return c.eraseSector(sector) }); err != nil {
			return err
		}
	}
	return nil
}

// WriteFromBlocks batches fixed-size chunks pulled from next into
// transfer-buffer sized writes starting at address. next returns
// ok=false once the input is exhausted; every chunk must be exactly
// blockSize bytes. Each flush blocks until the underlying write
// completes.
func (c *Controller) WriteFromBlocks(address Address, blockSize int, next func() ([]byte, bool)) error {
	if blockSize <= 0 || transferSize%blockSize != 0 {
		panic("flash: transfer size is not a multiple of the block size")
	}

	buf := make([]byte, transferSize)
	index := 0
	for {
		chunk, ok := next()
		if !ok {
			break
		}
		if len(chunk) != blockSize {
			return ErrMisalignedAccess
		}
		copy(buf[index%transferSize:], chunk)
		index += blockSize

		if index%transferSize == 0 {
			if err := Retry(func() error { return c.Write(address.Add(index-transferSize), buf) }); err != nil {
				return err
			}
		}
	}

	remainder := buf[:index%transferSize]
	return Retry(func() error { return c.Write(address.Add(index-len(remainder)), remainder) })
}

// unlock makes the peripheral accept erase and program commands, and
// configures word-wide parallelism for the 3.3V supply range.
func (c *Controller) unlock() error {
	if c.dev.Busy() {
		return ErrWouldBlock
	}
	c.dev.WriteKey(hal.UnlockKeys[0])
	c.dev.WriteKey(hal.UnlockKeys[1])
	c.dev.SetProgramWidth(hal.ProgramWidthWord)
	return nil
}

// eraseSector starts a sector erase and re-locks the peripheral. The
// lock is unconditional cleanup: it happens on every exit path.
func (c *Controller) eraseSector(sector Sector) error {
	index, ok := c.mem.eraseIndex(sector)
	if !ok {
		return ErrMemoryNotReachable
	}
	if err := c.unlock(); err != nil {
		return err
	}
	defer c.dev.Lock()
	c.dev.StartSectorErase(index)
	return nil
}

// program writes p as 4-byte words to the mapped address range, which
// must fall inside the given sector. The trailing word of an uneven
// request is padded with 0xFF so no bits outside p are cleared.
func (c *Controller) program(p []byte, sector Sector, address Address) error {
	if address < sector.Start() || address.Add(len(p)) > sector.End() {
		return ErrMisalignedAccess
	}
	if err := c.unlock(); err != nil {
		return err
	}
	defer c.dev.Lock()
	c.dev.SetProgramming(true)

	for i := 0; i < len(p); i += 4 {
		word := [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
		copy(word[:], p[i:])
		addr := uint32(address) + uint32(i)
		if err := c.dev.ProgramWord(addr, binary.LittleEndian.Uint32(word[:])); err != nil {
			return fmt.Errorf("flash: program at %#x: %w", addr, err)
		}
	}
	return nil
}
