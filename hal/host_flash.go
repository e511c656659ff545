//go:build !tinygo

package hal

import (
	"encoding/binary"
	"fmt"
)

const defaultBusyPolls = 2

// HostFlash simulates the internal flash peripheral for host builds and
// tests. It backs the contiguous main memory area with a byte slice and
// models the parts of the hardware the driver depends on: the two-word
// unlock sequence, the lock/program-enable control bits, NOR program
// semantics (bits only clear), sector erase by index, and a busy flag
// that stays set for a fixed number of polls after each operation.
type HostFlash struct {
	base    uint32
	mem     []byte
	sectors []uint32 // sector sizes, ascending address order
	offsets []uint32 // sector start offsets into mem

	locked      bool
	keyStage    int
	programming bool
	widthSet    bool

	busy int

	// BusyPolls is how many Busy() polls an erase or program holds the
	// busy flag for. Tests may lower it to zero.
	BusyPolls int

	eraseCounts []int
}

// NewHostFlash returns a simulated peripheral whose main memory area
// starts at base and consists of the given sector sizes, fully erased.
func NewHostFlash(base uint32, sectorSizes []uint32) *HostFlash {
	total := uint32(0)
	offsets := make([]uint32, len(sectorSizes))
	for i, size := range sectorSizes {
		offsets[i] = total
		total += size
	}

	mem := make([]byte, total)
	for i := range mem {
		mem[i] = 0xFF
	}

	return &HostFlash{
		base:        base,
		mem:         mem,
		sectors:     append([]uint32(nil), sectorSizes...),
		offsets:     offsets,
		locked:      true,
		BusyPolls:   defaultBusyPolls,
		eraseCounts: make([]int, len(sectorSizes)),
	}
}

func (f *HostFlash) Busy() bool {
	if f.busy > 0 {
		f.busy--
		return true
	}
	return false
}

func (f *HostFlash) WriteKey(word uint32) {
	if !f.locked {
		return
	}
	if word != UnlockKeys[f.keyStage] {
		f.keyStage = 0
		return
	}
	f.keyStage++
	if f.keyStage == len(UnlockKeys) {
		f.keyStage = 0
		f.locked = false
	}
}

func (f *HostFlash) Locked() bool { return f.locked }

func (f *HostFlash) Lock() {
	f.locked = true
	f.programming = false
	f.keyStage = 0
}

func (f *HostFlash) SetProgramWidth(width ProgramWidth) {
	if f.locked {
		return
	}
	f.widthSet = width == ProgramWidthWord
}

func (f *HostFlash) SetProgramming(enable bool) {
	if f.locked {
		return
	}
	f.programming = enable
}

func (f *HostFlash) StartSectorErase(index uint8) {
	// Control register writes have no effect while locked.
	if f.locked || int(index) >= len(f.sectors) {
		return
	}
	off := f.offsets[index]
	for i := uint32(0); i < f.sectors[index]; i++ {
		f.mem[off+i] = 0xFF
	}
	f.eraseCounts[index]++
	f.busy = f.BusyPolls
}

func (f *HostFlash) ProgramWord(addr uint32, word uint32) error {
	if f.locked || !f.programming {
		return fmt.Errorf("hostflash: program at %#x while locked", addr)
	}
	if !f.widthSet {
		return fmt.Errorf("hostflash: program at %#x: parallelism not configured", addr)
	}
	if addr%4 != 0 {
		return fmt.Errorf("hostflash: program at %#x: unaligned", addr)
	}
	if addr < f.base || addr+4 > f.base+uint32(len(f.mem)) {
		return fmt.Errorf("hostflash: program at %#x: out of range", addr)
	}

	// NOR programming can only clear bits.
	off := addr - f.base
	var bytes [4]byte
	binary.LittleEndian.PutUint32(bytes[:], word)
	for i, b := range bytes {
		f.mem[off+uint32(i)] &= b
	}
	f.busy = f.BusyPolls
	return nil
}

func (f *HostFlash) Read(addr uint32, p []byte) error {
	if addr < f.base || addr+uint32(len(p)) > f.base+uint32(len(f.mem)) {
		return fmt.Errorf("hostflash: read at %#x+%d: out of range", addr, len(p))
	}
	copy(p, f.mem[addr-f.base:])
	return nil
}

// EraseCount reports how many times the sector at the given hardware
// index has been erased since construction.
func (f *HostFlash) EraseCount(index int) int {
	if index < 0 || index >= len(f.eraseCounts) {
		return 0
	}
	return f.eraseCounts[index]
}

// Bytes returns a copy of the main memory area content.
func (f *HostFlash) Bytes() []byte {
	return append([]byte(nil), f.mem...)
}
