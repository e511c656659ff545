//go:build tinygo && baremetal && stm32f4

package hal

import (
	"fmt"
	"unsafe"

	"device/stm32"
	"runtime/volatile"
)

type stm32Flash struct{}

// NewSTM32Flash returns the register binding for the STM32F4 internal
// flash controller. There is exactly one; the caller owns it.
func NewSTM32Flash() FlashPeripheral {
	return &stm32Flash{}
}

func (d *stm32Flash) Busy() bool {
	return stm32.FLASH.SR.HasBits(stm32.FLASH_SR_BSY)
}

func (d *stm32Flash) WriteKey(word uint32) {
	stm32.FLASH.KEYR.Set(word)
}

func (d *stm32Flash) Locked() bool {
	return stm32.FLASH.CR.HasBits(stm32.FLASH_CR_LOCK)
}

func (d *stm32Flash) Lock() {
	stm32.FLASH.CR.ClearBits(stm32.FLASH_CR_PG)
	stm32.FLASH.CR.SetBits(stm32.FLASH_CR_LOCK)
}

func (d *stm32Flash) SetProgramWidth(width ProgramWidth) {
	stm32.FLASH.CR.ReplaceBits(uint32(width), 0x3, uint8(stm32.FLASH_CR_PSIZE_Pos))
}

func (d *stm32Flash) SetProgramming(enable bool) {
	if enable {
		stm32.FLASH.CR.SetBits(stm32.FLASH_CR_PG)
	} else {
		stm32.FLASH.CR.ClearBits(stm32.FLASH_CR_PG)
	}
}

func (d *stm32Flash) StartSectorErase(index uint8) {
	cr := stm32.FLASH.CR.Get()
	cr &^= stm32.FLASH_CR_SNB_Msk
	cr |= stm32.FLASH_CR_SER | uint32(index)<<stm32.FLASH_CR_SNB_Pos | stm32.FLASH_CR_STRT
	stm32.FLASH.CR.Set(cr)
}

// ProgramWord writes straight to the memory-mapped flash. Bounds are
// validated by the engine before any call lands here; this boundary
// only rejects what would fault outright.
func (d *stm32Flash) ProgramWord(addr uint32, word uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("stm32 flash: program at %#x: unaligned", addr)
	}
	(*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Set(word)
	return nil
}

func (d *stm32Flash) Read(addr uint32, p []byte) error {
	for i := range p {
		p[i] = (*volatile.Register8)(unsafe.Pointer(uintptr(addr) + uintptr(i))).Get()
	}
	return nil
}
