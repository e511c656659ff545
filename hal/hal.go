package hal

import "errors"

var ErrNotImplemented = errors.New("not implemented")

// UnlockKeys is the fixed two-word sequence accepted by the unlock-key
// register (STM32F4 reference manual, section 3.5.1).
var UnlockKeys = [2]uint32{0x45670123, 0xCDEF89AB}

// ProgramWidth selects the peripheral's program parallelism.
type ProgramWidth uint8

const (
	// ProgramWidthWord is 32-bit word parallelism, valid at 3.3V supply.
	ProgramWidthWord ProgramWidth = 0b10
)

// FlashPeripheral is the register-level interface to the MCU's internal
// flash controller. It is the only place raw hardware access happens;
// everything above it works in validated addresses and ranges.
//
// The peripheral is a single global resource with exactly one owner.
// Erase and program are slow: callers observe progress through Busy and
// must never touch the control machinery while it reports true.
type FlashPeripheral interface {
	// Busy reads the status register's busy bit.
	Busy() bool

	// WriteKey writes one word to the unlock-key register. Programming
	// unlocks only after the fixed two-word key sequence; any other
	// sequence leaves the peripheral locked.
	WriteKey(word uint32)

	// Locked reads the control register's lock bit.
	Locked() bool

	// Lock sets the control register's lock bit, restoring the safe
	// default. Locking also disables programming.
	Lock()

	// SetProgramWidth configures program parallelism. Requires unlock.
	SetProgramWidth(width ProgramWidth)

	// SetProgramming toggles the program-enable bit. Requires unlock.
	SetProgramming(enable bool)

	// StartSectorErase selects the sector by hardware index and starts
	// the erase. Requires unlock. Completion is observed via Busy.
	StartSectorErase(index uint8)

	// ProgramWord writes one 32-bit word (little endian) to the mapped
	// address. Only legal while unlocked with programming enabled and
	// addr inside a writable sector; misuse is an error.
	ProgramWord(addr uint32, word uint32) error

	// Read copies len(p) bytes from the mapped address space. Reading
	// is always safe and never blocks.
	Read(addr uint32, p []byte) error
}
