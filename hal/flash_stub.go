//go:build tinygo && baremetal && !stm32f4

package hal

type stubFlash struct{}

// NewSTM32Flash returns a stub on targets without the STM32F4 flash
// controller.
func NewSTM32Flash() FlashPeripheral { return stubFlash{} }

func (stubFlash) Busy() bool                     { return false }
func (stubFlash) WriteKey(word uint32)           { _ = word }
func (stubFlash) Locked() bool                   { return true }
func (stubFlash) Lock()                          {}
func (stubFlash) SetProgramWidth(w ProgramWidth) { _ = w }
func (stubFlash) SetProgramming(enable bool)     { _ = enable }
func (stubFlash) StartSectorErase(index uint8)   { _ = index }

func (stubFlash) ProgramWord(addr uint32, word uint32) error {
	_ = addr
	_ = word
	return ErrNotImplemented
}

func (stubFlash) Read(addr uint32, p []byte) error {
	_ = addr
	_ = p
	return ErrNotImplemented
}
