//go:build !tinygo

package hal

import (
	"bytes"
	"testing"
)

const testBase = 0x0800_0000

func newTestFlash() *HostFlash {
	f := NewHostFlash(testBase, []uint32{1024, 1024, 2048})
	f.BusyPolls = 0
	return f
}

func unlock(f *HostFlash) {
	f.WriteKey(UnlockKeys[0])
	f.WriteKey(UnlockKeys[1])
	f.SetProgramWidth(ProgramWidthWord)
}

func TestHostFlashUnlockSequence(t *testing.T) {
	f := newTestFlash()
	if !f.Locked() {
		t.Fatal("flash must start locked")
	}

	// A wrong word anywhere in the sequence keeps the peripheral locked.
	f.WriteKey(UnlockKeys[0])
	f.WriteKey(0xDEADBEEF)
	f.WriteKey(UnlockKeys[1])
	if !f.Locked() {
		t.Fatal("broken key sequence must not unlock")
	}

	f.WriteKey(UnlockKeys[0])
	f.WriteKey(UnlockKeys[1])
	if f.Locked() {
		t.Fatal("correct key sequence should unlock")
	}

	f.Lock()
	if !f.Locked() {
		t.Fatal("Lock should re-lock")
	}
}

func TestHostFlashProgramRequiresUnlock(t *testing.T) {
	f := newTestFlash()
	if err := f.ProgramWord(testBase, 0); err == nil {
		t.Fatal("programming while locked must fail")
	}

	unlock(f)
	if err := f.ProgramWord(testBase, 0); err == nil {
		t.Fatal("programming without the program-enable bit must fail")
	}

	f.SetProgramming(true)
	if err := f.ProgramWord(testBase, 0x00FF00FF); err != nil {
		t.Fatalf("ProgramWord: %v", err)
	}
}

func TestHostFlashProgramOnlyClearsBits(t *testing.T) {
	f := newTestFlash()
	unlock(f)
	f.SetProgramming(true)

	if err := f.ProgramWord(testBase, 0x0F0F0F0F); err != nil {
		t.Fatalf("ProgramWord: %v", err)
	}
	// Attempting to set bits back to 1 has no effect on those cells.
	if err := f.ProgramWord(testBase, 0xF0F0F003); err != nil {
		t.Fatalf("ProgramWord: %v", err)
	}

	got := make([]byte, 4)
	if err := f.Read(testBase, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte{0x03, 0x00, 0x00, 0x00}) {
		t.Fatalf("NOR program: got %x, want 03000000", got)
	}
}

func TestHostFlashSectorErase(t *testing.T) {
	f := newTestFlash()
	unlock(f)
	f.SetProgramming(true)
	if err := f.ProgramWord(testBase+1024, 0); err != nil {
		t.Fatalf("ProgramWord: %v", err)
	}

	// Erase commands are ignored while locked.
	f.Lock()
	f.StartSectorErase(1)
	if f.EraseCount(1) != 0 {
		t.Fatal("erase while locked must be ignored")
	}

	unlock(f)
	f.StartSectorErase(1)
	if f.EraseCount(1) != 1 {
		t.Fatalf("EraseCount: got %d, want 1", f.EraseCount(1))
	}
	got := make([]byte, 4)
	if err := f.Read(testBase+1024, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Fatalf("erased sector: got %x, want all FF", got)
	}
}

func TestHostFlashBusyCountdown(t *testing.T) {
	f := newTestFlash()
	f.BusyPolls = 2
	unlock(f)
	f.StartSectorErase(0)

	polls := 0
	for f.Busy() {
		polls++
		if polls > 10 {
			t.Fatal("busy flag never cleared")
		}
	}
	if polls != 2 {
		t.Fatalf("busy for %d polls, want 2", polls)
	}
}

func TestHostFlashReadBounds(t *testing.T) {
	f := newTestFlash()
	if err := f.Read(testBase+4096-2, make([]byte, 4)); err == nil {
		t.Fatal("read past the backing area must fail")
	}
	if err := f.Read(testBase-4, make([]byte, 4)); err == nil {
		t.Fatal("read below the base must fail")
	}
}
