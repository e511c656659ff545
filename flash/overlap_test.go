package flash

import (
	"bytes"
	"testing"
)

func TestOverlapDecompositionSplitsAcrossSectors(t *testing.T) {
	// 24 bytes starting 8 bytes before the 64K/128K sector boundary.
	boundary := STM32F412.Sectors()[5].Start()
	start := boundary.Add(-8)
	data := make([]byte, 24)
	for i := range data {
		data[i] = byte(i)
	}

	it := STM32F412.Overlaps(data, start)

	first, ok := it.Next()
	if !ok {
		t.Fatal("expected a first sub-write")
	}
	if first.Sector != STM32F412.Sectors()[4] {
		t.Fatalf("first sub-write sector: got %+v", first.Sector)
	}
	if first.Address != start {
		t.Fatalf("first sub-write address: got %#x, want %#x", uint32(first.Address), uint32(start))
	}
	if !bytes.Equal(first.Data, data[:8]) {
		t.Fatalf("first sub-write data: got %x", first.Data)
	}

	second, ok := it.Next()
	if !ok {
		t.Fatal("expected a second sub-write")
	}
	if second.Sector != STM32F412.Sectors()[5] {
		t.Fatalf("second sub-write sector: got %+v", second.Sector)
	}
	if second.Address != boundary {
		t.Fatalf("second sub-write address: got %#x, want %#x", uint32(second.Address), uint32(boundary))
	}
	if !bytes.Equal(second.Data, data[8:]) {
		t.Fatalf("second sub-write data: got %x", second.Data)
	}

	if _, ok := it.Next(); ok {
		t.Fatal("iterator should be exhausted after the spanned sectors")
	}
	if _, ok := it.Next(); ok {
		t.Fatal("iterator must stay exhausted")
	}
}

func TestOverlapDecompositionSingleSector(t *testing.T) {
	start := STM32F412.WritableStart().Add(16)
	data := []byte{1, 2, 3, 4}

	it := STM32F412.Overlaps(data, start)
	sub, ok := it.Next()
	if !ok {
		t.Fatal("expected one sub-write")
	}
	if sub.Address != start || !bytes.Equal(sub.Data, data) {
		t.Fatalf("sub-write: got %#x %x", uint32(sub.Address), sub.Data)
	}
	if _, ok := it.Next(); ok {
		t.Fatal("expected exactly one sub-write")
	}
}
