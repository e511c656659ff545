package flash

import "math"

// Address is an absolute 32-bit location in the MCU address space.
type Address uint32

// Add offsets the address by n bytes, saturating at the top of the
// address space.
func (a Address) Add(n int) Address {
	if n < 0 {
		return a.sub(-n)
	}
	if uint64(a)+uint64(n) > math.MaxUint32 {
		return Address(math.MaxUint32)
	}
	return a + Address(n)
}

func (a Address) sub(n int) Address {
	if Address(n) > a {
		return 0
	}
	return a - Address(n)
}

// Diff returns the byte distance from b up to a, saturating at zero.
func (a Address) Diff(b Address) int {
	if b > a {
		return 0
	}
	return int(a - b)
}

// Range is a half-open interval [Low, High) of addresses.
type Range struct {
	Low  Address
	High Address
}

// Overlaps reports whether the range intersects the sector, in any
// orientation: left-partial, right-partial, fully containing or fully
// contained. Touching a sector boundary from the outside is not overlap,
// and an empty range overlaps nothing.
func (r Range) Overlaps(s Sector) bool {
	return r.High > r.Low && r.Low < s.End() && r.High > s.Start()
}
