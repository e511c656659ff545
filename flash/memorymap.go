package flash

// Block tags the purpose of a sector in the memory map.
type Block uint8

const (
	// BlockReserved is main memory set aside for immutable data
	// (e.g. a bootloader image).
	BlockReserved Block = iota
	// BlockMain is main memory where the application is written.
	BlockMain
	BlockSystemMemory
	BlockOneTimeProgrammable
	BlockOptionBytes
)

// Sector is a hardware-erasable unit of flash with a purpose tag and an
// address range.
type Sector struct {
	Block    Block
	Location Address
	Size     uint32
}

func NewSector(block Block, location Address, size uint32) Sector {
	return Sector{Block: block, Location: location, Size: size}
}

func (s Sector) Start() Address { return s.Location }
func (s Sector) End() Address   { return s.Location.Add(int(s.Size)) }

// IsWritable reports whether the sector may be erased and programmed
// through the public interface.
func (s Sector) IsWritable() bool { return s.Block == BlockMain }

func (s Sector) Contains(a Address) bool { return s.Start() <= a && a < s.End() }

// inMainMemoryArea reports whether the sector belongs to the contiguous
// main memory area (the region the peripheral addresses by erase index).
func (s Sector) inMainMemoryArea() bool {
	return s.Block == BlockMain || s.Block == BlockReserved
}

// MemoryMap is the fixed, per-variant table of sectors. It is declared
// once and never mutated.
type MemoryMap struct {
	sectors []Sector
}

func NewMemoryMap(sectors []Sector) MemoryMap {
	return MemoryMap{sectors: sectors}
}

// Sectors returns the full sector table in declaration order.
func (m MemoryMap) Sectors() []Sector { return m.sectors }

// MainArea returns the sectors of the contiguous main memory area
// (reserved + main), in ascending address order.
func (m MemoryMap) MainArea() []Sector {
	var area []Sector
	for _, s := range m.sectors {
		if s.inMainMemoryArea() {
			area = append(area, s)
		}
	}
	return area
}

// sound verifies the map is well formed: main-area sectors are mutually
// contiguous and every sector's own range is valid.
func (m MemoryMap) sound() bool {
	if len(m.sectors) == 0 {
		return false
	}
	area := m.MainArea()
	for i := 0; i+1 < len(area); i++ {
		if area[i].End() != area[i+1].Start() {
			return false
		}
	}
	for _, s := range m.sectors {
		if !m.validRange(Range{Low: s.Start(), High: s.End()}) {
			return false
		}
	}
	return true
}

func (m MemoryMap) validRange(r Range) bool {
	monotonic := r.High >= r.Low
	beforeMap := r.High < m.sectors[0].End()
	afterMap := r.Low >= m.sectors[len(m.sectors)-1].End()
	return monotonic && !beforeMap && !afterMap
}

// WritableStart returns the start of the first writable sector.
func (m MemoryMap) WritableStart() Address {
	for _, s := range m.sectors {
		if s.IsWritable() {
			return s.Start()
		}
	}
	return 0
}

// WritableEnd returns the end of the last sector in the contiguous
// writable run that starts at WritableStart.
func (m MemoryMap) WritableEnd() Address {
	i := 0
	for ; i < len(m.sectors); i++ {
		if m.sectors[i].IsWritable() {
			break
		}
	}
	for ; i+1 < len(m.sectors); i++ {
		if !m.sectors[i+1].IsWritable() {
			break
		}
	}
	if i < len(m.sectors) {
		return m.sectors[i].End()
	}
	return 0
}

// Span returns the contiguous, address-ordered slice of sectors the
// range intersects. A range that intersects nothing yields an empty
// slice; validated ranges never reach that case.
func (m MemoryMap) Span(r Range) []Sector {
	first, last := -1, -1
	for i, s := range m.sectors {
		if r.Overlaps(s) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}
	return m.sectors[first : last+1]
}

// IsWritable reports whether the range is fully contained in writable
// sectors. A range reaching past the mapped sectors is not writable
// even when everything it does overlap is. Callers must check this
// before any write.
func (m MemoryMap) IsWritable(r Range) bool {
	span := m.Span(r)
	if len(span) == 0 {
		return false
	}
	if r.Low < span[0].Start() || r.High > span[len(span)-1].End() {
		return false
	}
	for _, s := range span {
		if !s.IsWritable() {
			return false
		}
	}
	return true
}

// eraseIndex returns the sector's hardware erase index: its position
// among the sectors of the main memory area. Sectors outside that area
// cannot be addressed by the erase machinery.
func (m MemoryMap) eraseIndex(sector Sector) (uint8, bool) {
	index := 0
	for _, s := range m.sectors {
		if !s.inMainMemoryArea() {
			continue
		}
		if s == sector {
			return uint8(index), true
		}
		index++
	}
	return 0, false
}

func (m MemoryMap) maxSectorSize() int {
	max := 0
	for _, s := range m.sectors {
		if int(s.Size) > max {
			max = int(s.Size)
		}
	}
	return max
}

const (
	kb = 1024
)

// STM32F412 is the memory map of the STM32F412 variant (reference
// manual table 5). The first four sectors hold the bootloader image.
var STM32F412 = NewMemoryMap([]Sector{
	NewSector(BlockReserved, 0x0800_0000, 16*kb),
	NewSector(BlockReserved, 0x0800_4000, 16*kb),
	NewSector(BlockReserved, 0x0800_8000, 16*kb),
	NewSector(BlockReserved, 0x0800_C000, 16*kb),
	NewSector(BlockMain, 0x0801_0000, 64*kb),
	NewSector(BlockMain, 0x0802_0000, 128*kb),
	NewSector(BlockMain, 0x0804_0000, 128*kb),
	NewSector(BlockMain, 0x0806_0000, 128*kb),
	NewSector(BlockMain, 0x0808_0000, 128*kb),
	NewSector(BlockMain, 0x080A_0000, 128*kb),
	NewSector(BlockMain, 0x080C_0000, 128*kb),
	NewSector(BlockMain, 0x080E_0000, 128*kb),
	NewSector(BlockSystemMemory, 0x1FFF_0000, 32*kb),
	NewSector(BlockOneTimeProgrammable, 0x1FFF_7800, 528),
	NewSector(BlockOptionBytes, 0x1FFF_C000, 16),
})

// STM32F446 is the memory map of the STM32F446 variant (512K main
// flash, same bootloader reservation).
var STM32F446 = NewMemoryMap([]Sector{
	NewSector(BlockReserved, 0x0800_0000, 16*kb),
	NewSector(BlockReserved, 0x0800_4000, 16*kb),
	NewSector(BlockReserved, 0x0800_8000, 16*kb),
	NewSector(BlockReserved, 0x0800_C000, 16*kb),
	NewSector(BlockMain, 0x0801_0000, 64*kb),
	NewSector(BlockMain, 0x0802_0000, 128*kb),
	NewSector(BlockMain, 0x0804_0000, 128*kb),
	NewSector(BlockMain, 0x0806_0000, 128*kb),
	NewSector(BlockSystemMemory, 0x1FFF_0000, 30*kb),
	NewSector(BlockOneTimeProgrammable, 0x1FFF_7800, 528),
	NewSector(BlockOptionBytes, 0x1FFF_C000, 16),
})
