package flash

// SubWrite is the portion of a write request that lands in a single
// sector: the byte slice, the sector it belongs to, and the absolute
// address where the slice starts.
type SubWrite struct {
	Data    []byte
	Sector  Sector
	Address Address
}

// OverlapIter walks a write request sector by sector in ascending
// address order. It is single-use: once Next returns false it stays
// exhausted.
type OverlapIter struct {
	data  []byte
	start Address
	span  []Sector
	next  int
}

// Overlaps decomposes (data, start) into per-sector sub-writes.
func (m MemoryMap) Overlaps(data []byte, start Address) *OverlapIter {
	r := Range{Low: start, High: start.Add(len(data))}
	return &OverlapIter{
		data:  data,
		start: start,
		span:  m.Span(r),
	}
}

// Next returns the next sub-write, or ok=false once the request is
// fully decomposed.
func (it *OverlapIter) Next() (SubWrite, bool) {
	if it.next >= len(it.span) {
		return SubWrite{}, false
	}
	sector := it.span[it.next]
	it.next++

	end := it.start.Add(len(it.data))
	low := it.start
	if sector.Start() > low {
		low = sector.Start()
	}
	high := end
	if sector.End() < high {
		high = sector.End()
	}
	return SubWrite{
		Data:    it.data[low.Diff(it.start):high.Diff(it.start)],
		Sector:  sector,
		Address: low,
	}, true
}
