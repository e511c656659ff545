package flash

// isBitSubset reports whether every 1 bit in p has a matching 1 bit in
// ref. Programming can only clear bits, so a write whose target bits
// pass this test needs no erase.
func isBitSubset(p, ref []byte) bool {
	if len(p) > len(ref) {
		return false
	}
	for i := range p {
		if ref[i]&p[i] != p[i] {
			return false
		}
	}
	return true
}
