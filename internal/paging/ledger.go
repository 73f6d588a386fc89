package paging

// Range is one recorded mapping.
type Range struct {
	Start  uint64
	End    uint64
	Access Flags
}

// Ledger records which physical ranges have been mapped and with what
// access. It is bookkeeping only: recording never fails and nothing is
// ever evicted.
type Ledger struct {
	ranges []Range
}

// Record appends [start, end) with the given access flags.
func (l *Ledger) Record(start, end uint64, access Flags) {
	l.ranges = append(l.ranges, Range{Start: start, End: end, Access: access})
}

// Ranges returns every recorded range in insertion order.
func (l *Ledger) Ranges() []Range {
	out := make([]Range, len(l.ranges))
	copy(out, l.ranges)
	return out
}
