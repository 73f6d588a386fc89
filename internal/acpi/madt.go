package acpi

import (
	"github.com/tinyrange/fwtable/internal/paging"
)

// madtPrefixSize is the fixed prefix of the multi-APIC description
// table: the common header, the 32-bit local APIC address and a 32-bit
// flags word. The entry stream starts right after it.
const madtPrefixSize = HeaderSize + 8

// MADT entry type tags.
const (
	entryTypeProcessor = 0
	entryTypeIOAPIC    = 1
	entryTypeOverride  = 2
)

// Minimum declared lengths for the known entry types.
const (
	processorEntryLen = 8
	ioapicEntryLen    = 12
	overrideEntryLen  = 10
)

// Processor is one processor local APIC entry.
type Processor struct {
	ProcessorID uint8
	APICID      uint8
	Enabled     bool
}

// IOAPIC is one I/O APIC entry.
type IOAPIC struct {
	ID      uint8
	Address uint32
	GSIBase uint32
}

// InterruptOverride is one interrupt source override entry.
type InterruptOverride struct {
	Bus         uint8
	Source      uint8
	GSI         uint32
	Polarity    uint8
	TriggerMode uint8
}

// TopologyReport aggregates everything decoded from a multi-APIC
// description table, in entry order.
type TopologyReport struct {
	LocalAPICAddr uint32
	Flags         uint32

	Processors []Processor
	IOAPICs    []IOAPIC
	Overrides  []InterruptOverride

	// Unknown counts entries with an unrecognized type tag. They are
	// skipped, not an error.
	Unknown int

	// Malformed is set when the entry stream ends early: a length
	// field of zero, an undersized known entry, or an entry that would
	// run past the table's declared length. The records decoded before
	// that point are still returned.
	Malformed bool
}

// ParseTopology walks the entry stream of the table described by hdr.
// The window must cover the table's full declared length. Each entry
// is self-describing: one type byte, one length byte, then a
// type-specific payload; the cursor advances by the declared length.
func ParseTopology(w *paging.Window, hdr TableHeader) TopologyReport {
	var report TopologyReport

	base := hdr.Addr
	end := base + uint64(hdr.Length)
	if hdr.Length < madtPrefixSize {
		report.Malformed = true
		return report
	}

	lapic, err := w.Uint32(base + HeaderSize)
	if err != nil {
		report.Malformed = true
		return report
	}
	report.LocalAPICAddr = lapic
	report.Flags, _ = w.Uint32(base + HeaderSize + 4)

	for cur := base + madtPrefixSize; cur < end; {
		etype, err := w.Uint8(cur)
		if err != nil {
			report.Malformed = true
			break
		}
		elen, err := w.Uint8(cur + 1)
		if err != nil || elen < 2 || cur+uint64(elen) > end {
			report.Malformed = true
			break
		}

		if !decodeEntry(w, cur, etype, elen, &report) {
			report.Malformed = true
			break
		}

		cur += uint64(elen)
	}

	return report
}

// decodeEntry appends one typed record to the report. It returns false
// when a known entry type declares a length too small for its payload.
func decodeEntry(w *paging.Window, cur uint64, etype, elen uint8, report *TopologyReport) bool {
	switch etype {
	case entryTypeProcessor:
		if elen < processorEntryLen {
			return false
		}
		procID, _ := w.Uint8(cur + 2)
		apicID, _ := w.Uint8(cur + 3)
		flags, _ := w.Uint32(cur + 4)
		report.Processors = append(report.Processors, Processor{
			ProcessorID: procID,
			APICID:      apicID,
			Enabled:     flags&1 == 1,
		})

	case entryTypeIOAPIC:
		if elen < ioapicEntryLen {
			return false
		}
		id, _ := w.Uint8(cur + 2)
		addr, _ := w.Uint32(cur + 4)
		gsiBase, _ := w.Uint32(cur + 8)
		report.IOAPICs = append(report.IOAPICs, IOAPIC{
			ID:      id,
			Address: addr,
			GSIBase: gsiBase,
		})

	case entryTypeOverride:
		if elen < overrideEntryLen {
			return false
		}
		bus, _ := w.Uint8(cur + 2)
		source, _ := w.Uint8(cur + 3)
		gsi, _ := w.Uint32(cur + 4)
		flags, _ := w.Uint16(cur + 8)
		report.Overrides = append(report.Overrides, InterruptOverride{
			Bus:         bus,
			Source:      source,
			GSI:         gsi,
			Polarity:    uint8(flags & 0x3),
			TriggerMode: uint8((flags >> 2) & 0x3),
		})

	default:
		report.Unknown++
	}

	return true
}
