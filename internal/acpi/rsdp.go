package acpi

import (
	"encoding/binary"

	"github.com/tinyrange/fwtable/internal/paging"
)

// rsdpSignature is the fixed 8-byte signature of the root pointer
// structure (last byte is a space).
var rsdpSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

// rsdpSize is the size of the ACPI 1.0 root pointer structure. The
// checksum covers exactly these 20 bytes.
const rsdpSize = 20

// RSDP is the root system description pointer, decoded from the page
// it was found in.
type RSDP struct {
	OEMID    [6]byte
	Revision uint8
	RSDTAddr uint32

	// Addr is the physical address the structure was found at.
	Addr uint64
}

// Region is one candidate physical range for the RSDP scan. End is
// exclusive.
type Region struct {
	Name  string
	Start uint64
	End   uint64
}

// DefaultRegions returns the two ranges firmware is allowed to place
// the RSDP in: the extended BIOS data area, then the BIOS ROM.
func DefaultRegions() []Region {
	return []Region{
		{Name: "EBDA", Start: 0x9F000, End: 0xA0000},
		{Name: "BIOS ROM", Start: 0xE0000, End: 0x100000},
	}
}

// ScanProgress is called once per page scanned during RSDP search.
type ScanProgress func(region Region, scannedPages, totalPages int)

// scanFlags are the attributes requested for every scan mapping.
const scanFlags = paging.FlagRead | paging.FlagWrite | paging.FlagGlobal | paging.FlagNoCache

// LocateRSDP scans region one page at a time for a root pointer with a
// valid checksum. At most one page is mapped at any instant; each page
// is unmapped before the next is mapped. On a match the matched page's
// window is retained, recorded in the ledger, and returned alongside
// the decoded structure; releasing it is the caller's job. A mapping
// failure aborts the scan and reports "not found": memory that
// firmware may publish the RSDP in must be mappable for ACPI to work
// at all.
func LocateRSDP(m *paging.Mapper, region Region, progress ScanProgress) (*RSDP, *paging.Window) {
	start := paging.PageCeil(region.Start)
	if region.End < rsdpSize || start > region.End-rsdpSize {
		return nil, nil
	}
	totalPages := int((paging.PageCeil(region.End) - start) / paging.PageSize)

	var prev *paging.Window
	scanned := 0
	for page := start; page <= region.End-rsdpSize; page += paging.PageSize {
		m.Unmap(prev)
		prev = nil

		w, err := m.MapPage(page, scanFlags)
		if err != nil {
			return nil, nil
		}
		prev = w
		scanned++

		// Last candidate offset must leave room for a whole structure,
		// bounded by both the page and the region end.
		scanEnd := page + paging.PageSize
		if scanEnd > region.End {
			scanEnd = region.End
		}

		// The historical spec wants 16-byte alignment here; the 4-byte
		// stride is exhaustive over every position firmware could use.
		for off := page; off+rsdpSize <= scanEnd; off += 4 {
			sig, err := w.Bytes(off, 8)
			if err != nil {
				break
			}
			if [8]byte(sig) != rsdpSignature {
				continue
			}
			raw, err := w.Bytes(off, rsdpSize)
			if err != nil {
				break
			}
			if !ChecksumOK(raw) {
				continue
			}

			m.RecordMapped(w, paging.FlagRead|paging.FlagWrite)
			rsdp := decodeRSDP(raw)
			rsdp.Addr = off
			if progress != nil {
				progress(region, scanned, totalPages)
			}
			return rsdp, w
		}

		if progress != nil {
			progress(region, scanned, totalPages)
		}
	}

	m.Unmap(prev)
	return nil, nil
}

func decodeRSDP(raw []byte) *RSDP {
	r := &RSDP{}
	copy(r.OEMID[:], raw[9:15])
	r.Revision = raw[15]
	r.RSDTAddr = binary.LittleEndian.Uint32(raw[16:20])
	return r
}
