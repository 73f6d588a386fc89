package acpi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinyrange/fwtable/internal/paging"
)

// HeaderSize is the common 36-byte prefix shared by every system
// description table.
const HeaderSize = 36

// Well-known table signatures.
var (
	SigRSDT = [4]byte{'R', 'S', 'D', 'T'}
	SigMADT = [4]byte{'A', 'P', 'I', 'C'}
)

// ErrBadRootChecksum reports that the root table failed validation.
// The pointer array inside it cannot be trusted, so the walk performs
// no further work.
var ErrBadRootChecksum = errors.New("acpi: bad root table checksum")

// TableHeader is the decoded common prefix of a system description
// table.
type TableHeader struct {
	Signature       [4]byte
	Length          uint32
	Revision        uint8
	Checksum        uint8
	OEMID           [6]byte
	OEMTableID      [8]byte
	OEMRevision     uint32
	CreatorID       [4]byte
	CreatorRevision uint32

	// Addr is the physical address of the table.
	Addr uint64
}

// Sig returns the signature as a string for logging and dispatch.
func (h TableHeader) Sig() string { return string(h.Signature[:]) }

func decodeHeader(w *paging.Window, phys uint64) (TableHeader, error) {
	raw, err := w.Bytes(phys, HeaderSize)
	if err != nil {
		return TableHeader{}, err
	}

	h := TableHeader{Addr: phys}
	copy(h.Signature[:], raw[0:4])
	h.Length = binary.LittleEndian.Uint32(raw[4:8])
	h.Revision = raw[8]
	h.Checksum = raw[9]
	copy(h.OEMID[:], raw[10:16])
	copy(h.OEMTableID[:], raw[16:24])
	h.OEMRevision = binary.LittleEndian.Uint32(raw[24:28])
	copy(h.CreatorID[:], raw[28:32])
	h.CreatorRevision = binary.LittleEndian.Uint32(raw[32:36])
	return h, nil
}

// mapTable maps the full declared length of the table at phys: header
// first, then a remap once the length field is known. Tables whose
// declared length is shorter than the header are rejected.
func mapTable(m *paging.Mapper, phys uint64, flags paging.Flags) (TableHeader, *paging.Window, error) {
	w, err := m.MapRange(phys, HeaderSize, flags)
	if err != nil {
		return TableHeader{}, nil, err
	}

	hdr, err := decodeHeader(w, phys)
	if err != nil {
		m.Unmap(w)
		return TableHeader{}, nil, err
	}
	if hdr.Length < HeaderSize {
		m.Unmap(w)
		return TableHeader{}, nil, fmt.Errorf("acpi: table %q at 0x%x declares length %d", hdr.Sig(), phys, hdr.Length)
	}

	if phys+uint64(hdr.Length) > w.Base()+w.Size() {
		m.Unmap(w)
		if w, err = m.MapRange(phys, uint64(hdr.Length), flags); err != nil {
			return TableHeader{}, nil, err
		}
	}

	m.RecordMapped(w, paging.FlagRead|paging.FlagWrite)
	return hdr, w, nil
}

// DispatchFunc receives each sub-table that passed checksum
// validation. The window covers the table's full declared length and
// is unmapped by the walker after the call returns.
type DispatchFunc func(hdr TableHeader, w *paging.Window) error

// WalkStats summarizes one root table walk.
type WalkStats struct {
	// Entries is the number of pointer slots in the root table.
	Entries int
	// Dispatched counts sub-tables handed to the dispatch function.
	Dispatched int
	// Skipped counts sub-tables dropped for mapping or checksum
	// failures.
	Skipped int
}

// WalkRootTable maps the root table at rsdtAddr, validates it over its
// full declared length and dispatches every sub-table it points at.
// A sub-table that cannot be mapped or fails its checksum is skipped;
// one bad entry never stops discovery of the others.
func WalkRootTable(m *paging.Mapper, rsdtAddr uint64, dispatch DispatchFunc, logger *slog.Logger) (WalkStats, error) {
	var stats WalkStats

	hdr, root, err := mapTable(m, rsdtAddr, scanFlags)
	if err != nil {
		return stats, fmt.Errorf("acpi: map root table at 0x%x: %w", rsdtAddr, err)
	}
	defer m.Unmap(root)

	raw, err := root.Bytes(rsdtAddr, uint64(hdr.Length))
	if err != nil {
		return stats, fmt.Errorf("acpi: read root table: %w", err)
	}
	if !ChecksumOK(raw) {
		return stats, ErrBadRootChecksum
	}

	// Entries are 32-bit physical addresses pointing at sub-tables.
	stats.Entries = int((hdr.Length - HeaderSize) / 4)

	for i := 0; i < stats.Entries; i++ {
		entryAddr, err := root.Uint32(rsdtAddr + HeaderSize + uint64(i)*4)
		if err != nil {
			return stats, fmt.Errorf("acpi: read root table entry %d: %w", i, err)
		}

		if err := walkEntry(m, uint64(entryAddr), dispatch); err != nil {
			stats.Skipped++
			logger.Warn("skipping ACPI table", "addr", fmt.Sprintf("0x%x", entryAddr), "err", err)
			continue
		}
		stats.Dispatched++
	}

	return stats, nil
}

func walkEntry(m *paging.Mapper, addr uint64, dispatch DispatchFunc) error {
	hdr, w, err := mapTable(m, addr, scanFlags)
	if err != nil {
		return err
	}
	defer m.Unmap(w)

	raw, err := w.Bytes(addr, uint64(hdr.Length))
	if err != nil {
		return err
	}
	if !ChecksumOK(raw) {
		return fmt.Errorf("acpi: table %q has incorrect checksum", hdr.Sig())
	}

	return dispatch(hdr, w)
}
