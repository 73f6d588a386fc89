// Package paging provides the page-window mapper used by the firmware
// table code. Guest physical memory is only ever touched through a
// Window: a bounds-checked view over one or more pages materialized
// from a Memory. At most one window needs to be live at a time; callers
// unmap each window before mapping the next so the early-boot style
// map-one/unmap-before-next discipline is observable in tests.
package paging

import (
	"errors"
	"fmt"
	"io"
)

// PageSize is the granularity of all mappings.
const PageSize uint64 = 0x1000

// PageMask masks an address down to its page base.
const PageMask = ^(PageSize - 1)

// Flags describe the access attributes requested for a mapping.
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagGlobal
	FlagNoCache
)

// Memory is the guest physical memory a Mapper materializes pages from.
// ReadAt offsets are guest physical addresses.
type Memory interface {
	io.ReaderAt

	MemoryBase() uint64
	MemorySize() uint64
}

var (
	// ErrOutOfRange reports a map request outside the backing memory.
	ErrOutOfRange = errors.New("paging: physical address outside guest memory")
)

// PageBase returns the base address of the page containing addr.
func PageBase(addr uint64) uint64 { return addr & PageMask }

// PageCeil rounds addr up to the next page boundary.
func PageCeil(addr uint64) uint64 { return (addr + PageSize - 1) & PageMask }

// Mapper materializes page windows from a Memory and tracks how many
// pages are currently mapped.
type Mapper struct {
	mem    Memory
	ledger Ledger
	mapped int
}

// NewMapper returns a Mapper over mem.
func NewMapper(mem Memory) *Mapper {
	return &Mapper{mem: mem}
}

// MapPage maps the single page containing phys.
func (m *Mapper) MapPage(phys uint64, flags Flags) (*Window, error) {
	return m.MapRange(phys, 1, flags)
}

// MapRange maps every page covering [phys, phys+length). Pages are
// materialized one at a time; the returned window spans all of them.
func (m *Mapper) MapRange(phys, length uint64, flags Flags) (*Window, error) {
	if length == 0 {
		length = 1
	}

	base := PageBase(phys)
	end := PageCeil(phys + length)

	memBase := m.mem.MemoryBase()
	memEnd := memBase + m.mem.MemorySize()
	if base < memBase || end > memEnd {
		return nil, fmt.Errorf("paging: map [0x%x, 0x%x): %w", base, end, ErrOutOfRange)
	}

	pages := int((end - base) / PageSize)
	data := make([]byte, end-base)
	for i := 0; i < pages; i++ {
		off := uint64(i) * PageSize
		if _, err := m.mem.ReadAt(data[off:off+PageSize], int64(base+off)); err != nil {
			return nil, fmt.Errorf("paging: map page 0x%x: %w", base+off, err)
		}
	}

	m.mapped += pages
	return &Window{mapper: m, base: base, data: data, flags: flags}, nil
}

// Unmap releases w. It is idempotent and accepts nil.
func (m *Mapper) Unmap(w *Window) {
	if w == nil || w.released {
		return
	}
	w.released = true
	m.mapped -= len(w.data) / int(PageSize)
	w.data = nil
}

// MappedPages reports how many pages are currently mapped.
func (m *Mapper) MappedPages() int { return m.mapped }

// RecordMapped enters w into the mapped-range ledger with the given
// access flags. Bookkeeping only; it never fails.
func (m *Mapper) RecordMapped(w *Window, access Flags) {
	m.ledger.Record(w.base, w.base+uint64(len(w.data)), access)
}

// Ledger returns the mapped-range ledger.
func (m *Mapper) Ledger() *Ledger { return &m.ledger }
