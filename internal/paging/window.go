package paging

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrWindowBounds reports a read outside a window's mapped span.
var ErrWindowBounds = errors.New("paging: read outside mapped window")

// Window is a bounds-checked view over one or more mapped pages. All
// accessors take guest physical addresses; firmware-supplied offsets
// that land outside the window return ErrWindowBounds instead of
// reading out of bounds.
type Window struct {
	mapper   *Mapper
	base     uint64
	data     []byte
	flags    Flags
	released bool
}

// Base returns the physical address of the first mapped byte.
func (w *Window) Base() uint64 { return w.base }

// Size returns the mapped span in bytes.
func (w *Window) Size() uint64 { return uint64(len(w.data)) }

// Flags returns the access flags the window was mapped with.
func (w *Window) Flags() Flags { return w.flags }

// Bytes returns n bytes starting at physical address phys.
func (w *Window) Bytes(phys uint64, n uint64) ([]byte, error) {
	if w.released {
		return nil, fmt.Errorf("paging: window [0x%x): %w", phys, ErrWindowBounds)
	}
	if phys < w.base || n > uint64(len(w.data)) || phys-w.base > uint64(len(w.data))-n {
		return nil, fmt.Errorf("paging: window read [0x%x, 0x%x): %w", phys, phys+n, ErrWindowBounds)
	}
	off := phys - w.base
	return w.data[off : off+n], nil
}

// Uint8 reads one byte at phys.
func (w *Window) Uint8(phys uint64) (uint8, error) {
	b, err := w.Bytes(phys, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a little-endian uint16 at phys.
func (w *Window) Uint16(phys uint64) (uint16, error) {
	b, err := w.Bytes(phys, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32 at phys.
func (w *Window) Uint32(phys uint64) (uint32, error) {
	b, err := w.Bytes(phys, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads a little-endian uint64 at phys.
func (w *Window) Uint64(phys uint64) (uint64, error) {
	b, err := w.Bytes(phys, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
