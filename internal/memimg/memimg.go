// Package memimg provides guest physical memory images for the
// firmware table scanner. An Image is a read-only view of guest RAM,
// either wrapped around a byte slice or backed by a memory dump file.
package memimg

import (
	"fmt"
	"io"
)

// Image is guest physical memory starting at a base address. ReadAt
// offsets are guest physical addresses, matching the convention of the
// paging.Memory interface.
type Image struct {
	base    uint64
	data    []byte
	release func() error
}

// FromBytes wraps data as guest memory starting at base.
func FromBytes(base uint64, data []byte) *Image {
	return &Image{base: base, data: data}
}

// MemoryBase returns the physical address of the first byte.
func (i *Image) MemoryBase() uint64 { return i.base }

// MemorySize returns the image size in bytes.
func (i *Image) MemorySize() uint64 { return uint64(len(i.data)) }

// ReadAt reads from the image at physical address off.
func (i *Image) ReadAt(p []byte, off int64) (int, error) {
	addr := uint64(off)
	if addr < i.base || addr-i.base >= uint64(len(i.data)) {
		return 0, fmt.Errorf("memimg: read at 0x%x outside image: %w", addr, io.EOF)
	}
	n := copy(p, i.data[addr-i.base:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close releases the backing mapping, if any.
func (i *Image) Close() error {
	i.data = nil
	if i.release != nil {
		release := i.release
		i.release = nil
		return release()
	}
	return nil
}
