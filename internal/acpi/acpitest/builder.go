// Package acpitest synthesizes ACPI firmware images for tests and the
// fwdump selftest: system description tables with valid headers and
// checksums, an RSDT pointing at them and an ACPI 1.0 RSDP locating
// the RSDT.
package acpitest

import (
	"bytes"
	"encoding/binary"
)

// OEMInfo mirrors the table header OEM fields.
type OEMInfo struct {
	OEMID           [6]byte
	OEMTableID      [8]byte
	OEMRevision     uint32
	CreatorID       [4]byte
	CreatorRevision uint32
}

// DefaultOEMInfo returns the header metadata emitted when a test does
// not care about OEM fields.
func DefaultOEMInfo() OEMInfo {
	return OEMInfo{
		OEMID:           [6]byte{'F', 'W', 'T', 'B', 'L', ' '},
		OEMTableID:      [8]byte{'F', 'W', 'T', 'B', 'L', 'D', 'E', 'F'},
		OEMRevision:     1,
		CreatorID:       [4]byte{'F', 'W', 'T', 'B'},
		CreatorRevision: 1,
	}
}

// TableWriter lays out system description tables back to back starting
// at a fixed physical base, fixing up length and checksum on every
// append.
type TableWriter struct {
	buf  bytes.Buffer
	base uint64
	oem  OEMInfo
}

// NewTableWriter returns a writer whose first table lands at base.
func NewTableWriter(base uint64, oem OEMInfo) *TableWriter {
	return &TableWriter{base: base, oem: oem}
}

// TableParams describes one table to append.
type TableParams struct {
	Signature  [4]byte
	Revision   uint8
	OEMTableID [8]byte
	Body       []byte

	// CorruptChecksum flips the checksum byte after it is computed so
	// the table fails validation.
	CorruptChecksum bool
}

// Append emits one table and returns its physical address.
func (w *TableWriter) Append(params TableParams) uint64 {
	start := w.buf.Len()
	w.buf.Grow(36 + len(params.Body))

	header := make([]byte, 36)
	copy(header[:4], params.Signature[:])
	copy(header[10:16], w.oem.OEMID[:])

	tableID := params.OEMTableID
	if tableID == ([8]byte{}) {
		tableID = w.oem.OEMTableID
	}
	copy(header[16:24], tableID[:])

	binary.LittleEndian.PutUint32(header[24:28], w.oem.OEMRevision)
	binary.LittleEndian.PutUint32(header[28:32], binary.LittleEndian.Uint32(w.oem.CreatorID[:]))
	binary.LittleEndian.PutUint32(header[32:36], w.oem.CreatorRevision)
	header[8] = params.Revision

	w.buf.Write(header)
	if len(params.Body) > 0 {
		w.buf.Write(params.Body)
	}

	tableBytes := w.buf.Bytes()[start:]
	binary.LittleEndian.PutUint32(tableBytes[4:8], uint32(len(tableBytes)))
	tableBytes[9] = checksum(tableBytes)
	if params.CorruptChecksum {
		tableBytes[9] ^= 0xFF
	}

	if pad := len(tableBytes) % 8; pad != 0 {
		w.buf.Write(make([]byte, 8-pad))
	}

	return w.base + uint64(start)
}

// Bytes returns every table emitted so far, padding included.
func (w *TableWriter) Bytes() []byte {
	return w.buf.Bytes()
}

func checksum(b []byte) byte {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return byte(0 - sum)
}

// Sig converts a 4-character name to a signature array.
func Sig(name string) [4]byte {
	var out [4]byte
	copy(out[:], name)
	return out
}
