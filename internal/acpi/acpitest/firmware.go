package acpitest

import (
	"bytes"
	"encoding/binary"
)

// ProcessorSpec describes one processor local APIC entry.
type ProcessorSpec struct {
	ProcessorID uint8
	APICID      uint8
	Enabled     bool
}

// IOAPICSpec describes one I/O APIC entry.
type IOAPICSpec struct {
	ID      uint8
	Address uint32
	GSIBase uint32
}

// OverrideSpec describes one interrupt source override entry.
type OverrideSpec struct {
	Bus    uint8
	Source uint8
	GSI    uint32
	Flags  uint16
}

// MADTSpec describes the body of a multi-APIC description table.
type MADTSpec struct {
	LAPICAddr  uint32
	Flags      uint32
	Processors []ProcessorSpec
	IOAPICs    []IOAPICSpec
	Overrides  []OverrideSpec

	// RawEntries is appended verbatim after the typed entries, for
	// unknown-type and malformed-stream cases.
	RawEntries []byte
}

// BuildMADTBody encodes the table body that follows the 36-byte
// header: local APIC address, flags, then the entry stream.
func BuildMADTBody(spec MADTSpec) []byte {
	buf := &bytes.Buffer{}

	binary.Write(buf, binary.LittleEndian, spec.LAPICAddr)
	binary.Write(buf, binary.LittleEndian, spec.Flags)

	for _, p := range spec.Processors {
		buf.WriteByte(0)
		buf.WriteByte(8)
		buf.WriteByte(p.ProcessorID)
		buf.WriteByte(p.APICID)
		flags := uint32(0)
		if p.Enabled {
			flags = 1
		}
		binary.Write(buf, binary.LittleEndian, flags)
	}

	for _, io := range spec.IOAPICs {
		buf.WriteByte(1)
		buf.WriteByte(12)
		buf.WriteByte(io.ID)
		buf.WriteByte(0)
		binary.Write(buf, binary.LittleEndian, io.Address)
		binary.Write(buf, binary.LittleEndian, io.GSIBase)
	}

	for _, ovr := range spec.Overrides {
		buf.WriteByte(2)
		buf.WriteByte(10)
		buf.WriteByte(ovr.Bus)
		buf.WriteByte(ovr.Source)
		binary.Write(buf, binary.LittleEndian, ovr.GSI)
		binary.Write(buf, binary.LittleEndian, ovr.Flags)
	}

	buf.Write(spec.RawEntries)
	return buf.Bytes()
}

// BuildRSDTBody encodes the packed 32-bit pointer array of a root
// table.
func BuildRSDTBody(entries []uint32) []byte {
	buf := &bytes.Buffer{}
	for _, entry := range entries {
		binary.Write(buf, binary.LittleEndian, entry)
	}
	return buf.Bytes()
}

// BuildRSDP emits a 20-byte ACPI 1.0 root pointer with a valid
// checksum, pointing at rsdtAddr.
func BuildRSDP(rsdtAddr uint32, oem OEMInfo) []byte {
	rsdp := make([]byte, 20)
	copy(rsdp[0:8], "RSD PTR ")
	copy(rsdp[9:15], oem.OEMID[:])
	rsdp[15] = 0
	binary.LittleEndian.PutUint32(rsdp[16:20], rsdtAddr)
	rsdp[8] = checksum(rsdp)
	return rsdp
}

// Firmware assembles a complete guest memory image: tables at
// TablesBase, RSDP at RSDPBase.
type Firmware struct {
	MemoryBase uint64
	MemorySize uint64
	TablesBase uint64
	RSDPBase   uint64
	OEM        OEMInfo
}

// Build returns the memory image bytes with the writer's tables and an
// RSDP pointing at rsdtAddr installed.
func (f Firmware) Build(w *TableWriter, rsdtAddr uint64) []byte {
	mem := make([]byte, f.MemorySize)
	copy(mem[f.TablesBase-f.MemoryBase:], w.Bytes())
	copy(mem[f.RSDPBase-f.MemoryBase:], BuildRSDP(uint32(rsdtAddr), f.OEM))
	return mem
}
