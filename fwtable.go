// Package fwtable discovers and parses ACPI firmware tables out of
// guest physical memory images: the root pointer (RSDP) found by
// signature scan, the root table (RSDT) of pointers to sub-tables, and
// the multi-APIC description table (MADT) enumerating processors,
// interrupt controllers and interrupt routing overrides.
package fwtable

import (
	"github.com/tinyrange/fwtable/internal/acpi"
	"github.com/tinyrange/fwtable/internal/memimg"
	"github.com/tinyrange/fwtable/internal/paging"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from internal packages
// -----------------------------------------------------------------------------

// Memory is guest physical memory: an io.ReaderAt addressed by
// physical address plus its base and size.
type Memory = paging.Memory

// Image is a guest memory image backed by a byte slice or a mapped
// dump file.
type Image = memimg.Image

// Options configure a discovery run.
type Options = acpi.Options

// Result is the outcome of a discovery run.
type Result = acpi.Result

// RSDP is the decoded root system description pointer.
type RSDP = acpi.RSDP

// Region is one candidate physical range for the RSDP scan.
type Region = acpi.Region

// TableHeader is the common 36-byte prefix of every system
// description table.
type TableHeader = acpi.TableHeader

// TopologyReport aggregates the records decoded from the multi-APIC
// description table.
type TopologyReport = acpi.TopologyReport

// Processor is one processor local APIC record.
type Processor = acpi.Processor

// IOAPIC is one I/O APIC record.
type IOAPIC = acpi.IOAPIC

// InterruptOverride is one interrupt source override record.
type InterruptOverride = acpi.InterruptOverride

// ErrBadRootChecksum reports that the root table failed validation and
// the walk was abandoned.
var ErrBadRootChecksum = acpi.ErrBadRootChecksum

// Discover scans mem for the root pointer, walks the root table and
// parses the topology table if one is referenced. A missing root
// pointer is reported through Result.Supported, not as an error.
func Discover(mem Memory, opts Options) (Result, error) {
	return acpi.Discover(mem, opts)
}

// DefaultRegions returns the standard RSDP scan regions: the extended
// BIOS data area, then the BIOS ROM.
func DefaultRegions() []Region {
	return acpi.DefaultRegions()
}

// OpenImage maps the memory dump at path as guest memory starting at
// base.
func OpenImage(path string, base uint64) (*Image, error) {
	return memimg.Open(path, base)
}

// ImageFromBytes wraps data as guest memory starting at base.
func ImageFromBytes(base uint64, data []byte) *Image {
	return memimg.FromBytes(base, data)
}
