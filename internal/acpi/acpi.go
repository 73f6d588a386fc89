// Package acpi discovers and parses ACPI firmware tables out of guest
// physical memory: the root pointer (RSDP), the root table (RSDT) and
// the multi-APIC description table (MADT). All memory is read through
// transient page windows; parsing is pure and the diagnostic log is a
// side effect of the typed results, never part of the contract.
package acpi

import (
	"log/slog"

	"github.com/tinyrange/fwtable/internal/paging"
)

// Options configure a discovery run. The zero value scans the default
// regions and logs to slog.Default.
type Options struct {
	// Regions overrides the candidate RSDP scan regions.
	Regions []Region

	// Progress, if set, is invoked once per page scanned.
	Progress ScanProgress

	// Logger receives boot-log style diagnostics.
	Logger *slog.Logger
}

func (o *Options) normalize() {
	if len(o.Regions) == 0 {
		o.Regions = DefaultRegions()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Result is the outcome of a discovery run.
type Result struct {
	// Supported reports whether a root pointer was found at all. This
	// is distinct from the topology table being absent.
	Supported bool

	// RSDP is the decoded root pointer when Supported is true.
	RSDP *RSDP

	// Tables lists the headers of every sub-table that passed
	// validation, in root table order.
	Tables []TableHeader

	// Topology holds the parsed multi-APIC table, or nil if the root
	// table does not reference one.
	Topology *TopologyReport

	// Walk summarizes the root table walk.
	Walk WalkStats
}

// Discover locates the root pointer in mem, walks the root table and
// parses the multi-APIC table if present. A missing root pointer is
// not an error: the result simply reports no support. The only error
// conditions are root-table level: the root table cannot be mapped or
// fails its checksum, in which case no sub-table data can be trusted.
func Discover(mem paging.Memory, opts Options) (Result, error) {
	opts.normalize()
	logger := opts.Logger

	var result Result
	mapper := paging.NewMapper(mem)

	var rsdp *RSDP
	for _, region := range opts.Regions {
		logger.Info("searching for ACPI RSDP",
			"region", region.Name,
			"start", hex(region.Start),
			"end", hex(region.End))

		found, w := LocateRSDP(mapper, region, opts.Progress)
		if found != nil {
			rsdp = found
			mapper.Unmap(w)
			break
		}
	}

	if rsdp == nil {
		logger.Info("no ACPI tables found")
		return result, nil
	}

	result.Supported = true
	result.RSDP = rsdp
	logger.Info("ACPI supported",
		"revision", rsdp.Revision+1,
		"oem", oemString(rsdp.OEMID[:]),
		"rsdp", hex(rsdp.Addr),
		"rsdt", hex(uint64(rsdp.RSDTAddr)))

	stats, err := WalkRootTable(mapper, uint64(rsdp.RSDTAddr), func(hdr TableHeader, w *paging.Window) error {
		logHeader(logger, hdr)
		result.Tables = append(result.Tables, hdr)

		switch hdr.Signature {
		case SigMADT:
			report := ParseTopology(w, hdr)
			result.Topology = &report
			logReport(logger, report)
		default:
			logger.Info("table present but not implemented", "signature", hdr.Sig())
		}
		return nil
	}, logger)
	result.Walk = stats
	if err != nil {
		logger.Warn("ACPI root table walk failed", "err", err)
		return result, err
	}

	return result, nil
}
