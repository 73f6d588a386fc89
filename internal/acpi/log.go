package acpi

import (
	"fmt"
	"log/slog"
	"strings"
)

func hex(v uint64) string { return fmt.Sprintf("0x%x", v) }

// oemString trims the fixed-width OEM fields for display.
func oemString(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}

// logHeader logs the common fields of an already-decoded table header.
func logHeader(logger *slog.Logger, hdr TableHeader) {
	logger.Info("ACPI table",
		"signature", hdr.Sig(),
		"addr", hex(hdr.Addr),
		"length", hdr.Length,
		"revision", hdr.Revision,
		"oem", oemString(hdr.OEMID[:]),
		"oemTable", oemString(hdr.OEMTableID[:]),
		"oemRevision", hdr.OEMRevision,
		"creator", oemString(hdr.CreatorID[:]),
		"creatorRevision", hdr.CreatorRevision)
}

// logReport logs a parsed topology report record by record.
func logReport(logger *slog.Logger, report TopologyReport) {
	logger.Info("local APIC", "addr", hex(uint64(report.LocalAPICAddr)))

	for _, p := range report.Processors {
		logger.Info("processor local APIC",
			"processor", p.ProcessorID,
			"apic", p.APICID,
			"enabled", p.Enabled)
	}
	for _, io := range report.IOAPICs {
		logger.Info("I/O APIC",
			"id", io.ID,
			"addr", hex(uint64(io.Address)),
			"gsiBase", io.GSIBase)
	}
	for _, ovr := range report.Overrides {
		logger.Info("interrupt source override",
			"bus", ovr.Bus,
			"source", ovr.Source,
			"gsi", ovr.GSI,
			"polarity", ovr.Polarity,
			"trigger", ovr.TriggerMode)
	}

	if report.Unknown > 0 {
		logger.Info("unimplemented MADT entries", "count", report.Unknown)
	}
	if report.Malformed {
		logger.Warn("MADT entry stream malformed, report truncated")
	}
}
