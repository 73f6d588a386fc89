package fwtable_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/tinyrange/fwtable"
	"github.com/tinyrange/fwtable/internal/acpi/acpitest"
)

func TestDiscoverThroughFacade(t *testing.T) {
	oem := acpitest.DefaultOEMInfo()
	w := acpitest.NewTableWriter(0xE4000, oem)
	madtAddr := w.Append(acpitest.TableParams{
		Signature: acpitest.Sig("APIC"),
		Revision:  1,
		Body: acpitest.BuildMADTBody(acpitest.MADTSpec{
			LAPICAddr:  0xFEE00000,
			Processors: []acpitest.ProcessorSpec{{ProcessorID: 0, APICID: 0, Enabled: true}},
		}),
	})
	rsdtAddr := w.Append(acpitest.TableParams{
		Signature: acpitest.Sig("RSDT"),
		Revision:  1,
		Body:      acpitest.BuildRSDTBody([]uint32{uint32(madtAddr)}),
	})

	fw := acpitest.Firmware{
		MemorySize: 0x100000,
		TablesBase: 0xE4000,
		RSDPBase:   0xE0000,
		OEM:        oem,
	}
	mem := fwtable.ImageFromBytes(0, fw.Build(w, rsdtAddr))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	result, err := fwtable.Discover(mem, fwtable.Options{Logger: logger})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if !result.Supported {
		t.Fatal("firmware not detected")
	}
	if result.Topology == nil || len(result.Topology.Processors) != 1 {
		t.Fatalf("topology: %+v", result.Topology)
	}
}

func TestDefaultRegions(t *testing.T) {
	regions := fwtable.DefaultRegions()
	if len(regions) != 2 {
		t.Fatalf("regions: got %d want 2", len(regions))
	}
	if regions[0].Name != "EBDA" || regions[1].Name != "BIOS ROM" {
		t.Fatalf("regions: %+v", regions)
	}
	if regions[1].End != 0x100000 {
		t.Fatalf("BIOS ROM end: got 0x%x", regions[1].End)
	}
}
