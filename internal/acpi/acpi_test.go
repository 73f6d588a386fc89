package acpi

import (
	"errors"
	"testing"

	"github.com/tinyrange/fwtable/internal/acpi/acpitest"
	"github.com/tinyrange/fwtable/internal/memimg"
)

// buildFirmware assembles a 1 MiB image with the given tables rooted
// through an RSDT and an RSDP at 0xE0000.
func buildFirmware(t *testing.T, tables []acpitest.TableParams, corruptRoot bool) *memimg.Image {
	t.Helper()

	oem := acpitest.DefaultOEMInfo()
	w := acpitest.NewTableWriter(0xE4000, oem)
	var entries []uint32
	for _, params := range tables {
		entries = append(entries, uint32(w.Append(params)))
	}
	rsdtAddr := w.Append(acpitest.TableParams{
		Signature:       acpitest.Sig("RSDT"),
		Revision:        1,
		Body:            acpitest.BuildRSDTBody(entries),
		CorruptChecksum: corruptRoot,
	})

	fw := acpitest.Firmware{
		MemorySize: 0x100000,
		TablesBase: 0xE4000,
		RSDPBase:   0xE0000,
		OEM:        oem,
	}
	return memimg.FromBytes(0, fw.Build(w, rsdtAddr))
}

func TestDiscoverNoSupport(t *testing.T) {
	mem := memimg.FromBytes(0, make([]byte, 0x100000))

	result, err := Discover(mem, Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if result.Supported {
		t.Fatal("empty memory reported as supported")
	}
	if result.Topology != nil || result.RSDP != nil {
		t.Fatalf("unexpected data: %+v", result)
	}
}

func TestDiscoverFullTopology(t *testing.T) {
	mem := buildFirmware(t, []acpitest.TableParams{
		{Signature: acpitest.Sig("FACP"), Revision: 1, Body: make([]byte, 16)},
		{Signature: acpitest.Sig("APIC"), Revision: 1, Body: acpitest.BuildMADTBody(acpitest.MADTSpec{
			LAPICAddr: 0xFEE00000,
			Processors: []acpitest.ProcessorSpec{
				{ProcessorID: 0, APICID: 0, Enabled: true},
				{ProcessorID: 1, APICID: 1, Enabled: false},
			},
			IOAPICs:   []acpitest.IOAPICSpec{{ID: 1, Address: 0xFEC00000, GSIBase: 0}},
			Overrides: []acpitest.OverrideSpec{{Bus: 0, Source: 0, GSI: 2}},
		})},
	}, false)

	result, err := Discover(mem, Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	if !result.Supported {
		t.Fatal("firmware not detected")
	}
	if result.RSDP == nil || result.RSDP.Addr != 0xE0000 {
		t.Fatalf("rsdp: %+v", result.RSDP)
	}
	if result.Walk.Entries != 2 || result.Walk.Dispatched != 2 {
		t.Fatalf("walk stats: %+v", result.Walk)
	}
	if len(result.Tables) != 2 {
		t.Fatalf("tables: got %d want 2", len(result.Tables))
	}

	top := result.Topology
	if top == nil {
		t.Fatal("topology table not parsed")
	}
	if len(top.Processors) != 2 || len(top.IOAPICs) != 1 || len(top.Overrides) != 1 {
		t.Fatalf("topology: %+v", top)
	}
	if top.Processors[1].Enabled {
		t.Fatal("disabled processor reported enabled")
	}
	if top.Malformed {
		t.Fatal("well-formed topology reported malformed")
	}
}

func TestDiscoverSupportedWithoutTopology(t *testing.T) {
	// Support found but no topology table referenced: distinct from
	// "no support at all".
	mem := buildFirmware(t, []acpitest.TableParams{
		{Signature: acpitest.Sig("FACP"), Revision: 1, Body: make([]byte, 16)},
	}, false)

	result, err := Discover(mem, Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if !result.Supported {
		t.Fatal("firmware not detected")
	}
	if result.Topology != nil {
		t.Fatal("topology reported despite no MADT")
	}
	if result.Walk.Dispatched != 1 {
		t.Fatalf("walk stats: %+v", result.Walk)
	}
}

func TestDiscoverBadRootChecksum(t *testing.T) {
	mem := buildFirmware(t, []acpitest.TableParams{
		{Signature: acpitest.Sig("APIC"), Revision: 1, Body: acpitest.BuildMADTBody(acpitest.MADTSpec{})},
	}, true)

	result, err := Discover(mem, Options{Logger: testLogger()})
	if !errors.Is(err, ErrBadRootChecksum) {
		t.Fatalf("discover: got %v want ErrBadRootChecksum", err)
	}
	if !result.Supported {
		t.Fatal("rsdp was present, support must be reported")
	}
	if result.Topology != nil || len(result.Tables) != 0 {
		t.Fatalf("data from untrusted root table: %+v", result)
	}
}

func TestDiscoverCustomRegions(t *testing.T) {
	oem := acpitest.DefaultOEMInfo()
	w := acpitest.NewTableWriter(0x8000, oem)
	madtAddr := w.Append(acpitest.TableParams{
		Signature: acpitest.Sig("APIC"),
		Revision:  1,
		Body: acpitest.BuildMADTBody(acpitest.MADTSpec{
			Processors: []acpitest.ProcessorSpec{{ProcessorID: 0, APICID: 0, Enabled: true}},
		}),
	})
	rsdtAddr := w.Append(acpitest.TableParams{
		Signature: acpitest.Sig("RSDT"),
		Revision:  1,
		Body:      acpitest.BuildRSDTBody([]uint32{uint32(madtAddr)}),
	})

	fw := acpitest.Firmware{
		MemorySize: 0x10000,
		TablesBase: 0x8000,
		RSDPBase:   0x1000,
		OEM:        oem,
	}
	mem := memimg.FromBytes(0, fw.Build(w, rsdtAddr))

	result, err := Discover(mem, Options{
		Logger:  testLogger(),
		Regions: []Region{{Name: "low", Start: 0x0, End: 0x2000}},
	})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if !result.Supported || result.Topology == nil {
		t.Fatalf("result: %+v", result)
	}
	if len(result.Topology.Processors) != 1 {
		t.Fatalf("processors: %+v", result.Topology.Processors)
	}
}
