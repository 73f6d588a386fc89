package acpi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/tinyrange/fwtable/internal/acpi/acpitest"
	"github.com/tinyrange/fwtable/internal/memimg"
	"github.com/tinyrange/fwtable/internal/paging"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMapper wraps raw bytes starting at physical address 0.
func newMapper(raw []byte) *paging.Mapper {
	return paging.NewMapper(memimg.FromBytes(0, raw))
}

// installRSDP writes a valid ACPI 1.0 root pointer at addr.
func installRSDP(t *testing.T, mem []byte, addr uint64, rsdtAddr uint32) {
	t.Helper()
	rsdp := acpitest.BuildRSDP(rsdtAddr, acpitest.DefaultOEMInfo())
	if int(addr)+len(rsdp) > len(mem) {
		t.Fatalf("rsdp at 0x%x does not fit", addr)
	}
	copy(mem[addr:], rsdp)
}

// mapWholeTable maps the full declared length of the table at addr and
// returns its header and window. The caller unmaps.
func mapWholeTable(t *testing.T, m *paging.Mapper, addr uint64) (TableHeader, *paging.Window) {
	t.Helper()
	hdr, w, err := mapTable(m, addr, scanFlags)
	if err != nil {
		t.Fatalf("map table at 0x%x: %v", addr, err)
	}
	return hdr, w
}
