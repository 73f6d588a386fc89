package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/tinyrange/fwtable"
	"github.com/tinyrange/fwtable/internal/acpi/acpitest"
	"golang.org/x/term"
)

func run() error {
	configPath := flag.String("config", "", "YAML config file (image, imageBase, regions)")
	imagePath := flag.String("image", "", "guest memory dump to scan")
	imageBase := flag.String("base", "0", "guest physical address of the dump's first byte")
	selftest := flag.Bool("selftest", false, "scan a built-in synthetic firmware image")
	verbose := flag.Bool("v", false, "log every table header and topology record")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `fwdump - discover and dump ACPI firmware tables from a guest memory image

USAGE:
  fwdump [flags] [image]

FLAGS:
  -config FILE   YAML config naming the image, its base address and scan regions
  -image FILE    Memory dump to scan (alternative to the positional argument)
  -base ADDR     Guest physical address of the dump's first byte (hex accepted)
  -selftest      Build a synthetic firmware image in memory and scan that
  -v             Verbose diagnostics (every header, every topology record)

EXAMPLES:
  fwdump lowmem.bin                 Scan a dump of the first megabyte
  fwdump -base 0xe0000 biosrom.bin  Dump starting at the BIOS ROM
  fwdump -config guest.yaml         Image and regions from a config file
  fwdump -selftest                  Verify the parser against known tables
`)
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var cfg config
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return err
		}
	}
	if *imagePath != "" {
		cfg.Image = *imagePath
	} else if flag.NArg() > 0 {
		cfg.Image = flag.Arg(0)
	}
	explicitBase := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "base" {
			explicitBase = true
		}
	})
	if err := applyBaseFlag(&cfg, *imageBase, explicitBase); err != nil {
		return err
	}

	var mem fwtable.Memory
	switch {
	case *selftest:
		mem = selftestImage()
	case cfg.Image != "":
		img, err := fwtable.OpenImage(cfg.Image, cfg.ImageBase)
		if err != nil {
			return err
		}
		defer img.Close()
		mem = img
	default:
		flag.Usage()
		os.Exit(1)
	}

	result, err := fwtable.Discover(mem, fwtable.Options{
		Regions:  cfg.regions(),
		Logger:   logger,
		Progress: scanProgress(),
	})
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

// applyBaseFlag resolves the image base address: a -base given on the
// command line wins over the config file, whatever its spelling; the
// config value survives when the flag is left at its default.
func applyBaseFlag(cfg *config, value string, explicit bool) error {
	if !explicit && cfg.ImageBase != 0 {
		return nil
	}
	base, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return fmt.Errorf("parse -base: %w", err)
	}
	cfg.ImageBase = base
	return nil
}

// scanProgress renders a per-region progress bar when stderr is a
// terminal.
func scanProgress() func(region fwtable.Region, scanned, total int) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}

	var bar *progressbar.ProgressBar
	var current string
	return func(region fwtable.Region, scanned, total int) {
		if bar == nil || current != region.Name {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("scanning "+region.Name),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
			current = region.Name
		}
		bar.Set(scanned)
		if scanned == total {
			bar.Finish()
		}
	}
}

func printResult(result fwtable.Result) {
	if !result.Supported {
		fmt.Println("no ACPI tables found")
		return
	}

	fmt.Printf("ACPI rev %d.0, OEM %q, RSDP at 0x%x, RSDT at 0x%x\n",
		result.RSDP.Revision+1, trim(result.RSDP.OEMID[:]), result.RSDP.Addr, result.RSDP.RSDTAddr)
	fmt.Printf("root table: %d entries, %d dispatched, %d skipped\n",
		result.Walk.Entries, result.Walk.Dispatched, result.Walk.Skipped)

	for _, hdr := range result.Tables {
		fmt.Printf("  table %q at 0x%x, %d bytes, rev %d, OEM %q\n",
			hdr.Sig(), hdr.Addr, hdr.Length, hdr.Revision, trim(hdr.OEMID[:]))
	}

	if result.Topology == nil {
		fmt.Println("no topology table present")
		return
	}

	top := result.Topology
	fmt.Printf("local APIC at 0x%x\n", top.LocalAPICAddr)
	for _, p := range top.Processors {
		fmt.Printf("  processor %d: apic %d, enabled %v\n", p.ProcessorID, p.APICID, p.Enabled)
	}
	for _, io := range top.IOAPICs {
		fmt.Printf("  ioapic %d: base 0x%x, gsi base %d\n", io.ID, io.Address, io.GSIBase)
	}
	for _, ovr := range top.Overrides {
		fmt.Printf("  override: bus %d irq %d -> gsi %d (polarity %d, trigger %d)\n",
			ovr.Bus, ovr.Source, ovr.GSI, ovr.Polarity, ovr.TriggerMode)
	}
	if top.Unknown > 0 {
		fmt.Printf("  %d unrecognized entries skipped\n", top.Unknown)
	}
	if top.Malformed {
		fmt.Println("  warning: entry stream malformed, report truncated")
	}
}

func trim(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}

// selftestImage builds a one-megabyte guest image with a known
// topology: two processors, one I/O APIC and one ISA override.
func selftestImage() fwtable.Memory {
	oem := acpitest.DefaultOEMInfo()
	w := acpitest.NewTableWriter(0xE4000, oem)

	madtAddr := w.Append(acpitest.TableParams{
		Signature: acpitest.Sig("APIC"),
		Revision:  1,
		Body: acpitest.BuildMADTBody(acpitest.MADTSpec{
			LAPICAddr: 0xFEE00000,
			Flags:     1,
			Processors: []acpitest.ProcessorSpec{
				{ProcessorID: 0, APICID: 0, Enabled: true},
				{ProcessorID: 1, APICID: 1, Enabled: true},
			},
			IOAPICs:   []acpitest.IOAPICSpec{{ID: 1, Address: 0xFEC00000}},
			Overrides: []acpitest.OverrideSpec{{Bus: 0, Source: 0, GSI: 2}},
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
	return fwtable.ImageFromBytes(0, fw.Build(w, rsdtAddr))
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fwdump: %v\n", err)
		os.Exit(1)
	}
}
