//go:build !tinygo

// Command flashimg builds an internal-flash image on the host: it
// programs an Intel HEX firmware through the real flash controller
// running against the simulated peripheral, verifies every segment by
// read-back, and writes the resulting main memory area to a file ready
// for a device programmer.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/marcinbor85/gohex"
	"github.com/sigurn/crc16"

	"github.com/pablo-mansanet-bluefruit/blue-hal/flash"
	"github.com/pablo-mansanet-bluefruit/blue-hal/hal"
	"github.com/pablo-mansanet-bluefruit/blue-hal/internal/buildinfo"
)

const defaultImagePath = "flash.img"

func main() {
	var hexPath string
	var outPath string
	var variant string
	var showVersion bool
	flag.StringVar(&hexPath, "hex", "", "Input firmware in Intel HEX format.")
	flag.StringVar(&outPath, "out", defaultImagePath, "Output flash image path.")
	flag.StringVar(&variant, "variant", "stm32f412", "Memory map variant (stm32f412 or stm32f446).")
	flag.BoolVar(&showVersion, "version", false, "Print the tool version and exit.")
	flag.Parse()

	if showVersion {
		fmt.Println("flashimg", buildinfo.Short())
		return
	}
	if hexPath == "" {
		fmt.Fprintln(os.Stderr, "error: -hex is required")
		os.Exit(2)
	}

	if err := run(hexPath, outPath, variant); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func mapForVariant(variant string) (flash.MemoryMap, error) {
	switch variant {
	case "stm32f412":
		return flash.STM32F412, nil
	case "stm32f446":
		return flash.STM32F446, nil
	default:
		return flash.MemoryMap{}, fmt.Errorf("unknown variant %q", variant)
	}
}

func run(hexPath, outPath, variant string) error {
	m, err := mapForVariant(variant)
	if err != nil {
		return err
	}

	area := m.MainArea()
	base := area[0].Start()
	sizes := make([]uint32, len(area))
	for i, s := range area {
		sizes[i] = s.Size
	}

	sim := hal.NewHostFlash(uint32(base), sizes)
	sim.BusyPolls = 0
	c := flash.NewController(sim, m)

	f, err := os.Open(hexPath)
	if err != nil {
		return fmt.Errorf("open hex %q: %w", hexPath, err)
	}
	defer func() { _ = f.Close() }()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(f); err != nil {
		return fmt.Errorf("parse hex %q: %w", hexPath, err)
	}

	table := crc16.MakeTable(crc16.CRC16_CCITT_FALSE)
	total := 0
	for _, segment := range mem.GetDataSegments() {
		address := flash.Address(segment.Address)
		if err := flash.Retry(func() error { return c.Write(address, segment.Data) }); err != nil {
			return fmt.Errorf("program %d bytes at %#x: %w", len(segment.Data), segment.Address, err)
		}

		readback := make([]byte, len(segment.Data))
		if err := c.Read(address, readback); err != nil {
			return fmt.Errorf("read back at %#x: %w", segment.Address, err)
		}
		want := crc16.Checksum(segment.Data, table)
		got := crc16.Checksum(readback, table)
		if got != want {
			return fmt.Errorf("verify at %#x: crc16 %04x, want %04x", segment.Address, got, want)
		}

		fmt.Printf("programmed %6d bytes at %#010x  crc16 %04x\n", len(segment.Data), segment.Address, got)
		total += len(segment.Data)
	}
	if total == 0 {
		return fmt.Errorf("hex %q contains no data segments", hexPath)
	}

	if err := os.WriteFile(outPath, sim.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write image %q: %w", outPath, err)
	}

	start, end := c.Range()
	fmt.Printf("%s: %d bytes programmed, writable area [%#010x, %#010x), image %q\n",
		c.Label(), total, uint32(start), uint32(end), outPath)
	return nil
}
