// Command statedump prints the PPU registers and per-line sprite queues
// stored in a savestate.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
)

var regNames = []struct {
	addr uint16
	name string
}{
	{0xFF40, "LCDC"}, {0xFF41, "STAT"}, {0xFF42, "SCY"}, {0xFF43, "SCX"},
	{0xFF44, "LY"}, {0xFF45, "LYC"}, {0xFF47, "BGP"}, {0xFF48, "OBP0"},
	{0xFF49, "OBP1"}, {0xFF4A, "WY"}, {0xFF4B, "WX"},
}

func main() {
	statePath := flag.String("state", "", "savestate to inspect")
	romPath := flag.String("rom", "", "ROM the state was taken with (blank ROM if empty)")
	line := flag.Int("line", -1, "scanline to dump, -1 for every visible line")
	flag.Parse()

	if *statePath == "" {
		log.Fatal("-state is required")
	}
	if *line < -1 || *line >= ppu.ScreenHeight {
		log.Fatalf("-line must be -1 or 0..%d", ppu.ScreenHeight-1)
	}

	m := emu.New(emu.Config{})
	if *romPath != "" {
		rom, err := os.ReadFile(*romPath)
		if err != nil {
			log.Fatalf("read rom: %v", err)
		}
		if err := m.LoadCartridge(rom); err != nil {
			log.Fatalf("load cart: %v", err)
		}
	}
	if err := m.LoadStateFromFile(*statePath); err != nil {
		log.Fatal(err)
	}
	dump(os.Stdout, m, *line)
}

func dump(w io.Writer, m *emu.Machine, only int) {
	p := m.Bus().PPU()
	fmt.Fprintf(w, "cycles=%d frames=%d\n", m.Cycles(), p.Frames())
	for _, r := range regNames {
		fmt.Fprintf(w, "%-4s %02X\n", r.name, p.CPURead(r.addr))
	}

	tall := p.LCDC()&(1<<2) != 0
	q := p.Sprites()
	first, last := 0, ppu.ScreenHeight-1
	if only >= 0 {
		first, last = only, only
	}
	for ly := first; ly <= last; ly++ {
		q.Initialize(ly, tall)
		if q.Len == 0 {
			continue
		}
		fmt.Fprintf(w, "line %3d: %d sprite(s)\n", ly, q.Len)
		for i := 0; i < q.Len; i++ {
			pal := 0
			if q.Flags[i]&ppu.FlagPalette1 != 0 {
				pal = 1
			}
			fmt.Fprintf(w, "  [%d] x=%4d flags=%02X data=%04X pal=%d\n", i, q.X[i], q.Flags[i], q.Data[i], pal)
		}
	}
}
