package bus

import (
	"errors"
	"testing"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/savestate"
)

func testROM(seed byte) []byte {
	rom := make([]byte, 0x8000)
	for i := range rom {
		rom[i] = byte(i) ^ seed
	}
	return rom
}

func saveBus(t *testing.T, b *Bus) []byte {
	t.Helper()
	w := savestate.NewWriter(StateSize)
	if err := b.SaveState(w); err != nil {
		t.Fatalf("save: %v", err)
	}
	if w.Len() != StateSize {
		t.Fatalf("state size got %d want %d", w.Len(), StateSize)
	}
	return w.Bytes()
}

func TestBusStateRoundTrip(t *testing.T) {
	rom := testROM(0x5A)
	b := New(rom)
	b.Write(0xC123, 0x42)
	b.Write(0xFFFE, 0x24)
	b.Write(0xFFFF, 0x1F)
	b.Write(0xFF00, 0x10)
	b.SetJoypadState(JoypStart)
	b.Write(0xFF40, 0x80)
	b.Write(0xFF46, 0xC0)
	tick(b, 33)
	data := saveBus(t, b)

	c := New(rom)
	if err := c.LoadState(savestate.NewReader(data)); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, addr := range []uint16{0xC123, 0xFFFE, 0xFFFF, 0xFF00, 0xFF0F, 0xFF44, 0xFF41} {
		if got, want := c.Read(addr), b.Read(addr); got != want {
			t.Fatalf("[%04X] got %02X want %02X", addr, got, want)
		}
	}
	if !c.DMAActive() || c.dmaIndex != 33 {
		t.Fatalf("DMA progress not restored: active=%v index=%d", c.DMAActive(), c.dmaIndex)
	}
	tick(b, 200)
	tick(c, 200)
	for i := 0; i < 0xA0; i++ {
		if c.PPU().OAM()[i] != b.PPU().OAM()[i] {
			t.Fatalf("OAM[%02X] diverged after restore", i)
		}
	}
}

func TestBusStateRejectsOtherROM(t *testing.T) {
	data := saveBus(t, New(testROM(1)))
	c := New(testROM(2))
	c.Write(0xC000, 0x99)
	err := c.LoadState(savestate.NewReader(data))
	if !errors.Is(err, ErrROMMismatch) {
		t.Fatalf("got %v want ErrROMMismatch", err)
	}
	if c.Read(0xC000) != 0x99 {
		t.Fatalf("rejected state was applied")
	}
}

func TestBusStateBadPPUChunkLeavesBusUnchanged(t *testing.T) {
	rom := testROM(3)
	src := New(rom)
	src.Write(0xC000, 0x11)
	data := saveBus(t, src)
	// clear the magic nibble of the PPU framing word (high byte, little endian)
	data[StateSize-ppu.StateSize+1] &= 0x0F

	c := New(rom)
	c.Write(0xC000, 0x77)
	err := c.LoadState(savestate.NewReader(data))
	if !errors.Is(err, savestate.ErrBadMagic) {
		t.Fatalf("got %v want ErrBadMagic", err)
	}
	if c.Read(0xC000) != 0x77 {
		t.Fatalf("bus fields applied although the PPU chunk was invalid")
	}
}
