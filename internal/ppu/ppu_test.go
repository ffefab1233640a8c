package ppu

import (
	"testing"
)

// helper to read mode bits from STAT (FF41)
func statMode(p *PPU) byte { return p.CPURead(0xFF41) & 0x03 }

func TestPPUModeSequenceOneLine(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 after LCD on, got %d", m)
	}
	p.Tick(80)
	if m := statMode(p); m != 3 {
		t.Fatalf("expected mode 3 at dot 80, got %d", m)
	}
	p.Tick(172)
	if m := statMode(p); m != 0 {
		t.Fatalf("expected mode 0 at dot 252, got %d", m)
	}
	p.Tick(456 - 252)
	if ly := p.CPURead(0xFF44); ly != 1 {
		t.Fatalf("expected LY=1, got %d", ly)
	}
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 at new line, got %d", m)
	}
}

func TestPPUVBlankInterruptAndFrameCount(t *testing.T) {
	var got []int
	p := New(func(bit int) { got = append(got, bit) })
	p.CPUWrite(0xFF40, 0x80)
	p.Tick(144 * 456)
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected a single VBlank request at LY=144, got %v", got)
	}
	if m := statMode(p); m != 1 {
		t.Fatalf("expected mode 1 in VBlank, got %d", m)
	}
	p.Tick(10 * 456)
	if p.LY() != 0 || p.Frames() != 1 {
		t.Fatalf("after a full frame LY=%d frames=%d, want 0 and 1", p.LY(), p.Frames())
	}
}

func TestPPULYCCoincidenceFlag(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF45, 2)
	p.CPUWrite(0xFF40, 0x80)
	if p.CPURead(0xFF41)&0x04 != 0 {
		t.Fatalf("coincidence set at LY=0 with LYC=2")
	}
	p.Tick(2 * 456)
	if p.CPURead(0xFF41)&0x04 == 0 {
		t.Fatalf("coincidence not set at LY=2")
	}
	p.Tick(456)
	if p.CPURead(0xFF41)&0x04 != 0 {
		t.Fatalf("coincidence still set at LY=3")
	}
}

func TestPPUStatWriteKeepsModeAndFlag(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)
	p.CPUWrite(0xFF41, 0xFF)
	got := p.CPURead(0xFF41)
	// bit7 reads 1, enables 3-6 stored, LY==LYC==0 so bit2 set, mode 2
	if want := byte(0x80 | 0x78 | 0x04 | 0x02); got != want {
		t.Fatalf("STAT got %02X want %02X", got, want)
	}
}

func TestPPUAccessBlocking(t *testing.T) {
	p := New(nil)
	// LCD off: everything accessible
	p.CPUWrite(0x8000, 0x11)
	p.CPUWrite(0xFE00, 0x22)
	if p.CPURead(0x8000) != 0x11 || p.CPURead(0xFE00) != 0x22 {
		t.Fatalf("VRAM/OAM not accessible with LCD off")
	}

	p.CPUWrite(0xFF40, 0x80) // mode 2
	if got := p.CPURead(0xFE00); got != 0xFF {
		t.Fatalf("OAM read in mode 2 got %02X want FF", got)
	}
	p.CPUWrite(0xFE00, 0x33)
	if got := p.CPURead(0x8000); got != 0x11 {
		t.Fatalf("VRAM read in mode 2 got %02X want 11", got)
	}

	p.Tick(80) // mode 3
	if got := p.CPURead(0x8000); got != 0xFF {
		t.Fatalf("VRAM read in mode 3 got %02X want FF", got)
	}
	p.CPUWrite(0x8000, 0x44)

	p.Tick(172) // mode 0
	if got := p.CPURead(0x8000); got != 0x11 {
		t.Fatalf("VRAM write during mode 3 was not ignored, got %02X", got)
	}
	if got := p.CPURead(0xFE00); got != 0x22 {
		t.Fatalf("OAM write during mode 2 was not ignored, got %02X", got)
	}

	// DMA path ignores the mode
	p.CPUWrite(0xFF40, 0x00)
	p.CPUWrite(0xFF40, 0x80)
	p.WriteOAM(0, 0x55)
	if p.OAM()[0] != 0x55 {
		t.Fatalf("WriteOAM got %02X want 55", p.OAM()[0])
	}
}

func TestPPULCDOffResetsLine(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)
	p.Tick(5*456 + 100)
	p.CPUWrite(0xFF40, 0x00)
	if p.LY() != 0 || statMode(p) != 0 {
		t.Fatalf("LCD off: LY=%d mode=%d, want 0 and 0", p.LY(), statMode(p))
	}
	p.Tick(1000)
	if p.LY() != 0 {
		t.Fatalf("LY advanced with LCD off: %d", p.LY())
	}
}

func TestPPULYWriteResetsLine(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)
	p.Tick(7*456 + 90)
	p.CPUWrite(0xFF44, 0x99)
	if p.LY() != 0 || statMode(p) != 2 {
		t.Fatalf("LY write: LY=%d mode=%d, want 0 and 2", p.LY(), statMode(p))
	}
}

func TestPPUObjectPaletteDecode(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF48, 0xE4) // 3,2,1,0
	p.CPUWrite(0xFF49, 0x1B) // 0,1,2,3
	if p.CPURead(0xFF48) != 0xE4 || p.OBP1() != 0x1B {
		t.Fatalf("OBP registers not stored")
	}
	want0 := Palette{dmgShades[0], dmgShades[1], dmgShades[2], dmgShades[3]}
	want1 := Palette{dmgShades[3], dmgShades[2], dmgShades[1], dmgShades[0]}
	if p.objPal[0] != want0 {
		t.Fatalf("OBP0 palette got %08X want %08X", p.objPal[0], want0)
	}
	if p.objPal[1] != want1 {
		t.Fatalf("OBP1 palette got %08X want %08X", p.objPal[1], want1)
	}
	p.CPUWrite(0xFF47, 0x03)
	if p.BGColor() != dmgShades[3] {
		t.Fatalf("BGColor got %08X want %08X", p.BGColor(), dmgShades[3])
	}
}

func TestPPUTileWordLittleEndian(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0x8010, 0x34)
	p.CPUWrite(0x8011, 0x12)
	if got := p.TileWord(8); got != 0x1234 {
		t.Fatalf("TileWord(8) got %04X want 1234", got)
	}
}

// setupSprite writes one sprite and its tile row while the LCD is off.
func setupSprite(p *PPU, slot int, x, y int, tile, flags byte) {
	base := uint16(0xFE00 + slot*4)
	p.CPUWrite(base, byte(y+16))
	p.CPUWrite(base+1, byte(x+8))
	p.CPUWrite(base+2, tile)
	p.CPUWrite(base+3, flags)
}

func TestPPULineHandlerReceivesQueue(t *testing.T) {
	p := New(nil)
	setupSprite(p, 0, 30, 0, 1, FlagPalette1)
	p.CPUWrite(0x8010, 0xFF) // tile 1 row 0 low plane
	p.CPUWrite(0xFF49, 0xE4)

	var lines []int
	var first SpriteQueue
	p.OnLine(func(ly int, q *SpriteQueue) {
		if ly == 0 {
			first = *q
		}
		lines = append(lines, ly)
	})
	p.CPUWrite(0xFF40, 0x80|lcdcOBJEnable)
	p.Tick(154 * 456)

	if len(lines) != ScreenHeight {
		t.Fatalf("line handler called %d times want %d", len(lines), ScreenHeight)
	}
	for i, ly := range lines {
		if ly != i {
			t.Fatalf("call %d got LY %d", i, ly)
		}
	}
	if first.Len != 1 || first.X[0] != 30 || first.Data[0] != 0x00FF {
		t.Fatalf("line 0 queue Len=%d X=%d data=%04X", first.Len, first.X[0], first.Data[0])
	}
	if first.Palette[0] != &p.objPal[1] {
		t.Fatalf("line 0 sprite does not use OBP1")
	}
}

func TestPPUObjectsDisabledClearsQueue(t *testing.T) {
	p := New(nil)
	setupSprite(p, 0, 30, 0, 0, 0)
	lens := -1
	p.OnLine(func(ly int, q *SpriteQueue) {
		if ly == 0 {
			lens = q.Len
		}
	})
	p.CPUWrite(0xFF40, 0x80)
	p.Tick(80)
	if lens != 0 {
		t.Fatalf("queue length with objects disabled got %d want 0", lens)
	}
}

func TestPPUDoubleHeightFromLCDC(t *testing.T) {
	p := New(nil)
	setupSprite(p, 0, 0, 0, 3, 0)
	p.CPUWrite(0x8000+2*16+2*2, 0xAB) // tile 2 row 2
	p.CPUWrite(0x8000+3*16+2*2, 0xCD) // tile 3 row 2
	p.CPUWrite(0xFF40, 0x80|lcdcOBJEnable|lcdcOBJSize)
	p.Tick(2*456 + 80)
	q := p.Sprites()
	if q.Len != 1 || q.Data[0] != 0x00AB {
		t.Fatalf("8x16 queue Len=%d data=%04X want 1 and 00AB", q.Len, q.Data[0])
	}
}
