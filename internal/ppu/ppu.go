package ppu

// InterruptRequester is a callback signature to request IF bits (0: VBlank).
type InterruptRequester func(bit int)

// LineHandler receives the sprite queue of a visible line as soon as it has
// been built, at the start of mode 3.
type LineHandler func(ly int, q *SpriteQueue)

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	dotsPerLine   = 456
	linesPerFrame = 154
	oamScanDots   = 80
	transferDots  = 172
)

// LCDC bits used by the object pipeline.
const (
	lcdcOBJEnable = 1 << 1
	lcdcOBJSize   = 1 << 2
	lcdcEnable    = 1 << 7
)

// dmgShades are the four DMG greys, lightest first.
var dmgShades = [4]uint32{0xFFFFFFFF, 0xFFC0C0C0, 0xFF606060, 0xFF000000}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC and line timing.
// It exposes CPU-facing Read/Write for VRAM/OAM and PPU IO regs and builds
// the per-line sprite queue for the object renderer.
type PPU struct {
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot    int // dots within current line [0..455]
	frames uint32

	// objPal[0] and objPal[1] are decoded from OBP0/OBP1 on every write.
	objPal [2]Palette

	sprites *SpriteQueue
	onLine  LineHandler
	req     InterruptRequester
}

func New(req InterruptRequester) *PPU {
	p := &PPU{req: req}
	p.sprites = NewSpriteQueue(p.oam[:], p, &p.objPal[0], &p.objPal[1])
	p.decodeOBP()
	return p
}

// OnLine registers the handler called once per visible line.
func (p *PPU) OnLine(h LineHandler) { p.onLine = h }

// Sprites returns the queue of the most recently started line.
func (p *PPU) Sprites() *SpriteQueue { return p.sprites }

// TileWord implements TileReader over the 0x8000 tile block.
func (p *PPU) TileWord(index int) uint16 {
	off := (index & 0x0FFF) * 2
	return uint16(p.vram[off]) | uint16(p.vram[off+1])<<8
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		// VRAM is inaccessible to CPU during mode 3
		if p.mode() == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		// OAM is inaccessible during modes 2 and 3
		if m := p.mode(); m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		// bit7 reads as 1
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.mode() == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m := p.mode(); m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&lcdcEnable) == 0 && (prev&lcdcEnable) != 0 {
			// Turning LCD off resets LY/mode
			p.ly = 0
			p.dot = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&lcdcEnable) != 0 && (prev&lcdcEnable) == 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & lcdcEnable) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
		p.decodeOBP()
	case addr == 0xFF49:
		p.obp1 = value
		p.decodeOBP()
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// WriteOAM stores a byte regardless of the current mode; used by OAM DMA.
func (p *PPU) WriteOAM(index int, value byte) {
	if index >= 0 && index < len(p.oam) {
		p.oam[index] = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & lcdcEnable) == 0 {
			continue
		}
		p.dot++
		var mode byte
		if p.ly >= ScreenHeight {
			mode = 1
		} else {
			switch {
			case p.dot < oamScanDots:
				mode = 2
			case p.dot < oamScanDots+transferDots:
				mode = 3
			default:
				mode = 0
			}
		}
		p.setMode(mode)

		if p.dot >= dotsPerLine {
			p.dot = 0
			p.ly++
			if p.ly == ScreenHeight {
				if p.req != nil {
					p.req(0)
				}
			} else if p.ly >= linesPerFrame {
				p.ly = 0
				p.frames++
			}
			p.updateLYC()
			if p.ly >= ScreenHeight {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) mode() byte { return p.stat & 0x03 }

func (p *PPU) setMode(mode byte) {
	if p.mode() == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	if mode == 3 {
		p.scanSprites()
	}
}

// scanSprites runs the OAM scan for the current line and hands the result
// to the line handler.
func (p *PPU) scanSprites() {
	if p.ly >= ScreenHeight {
		return
	}
	if p.lcdc&lcdcOBJEnable != 0 {
		p.sprites.Initialize(int(p.ly), p.lcdc&lcdcOBJSize != 0)
	} else {
		p.sprites.Clear()
	}
	if p.onLine != nil {
		p.onLine(int(p.ly), p.sprites)
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
	} else {
		p.stat &^= 1 << 2
	}
}

func (p *PPU) decodeOBP() {
	p.objPal[0] = decodePalette(p.obp0)
	p.objPal[1] = decodePalette(p.obp1)
}

// decodePalette maps each 2-bit field of a DMG palette register to a grey.
func decodePalette(reg byte) Palette {
	var pal Palette
	for ci := 0; ci < 4; ci++ {
		pal[ci] = dmgShades[(reg>>(ci*2))&0x03]
	}
	return pal
}

// BGColor returns the colour BGP assigns to colour index 0.
func (p *PPU) BGColor() uint32 { return dmgShades[p.bgp&0x03] }

// Frames counts completed frames since power on.
func (p *PPU) Frames() uint32 { return p.frames }

// Expose registers for the renderer and inspectors.
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) LY() byte   { return p.ly }
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }

// OAM returns the live object attribute memory.
func (p *PPU) OAM() []byte { return p.oam[:] }
