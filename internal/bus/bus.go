// Package bus routes CPU addresses to memory, the PPU and the IO registers
// that live outside it.
package bus

import (
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
)

// Joypad button bits for SetJoypadState. The low nibble is the D-pad, the
// high nibble the buttons, each in JOYP bit order.
const (
	JoypRight = 1 << iota
	JoypLeft
	JoypUp
	JoypDown
	JoypA
	JoypB
	JoypSelect
	JoypStart
)

// Interrupt bits in IF/IE.
const (
	IntVBlank = 0
	IntSTAT   = 1
	IntTimer  = 2
	IntSerial = 3
	IntJoypad = 4
)

const (
	oamDMALength = 0xA0
	joypSelMask  = 0x30
)

type Bus struct {
	rom  []byte
	wram [0x2000]byte // C000–DFFF, echoed at E000–FDFF
	hram [0x7F]byte   // FF80–FFFE

	ie    byte // FFFF
	ifReg byte // FF0F (lower 5 bits)

	joypSel byte // JOYP bits 4-5 as last written
	joypad  byte // pressed buttons, Joyp* bits

	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	ppu *ppu.PPU
}

func New(rom []byte) *Bus {
	b := &Bus{rom: rom, joypSel: joypSelMask}
	b.ppu = ppu.New(b.RequestInterrupt)
	return b
}

// PPU returns the picture unit attached to this bus.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// ROM returns the cartridge image the bus was built with.
func (b *Bus) ROM() []byte { return b.rom }

// RequestInterrupt sets bit in IF.
func (b *Bus) RequestInterrupt(bit int) {
	b.ifReg |= 1 << uint(bit)
}

// PendingInterrupts returns the enabled and requested interrupt bits.
func (b *Bus) PendingInterrupts() byte { return b.ie & b.ifReg & 0x1F }

// AckInterrupt clears bit in IF once the CPU has dispatched it.
func (b *Bus) AckInterrupt(bit int) { b.ifReg &^= 1 << uint(bit) }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000: // ROM area
		if int(addr) < len(b.rom) {
			return b.rom[addr]
		}
		return 0xFF // out-of-bounds read
	case addr < 0xA000: // VRAM
		return b.ppu.CPURead(addr)
	case addr < 0xC000: // external RAM, no cartridge RAM mapped
		return 0xFF
	case addr < 0xE000: // WRAM
		return b.wram[addr-0xC000]
	case addr < 0xFE00: // echo
		return b.wram[addr-0xE000]
	case addr < 0xFEA0: // OAM
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr < 0xFF00: // unusable
		return 0xFF
	case addr == 0xFF00:
		return b.readJOYP()
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr == 0xFF46:
		return byte(b.dmaSrc >> 8)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.ie
	default:
		return 0xFF // unmapped
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000: // ROM, banking is not modelled
	case addr < 0xA000:
		b.ppu.CPUWrite(addr, value)
	case addr < 0xC000:
	case addr < 0xE000:
		b.wram[addr-0xC000] = value
	case addr < 0xFE00:
		b.wram[addr-0xE000] = value
	case addr < 0xFEA0:
		if b.dmaActive {
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr < 0xFF00:
	case addr == 0xFF00:
		b.joypSel = value & joypSelMask
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr == 0xFF46:
		b.startDMA(value)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		b.ie = value
	}
}

// SetJoypadState replaces the pressed-button mask. A newly pressed button in
// a selected group requests the joypad interrupt.
func (b *Bus) SetJoypadState(mask byte) {
	pressed := mask &^ b.joypad
	b.joypad = mask
	if pressed&b.selectedButtons() != 0 {
		b.RequestInterrupt(IntJoypad)
	}
}

func (b *Bus) selectedButtons() byte {
	var sel byte
	if b.joypSel&0x10 == 0 {
		sel |= 0x0F
	}
	if b.joypSel&0x20 == 0 {
		sel |= 0xF0
	}
	return sel
}

func (b *Bus) readJOYP() byte {
	low := byte(0x0F)
	if b.joypSel&0x10 == 0 {
		low &^= b.joypad & 0x0F
	}
	if b.joypSel&0x20 == 0 {
		low &^= b.joypad >> 4
	}
	return 0xC0 | b.joypSel | low
}

func (b *Bus) startDMA(page byte) {
	b.dmaSrc = uint16(page) << 8
	b.dmaIndex = 0
	b.dmaActive = true
}

// DMAActive reports whether an OAM DMA transfer is in progress.
func (b *Bus) DMAActive() bool { return b.dmaActive }

// Tick advances OAM DMA by one byte per cycle and the PPU by cycles dots.
func (b *Bus) Tick(cycles int) {
	for i := 0; i < cycles && b.dmaActive; i++ {
		b.ppu.WriteOAM(b.dmaIndex, b.Read(b.dmaSrc+uint16(b.dmaIndex)))
		b.dmaIndex++
		if b.dmaIndex >= oamDMALength {
			b.dmaActive = false
		}
	}
	b.ppu.Tick(cycles)
}
