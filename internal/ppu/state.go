package ppu

import (
	"fmt"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/savestate"
)

const stateVersion = 0

// StateSize is the number of bytes SaveState writes.
const StateSize = 2 + // framing word
	0x2000 + 0xA0 + // VRAM, OAM
	11*2 + // registers
	4 + 4 // dot, frames

// SaveState writes the PPU chunk. The sprite queue is not saved; it is
// rebuilt on the next line.
func (p *PPU) SaveState(w *savestate.Writer) error {
	w.StartChunkVersion(savestate.ChunkPPU, stateVersion)
	w.WriteBuffer(p.vram[:])
	w.WriteBuffer(p.oam[:])
	for _, r := range []byte{p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc, p.bgp, p.obp0, p.obp1, p.wy, p.wx} {
		w.Write16(uint16(r))
	}
	w.Write32(uint32(p.dot))
	w.Write32(p.frames)
	return w.Err()
}

// LoadState restores a PPU chunk. On error the PPU is left unchanged.
func (p *PPU) LoadState(r *savestate.Reader) error {
	version, err := r.ValidateChunk(savestate.ChunkPPU)
	if err != nil {
		return err
	}
	if version > stateVersion {
		return fmt.Errorf("%w: ppu version %d", savestate.ErrUnsupportedVersion, version)
	}

	var s PPU
	r.ReadInto(s.vram[:])
	r.ReadInto(s.oam[:])
	regs := []*byte{&s.lcdc, &s.stat, &s.scy, &s.scx, &s.ly, &s.lyc, &s.bgp, &s.obp0, &s.obp1, &s.wy, &s.wx}
	for _, reg := range regs {
		v, _ := r.Read16()
		*reg = byte(v)
	}
	dot, _ := r.Read32()
	frames, _ := r.Read32()
	if err := r.Err(); err != nil {
		return err
	}
	if dot >= dotsPerLine || s.ly >= linesPerFrame {
		return fmt.Errorf("ppu: corrupt timing state dot=%d ly=%d", dot, s.ly)
	}

	p.vram, p.oam = s.vram, s.oam
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = s.lcdc, s.stat, s.scy, s.scx, s.ly, s.lyc
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = s.bgp, s.obp0, s.obp1, s.wy, s.wx
	p.dot = int(dot)
	p.frames = frames
	p.decodeOBP()
	// A state taken during mode 3 rebuilds the queue of that line and hands
	// it to the line handler again.
	if p.mode() == 3 {
		p.scanSprites()
	} else {
		p.sprites.Clear()
	}
	return nil
}
