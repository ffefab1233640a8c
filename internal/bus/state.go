package bus

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/savestate"
)

// ErrROMMismatch reports a savestate taken with a different cartridge image.
var ErrROMMismatch = errors.New("bus: savestate belongs to a different ROM")

const stateVersion = 0

// StateSize is the number of bytes SaveState writes, PPU chunk included.
const StateSize = 2 + // framing word
	4 + // ROM checksum
	0x2000 + 0x80 + // WRAM, HRAM (padded)
	4*2 + // IE, IF, JOYP select, pressed buttons
	3*2 + // DMA active, source, index
	ppu.StateSize

// SaveState writes the bus chunk followed by the PPU chunk.
func (b *Bus) SaveState(w *savestate.Writer) error {
	w.StartChunkVersion(savestate.ChunkBus, stateVersion)
	w.Write32(crc32.ChecksumIEEE(b.rom))
	w.WriteBuffer(b.wram[:])
	w.WriteBuffer(b.hram[:])
	for _, r := range []byte{b.ie, b.ifReg, b.joypSel, b.joypad} {
		w.Write16(uint16(r))
	}
	w.WriteBool(b.dmaActive)
	w.Write16(b.dmaSrc)
	w.Write16(uint16(b.dmaIndex))
	if err := w.Err(); err != nil {
		return err
	}
	return b.ppu.SaveState(w)
}

// LoadState restores the bus and PPU chunks. Nothing is applied unless both
// chunks are valid.
func (b *Bus) LoadState(r *savestate.Reader) error {
	version, err := r.ValidateChunk(savestate.ChunkBus)
	if err != nil {
		return err
	}
	if version > stateVersion {
		return fmt.Errorf("%w: bus version %d", savestate.ErrUnsupportedVersion, version)
	}

	sum, _ := r.Read32()
	var s Bus
	r.ReadInto(s.wram[:])
	r.ReadInto(s.hram[:])
	for _, reg := range []*byte{&s.ie, &s.ifReg, &s.joypSel, &s.joypad} {
		v, _ := r.Read16()
		*reg = byte(v)
	}
	s.dmaActive, _ = r.ReadBool()
	s.dmaSrc, _ = r.Read16()
	idx, _ := r.Read16()
	if err := r.Err(); err != nil {
		return err
	}
	if want := crc32.ChecksumIEEE(b.rom); sum != want {
		return fmt.Errorf("%w: state %08X, loaded %08X", ErrROMMismatch, sum, want)
	}
	if int(idx) > oamDMALength {
		return fmt.Errorf("bus: corrupt DMA index %d", idx)
	}
	if err := b.ppu.LoadState(r); err != nil {
		return fmt.Errorf("ppu: %w", err)
	}

	b.wram, b.hram = s.wram, s.hram
	b.ie, b.ifReg = s.ie, s.ifReg&0x1F
	b.joypSel, b.joypad = s.joypSel&joypSelMask, s.joypad
	b.dmaActive, b.dmaSrc, b.dmaIndex = s.dmaActive, s.dmaSrc, int(idx)
	return nil
}
