package emu

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/savestate"
)

var (
	// ErrCPUMismatch reports a savestate whose CPU chunk presence does not
	// match the machine's attached CPU.
	ErrCPUMismatch = errors.New("emu: savestate CPU presence does not match machine")
	// ErrTrailingData reports bytes left after the last expected chunk.
	ErrTrailingData = errors.New("emu: trailing data after savestate")
)

const stateVersion = 0

// machineStateSize covers the machine chunk: framing word, cycle counter,
// CPU presence.
const machineStateSize = 2 + 4 + 4 + 2

// StateSize is the size of a savestate taken without a CPU.
const StateSize = machineStateSize + bus.StateSize

func (m *Machine) stateSize() int {
	n := StateSize
	if m.cpu != nil {
		n += m.cpu.StateSize()
	}
	return n
}

// SaveState serializes the machine as the chunk sequence Machine, Bus, PPU
// and, with a CPU attached, CPU.
func (m *Machine) SaveState() ([]byte, error) {
	w := savestate.NewWriter(m.stateSize())
	w.StartChunkVersion(savestate.ChunkMachine, stateVersion)
	w.Write32(uint32(m.cycles))
	w.Write32(uint32(m.cycles >> 32))
	w.WriteBool(m.cpu != nil)
	if err := w.Err(); err != nil {
		return nil, err
	}
	if err := m.bus.SaveState(w); err != nil {
		return nil, err
	}
	if m.cpu != nil {
		if err := m.cpu.SaveState(w); err != nil {
			return nil, fmt.Errorf("cpu: %w", err)
		}
	}
	if m.cfg.Trace {
		log.Printf("savestate: wrote %d bytes at cycle %d", w.Len(), m.cycles)
	}
	return w.Bytes(), nil
}

// LoadState restores a savestate into freshly built components and swaps
// them in only when every chunk validated. On error the machine is left
// exactly as it was.
func (m *Machine) LoadState(data []byte) error {
	r := savestate.NewReader(data)
	version, err := r.ValidateChunk(savestate.ChunkMachine)
	if err != nil {
		return err
	}
	if version > stateVersion {
		return fmt.Errorf("%w: machine version %d", savestate.ErrUnsupportedVersion, version)
	}
	lo, _ := r.Read32()
	hi, _ := r.Read32()
	hasCPU, _ := r.ReadBool()
	if err := r.Err(); err != nil {
		return err
	}
	if hasCPU != (m.newCPU != nil) {
		return fmt.Errorf("%w: state has cpu=%v, machine has cpu=%v", ErrCPUMismatch, hasCPU, m.newCPU != nil)
	}

	b := bus.New(m.rom)
	if err := b.LoadState(r); err != nil {
		return err
	}
	var c CPU
	if hasCPU {
		c = m.newCPU(b)
		if err := c.LoadState(r); err != nil {
			return fmt.Errorf("cpu: %w", err)
		}
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, r.Remaining())
	}

	m.attach(b, c)
	m.cycles = uint64(hi)<<32 | uint64(lo)
	m.trapped = nil
	if m.cfg.Trace {
		log.Printf("savestate: restored %d bytes at cycle %d", len(data), m.cycles)
	}
	return nil
}

func (m *Machine) SaveStateToFile(path string) error {
	data, err := m.SaveState()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadState(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
