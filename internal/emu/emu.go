// Package emu composes the bus, the PPU and an optional CPU into a machine
// the scheduler can drive.
package emu

import (
	"fmt"
	"log"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/savestate"
)

const (
	// ClockHz is the DMG master clock.
	ClockHz = 4194304
	// FrameCycles is one full LCD frame, 154 lines of 456 dots.
	FrameCycles = 70224
	// haltCycles is what one step costs without a CPU: a halted CPU still
	// clocks the rest of the machine one machine cycle at a time.
	haltCycles = 4

	romSize = 0x8000
)

// CPU is the instruction core. It is built over a bus by a CPUFactory so the
// machine can stage a fresh one when restoring a savestate. Step executes one
// instruction without ticking the bus and returns the cycles it took; an
// error is reported through the machine's trap channel.
type CPU interface {
	Step() (cycles int, err error)
	// StateSize is the number of bytes SaveState writes.
	StateSize() int
	savestate.Serializer
}

// CPUFactory builds a CPU over b.
type CPUFactory func(b *bus.Bus) CPU

type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

type Machine struct {
	cfg    Config
	rom    []byte
	header cart.Header

	bus    *bus.Bus
	cpu    CPU
	newCPU CPUFactory

	fb     []byte // RGBA 160x144*4
	cycles uint64

	onTrap  []func(error)
	trapped error
}

// New returns a machine with a blank 32 KiB ROM and no CPU attached.
func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg, fb: make([]byte, 160*144*4)}
	m.reset(make([]byte, romSize))
	return m
}

// LoadCartridge replaces the ROM and resets the machine. Images that need a
// mapper are accepted; only their first 32 KiB are visible.
func (m *Machine) LoadCartridge(rom []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return err
	}
	if m.cfg.Trace {
		log.Printf("cart: %s", h)
	}
	if !h.ChecksumOK {
		log.Printf("cart: header checksum mismatch for %q", h.Title)
	}
	if h.NeedsMapper() {
		log.Printf("cart: %q needs a mapper, only the first 32KiB are mapped", h.Title)
	}
	m.header = h
	m.reset(rom)
	return nil
}

// Title is the cartridge title from the header, empty for the blank ROM.
func (m *Machine) Title() string { return m.header.Title }

func (m *Machine) reset(rom []byte) {
	m.rom = rom
	m.cycles = 0
	m.trapped = nil
	for i := range m.fb {
		m.fb[i] = 0xFF
	}
	b := bus.New(rom)
	var c CPU
	if m.newCPU != nil {
		c = m.newCPU(b)
	}
	m.attach(b, c)
	if !m.cfg.PowerOnIO {
		applyDMGPostBootIO(b)
	}
}

// attach makes b and c the live components.
func (m *Machine) attach(b *bus.Bus, c CPU) {
	m.bus = b
	m.cpu = c
	b.PPU().OnLine(m.renderLine)
}

// AttachCPU installs a CPU built by f over the current bus. A nil factory
// detaches the CPU; the machine then runs as a halted CPU would.
func (m *Machine) AttachCPU(f CPUFactory) {
	m.newCPU = f
	m.cpu = nil
	if f != nil {
		m.cpu = f(m.bus)
	}
}

// HasCPU reports whether a CPU is attached.
func (m *Machine) HasCPU() bool { return m.cpu != nil }

// Bus exposes the live bus. It is replaced by LoadState and LoadCartridge.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// ClockHz implements scheduler.System.
func (m *Machine) ClockHz() float64 { return ClockHz }

// Cycles counts machine cycles since the last reset, restored by LoadState.
func (m *Machine) Cycles() uint64 { return m.cycles }

// Step executes one CPU instruction, or one halted machine cycle without a
// CPU, and clocks the bus for the same number of cycles.
func (m *Machine) Step() int {
	c := haltCycles
	if m.cpu != nil {
		n, err := m.cpu.Step()
		if err != nil {
			m.Trap(err)
		}
		if n > 0 {
			c = n
		}
	}
	m.bus.Tick(c)
	m.cycles += uint64(c)
	return c
}

// StepFrame advances approximately one frame worth of cycles (~70224) and
// returns the cycles executed.
func (m *Machine) StepFrame() int {
	acc := 0
	for acc < FrameCycles {
		acc += m.Step()
	}
	return acc
}

// OnTrap registers fn to be told about fatal CPU conditions. The machine
// keeps running; stopping is the caller's decision.
func (m *Machine) OnTrap(fn func(error)) { m.onTrap = append(m.onTrap, fn) }

// Trap records err and notifies the trap handlers.
func (m *Machine) Trap(err error) {
	m.trapped = err
	if m.cfg.Trace {
		log.Printf("trap: cycle=%d %v", m.cycles, err)
	}
	for _, fn := range m.onTrap {
		fn(err)
	}
}

// Trapped returns the last trap since reset, or nil.
func (m *Machine) Trapped() error { return m.trapped }

func (m *Machine) SetButtons(b Buttons) {
	// Map buttons to joypad mask
	var mask byte
	if b.Right {
		mask |= bus.JoypRight
	}
	if b.Left {
		mask |= bus.JoypLeft
	}
	if b.Up {
		mask |= bus.JoypUp
	}
	if b.Down {
		mask |= bus.JoypDown
	}
	if b.A {
		mask |= bus.JoypA
	}
	if b.B {
		mask |= bus.JoypB
	}
	if b.Select {
		mask |= bus.JoypSelect
	}
	if b.Start {
		mask |= bus.JoypStart
	}
	m.bus.SetJoypadState(mask)
}

// applyDMGPostBootIO sets the IO registers the boot ROM leaves behind, so a
// machine without a boot ROM starts with the LCD enabled.
func applyDMGPostBootIO(b *bus.Bus) {
	b.Write(0xFF00, 0xCF) // Joypad: both groups selected
	b.Write(0xFF40, 0x91) // LCDC: LCD on, BG on, objects off, tile data 8000
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF0F, 0xE1) // IF: VBlank pending
	b.Write(0xFFFF, 0x00) // IE
}

func (m *Machine) String() string {
	return fmt.Sprintf("machine %q cycles=%d cpu=%v", m.header.Title, m.cycles, m.cpu != nil)
}
