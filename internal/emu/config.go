package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace bool // log traps, cartridge loads and savestate events
	// PowerOnIO leaves IO registers at their power-on values instead of the
	// DMG post-boot defaults.
	PowerOnIO bool
}
