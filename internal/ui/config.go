package ui

// Config contains window, pacing and savestate settings.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor

	StateDir  string // directory holding savestate slots
	StateName string // slot file stem, usually the cartridge title

	Speed       float64 // initial speed multiplier
	SpeedStep   float64 // change per -/= press
	MaxSpeed    float64
	FastForward float64 // extra multiplier while Tab is held

	ShowStats bool // draw scheduler statistics over the game view
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbemu"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.StateDir == "" {
		c.StateDir = "states"
	}
	if c.StateName == "" {
		c.StateName = "untitled"
	}
	if c.Speed <= 0 {
		c.Speed = 1
	}
	if c.SpeedStep <= 0 {
		c.SpeedStep = 0.25
	}
	if c.MaxSpeed <= 0 {
		c.MaxSpeed = 8
	}
	if c.FastForward <= 0 {
		c.FastForward = 4
	}
}
