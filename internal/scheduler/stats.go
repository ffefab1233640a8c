package scheduler

import "time"

// Stats is the throughput realised over one reporting window, relative to
// the nominal machine clock.
type Stats struct {
	// EmulationSpeed is cycles executed over cycles a real machine would run
	// in the same host time. It tracks the speed multiplier.
	EmulationSpeed float64
	// HostSpeed is cycles executed over the time spent inside slices. It is
	// the fastest the host could run the machine.
	HostSpeed float64
	Cycles    uint64
	Window    time.Duration
}

type windowStats struct {
	start  time.Time
	cycles uint64
	busy   time.Duration
}

func (w *windowStats) reset(now time.Time) {
	w.start = now
	w.cycles = 0
	w.busy = 0
}

func (w *windowStats) add(cycles int, busy time.Duration) {
	w.cycles += uint64(cycles)
	w.busy += busy
}

func (w *windowStats) sample(now time.Time, clockHz float64) Stats {
	st := Stats{Cycles: w.cycles, Window: now.Sub(w.start)}
	if secs := st.Window.Seconds(); secs > 0 {
		st.EmulationSpeed = float64(w.cycles) / (secs * clockHz)
	}
	if secs := w.busy.Seconds(); secs > 0 {
		st.HostSpeed = float64(w.cycles) / (secs * clockHz)
	}
	return st
}
