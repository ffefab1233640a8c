// Package scheduler paces an emulated machine against host time.
//
// The Scheduler is a cooperative pump. Every Tick runs one timeslice sized
// from the host time elapsed since the previous slice, the machine clock and
// the speed multiplier. The difference between the cycles asked for and the
// cycles the machine actually executed is carried into the next slice, so the
// long-run rate converges on the multiplier whatever the slice jitter.
//
// A Scheduler is not safe for concurrent use. Start, Stop, SetSpeed and Tick
// belong to the goroutine that drives the slices.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSpeed is returned by SetSpeed for multipliers that are not
// finite and positive.
var ErrInvalidSpeed = errors.New("scheduler: speed must be finite and > 0")

// System is the emulated machine driven by the scheduler.
type System interface {
	// Step executes one unit of work and returns the cycles it consumed.
	Step() int
	// ClockHz is the nominal machine clock.
	ClockHz() float64
}

// Clock abstracts host time for tests.
type Clock interface {
	Now() time.Time
}

type hostClock struct{}

func (hostClock) Now() time.Time { return time.Now() }

// HostClock reads the wall clock.
var HostClock Clock = hostClock{}

// Config tunes slice sizing and reporting. Zero fields take their defaults.
type Config struct {
	// Quantum is the pump interval used by Run.
	Quantum time.Duration
	// ReportInterval is the host time between two Stats notifications.
	ReportInterval time.Duration
	// MaxSlice bounds the host time a single slice may account for, so a
	// stalled host does not turn into a long catch-up burst.
	MaxSlice time.Duration
	Clock    Clock
}

// Defaults returns c with zero fields filled in.
func (c Config) Defaults() Config {
	if c.Quantum <= 0 {
		c.Quantum = time.Second / 60
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = time.Second
	}
	if c.MaxSlice <= 0 {
		c.MaxSlice = 100 * time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = HostClock
	}
	return c
}

// Scheduler drives one System.
type Scheduler struct {
	sys   System
	cfg   Config
	speed float64

	running bool
	last    time.Time // end of the previous slice
	carry   float64   // cycles owed (+) or overrun (-)
	total   uint64

	window windowStats

	before []func()
	after  []func(cycles int)
	stats  []func(Stats)
}

// New binds a stopped scheduler at speed 1.0 to sys.
func New(sys System, cfg Config) *Scheduler {
	return &Scheduler{sys: sys, cfg: cfg.Defaults(), speed: 1}
}

// Start moves the scheduler to running. Timing baselines and drift are reset
// so a long stop does not cause a burst of catch-up cycles. It reports false
// when the scheduler was already running.
func (s *Scheduler) Start() bool {
	if s.running {
		return false
	}
	now := s.cfg.Clock.Now()
	s.running = true
	s.last = now
	s.carry = 0
	s.window.reset(now)
	return true
}

// Stop halts the pump. A slice in progress runs to completion. It reports
// false when the scheduler was already stopped.
func (s *Scheduler) Stop() bool {
	if !s.running {
		return false
	}
	s.running = false
	return true
}

func (s *Scheduler) IsRunning() bool { return s.running }

// SetSpeed sets the speed multiplier used from the next slice on.
func (s *Scheduler) SetSpeed(m float64) error {
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, m)
	}
	s.speed = m
	return nil
}

func (s *Scheduler) Speed() float64 { return s.speed }

// TotalCycles counts every cycle executed since New.
func (s *Scheduler) TotalCycles() uint64 { return s.total }

// OnBeforeSlice registers fn to run before every slice.
func (s *Scheduler) OnBeforeSlice(fn func()) { s.before = append(s.before, fn) }

// OnAfterSlice registers fn to run after every slice with the cycles executed.
func (s *Scheduler) OnAfterSlice(fn func(cycles int)) { s.after = append(s.after, fn) }

// OnStats registers fn to receive a Stats sample every ReportInterval.
func (s *Scheduler) OnStats(fn func(Stats)) { s.stats = append(s.stats, fn) }

// Tick runs one slice if the scheduler is running and returns the cycles it
// executed.
func (s *Scheduler) Tick() int {
	if !s.running {
		return 0
	}
	start := s.cfg.Clock.Now()
	elapsed := start.Sub(s.last)
	if elapsed > s.cfg.MaxSlice {
		elapsed = s.cfg.MaxSlice
	} else if elapsed < 0 {
		elapsed = 0
	}
	s.last = start

	budget := elapsed.Seconds()*s.sys.ClockHz()*s.speed + s.carry

	for _, fn := range s.before {
		fn()
	}
	executed := 0
	for float64(executed) < budget {
		c := s.sys.Step()
		if c <= 0 {
			// a Step that reports no cycles still counts, or the slice never ends
			c = 1
		}
		executed += c
	}
	s.carry = budget - float64(executed)
	s.total += uint64(executed)
	end := s.cfg.Clock.Now()

	for _, fn := range s.after {
		fn(executed)
	}

	s.window.add(executed, end.Sub(start))
	if end.Sub(s.window.start) >= s.cfg.ReportInterval {
		st := s.window.sample(end, s.sys.ClockHz())
		s.window.reset(end)
		for _, fn := range s.stats {
			fn(st)
		}
	}
	return executed
}

// Run starts the scheduler and pumps a slice every Quantum until ctx is done
// or the scheduler is stopped. It returns ctx.Err() on cancellation and nil
// after Stop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	t := time.NewTicker(s.cfg.Quantum)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Tick()
			if !s.running {
				return nil
			}
		}
	}
}
