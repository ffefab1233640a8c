package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/scheduler"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ui"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

type CLIFlags struct {
	ROMPath   string
	StatePath string // savestate to resume from
	Scale     int
	Title     string
	Speed     float64
	StateDir  string
	Trace     bool
	Stats     bool // scheduler stats overlay

	// headless
	Headless bool
	Frames   int
	Paced    bool // run headless frames through the scheduler at real speed
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
	SaveOut  string // write a savestate after the headless run

	StatsView string // address for the runtime statsview server, empty disables it
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb); savestates only load over the ROM they were taken with")
	flag.StringVar(&f.StatePath, "state", "", "savestate to load at start")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbemu", "window title")
	flag.Float64Var(&f.Speed, "speed", 1, "speed multiplier")
	flag.StringVar(&f.StateDir, "statedir", "states", "directory for savestate slots")
	flag.BoolVar(&f.Trace, "trace", false, "log cartridge and savestate details")
	flag.BoolVar(&f.Stats, "stats", false, "show scheduler statistics overlay")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.BoolVar(&f.Paced, "paced", false, "headless: pace emulation to real time through the scheduler")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.StringVar(&f.SaveOut, "saveout", "", "write a savestate to path after the headless run")
	flag.StringVar(&f.StatsView, "statsview", "", "serve runtime statistics at addr (e.g. localhost:12600)")
	flag.Parse()
	return f
}

func launchStatsView(addr string) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()
	log.Printf("statsview: http://%s/debug/statsview", addr)
}

func logStats(st scheduler.Stats) {
	log.Printf("sched: emu=%.1f%% host=%.2fx cycles=%d window=%s",
		st.EmulationSpeed*100, st.HostSpeed, st.Cycles, st.Window.Truncate(time.Millisecond))
}

func runHeadless(m *emu.Machine, f CLIFlags) error {
	frames := f.Frames
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	if f.Paced {
		if err := runPaced(m, frames, f.Speed); err != nil {
			return err
		}
	} else {
		for i := 0; i < frames && m.Trapped() == nil; i++ {
			m.StepFrame()
		}
	}
	dur := time.Since(start)
	if err := m.Trapped(); err != nil {
		log.Printf("headless: trapped at cycle %d: %v", m.Cycles(), err)
	}

	crc := m.FramebufferCRC()
	log.Printf("headless: frames=%d cycles=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, m.Cycles(), dur.Truncate(time.Millisecond), float64(frames)/dur.Seconds(), crc)

	if f.PNGOut != "" {
		if err := saveFramePNG(m, f.PNGOut); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}
	if f.SaveOut != "" {
		if err := m.SaveStateToFile(f.SaveOut); err != nil {
			return fmt.Errorf("write savestate: %w", err)
		}
		log.Printf("wrote %s", f.SaveOut)
	}

	if f.Expect != "" {
		// normalize expected hex (allow with/without 0x, upper/lowercase)
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

// runPaced runs frames worth of cycles through the scheduler in real time.
func runPaced(m *emu.Machine, frames int, speed float64) error {
	target := m.Cycles() + uint64(frames)*emu.FrameCycles
	s := scheduler.New(m, scheduler.Config{})
	if err := s.SetSpeed(speed); err != nil {
		return err
	}
	s.OnAfterSlice(func(int) {
		if m.Cycles() >= target {
			s.Stop()
		}
	})
	s.OnStats(logStats)
	m.OnTrap(func(error) { s.Stop() })

	// generous deadline so a stalled host cannot hang CI
	wall := time.Duration(float64(frames)*float64(emu.FrameCycles)/emu.ClockHz/speed*float64(time.Second)) + 10*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), wall)
	defer cancel()
	return s.Run(ctx)
}

func saveFramePNG(m *emu.Machine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, m.Image())
}

func mustRead(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()

	m := emu.New(emu.Config{Trace: f.Trace})
	if f.ROMPath != "" {
		if err := m.LoadCartridge(mustRead(f.ROMPath)); err != nil {
			log.Fatalf("load cart: %v", err)
		}
		log.Printf("ROM: %s", m)
	}
	if f.StatePath != "" {
		// a rejected state leaves the freshly reset machine in place
		if err := m.LoadStateFromFile(f.StatePath); err != nil {
			log.Printf("state: %v; starting from power on", err)
		} else {
			log.Printf("state: resumed %s at cycle %d", f.StatePath, m.Cycles())
		}
	}
	if f.StatsView != "" {
		launchStatsView(f.StatsView)
	}

	if f.Headless {
		if err := runHeadless(m, f); err != nil {
			log.Fatal(err)
		}
		return
	}

	sched := scheduler.New(m, scheduler.Config{})
	sched.OnStats(func(st scheduler.Stats) {
		if f.Trace {
			logStats(st)
		}
	})
	name := m.Title()
	if name == "" {
		name = "untitled"
	}
	uiCfg := ui.Config{
		Title:     f.Title,
		Scale:     f.Scale,
		StateDir:  f.StateDir,
		StateName: name,
		Speed:     f.Speed,
		ShowStats: f.Stats,
	}
	app := ui.NewApp(uiCfg, m, sched)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
