package ui

import (
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/scheduler"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sqweek/dialog"
)

const numSlots = 4

// App is the ebiten front end. Every Update pumps one scheduler slice; the
// scheduler's before-slice hook samples the keyboard.
type App struct {
	cfg   Config
	m     *emu.Machine
	sched *scheduler.Scheduler
	tex   *ebiten.Image
	shade *ebiten.Image

	speed float64 // user multiplier, fast-forward applied on top
	fast  bool
	stats scheduler.Stats

	// overlay/menu
	showMenu    bool
	menuMode    string // "main", "slot", "keys"
	menuIdx     int
	keysOff     int
	currentSlot int
	curW, curH  int

	toastMsg   string
	toastUntil time.Time

	// picked is fed by file dialogs running on their own goroutines.
	picked chan pickedFile
}

type pickedFile struct {
	path string
	save bool
}

func NewApp(cfg Config, m *emu.Machine, sched *scheduler.Scheduler) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	a := &App{
		cfg:      cfg,
		m:        m,
		sched:    sched,
		speed:    cfg.Speed,
		menuMode: "main",
		picked:   make(chan pickedFile, 1),
	}
	if err := sched.SetSpeed(a.speed); err != nil {
		log.Printf("ui: %v, using 1x", err)
		a.speed = 1
	}
	sched.OnBeforeSlice(a.sampleInput)
	sched.OnStats(a.onStats)
	m.OnTrap(func(err error) {
		a.sched.Stop()
		a.toast("Stopped: " + err.Error())
	})
	return a
}

func (a *App) Run() error {
	a.sched.Start()
	return ebiten.RunGame(a)
}

// sampleInput maps the keyboard to Game Boy buttons before every slice.
func (a *App) sampleInput() {
	if a.showMenu {
		a.m.SetButtons(emu.Buttons{})
		return
	}
	a.m.SetButtons(emu.Buttons{
		Right:  ebiten.IsKeyPressed(ebiten.KeyRight),
		Left:   ebiten.IsKeyPressed(ebiten.KeyLeft),
		Up:     ebiten.IsKeyPressed(ebiten.KeyUp),
		Down:   ebiten.IsKeyPressed(ebiten.KeyDown),
		A:      ebiten.IsKeyPressed(ebiten.KeyZ),
		B:      ebiten.IsKeyPressed(ebiten.KeyX),
		Start:  ebiten.IsKeyPressed(ebiten.KeyEnter),
		Select: ebiten.IsKeyPressed(ebiten.KeyShiftRight),
	})
}

func (a *App) onStats(st scheduler.Stats) {
	a.stats = st
	state := "running"
	if !a.sched.IsRunning() {
		state = "stopped"
	}
	ebiten.SetWindowTitle(fmt.Sprintf("%s - %.0f%% (host %.1fx) %s", a.cfg.Title, st.EmulationSpeed*100, st.HostSpeed, state))
}

func (a *App) Update() error {
	a.drainDialogs()

	// Toggle menu (Escape)
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if a.showMenu && a.menuMode != "main" {
			a.menuMode = "main"
			a.menuIdx = 0
		} else {
			a.showMenu = !a.showMenu
			a.menuMode = "main"
			a.menuIdx = 0
		}
	}
	if a.showMenu {
		switch a.menuMode {
		case "slot":
			a.updateSlotMenu()
		case "keys":
			a.updateKeysMenu()
		default:
			a.updateMainMenu()
		}
	} else {
		a.updateHotkeys()
	}

	// Fast-forward (Tab): while held, the scheduler runs at FastForward times the speed
	fast := ebiten.IsKeyPressed(ebiten.KeyTab)
	if fast != a.fast {
		a.fast = fast
		a.applySpeed()
	}

	a.sched.Tick()
	return nil
}

func (a *App) updateHotkeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.toggleRunning()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) {
		a.setSpeed(a.speed - a.cfg.SpeedStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		a.setSpeed(a.speed + a.cfg.SpeedStep)
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(k) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("Slot %d", i+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		a.saveSlot(a.currentSlot)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.loadSlot(a.currentSlot)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		a.openDialog(false)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if name, err := a.saveScreenshot(); err != nil {
			a.toast("Screenshot failed: " + err.Error())
		} else {
			a.toast("Saved " + name)
		}
	}
}

func (a *App) toggleRunning() {
	if a.sched.IsRunning() {
		a.sched.Stop()
		a.toast("Stopped")
		return
	}
	a.sched.Start()
	a.toast("Running")
}

// setSpeed clamps m to [SpeedStep, MaxSpeed] and applies it.
func (a *App) setSpeed(m float64) {
	a.speed = clampSpeed(m, a.cfg.SpeedStep, a.cfg.MaxSpeed)
	a.applySpeed()
	a.toast(fmt.Sprintf("Speed %.2fx", a.speed))
}

func (a *App) applySpeed() {
	m := a.speed
	if a.fast {
		m *= a.cfg.FastForward
	}
	if err := a.sched.SetSpeed(m); err != nil {
		log.Printf("ui: %v", err)
	}
}

func clampSpeed(m, lo, hi float64) float64 {
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}

func (a *App) statePath(slot int) string {
	return filepath.Join(a.cfg.StateDir, fmt.Sprintf("%s.slot%d.state", a.cfg.StateName, slot+1))
}

func (a *App) saveSlot(slot int) {
	if err := os.MkdirAll(a.cfg.StateDir, 0o755); err != nil {
		a.toast("Save failed: " + err.Error())
		return
	}
	a.saveStateTo(a.statePath(slot))
}

func (a *App) loadSlot(slot int) {
	path := a.statePath(slot)
	if _, err := os.Stat(path); err != nil {
		a.toast("Slot is empty")
		return
	}
	a.loadStateFrom(path)
}

func (a *App) saveStateTo(path string) {
	if err := a.m.SaveStateToFile(path); err != nil {
		log.Printf("ui: save %s: %v", path, err)
		a.toast("Save failed: " + err.Error())
		return
	}
	a.toast("Saved " + filepath.Base(path))
}

// loadStateFrom restores path. A rejected state leaves the running machine
// untouched.
func (a *App) loadStateFrom(path string) {
	if err := a.m.LoadStateFromFile(path); err != nil {
		log.Printf("ui: load: %v", err)
		a.toast("Load failed: " + err.Error())
		return
	}
	a.toast("Loaded " + filepath.Base(path))
}

// openDialog runs a native file picker off the update goroutine; the result
// is applied by drainDialogs on a later Update.
func (a *App) openDialog(save bool) {
	go func() {
		b := dialog.File().Filter("Savestate", "state").SetStartDir(a.cfg.StateDir)
		var (
			path string
			err  error
		)
		if save {
			path, err = b.Title("Save state as").Save()
		} else {
			path, err = b.Title("Open state").Load()
		}
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				log.Println(err)
			}
			return
		}
		a.picked <- pickedFile{path: path, save: save}
	}()
}

func (a *App) drainDialogs() {
	select {
	case p := <-a.picked:
		if p.save {
			a.saveStateTo(p.path)
		} else {
			a.loadStateFrom(p.path)
		}
	default:
	}
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(a.curW)/160, float64(a.curH)/144)
	screen.DrawImage(a.tex, op)

	if a.showMenu {
		if a.shade == nil {
			a.shade = ebiten.NewImage(1, 1)
			a.shade.Fill(color.RGBA{0, 0, 0, 160})
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(a.curW), float64(a.curH))
		screen.DrawImage(a.shade, op)
		switch a.menuMode {
		case "slot":
			a.drawSlotMenu(screen)
		case "keys":
			a.drawKeysMenu(screen)
		default:
			a.drawMainMenu(screen)
		}
	}
	if a.cfg.ShowStats {
		line := fmt.Sprintf("%.2fx emu %.0f%% host %.1fx", a.sched.Speed(), a.stats.EmulationSpeed*100, a.stats.HostSpeed)
		ebitenutil.DebugPrintAt(screen, line, 2, a.curH-16)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.truncateText(a.toastMsg, a.maxCharsForText(2)), 2, 2)
	}
}

// Layout renders at the window size so debug text stays legible.
func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = outW, outH
	return outW, outH
}

func (a *App) saveScreenshot() (string, error) {
	ts := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("screenshot_%s.png", ts)
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return name, png.Encode(f, a.m.Image())
}
