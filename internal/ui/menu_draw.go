package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// debug font cell size
const (
	charW = 6
	lineH = 14
)

var keyRows = []string{
	"Z: A",
	"X: B",
	"Enter: Start",
	"RightShift: Select",
	"Arrows: D-Pad",
	"P: Run/Stop",
	"Tab: Fast-forward (hold)",
	"-/=: Speed down/up",
	"1-4: Select slot",
	"F5: Save slot  F9: Load slot",
	"O: Open state file",
	"F12: Screenshot",
	"Esc: Open/Close Menu",
}

func (a *App) drawMainMenu(screen *ebiten.Image) {
	run := "Stop"
	if !a.sched.IsRunning() {
		run = "Run"
	}
	lines := []string{
		"Menu:",
		fmt.Sprintf("  Save state (slot %d)", a.currentSlot+1),
		fmt.Sprintf("  Load state (slot %d)", a.currentSlot+1),
		"  Select Slot",
		"  Open state file...",
		"  Save state as...",
		"  " + run,
		"  Keybindings",
		"  Close",
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*lineH)
	}
	// quick hints, keep on-screen
	hint := fmt.Sprintf("%s  %.2fx  F5: Save  F9: Load  Backspace: Back", a.cfg.Title, a.speed)
	ebitenutil.DebugPrintAt(screen, a.truncateText(hint, a.maxCharsForText(10)), 10, 10+len(lines)*lineH)
}

func (a *App) drawSlotMenu(screen *ebiten.Image) {
	// gray out empty slots
	lines := []string{"Select Slot:"}
	for i := 0; i < numSlots; i++ {
		state := "[empty]"
		if _, err := os.Stat(a.statePath(i)); err == nil {
			state = ""
		}
		lines = append(lines, fmt.Sprintf("  %d %s", i+1, state))
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*lineH)
	}
}

func (a *App) drawKeysMenu(screen *ebiten.Image) {
	title := "Keybindings (Up/Down to scroll, Backspace/Esc to return)"
	cursorY := 10
	for _, w := range a.wrapText(title, a.maxCharsForText(10)) {
		ebitenutil.DebugPrintAt(screen, w, 10, cursorY)
		cursorY += lineH
	}
	baseY := cursorY + 4
	maxRows := (a.curH - baseY) / lineH
	if maxRows < 1 {
		maxRows = 1
	}
	end := a.keysOff + maxRows
	if end > len(keyRows) {
		end = len(keyRows)
	}
	maxChars := a.maxCharsForText(10)
	for i := a.keysOff; i < end; i++ {
		ebitenutil.DebugPrintAt(screen, a.truncateText(keyRows[i], maxChars), 10, baseY+(i-a.keysOff)*lineH)
	}
	// scroll indicators
	if a.keysOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, baseY)
	}
	if end < len(keyRows) {
		ebitenutil.DebugPrintAt(screen, "v", 2, baseY+(maxRows-1)*lineH)
	}
}

// maxCharsForText is how many debug-font characters fit right of x.
func (a *App) maxCharsForText(x int) int {
	n := (a.curW - x) / charW
	if n < 1 {
		n = 1
	}
	return n
}

func (a *App) truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func (a *App) wrapText(s string, max int) []string {
	var out []string
	line := ""
	for _, w := range strings.Fields(s) {
		switch {
		case line == "":
			line = w
		case len(line)+1+len(w) <= max:
			line += " " + w
		default:
			out = append(out, line)
			line = w
		}
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}
