// Package ui hosts the display and input surface: an ebiten window
// that blits the core's framebuffer every frame and turns keyboard
// state into joypad input. It is deliberately narrow — no save-state
// menu, ROM picker, audio player, or settings editor — since
// cartridge loading and battery-RAM persistence are cmd/gbcore
// concerns and this core has no APU to drive an audio player.
package ui

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/dmgcore/gbcore/internal/system"
)

const (
	screenWidth  = system.Width
	screenHeight = system.Height
)

// App is an ebiten.Game driving a *system.Machine one frame per
// Update call, blitting its decoded framebuffer each Draw call.
type App struct {
	cfg Config
	m   *system.Machine

	tex    *ebiten.Image
	paused bool
	step   bool // single-step one frame while paused
}

// NewApp constructs an App for the already-loaded Machine m.
func NewApp(cfg Config, m *system.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowSize(screenWidth*cfg.Scale, screenHeight*cfg.Scale)
	ebiten.SetWindowTitle(cfg.Title)
	return &App{cfg: cfg, m: m}
}

// Run starts the ebiten game loop. It blocks until the window closes.
func (a *App) Run() error { return ebiten.RunGame(a) }

// Update reads keyboard state into joypad input and advances the
// Machine by one frame, unless paused.
func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) && a.paused {
		a.step = true
	}

	a.m.SetButtons(system.Buttons{
		Right:  ebiten.IsKeyPressed(ebiten.KeyRight),
		Left:   ebiten.IsKeyPressed(ebiten.KeyLeft),
		Up:     ebiten.IsKeyPressed(ebiten.KeyUp),
		Down:   ebiten.IsKeyPressed(ebiten.KeyDown),
		A:      ebiten.IsKeyPressed(ebiten.KeyZ),
		B:      ebiten.IsKeyPressed(ebiten.KeyX),
		Start:  ebiten.IsKeyPressed(ebiten.KeyEnter),
		Select: ebiten.IsKeyPressed(ebiten.KeyShiftRight),
	})

	if !a.paused || a.step {
		a.m.StepFrame()
		a.step = false
	}
	return nil
}

// Draw blits the Machine's current framebuffer onto the 160x144
// logical screen, which ebiten scales to fill the window.
func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(screenWidth, screenHeight)
	}
	a.tex.WritePixels(a.m.Framebuffer())

	op := &ebiten.DrawImageOptions{}
	screen.DrawImage(a.tex, op)

	if a.paused {
		ebiten.SetWindowTitle(fmt.Sprintf("%s [paused]", a.cfg.Title))
	} else {
		ebiten.SetWindowTitle(a.cfg.Title)
	}
}

// Layout reports the fixed logical screen size; ebiten scales that
// screen to the window, whose size NewApp sets from Config.Scale.
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
