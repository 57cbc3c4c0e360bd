package app

import (
	"context"

	"github.com/dshills/pixstorm/internal/config"
	"github.com/dshills/pixstorm/internal/imageio"
	"github.com/dshills/pixstorm/internal/renderer/backend"
	"github.com/dshills/pixstorm/internal/renderer/dither"
	"github.com/dshills/pixstorm/internal/renderer/gfx"
)

// ditherCycle is the order the d key steps through.
var ditherCycle = []dither.Method{
	dither.None,
	dither.Bayer,
	dither.FloydSteinberg,
	dither.Atkinson,
	dither.Sierra,
	dither.BlueNoise,
	dither.FloydSteinbergStable,
	dither.AtkinsonStable,
	dither.SierraStable,
}

// handleEvent reacts to one input event. It returns ErrQuit when the
// user asked to leave.
func (app *Application) handleEvent(ev backend.Event) error {
	switch ev.Type {
	case backend.EventResize:
		app.resize(ev.Width, ev.Height)
	case backend.EventKey:
		return app.handleKey(ev)
	}
	return nil
}

func (app *Application) handleKey(ev backend.Event) error {
	switch ev.Key {
	case backend.KeyEscape, backend.KeyCtrlC:
		return ErrQuit
	case backend.KeyCtrlL:
		app.forceRedraw()
	case backend.KeyTab:
		app.cycleMode(1)
	case backend.KeyBacktab:
		app.cycleMode(-1)
	case backend.KeyRune:
		switch ev.Rune {
		case 'q', 'Q':
			return ErrQuit
		case 'm':
			app.cycleMode(1)
		case 'M':
			app.cycleMode(-1)
		case 'd':
			app.cycleDither()
		}
	}
	return nil
}

// SetMode switches the requested gfx mode and redraws the screen.
func (app *Application) SetMode(mode gfx.Mode) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if mode == app.mode {
		return
	}
	app.clearGraphics()
	app.mode = mode
	app.scheduleRedraw()
	app.log.Info("gfx mode %s (effective %s)", mode, app.renderer.EffectiveMode(mode))
}

func (app *Application) cycleMode(step int) {
	modes := gfx.Modes()
	n := len(modes)
	next := (int(app.Mode()) + step + n) % n
	app.SetMode(modes[next])
}

func (app *Application) cycleDither() {
	app.mu.Lock()
	defer app.mu.Unlock()
	opts := app.ditherer.Options()
	next := dither.None
	for i, m := range ditherCycle {
		if m == opts.Method {
			next = ditherCycle[(i+1)%len(ditherCycle)]
			break
		}
	}
	opts.Method = next
	app.ditherer.SetOptions(opts)
	app.log.Info("dither %s", next)
}

func (app *Application) forceRedraw() {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.clearGraphics()
	app.scheduleRedraw()
}

// scheduleRedraw clears the screen and makes the next frame emit every
// cell and retransmit graphics. Callers hold mu.
func (app *Application) scheduleRedraw() {
	app.backend.Clear()
	if app.renderer != nil {
		app.renderer.ResetGraphics()
	}
	app.redraw = true
}

// clearGraphics removes protocol images the current renderer left on
// screen. Callers hold mu or run before Run started.
func (app *Application) clearGraphics() {
	if app.renderer == nil {
		return
	}
	if payload := app.renderer.Cleanup(); len(payload) > 0 {
		if err := app.backend.WriteRaw(payload); err != nil {
			app.log.Warn("clear graphics: %v", err)
		}
	}
}

func (app *Application) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	app.allocate(width, height)

	app.mu.Lock()
	defer app.mu.Unlock()
	app.clearGraphics()
	app.scheduleRedraw()
	app.log.Debug("resized to %dx%d", width, height)
}

// handleReload applies a reloaded config. Invalid configs are logged and
// the running config stays in place.
func (app *Application) handleReload(ctx context.Context, r config.Reload) {
	if r.Err != nil {
		app.log.Warn("config reload rejected: %v", r.Err)
		return
	}
	next := r.Config

	app.mu.Lock()
	prev := app.cfg
	if err := app.configure(next); err != nil {
		app.mu.Unlock()
		app.log.Warn("config reload rejected: %v", err)
		return
	}
	app.cfg = next
	app.scheduleRedraw()
	app.mu.Unlock()

	if next.Render.Scale != prev.Render.Scale {
		w, h := app.backend.Size()
		app.allocate(w, h)
	}
	if next.FrameInterval() != prev.FrameInterval() && app.ticker != nil {
		app.ticker.Reset(next.FrameInterval())
	}
	if next.Shader.Path != prev.Shader.Path || next.ShaderTimeout() != prev.ShaderTimeout() {
		app.mu.Lock()
		if next.Shader.Path == "" {
			app.closeShader()
		} else if err := app.loadShader(next.Shader.Path, next.ShaderTimeout()); err != nil {
			app.log.Warn("%v", err)
		}
		app.mu.Unlock()
	}
	if next.Image.Source != prev.Image.Source {
		if next.Image.Source == "" {
			app.mu.Lock()
			app.slot = new(imageio.Slot)
			app.imageVersion = 0
			app.data.ClearImage()
			app.mu.Unlock()
		} else {
			app.loader.LoadAsync(ctx, next.Image.Source, app.slot)
		}
	}
	app.log.Info("config reloaded")
}
