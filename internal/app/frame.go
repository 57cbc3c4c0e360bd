package app

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/dshills/pixstorm/internal/renderer/buffer"
	"github.com/dshills/pixstorm/internal/renderer/core"
	"github.com/dshills/pixstorm/internal/renderer/dither"
	"github.com/dshills/pixstorm/internal/renderer/gfx"
)

// renderFrame runs one pass of the pipeline: layers, optional dither,
// render into the current buffer, diff and flush. A panic anywhere in the
// pipeline is returned as a *FramePanicError.
func (app *Application) renderFrame(ctx context.Context) (err error) {
	timer := StartTimer()

	defer func() {
		if r := recover(); r != nil {
			app.metrics.RecordDroppedFrame()
			err = &FramePanicError{
				Frame: app.metrics.Snapshot().FrameCount + 1,
				Mode:  app.Mode().String(),
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()

	app.mu.Lock()
	defer app.mu.Unlock()

	data := app.data
	if data == nil {
		return nil
	}

	data.ClearDrawing()
	if app.shader != nil {
		t := time.Since(app.start).Seconds()
		st := StartTimer()
		err := app.shader.Render(ctx, data, t)
		app.metrics.RecordShader(st.Stop(), err)
		if err != nil {
			app.log.Warn("shader %s: %v", app.shader.Name(), err)
		}
	}

	if img, version := app.slot.Image(); version != app.imageVersion {
		img.ToLayer(data)
		app.imageVersion = version
	}

	bg, err := app.cfg.Background()
	if err != nil {
		bg = core.ColorDefault
	}
	data.Background = bg
	if fg, err := app.cfg.Foreground(); err == nil {
		data.Foreground = fg
	}

	mode := app.mode
	var dithered []uint8
	if app.ditherer.Options().Method != dither.None && app.renderer.EffectiveMode(mode) != gfx.ModeSixel {
		app.nrgba = data.CompositeNRGBA(app.nrgba)
		dithered = app.ditherer.Dither(app.nrgba.Pix, data.Width, data.Height)
	}

	buf := app.dual.Current()
	bounds := core.RectFromSize(0, 0, buf.Width(), buf.Height())
	style := core.DefaultStyle().WithBackground(bg)
	res, err := app.renderer.RenderToTerminal(bounds, style, buf, data, app.state, dithered, mode)
	if err != nil {
		app.metrics.RecordDroppedFrame()
		return NewOperationError("render", mode.String(), err)
	}

	var diffs []buffer.Diff
	if app.redraw {
		diffs = app.dual.ForceRedraw()
		app.redraw = false
	} else {
		diffs = app.dual.SwapAndGetDiff()
	}
	app.backend.Apply(diffs)
	if g := res.Graphics; g != nil {
		// Cells written over the image region invalidate a cached image.
		cached := g.FromCache && len(diffs) == 0
		if !cached {
			if err := app.backend.WriteRaw(g.Payload); err != nil {
				app.log.Warn("write %s payload: %v", res.Mode, err)
			}
		}
		app.metrics.RecordPayload(len(g.Payload), cached)
	}
	app.backend.Show()

	app.metrics.RecordCells(res.Cells, len(diffs))
	elapsed := timer.Stop()
	app.metrics.RecordFrame(elapsed)
	if elapsed > app.cfg.FrameInterval() {
		app.metrics.RecordDroppedFrame()
	}
	return nil
}
