// Package app wires configuration, terminal capabilities, the frame
// buffers, the gfx renderer and a terminal backend into a frame loop.
//
// Each tick the loop fills the drawing layer from the shader, refreshes
// the image layer when a background load finished, renders into the
// current cell buffer and flushes the diff plus any graphics payload to
// the backend. Rendering happens on the Run goroutine only.
package app

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/pixstorm/internal/cache"
	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/config"
	"github.com/dshills/pixstorm/internal/imageio"
	"github.com/dshills/pixstorm/internal/renderer/backend"
	"github.com/dshills/pixstorm/internal/renderer/buffer"
	"github.com/dshills/pixstorm/internal/renderer/canvas"
	"github.com/dshills/pixstorm/internal/renderer/dither"
	"github.com/dshills/pixstorm/internal/renderer/gfx"
	"github.com/dshills/pixstorm/internal/shader"
)

// ReloadDebounce is the delay between a config file change and the reload.
const ReloadDebounce = 200 * time.Millisecond

// Options configures the application.
type Options struct {
	// Config is the initial configuration. Defaults to config.Default().
	Config *config.Config

	// ConfigLoad is how the config was loaded. When Path is set the file
	// is watched and reloaded on change.
	ConfigLoad config.Options

	// Caps overrides terminal detection.
	Caps *capability.Capabilities

	// Backend is the display surface. Required.
	Backend backend.Backend

	Logger *Logger

	// Frames stops the loop after this many frames. Zero runs until the
	// context is cancelled or the user quits.
	Frames int
}

// Application is the frame loop coordinator.
type Application struct {
	mu  sync.RWMutex
	cfg *config.Config

	backend backend.Backend
	caps    capability.Capabilities
	log     *Logger
	metrics *Metrics

	dual     *buffer.DualBuffer
	data     *canvas.RenderData
	renderer *gfx.Renderer
	state    *gfx.State
	ditherer *dither.Ditherer
	nrgba    *image.NRGBA
	mode     gfx.Mode
	redraw   bool

	shader       *shader.Shader
	loader       *imageio.Loader
	slot         *imageio.Slot
	imageVersion uint64
	start        time.Time

	ticker *time.Ticker

	running atomic.Bool
	opts    Options
}

// New creates an application. Terminal capabilities are probed unless
// opts.Caps is set.
func New(opts Options) (*Application, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = NullLogger
	}

	var caps capability.Capabilities
	if opts.Caps != nil {
		caps = *opts.Caps
	} else {
		probed, err := capability.Probe(capability.ProbeOptions{Overrides: cfg.Overrides()})
		if err != nil {
			return nil, NewComponentError("capability", "probe", err)
		}
		caps = probed
	}

	app := &Application{
		cfg:     cfg,
		backend: opts.Backend,
		caps:    caps,
		log:     log,
		metrics: NewMetrics(),
		state:   gfx.NewState(),
		slot:    new(imageio.Slot),
		opts:    opts,
	}
	if err := app.configure(cfg); err != nil {
		return nil, err
	}
	app.loader = imageio.NewLoader(imageio.LoaderOptions{
		CacheSize: cfg.Cache.Images,
		Timeout:   cfg.ImageTimeout(),
		Logger:    log.WithComponent("imageio"),
	})
	return app, nil
}

// configure builds the renderer and ditherer from cfg.
func (app *Application) configure(cfg *config.Config) error {
	mode, err := cfg.Mode()
	if err != nil {
		return NewComponentError("config", "mode", err)
	}
	ropts, err := cfg.RendererOptions(app.caps)
	if err != nil {
		return NewComponentError("config", "renderer", err)
	}
	dopts, err := cfg.DitherOptions()
	if err != nil {
		return NewComponentError("config", "dither", err)
	}
	ropts.Logger = app.log.WithComponent("gfx")

	if app.renderer != nil {
		app.clearGraphics()
	}
	app.renderer = gfx.NewRenderer(ropts)
	app.ditherer = dither.New(dopts)
	app.mode = mode
	app.log.SetLevel(ParseLogLevel(cfg.Logging.Level))
	return nil
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.cfg
}

// Mode returns the requested gfx mode.
func (app *Application) Mode() gfx.Mode {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.mode
}

// Capabilities returns the terminal capabilities in use.
func (app *Application) Capabilities() capability.Capabilities {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.caps
}

// Metrics returns the frame metrics.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// BufferStats returns the cell diff statistics, or the zero value before
// Run allocated the buffers.
func (app *Application) BufferStats() buffer.Stats {
	app.mu.RLock()
	defer app.mu.RUnlock()
	if app.dual == nil {
		return buffer.Stats{}
	}
	return app.dual.Stats()
}

// ImageCacheStats returns the image loader's cache statistics.
func (app *Application) ImageCacheStats() cache.Stats {
	return app.loader.CacheStats()
}

// IsRunning reports whether Run is executing.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Run drives the frame loop until ctx is cancelled, the user quits or
// the configured frame count is reached. Quitting is not an error. A
// failed teardown step is returned as a *ShutdownError when the loop
// itself ended cleanly.
func (app *Application) Run(ctx context.Context) (err error) {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.backend.Init(); err != nil {
		return NewComponentError("backend", "init", err)
	}
	defer func() {
		terr := app.teardown()
		if terr == nil {
			return
		}
		if err == nil {
			err = terr
		} else {
			app.log.Warn("%v", terr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.allocate(app.backend.Size())
	app.start = time.Now()

	cfg := app.Config()
	if err := app.loadShader(cfg.Shader.Path, cfg.ShaderTimeout()); err != nil {
		return err
	}
	if cfg.Image.Source != "" {
		app.loader.LoadAsync(ctx, cfg.Image.Source, app.slot)
	}

	var reloads <-chan config.Reload
	if app.opts.ConfigLoad.Path != "" {
		ch, err := config.Watch(ctx, app.opts.ConfigLoad, ReloadDebounce)
		if err != nil {
			app.log.Warn("config watch disabled: %v", err)
		} else {
			reloads = ch
		}
	}

	events := make(chan backend.Event, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.pollEvents(ctx, events)
	}()
	defer func() {
		cancel()
		app.backend.PostEvent(backend.Event{Type: backend.EventInterrupt})
		wg.Wait()
	}()

	app.ticker = time.NewTicker(cfg.FrameInterval())
	defer app.ticker.Stop()

	if err := app.renderFrame(ctx); err != nil {
		return err
	}
	for !app.done() {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := app.handleEvent(ev); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				return err
			}
		case r, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			app.handleReload(ctx, r)
		case <-app.ticker.C:
			if err := app.renderFrame(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// teardown runs after the loop has stopped and every goroutine it started
// has been cancelled. All steps run; their failures are collected.
func (app *Application) teardown() error {
	var errs ShutdownError

	app.loader.Wait()

	app.mu.Lock()
	if app.shader != nil {
		if err := app.shader.Close(); err != nil {
			errs.Add(NewComponentError("shader", "close", err))
		}
		app.shader = nil
	}
	app.mu.Unlock()

	app.backend.Shutdown()
	if r, ok := app.backend.(interface{ Err() error }); ok {
		if err := r.Err(); err != nil {
			errs.Add(NewComponentError("backend", "write", err))
		}
	}
	return errs.Err()
}

// done reports whether the frame budget is spent.
func (app *Application) done() bool {
	return app.opts.Frames > 0 && app.metrics.Snapshot().FrameCount >= uint64(app.opts.Frames)
}

// pollEvents forwards backend events until ctx is done.
func (app *Application) pollEvents(ctx context.Context, out chan<- backend.Event) {
	for {
		ev := app.backend.PollEvent()
		if ctx.Err() != nil {
			return
		}
		if ev.Type == backend.EventNone || ev.Type == backend.EventInterrupt {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// allocate sizes the cell buffers and pixel layers for a terminal of
// width x height cells.
func (app *Application) allocate(width, height int) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.dual == nil {
		app.dual = buffer.NewDualBuffer(width, height)
	} else {
		app.dual.Resize(width, height)
	}
	app.data = canvas.New(width, height, app.cfg.Render.Scale)
	app.imageVersion = 0
	app.nrgba = nil

	app.caps.Columns, app.caps.Rows = width, height
	if app.renderer != nil {
		app.renderer.SetCapabilities(app.caps)
	}
}

func (app *Application) loadShader(path string, timeout time.Duration) error {
	if path == "" {
		return nil
	}
	s, err := shader.Load(path, shader.WithFrameTimeout(timeout))
	if err != nil {
		return NewOperationError("load", path, err).WithContext("shader")
	}
	app.closeShader()
	app.shader = s
	app.log.Info("shader loaded: %s", s.Name())
	return nil
}

func (app *Application) closeShader() {
	if app.shader != nil {
		_ = app.shader.Close()
		app.shader = nil
	}
}
