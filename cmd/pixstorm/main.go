// Package main is the entry point for the pixstorm terminal renderer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/dshills/pixstorm/internal/app"
	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/config"
	"github.com/dshills/pixstorm/internal/renderer/backend"
	"github.com/dshills/pixstorm/internal/renderer/gfx"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cliFlags holds command line values. Only flags given explicitly
// override the loaded configuration.
type cliFlags struct {
	configPath string
	mode       string
	dither     string
	bits       int
	image      string
	shader     string
	fps        int
	logLevel   string
	frames     int
	cols, rows int
	stats      bool
	set        map[string]bool
}

func main() {
	os.Exit(run())
}

func run() int {
	fl := parseFlags()

	loadOpts := config.Options{Path: fl.configPath}
	cfg, err := config.Load(loadOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fl.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	tty := term.IsTerminal(int(os.Stdout.Fd()))

	logger, closeLog, err := newLogger(cfg, tty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open log: %v\n", err)
		return 1
	}
	defer closeLog()

	caps, err := capability.Probe(capability.ProbeOptions{Overrides: cfg.Overrides()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger.Debug("terminal %s: kitty=%v sixel=%v iterm2=%v unicode=%s cell=%dx%d",
		caps.Term, caps.Kitty, caps.Sixel, caps.ITerm2, caps.Unicode, caps.CellWidth, caps.CellHeight)

	var be backend.Backend
	if tty {
		t, err := backend.NewTerminal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
			return 1
		}
		be = t
	} else {
		cols, rows := fl.cols, fl.rows
		if caps.Columns > 0 && !fl.set["cols"] {
			cols = caps.Columns
		}
		if caps.Rows > 0 && !fl.set["rows"] {
			rows = caps.Rows
		}
		be = backend.NewStream(os.Stdout, cols, rows, backend.ColorModeFor(caps.Profile))
		if fl.frames == 0 {
			// A stream has no keyboard to quit with.
			fl.frames = 1
		}
	}

	application, err := app.New(app.Options{
		Config:     cfg,
		ConfigLoad: loadOpts,
		Caps:       &caps,
		Backend:    be,
		Logger:     logger,
		Frames:     fl.frames,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)
	if fl.stats {
		fmt.Fprint(os.Stderr, renderStats(application))
	}
	if runErr != nil && !errors.Is(runErr, app.ErrQuit) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

// newLogger writes to the configured log file. Without one, logs go to
// stderr unless the terminal is taken over by the renderer.
func newLogger(cfg *config.Config, tty bool) (*app.Logger, func(), error) {
	lc := app.DefaultLoggerConfig()
	lc.Level = app.ParseLogLevel(cfg.Logging.Level)

	closer := func() {}
	switch {
	case cfg.Logging.File != "":
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		lc.Output = f
		closer = func() { _ = f.Close() }
	case tty:
		lc.Output = io.Discard
	}
	return app.NewLogger(lc), closer, nil
}

func parseFlags() *cliFlags {
	fl := &cliFlags{set: make(map[string]bool)}
	var showVersion, showHelp bool

	flag.StringVar(&fl.configPath, "config", "", "Path to configuration file (.toml, .yaml, .json)")
	flag.StringVar(&fl.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&fl.mode, "mode", "", "Render mode: "+modeNames())
	flag.StringVar(&fl.dither, "dither", "", "Dither method (none, bayer, floyd-steinberg, atkinson, sierra, blue-noise, *-stable)")
	flag.IntVar(&fl.bits, "bits", 0, "Bits per channel kept after dithering (1-8)")
	flag.StringVar(&fl.image, "image", "", "Image file or http(s) URL to display")
	flag.StringVar(&fl.shader, "shader", "", "Lua shader script filling the drawing layer")
	flag.IntVar(&fl.fps, "fps", 0, "Frame rate")
	flag.IntVar(&fl.frames, "frames", 0, "Stop after this many frames (0 runs until quit)")
	flag.StringVar(&fl.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.IntVar(&fl.cols, "cols", 80, "Output width in cells when stdout is not a terminal")
	flag.IntVar(&fl.rows, "rows", 24, "Output height in cells when stdout is not a terminal")
	flag.BoolVar(&fl.stats, "stats", false, "Print render statistics on exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pixstorm - render images and shaders in the terminal\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pixstorm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys: q quit, m/M next/previous mode, d cycle dither, ctrl-l redraw\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pixstorm -image photo.png                 Show an image\n")
		fmt.Fprintf(os.Stderr, "  pixstorm -image photo.png -mode hires     Use the best graphics protocol\n")
		fmt.Fprintf(os.Stderr, "  pixstorm -shader plasma.lua -dither bayer Animate a shader\n")
		fmt.Fprintf(os.Stderr, "  pixstorm -image photo.png -frames 1 > out Write one frame to a file\n")
	}

	flag.Parse()
	flag.Visit(func(f *flag.Flag) { fl.set[f.Name] = true })

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("pixstorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if fl.logLevel != "" {
		switch fl.logLevel {
		case "debug", "info", "warn", "error":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", fl.logLevel)
			os.Exit(1)
		}
	}
	if flag.NArg() > 0 && fl.image == "" {
		fl.image = flag.Arg(0)
		fl.set["image"] = true
	}
	return fl
}

// apply overlays explicitly given flags on cfg.
func (fl *cliFlags) apply(cfg *config.Config) {
	if fl.set["mode"] {
		cfg.Render.GfxMode = fl.mode
	}
	if fl.set["dither"] {
		cfg.Dither.Method = fl.dither
	}
	if fl.set["bits"] {
		cfg.Dither.Bits = fl.bits
	}
	if fl.set["image"] {
		cfg.Image.Source = fl.image
	}
	if fl.set["shader"] {
		cfg.Shader.Path = fl.shader
	}
	if fl.set["fps"] {
		cfg.Render.FPS = fl.fps
	}
	if fl.set["log-level"] {
		cfg.Logging.Level = fl.logLevel
	}
}

func modeNames() string {
	modes := gfx.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}
