package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/pixstorm/internal/app"
	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/config"
	"github.com/dshills/pixstorm/internal/renderer/backend"
)

func TestFlagsApply(t *testing.T) {
	cfg := config.Default()
	fl := &cliFlags{
		mode:   "kitty",
		dither: "atkinson",
		bits:   5,
		fps:    12,
		set:    map[string]bool{"mode": true, "dither": true, "bits": true},
	}
	fl.apply(cfg)

	if cfg.Render.GfxMode != "kitty" {
		t.Errorf("expected mode kitty, got %q", cfg.Render.GfxMode)
	}
	if cfg.Dither.Method != "atkinson" || cfg.Dither.Bits != 5 {
		t.Errorf("expected atkinson/5, got %q/%d", cfg.Dither.Method, cfg.Dither.Bits)
	}
	if cfg.Render.FPS != config.Default().Render.FPS {
		t.Errorf("expected unset fps flag to be ignored, got %d", cfg.Render.FPS)
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixstorm.log")
	cfg := config.Default()
	cfg.Logging.File = path
	cfg.Logging.Level = "debug"

	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Debug("hello %d", 42)
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[DEBUG] pixstorm: hello 42") {
		t.Errorf("expected debug line, got %q", data)
	}
}

func TestModeNames(t *testing.T) {
	names := modeNames()
	for _, want := range []string{"sextant", "kitty", "hires"} {
		if !strings.Contains(names, want) {
			t.Errorf("expected %q in %q", want, names)
		}
	}
}

func TestRenderStats(t *testing.T) {
	caps := capability.Capabilities{Unicode: capability.UnicodeFull, CellWidth: 8, CellHeight: 16}
	a, err := app.New(app.Options{Caps: &caps, Backend: backend.NewNullBackend(4, 2)})
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	out := renderStats(a)
	for _, want := range []string{"pixstorm stats", "sextant", "image cache"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in stats output", want)
		}
	}
}
