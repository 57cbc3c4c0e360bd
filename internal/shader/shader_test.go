package shader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/pixstorm/internal/renderer/canvas"
	"github.com/dshills/pixstorm/internal/renderer/core"
)

func mustShader(t *testing.T, src string, opts ...Option) *Shader {
	t.Helper()
	s, err := New("test", src, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRenderGradient(t *testing.T) {
	s := mustShader(t, `
function shade(x, y, t)
  return x / (width - 1), y / (height - 1), t
end`)
	d := canvas.New(2, 1, 1) // 4x3 pixels
	if err := s.Render(context.Background(), d, 0.5); err != nil {
		t.Fatalf("Render: %v", err)
	}

	tests := []struct {
		x, y int
		want core.Color
	}{
		{0, 0, core.RGB(0, 0, 128)},
		{3, 0, core.RGB(255, 0, 128)},
		{3, 2, core.RGB(255, 255, 128)},
	}
	for _, tt := range tests {
		got, _ := d.Layers(tt.x, tt.y)
		if got != tt.want {
			t.Errorf("pixel (%d, %d): expected %s, got %s", tt.x, tt.y, tt.want, got)
		}
	}
}

func TestRenderAlpha(t *testing.T) {
	s := mustShader(t, `function shade(x, y) if x == 0 then return 1, 1, 1, 0 end return 1, 0, 0 end`)
	d := canvas.New(1, 1, 1)
	if err := s.Render(context.Background(), d, 0); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c, _ := d.Layers(0, 0); !c.IsTransparent() {
		t.Errorf("expected transparent pixel, got %s", c)
	}
	if c, _ := d.Layers(1, 0); c != core.ColorRed {
		t.Errorf("expected opaque red, got %s", c)
	}
}

func TestHSVHelper(t *testing.T) {
	s := mustShader(t, `function shade() return hsv(480, 1, 1) end`)
	d := canvas.New(1, 1, 1)
	if err := s.Render(context.Background(), d, 0); err != nil {
		t.Fatalf("Render: %v", err)
	}
	// 480 degrees wraps to 120: green.
	if c, _ := d.Layers(0, 0); c != core.ColorGreen {
		t.Errorf("expected green, got %s", c)
	}
}

func TestMissingEntryPoint(t *testing.T) {
	_, err := New("empty", `local x = 1`)
	if !errors.Is(err, ErrShaderNotFound) {
		t.Errorf("expected ErrShaderNotFound, got %v", err)
	}
}

func TestSyntaxError(t *testing.T) {
	_, err := New("broken", `function shade(`)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("expected a named compile error, got %v", err)
	}
}

func TestSandbox(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"io global", `io.open("/etc/passwd")`},
		{"os global", `os.exit(1)`},
		{"require io", `require("io")`},
		{"dofile", `dofile("/tmp/x.lua")`},
		{"load", `load("return 1")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.name, tt.src+"\nfunction shade() return 0, 0, 0 end")
			if err == nil {
				t.Error("expected sandbox violation to fail")
			}
		})
	}

	if _, err := New("math", `local m = require("math") function shade() return m.abs(-1), 0, 0 end`); err != nil {
		t.Errorf("safe module should load: %v", err)
	}
}

func TestFrameTimeout(t *testing.T) {
	s := mustShader(t, `function shade() while true do end end`, WithFrameTimeout(50*time.Millisecond))
	d := canvas.New(1, 1, 1)

	start := time.Now()
	err := s.Render(context.Background(), d, 0)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout took too long: %v", time.Since(start))
	}
}

func TestRuntimeErrorNamesPixel(t *testing.T) {
	s := mustShader(t, `function shade(x, y) if x == 1 then error("boom") end return 0, 0, 0 end`)
	err := s.Render(context.Background(), canvas.New(1, 1, 1), 0)
	if err == nil || !strings.Contains(err.Error(), "(1, 0)") {
		t.Errorf("expected error at (1, 0), got %v", err)
	}
}

func TestLoadAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.lua")
	os.WriteFile(path, []byte(`function shade() return 0, 0, 1 end`), 0o644)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name() != path {
		t.Errorf("expected name %s, got %s", path, s.Name())
	}
	s.Close()
	if err := s.Render(context.Background(), canvas.New(1, 1, 1), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
