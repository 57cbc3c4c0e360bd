// Package shader fills the drawing layer from a Lua script.
//
// A script defines a global function
//
//	function shade(x, y, t) return r, g, b, a end
//
// called once per layer pixel with pixel coordinates and the time in
// seconds. Channels are in [0, 1]; alpha is optional and defaults to 1.
// The globals width and height hold the layer size, and hsv(h, s, v)
// converts a hue in degrees to r, g, b.
package shader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/pixstorm/internal/renderer/canvas"
	"github.com/dshills/pixstorm/internal/renderer/core"
)

// DefaultFrameTimeout bounds the script time spent on one frame.
const DefaultFrameTimeout = 250 * time.Millisecond

// EntryPoint is the global function every shader defines.
const EntryPoint = "shade"

var (
	// ErrShaderNotFound is returned when a script does not define shade.
	ErrShaderNotFound = errors.New("shader function not defined")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("shader closed")
)

// Shader is a compiled script bound to its own Lua state. Calls are
// serialized.
type Shader struct {
	L  *lua.LState
	fn *lua.LFunction

	mu           sync.Mutex
	frameTimeout time.Duration
	name         string
	closed       bool
}

// Option configures a Shader.
type Option func(*Shader)

// WithFrameTimeout sets the per-frame execution limit. Zero disables it.
func WithFrameTimeout(d time.Duration) Option {
	return func(s *Shader) {
		s.frameTimeout = d
	}
}

// New compiles source. name is used in error messages.
func New(name, source string, opts ...Option) (*Shader, error) {
	s := &Shader{
		frameTimeout: DefaultFrameTimeout,
		name:         name,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	installSandbox(L)
	L.SetGlobal("hsv", L.NewFunction(luaHSV))
	s.L = L

	if err := s.doWithRecovery(func() error { return L.DoString(source) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}

	fn, ok := L.GetGlobal(EntryPoint).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("shader %s: %w", name, ErrShaderNotFound)
	}
	s.fn = fn
	return s, nil
}

// Load compiles the script at path.
func Load(path string, opts ...Option) (*Shader, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(path, string(src), opts...)
}

// Name returns the shader name.
func (s *Shader) Name() string {
	return s.name
}

// Render evaluates the shader for every pixel of the drawing layer at time
// t. On error the layer keeps the pixels written so far.
func (s *Shader) Render(ctx context.Context, d *canvas.RenderData, t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if s.frameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.frameTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	s.L.SetGlobal("width", lua.LNumber(d.Width))
	s.L.SetGlobal("height", lua.LNumber(d.Height))

	lt := lua.LNumber(t)
	return s.doWithRecovery(func() error {
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				c, err := s.shade(x, y, lt)
				if err != nil {
					return fmt.Errorf("shader %s at (%d, %d): %w", s.name, x, y, err)
				}
				d.SetPixel(x, y, c)
			}
		}
		return nil
	})
}

func (s *Shader) shade(x, y int, t lua.LNumber) (core.Color, error) {
	L := s.L
	if err := L.CallByParam(lua.P{Fn: s.fn, NRet: 4, Protect: true}, lua.LNumber(x), lua.LNumber(y), t); err != nil {
		return core.Transparent, err
	}
	r := channel(L.Get(-4), 0)
	g := channel(L.Get(-3), 0)
	b := channel(L.Get(-2), 0)
	a := channel(L.Get(-1), 255)
	L.Pop(4)
	if a == 0 {
		return core.Transparent, nil
	}
	return core.RGBA(r, g, b, a), nil
}

// channel converts a [0, 1] Lua number to a byte. Non-numbers yield def.
func channel(v lua.LValue, def uint8) uint8 {
	n, ok := v.(lua.LNumber)
	if !ok {
		return def
	}
	f := float64(n)
	if math.IsNaN(f) {
		return def
	}
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}

func luaHSV(L *lua.LState) int {
	h := float64(L.CheckNumber(1))
	sat := float64(L.OptNumber(2, 1))
	v := float64(L.OptNumber(3, 1))
	c := colorful.Hsv(math.Mod(math.Mod(h, 360)+360, 360), sat, v).Clamped()
	L.Push(lua.LNumber(c.R))
	L.Push(lua.LNumber(c.G))
	L.Push(lua.LNumber(c.B))
	return 3
}

// doWithRecovery executes a function with panic recovery.
func (s *Shader) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close releases the Lua state.
func (s *Shader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
