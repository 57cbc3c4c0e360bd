package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/config/loader"
	"github.com/dshills/pixstorm/internal/config/schema"
	"github.com/dshills/pixstorm/internal/renderer/core"
	"github.com/dshills/pixstorm/internal/renderer/dither"
	"github.com/dshills/pixstorm/internal/renderer/gfx"
	"github.com/dshills/pixstorm/internal/renderer/protocol"
	"github.com/dshills/pixstorm/internal/renderer/quantize"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PIXSTORM_"

// MaxBlockSamples bounds render.blockCols and render.blockRows.
const MaxBlockSamples = 8

// Config is the complete pixstorm configuration.
type Config struct {
	Render   RenderConfig   `toml:"render" yaml:"render" json:"render"`
	Dither   DitherConfig   `toml:"dither" yaml:"dither" json:"dither"`
	Isolines IsolinesConfig `toml:"isolines" yaml:"isolines" json:"isolines"`
	Protocol ProtocolConfig `toml:"protocol" yaml:"protocol" json:"protocol"`
	Cache    CacheConfig    `toml:"cache" yaml:"cache" json:"cache"`
	Terminal TerminalConfig `toml:"terminal" yaml:"terminal" json:"terminal"`
	Image    ImageConfig    `toml:"image" yaml:"image" json:"image"`
	Shader   ShaderConfig   `toml:"shader" yaml:"shader" json:"shader"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging" json:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			GfxMode: gfx.ModeSextant.String(),
			Scale:   1,
			FPS:     30,
		},
		Dither: DitherConfig{
			Method: "none",
			Bits:   dither.DefaultBits,
		},
		Isolines: IsolinesConfig{
			Channel:   "lightness",
			Mode:      "equal",
			Levels:    4,
			SubSample: 2,
			Radius:    1,
			LineColor: "#ffffff",
			Fill:      "mean",
		},
		Protocol: ProtocolConfig{
			SixelColors:              protocol.MaxSixelColors,
			KittyCompress:            true,
			KittyZIndex:              0,
			ITerm2MultipartThreshold: 1 << 20,
			ITerm2ChunkSize:          1 << 20,
		},
		Cache: CacheConfig{
			Images:   50,
			Palettes: 50,
			Kitty:    50,
			ITerm2:   50,
		},
		Terminal: TerminalConfig{
			Graphics: "auto",
		},
		Image: ImageConfig{
			LoadTimeoutMs: 10000,
		},
		Shader: ShaderConfig{
			FrameTimeoutMs: 250,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Options selects the sources read by Load.
type Options struct {
	// Path is the config file. Empty skips the file layer; a missing
	// file is not an error.
	Path string

	// FS reads the config file. Defaults to the OS file system.
	FS loader.FileSystem

	// Environ supplies environment variables. Defaults to os.Environ.
	Environ func() []string
}

// Load reads defaults, the config file and the environment, then
// validates the result.
func Load(opts Options) (*Config, error) {
	base, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	if opts.Path != "" {
		fsys := opts.FS
		if fsys == nil {
			fsys = loader.DefaultFS()
		}
		fl, err := loader.ForPath(fsys, opts.Path)
		if err != nil {
			return nil, err
		}
		data, err := fl.Load()
		if err != nil {
			return nil, err
		}
		if err := validateFile(data); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Path, err)
		}
		base = loader.DeepMerge(base, data)
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	envData, err := loader.NewEnvLoader(EnvPrefix).WithEnviron(environ).Load()
	if err != nil {
		return nil, err
	}
	base = loader.DeepMerge(base, envData)

	cfg, err := fromMap(base)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateFile checks a decoded config file against the embedded schema.
// Unknown keys and mistyped values are reported with their key paths.
func validateFile(data map[string]any) error {
	s, err := schema.LoadEmbedded()
	if err != nil {
		return err
	}
	err = schema.NewValidator(s).WithStrictMode(true).Validate(data)
	var serrs *schema.ValidationErrors
	if !errors.As(err, &serrs) {
		return err
	}
	errs := make(ValidationErrors, 0, serrs.Len())
	for _, e := range serrs.Errors {
		errs = append(errs, &ValidationError{Path: e.Path, Message: e.Message, Value: e.Value})
	}
	return errs
}

func toMap(c *Config) (map[string]any, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	coerceFloats(m, "isolines", "values")
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg, nil
}

// coerceFloats widens integers in a numeric list so "values = [0, 0.5, 1]"
// decodes into []float64.
func coerceFloats(m map[string]any, section, key string) {
	sec, ok := m[section].(map[string]any)
	if !ok {
		return
	}
	list, ok := sec[key].([]any)
	if !ok {
		return
	}
	for i, v := range list {
		if n, ok := v.(int64); ok {
			list[i] = float64(n)
		}
	}
}

// Validate checks every setting and returns ValidationErrors listing all
// failures.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if _, err := c.Mode(); err != nil {
		add("render.gfxMode", err.Error(), c.Render.GfxMode)
	}
	if c.Render.Scale < 1 {
		add("render.scale", "must be at least 1", c.Render.Scale)
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		add("render.fps", "must be between 1 and 240", c.Render.FPS)
	}
	if _, err := c.Background(); err != nil {
		add("render.background", err.Error(), c.Render.Background)
	}
	if _, err := c.Foreground(); err != nil {
		add("render.foreground", err.Error(), c.Render.Foreground)
	}
	if _, err := c.Palette(); err != nil {
		add("render.palette", err.Error(), c.Render.Palette)
	}
	bc, br := c.Render.BlockCols, c.Render.BlockRows
	if bc < 0 || br < 0 || bc > MaxBlockSamples || br > MaxBlockSamples || (bc == 0) != (br == 0) {
		add("render.blockCols", fmt.Sprintf("blockCols and blockRows must both be 0 or both 1..%d", MaxBlockSamples), [2]int{bc, br})
	}
	if ramp := c.Render.LumaRamp; ramp != "" && (!utf8.ValidString(ramp) || utf8.RuneCountInString(ramp) < 2) {
		add("render.lumaRamp", "must hold at least 2 glyphs", ramp)
	}

	if _, err := dither.ParseMethod(c.Dither.Method); err != nil {
		add("dither.method", err.Error(), c.Dither.Method)
	}
	if c.Dither.Bits < 1 || c.Dither.Bits > 8 {
		add("dither.bits", "must be between 1 and 8", c.Dither.Bits)
	}

	if _, err := c.IsolinesTemplate(); err != nil {
		add("isolines", err.Error(), c.Isolines)
	}
	if c.Isolines.Levels < 1 {
		add("isolines.levels", "must be at least 1", c.Isolines.Levels)
	}
	for _, v := range c.Isolines.Values {
		if v < 0 || v > 1 {
			add("isolines.values", "values must be within [0, 1]", v)
			break
		}
	}

	if c.Protocol.SixelColors < 2 || c.Protocol.SixelColors > protocol.MaxSixelColors {
		add("protocol.sixelColors", fmt.Sprintf("must be between 2 and %d", protocol.MaxSixelColors), c.Protocol.SixelColors)
	}
	if c.Protocol.ITerm2MultipartThreshold < 0 {
		add("protocol.iterm2MultipartThreshold", "must not be negative", c.Protocol.ITerm2MultipartThreshold)
	}
	if c.Protocol.ITerm2ChunkSize < 0 {
		add("protocol.iterm2ChunkSize", "must not be negative", c.Protocol.ITerm2ChunkSize)
	}

	for path, n := range map[string]int{
		"cache.images":   c.Cache.Images,
		"cache.palettes": c.Cache.Palettes,
		"cache.kitty":    c.Cache.Kitty,
		"cache.iterm2":   c.Cache.ITerm2,
	} {
		if n < 1 {
			add(path, "must be at least 1", n)
		}
	}

	if _, err := c.Overrides().Apply(capability.Capabilities{}); err != nil {
		add("terminal", err.Error(), c.Terminal)
	}
	if c.Terminal.CellWidth < 0 || c.Terminal.CellHeight < 0 {
		add("terminal.cellWidth", "cell size must not be negative", [2]int{c.Terminal.CellWidth, c.Terminal.CellHeight})
	}

	if c.Image.LoadTimeoutMs < 0 {
		add("image.loadTimeoutMs", "must not be negative", c.Image.LoadTimeoutMs)
	}
	if c.Shader.FrameTimeoutMs < 0 {
		add("shader.frameTimeoutMs", "must not be negative", c.Shader.FrameTimeoutMs)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Mode returns the requested gfx mode.
func (c *Config) Mode() (gfx.Mode, error) {
	return gfx.ParseMode(c.Render.GfxMode)
}

// Background returns the configured background color, or
// core.ColorDefault when none is set.
func (c *Config) Background() (core.Color, error) {
	if c.Render.Background == "" {
		return core.ColorDefault, nil
	}
	return core.ColorFromHex(c.Render.Background)
}

// Foreground returns the default drawing color, or core.ColorDefault when
// none is set.
func (c *Config) Foreground() (core.Color, error) {
	if c.Render.Foreground == "" {
		return core.ColorDefault, nil
	}
	return core.ColorFromHex(c.Render.Foreground)
}

// Palette returns the palette colors, or nil for the built-in palette.
func (c *Config) Palette() ([]core.Color, error) {
	if len(c.Render.Palette) == 0 {
		return nil, nil
	}
	colors := make([]core.Color, 0, len(c.Render.Palette))
	for _, hex := range c.Render.Palette {
		col, err := core.ColorFromHex(hex)
		if err != nil {
			return nil, err
		}
		colors = append(colors, col)
	}
	return colors, nil
}

// DitherOptions returns the ditherer configuration.
func (c *Config) DitherOptions() (dither.Options, error) {
	m, err := dither.ParseMethod(c.Dither.Method)
	if err != nil {
		return dither.Options{}, err
	}
	return dither.Options{Method: m, Bits: c.Dither.Bits}, nil
}

// IsolinesTemplate returns the contour settings as a quantizer template.
func (c *Config) IsolinesTemplate() (quantize.Isolines, error) {
	iso := c.Isolines
	ch, err := quantize.ParseChannel(iso.Channel)
	if err != nil {
		return quantize.Isolines{}, err
	}
	mode, err := quantize.ParseThresholdMode(iso.Mode)
	if err != nil {
		return quantize.Isolines{}, err
	}
	fill, err := quantize.ParseFillMode(iso.Fill)
	if err != nil {
		return quantize.Isolines{}, err
	}
	line := core.ColorDefault
	if iso.LineColor != "" {
		if line, err = core.ColorFromHex(iso.LineColor); err != nil {
			return quantize.Isolines{}, err
		}
	}
	if mode == quantize.ThresholdExplicit && len(iso.Values) == 0 {
		return quantize.Isolines{}, fmt.Errorf("explicit thresholds need values")
	}
	return quantize.Isolines{
		Channel:   ch,
		SubSample: iso.SubSample,
		Radius:    iso.Radius,
		Mode:      mode,
		Levels:    iso.Levels,
		Values:    append([]float64(nil), iso.Values...),
		LineColor: line,
		Fill:      fill,
	}, nil
}

// Overrides returns the capability overrides from the terminal section.
func (c *Config) Overrides() capability.Overrides {
	return capability.Overrides{
		Graphics:   c.Terminal.Graphics,
		Unicode:    c.Terminal.Unicode,
		CellWidth:  c.Terminal.CellWidth,
		CellHeight: c.Terminal.CellHeight,
	}
}

// RendererOptions builds gfx renderer options for caps. The Logger field
// is left for the caller.
func (c *Config) RendererOptions(caps capability.Capabilities) (gfx.Options, error) {
	palette, err := c.Palette()
	if err != nil {
		return gfx.Options{}, err
	}
	iso, err := c.IsolinesTemplate()
	if err != nil {
		return gfx.Options{}, err
	}
	dopts, err := c.DitherOptions()
	if err != nil {
		return gfx.Options{}, err
	}
	return gfx.Options{
		Caps:      caps,
		Palette:   palette,
		Isolines:  iso,
		BlockCols: c.Render.BlockCols,
		BlockRows: c.Render.BlockRows,
		LumaRamp:  c.Render.LumaRamp,
		Sixel:    protocol.SixelOptions{Colors: c.Protocol.SixelColors, Dither: dopts},
		Kitty: protocol.KittyOptions{
			Compress: c.Protocol.KittyCompress,
			ZIndex:   c.Protocol.KittyZIndex,
		},
		ITerm2: protocol.ITerm2Options{
			MultipartThreshold: c.Protocol.ITerm2MultipartThreshold,
			ChunkSize:          c.Protocol.ITerm2ChunkSize,
		},
		PaletteCache: c.Cache.Palettes,
		KittyCache:   c.Cache.Kitty,
		ITerm2Cache:  c.Cache.ITerm2,
	}, nil
}

// FrameInterval returns the render loop period.
func (c *Config) FrameInterval() time.Duration {
	if c.Render.FPS <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Render.FPS)
}

// ImageTimeout returns the image load timeout.
func (c *Config) ImageTimeout() time.Duration {
	return time.Duration(c.Image.LoadTimeoutMs) * time.Millisecond
}

// ShaderTimeout returns the per-frame shader budget.
func (c *Config) ShaderTimeout() time.Duration {
	return time.Duration(c.Shader.FrameTimeoutMs) * time.Millisecond
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Render.Palette = append([]string(nil), c.Render.Palette...)
	out.Isolines.Values = append([]float64(nil), c.Isolines.Values...)
	return &out
}
