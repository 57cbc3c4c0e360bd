package config

// RenderConfig controls the frame pipeline.
type RenderConfig struct {
	// GfxMode is a gfx mode name, "sextant" by default.
	GfxMode string `toml:"gfxMode" yaml:"gfxMode" json:"gfxMode"`

	// Scale is the number of canvas pixels per sub-cell sample.
	Scale int `toml:"scale" yaml:"scale" json:"scale"`

	// FPS is the frame rate of the render loop.
	FPS int `toml:"fps" yaml:"fps" json:"fps"`

	// Background is a hex color painted under transparent pixels, or ""
	// to leave them unpainted.
	Background string `toml:"background" yaml:"background" json:"background"`

	// Foreground is the default drawing color as hex. Drawn pixels of
	// exactly this color count as unset in the sextant and ascii modes.
	Foreground string `toml:"foreground" yaml:"foreground" json:"foreground"`

	// Palette lists hex colors for the palette modes. Empty selects the
	// built-in 16-color palette.
	Palette []string `toml:"palette" yaml:"palette" json:"palette"`

	// BlockCols and BlockRows set the block modes' sampling grid per
	// cell. Both zero averages every pixel under the cell.
	BlockCols int `toml:"blockCols" yaml:"blockCols" json:"blockCols"`
	BlockRows int `toml:"blockRows" yaml:"blockRows" json:"blockRows"`

	// LumaRamp is the ascii-luma glyph ramp, darkest first, one rune
	// per step. Empty selects " .:-=+*#%@".
	LumaRamp string `toml:"lumaRamp" yaml:"lumaRamp" json:"lumaRamp"`
}

// DitherConfig selects the ditherer applied before quantization.
type DitherConfig struct {
	// Method is a dither method name, "none" disables dithering.
	Method string `toml:"method" yaml:"method" json:"method"`

	// Bits per channel kept after dithering, 1..8.
	Bits int `toml:"bits" yaml:"bits" json:"bits"`
}

// IsolinesConfig configures the contour modes.
type IsolinesConfig struct {
	Channel   string    `toml:"channel" yaml:"channel" json:"channel"`
	Mode      string    `toml:"mode" yaml:"mode" json:"mode"`
	Levels    int       `toml:"levels" yaml:"levels" json:"levels"`
	Values    []float64 `toml:"values" yaml:"values" json:"values"`
	SubSample int       `toml:"subSample" yaml:"subSample" json:"subSample"`
	Radius    int       `toml:"radius" yaml:"radius" json:"radius"`
	LineColor string    `toml:"lineColor" yaml:"lineColor" json:"lineColor"`
	Fill      string    `toml:"fill" yaml:"fill" json:"fill"`
}

// ProtocolConfig tunes the graphics protocol encoders.
type ProtocolConfig struct {
	SixelColors              int  `toml:"sixelColors" yaml:"sixelColors" json:"sixelColors"`
	KittyCompress            bool `toml:"kittyCompress" yaml:"kittyCompress" json:"kittyCompress"`
	KittyZIndex              int  `toml:"kittyZIndex" yaml:"kittyZIndex" json:"kittyZIndex"`
	ITerm2MultipartThreshold int  `toml:"iterm2MultipartThreshold" yaml:"iterm2MultipartThreshold" json:"iterm2MultipartThreshold"`
	ITerm2ChunkSize          int  `toml:"iterm2ChunkSize" yaml:"iterm2ChunkSize" json:"iterm2ChunkSize"`
}

// CacheConfig sets the capacity of each bounded cache.
type CacheConfig struct {
	Images   int `toml:"images" yaml:"images" json:"images"`
	Palettes int `toml:"palettes" yaml:"palettes" json:"palettes"`
	Kitty    int `toml:"kitty" yaml:"kitty" json:"kitty"`
	ITerm2   int `toml:"iterm2" yaml:"iterm2" json:"iterm2"`
}

// TerminalConfig overrides detected terminal capabilities.
type TerminalConfig struct {
	// Graphics is "auto", "none", "sixel", "kitty" or "iterm2".
	Graphics string `toml:"graphics" yaml:"graphics" json:"graphics"`

	// Unicode is "", "full", "basic" or "ascii".
	Unicode string `toml:"unicode" yaml:"unicode" json:"unicode"`

	// CellWidth and CellHeight force the cell pixel size when both are set.
	CellWidth  int `toml:"cellWidth" yaml:"cellWidth" json:"cellWidth"`
	CellHeight int `toml:"cellHeight" yaml:"cellHeight" json:"cellHeight"`
}

// ImageConfig names the image drawn into the image layer.
type ImageConfig struct {
	// Source is a file path or http(s) URL.
	Source string `toml:"source" yaml:"source" json:"source"`

	LoadTimeoutMs int `toml:"loadTimeoutMs" yaml:"loadTimeoutMs" json:"loadTimeoutMs"`
}

// ShaderConfig names the Lua shader drawn into the drawing layer.
type ShaderConfig struct {
	Path           string `toml:"path" yaml:"path" json:"path"`
	FrameTimeoutMs int    `toml:"frameTimeoutMs" yaml:"frameTimeoutMs" json:"frameTimeoutMs"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" yaml:"level" json:"level"`

	// File receives log output. Empty discards logs while the terminal
	// is in use.
	File string `toml:"file" yaml:"file" json:"file"`
}
