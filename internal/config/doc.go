// Package config loads pixstorm settings.
//
// Settings come from four layers; higher layers override lower ones:
//
//	┌─────────────────────────────┐
//	│  4. Command line flags      │  ← Highest priority (applied by cmd/pixstorm)
//	├─────────────────────────────┤
//	│  3. Environment PIXSTORM_*  │
//	├─────────────────────────────┤
//	│  2. Config file             │  ← .toml, .yaml/.yml or .json
//	├─────────────────────────────┤
//	│  1. Built-in defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Each layer is read into a map by the loader package and merged with
// loader.DeepMerge. The merged map is then decoded into Config, so a file
// may set any subset of keys.
//
// # Environment
//
// Variables follow the SECTION_SETTING_NAME scheme, for example
// PIXSTORM_RENDER_GFX_MODE sets render.gfxMode. A few short aliases exist:
// PIXSTORM_MODE, PIXSTORM_DITHER, PIXSTORM_IMAGE, PIXSTORM_SHADER,
// PIXSTORM_GRAPHICS, PIXSTORM_LOG_LEVEL and PIXSTORM_LOG_FILE.
//
// # Live Reload
//
// Watch reloads the file whenever it changes and delivers each result on
// a channel. A reload that fails to parse or validate is delivered with
// its error; the caller keeps the previous Config.
package config
