// Package config reads the server's environment settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/sniff"
)

// Environment variable names.
const (
	EnvScreenGamma = "SCREEN_GAMMA"
	EnvSearchPath  = "IMAGE_IMPORT_PATH"
	EnvDisable     = "IMAGE_IMPORT_DISABLE"
	EnvLogLevel    = "IMAGE_MCP_LOG_LEVEL"
)

// Config is the resolved environment.
type Config struct {
	ScreenGamma float64
	SearchPaths []string
	Disabled    []sniff.Format
	LogLevel    string
	// Warnings lists settings that were present but ignored.
	Warnings []string
}

// Debug reports whether debug logging was requested.
func (c Config) Debug() bool { return c.LogLevel == "debug" }

// Load reads the process environment.
func Load() Config {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) Config {
	cfg := Config{ScreenGamma: gamma.Default}

	if v, ok := lookup(EnvScreenGamma); ok && v != "" {
		g, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || g == 0 || g < 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring %s=%q", EnvScreenGamma, v))
		} else {
			cfg.ScreenGamma = g
		}
	}

	if v, ok := lookup(EnvSearchPath); ok {
		for _, d := range filepath.SplitList(v) {
			if d = strings.TrimSpace(d); d != "" {
				cfg.SearchPaths = append(cfg.SearchPaths, d)
			}
		}
	}

	if v, ok := lookup(EnvDisable); ok {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			fs, ok := disableNames(name)
			if !ok {
				cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s: unknown format %q", EnvDisable, name))
				continue
			}
			cfg.Disabled = append(cfg.Disabled, fs...)
		}
	}

	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	return cfg
}

// disableNames maps a name to the formats it switches off. XPM covers its
// compressed variants, which share one codec.
func disableNames(name string) ([]sniff.Format, bool) {
	f, ok := sniff.Parse(name)
	if !ok {
		return nil, false
	}
	if f == sniff.XPM {
		return []sniff.Format{sniff.XPM, sniff.GZXPM, sniff.ZXPM}, true
	}
	return []sniff.Format{f}, true
}
