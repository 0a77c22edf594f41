package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ironsheep/image-import-mcp/internal/sniff"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestScreenGamma(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		set      bool
		want     float64
		warnings int
	}{
		{"unset", "", false, 1.0, 0},
		{"empty", "", true, 1.0, 0},
		{"valid", "2.2", true, 2.2, 0},
		{"padded", " 1.8 ", true, 1.8, 0},
		{"zero", "0", true, 1.0, 1},
		{"negative", "-2", true, 1.0, 1},
		{"garbage", "bright", true, 1.0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := map[string]string{}
			if tt.set {
				vars[EnvScreenGamma] = tt.value
			}
			cfg := FromLookup(env(vars))
			if cfg.ScreenGamma != tt.want {
				t.Errorf("ScreenGamma = %v, want %v", cfg.ScreenGamma, tt.want)
			}
			if len(cfg.Warnings) != tt.warnings {
				t.Errorf("warnings = %v, want %d", cfg.Warnings, tt.warnings)
			}
		})
	}
}

func TestSearchPaths(t *testing.T) {
	list := strings.Join([]string{"/usr/share/icons", "", "~/pixmaps"}, string(filepath.ListSeparator))
	cfg := FromLookup(env(map[string]string{EnvSearchPath: list}))
	want := []string{"/usr/share/icons", "~/pixmaps"}
	if !reflect.DeepEqual(cfg.SearchPaths, want) {
		t.Errorf("SearchPaths = %v, want %v", cfg.SearchPaths, want)
	}
}

func TestDisabled(t *testing.T) {
	cfg := FromLookup(env(map[string]string{EnvDisable: "png, xpm,,jpg,nonsense"}))
	want := []sniff.Format{sniff.PNG, sniff.XPM, sniff.GZXPM, sniff.ZXPM, sniff.JPEG}
	if !reflect.DeepEqual(cfg.Disabled, want) {
		t.Errorf("Disabled = %v, want %v", cfg.Disabled, want)
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "nonsense") {
		t.Errorf("warnings = %v, want one naming the unknown format", cfg.Warnings)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvScreenGamma, "1.5")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvSearchPath, "")
	t.Setenv(EnvDisable, "")

	cfg := Load()
	if cfg.ScreenGamma != 1.5 {
		t.Errorf("ScreenGamma = %v, want 1.5", cfg.ScreenGamma)
	}
	if !cfg.Debug() {
		t.Error("expected debug log level")
	}
	if len(cfg.SearchPaths) != 0 || len(cfg.Disabled) != 0 {
		t.Errorf("unexpected paths %v or disabled %v", cfg.SearchPaths, cfg.Disabled)
	}
}
