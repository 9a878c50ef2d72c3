package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/gomono"

	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/fonts"
	"github.com/ByLCY/snipsheet/layout"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QualityPreset() != compose.PresetStandard || cfg.OutputDPI != 72 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Margin() != (layout.Margin{X: 15, Y: 15}) {
		t.Fatalf("unexpected default margin %+v", cfg.Margin())
	}
	if cfg.DropDebounce != 300*time.Millisecond || cfg.HistoryDepth != 20 {
		t.Fatalf("unexpected editor defaults: %+v", cfg)
	}
	opts := cfg.ComposeOptions()
	if opts.DefaultMargin != cfg.Margin() || opts.Preset != compose.PresetStandard {
		t.Fatalf("unexpected compose options %+v", opts)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SNIPSHEET_PRESET", "maximum")
	t.Setenv("SNIPSHEET_MARGIN_X", "10")
	t.Setenv("SNIPSHEET_GRID_SNAP", "true")
	t.Setenv("SNIPSHEET_GRID_SIZE", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QualityPreset() != compose.PresetMaximum || cfg.MarginX != 10 || cfg.MarginY != 15 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if g := cfg.EditorOptions().Grid; !g.Snap || g.Size != 8 {
		t.Fatalf("unexpected grid %+v", g)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("SNIPSHEET_OUTPUT_DPI", "not-a-number")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}

	t.Setenv("SNIPSHEET_OUTPUT_DPI", "72")
	t.Setenv("SNIPSHEET_PRESET", "ultra")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}

func TestRegisterFontsFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "font.ttf")
	if err := os.WriteFile(path, gomono.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SNIPSHEET_FONT_CJK", path)
	t.Setenv("SNIPSHEET_FONTS", "Handwriting="+path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fonts["Handwriting"] != path {
		t.Fatalf("unexpected font map %v", cfg.Fonts)
	}
	if err := cfg.RegisterFonts(); err != nil {
		t.Fatalf("RegisterFonts: %v", err)
	}
	for _, name := range []string{"cjk", "handwriting"} {
		if !slices.Contains(fonts.Families(), name) {
			t.Fatalf("family %s not registered: %v", name, fonts.Families())
		}
	}

	cfg.FontCJK = filepath.Join(dir, "missing.ttf")
	if err := cfg.RegisterFonts(); err == nil {
		t.Fatalf("expected error for missing font file")
	}
}
