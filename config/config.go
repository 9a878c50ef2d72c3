// Package config 从环境变量读取运行参数。配置以值的形式显式传递，不设全局单例。
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/editor"
	"github.com/ByLCY/snipsheet/fonts"
	"github.com/ByLCY/snipsheet/layout"
)

// Config 汇总导出、编辑与命令行使用的参数，边距单位为 mm。
type Config struct {
	Preset        string        `env:"SNIPSHEET_PRESET"         envDefault:"standard"`
	OutputDPI     float64       `env:"SNIPSHEET_OUTPUT_DPI"     envDefault:"72"`
	SourceDPI     float64       `env:"SNIPSHEET_SOURCE_DPI"     envDefault:"96"`
	MarginX       float64       `env:"SNIPSHEET_MARGIN_X"       envDefault:"15"`
	MarginY       float64       `env:"SNIPSHEET_MARGIN_Y"       envDefault:"15"`
	GridSize      float64       `env:"SNIPSHEET_GRID_SIZE"      envDefault:"10"`
	GridSnap      bool          `env:"SNIPSHEET_GRID_SNAP"      envDefault:"false"`
	HistoryDepth  int           `env:"SNIPSHEET_HISTORY_DEPTH"  envDefault:"20"`
	DropDebounce  time.Duration `env:"SNIPSHEET_DROP_DEBOUNCE"  envDefault:"300ms"`
	WatchDebounce time.Duration `env:"SNIPSHEET_WATCH_DEBOUNCE" envDefault:"200ms"`
	DBPath        string        `env:"SNIPSHEET_DB"`
	Author        string        `env:"SNIPSHEET_AUTHOR"`
	// 中日文字体文件，注册为 cjk 字体族并作为缺字候补。
	FontCJK string `env:"SNIPSHEET_FONT_CJK"`
	// 额外字体族，格式为 family=/path/a.ttf,family2=/path/b.ttf。
	Fonts map[string]string `env:"SNIPSHEET_FONTS" envKeyValSeparator:"="`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load 读取并校验配置。
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查取值范围。
func (c Config) Validate() error {
	if _, err := compose.ParsePreset(c.Preset); err != nil {
		return err
	}
	if c.OutputDPI <= 0 {
		return fmt.Errorf("输出分辨率必须为正数：%g", c.OutputDPI)
	}
	if c.MarginX < 0 || c.MarginY < 0 {
		return fmt.Errorf("边距不能为负数：%g, %g", c.MarginX, c.MarginY)
	}
	if c.GridSize < 0 {
		return fmt.Errorf("网格尺寸不能为负数：%g", c.GridSize)
	}
	return nil
}

// RegisterFonts 注册配置中的字体文件，cjk 最先注册，其余按族名排序。
func (c Config) RegisterFonts() error {
	if c.FontCJK != "" {
		if err := fonts.RegisterFile("cjk", c.FontCJK); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(c.Fonts))
	for name := range c.Fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := fonts.RegisterFile(name, c.Fonts[name]); err != nil {
			return err
		}
	}
	return nil
}

// Margin 返回文档默认边距。
func (c Config) Margin() layout.Margin {
	return layout.Margin{X: c.MarginX, Y: c.MarginY}
}

// Grid 返回网格设置。
func (c Config) Grid() layout.Grid {
	return layout.Grid{Size: c.GridSize, Snap: c.GridSnap}
}

// QualityPreset 返回导出质量预设，未知名称按 standard 处理。
func (c Config) QualityPreset() compose.Preset {
	p, err := compose.ParsePreset(c.Preset)
	if err != nil {
		return compose.PresetStandard
	}
	return p
}

// ComposeOptions 返回下载文件路径的合成参数。
func (c Config) ComposeOptions() compose.Options {
	return compose.Options{
		OutputDPI:     c.OutputDPI,
		Preset:        c.QualityPreset(),
		DefaultMargin: c.Margin(),
	}
}

// EditorOptions 返回编辑器参数，时钟与 id 生成器使用默认值。
func (c Config) EditorOptions() editor.Options {
	return editor.Options{
		Margin:       c.Margin(),
		Grid:         c.Grid(),
		HistoryDepth: c.HistoryDepth,
		DropDebounce: c.DropDebounce,
	}
}
