package compose

import (
	"fmt"
	"image"
	"strings"

	"github.com/ByLCY/snipsheet/layout"
)

// Format 为嵌入图片的编码格式。
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Preset 为导出质量预设。
type Preset string

const (
	PresetMaximum  Preset = "maximum"
	PresetHigh     Preset = "high"
	PresetStandard Preset = "standard"
	PresetLight    Preset = "light"
)

// Quality 为预设展开后的图片处理参数。Scale 为相对输出分辨率的倍数。
type Quality struct {
	Format    Format  `json:"format"`
	Quality   float64 `json:"quality"` // 0-1，仅对有损格式有效
	Scale     float64 `json:"scale"`
	Smoothing bool    `json:"smoothing"`
}

var presets = map[Preset]Quality{
	PresetMaximum:  {Format: FormatPNG, Quality: 1, Scale: 3, Smoothing: true},
	PresetHigh:     {Format: FormatJPEG, Quality: 0.95, Scale: 2, Smoothing: true},
	PresetStandard: {Format: FormatJPEG, Quality: 0.85, Scale: 1.5, Smoothing: true},
	PresetLight:    {Format: FormatJPEG, Quality: 0.7, Scale: 1, Smoothing: false},
}

// Settings 返回预设对应的参数，未知预设按 standard 处理。
func (p Preset) Settings() Quality {
	if q, ok := presets[p]; ok {
		return q
	}
	return presets[PresetStandard]
}

// ParsePreset parses a preset name case-insensitively.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := presets[p]; !ok {
		return "", fmt.Errorf("未知的质量预设：%s", s)
	}
	return p, nil
}

// ItemKind 区分位图与矢量条目。
type ItemKind string

const (
	ItemImage ItemKind = "image"
	ItemShape ItemKind = "shape"
)

// Item 是输出页面上的一个绘制条目。坐标为输出单位，原点在左下角，(X, Y) 为条目左下角。
type Item struct {
	Kind        ItemKind         `json:"kind"`
	Source      string           `json:"source"` // snippet / text / shape
	ID          string           `json:"id"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Width       float64          `json:"width"`
	Height      float64          `json:"height"`
	Image       image.Image      `json:"-"`
	PixelWidth  int              `json:"pixelWidth,omitempty"`
	PixelHeight int              `json:"pixelHeight,omitempty"`
	Shape       layout.ShapeKind `json:"shape,omitempty"`
	StrokeColor layout.Color     `json:"strokeColor,omitempty"`
	StrokeWidth float64          `json:"strokeWidth,omitempty"`
	Fill        *layout.Color    `json:"fill,omitempty"`
}

// Frame 是一页输出，宽高为输出单位。条目按绘制顺序排列：素材、文本、图形。
type Frame struct {
	PageID string  `json:"pageId"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Items  []Item  `json:"items"`
}

// Meta 为输出文件的元数据。
type Meta struct {
	Title    string   `json:"title,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Author   string   `json:"author,omitempty"`
	Creator  string   `json:"creator,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Skip 记录一个被跳过的元素。
type Skip struct {
	PageID    string `json:"pageId"`
	ElementID string `json:"elementId"`
	Reason    string `json:"reason"`
}

// Result 是合成结果，下载文件与打印页面共用。
type Result struct {
	DPI     float64 `json:"dpi"`
	Preset  Preset  `json:"preset"`
	Meta    Meta    `json:"meta"`
	Frames  []Frame `json:"frames"`
	Skipped []Skip  `json:"skipped,omitempty"`
}
