package layout

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// 该文件定义页面与元素的数据模型，供编辑状态、排列算法、合成器与持久化共用。
// 元素坐标以可打印区域左上角（纸张左上角 + 边距）为原点，单位为屏幕参考单位。

// 元素的最小尺寸（屏幕参考单位）。
const (
	MinSnippetSize = 20.0
	MinTextSize    = 30.0
	MinShapeSize   = 4.0
)

// Point 是画布坐标中的一个点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Size 为宽高。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect 为轴对齐矩形，原点在左上角。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether p lies inside r (edges included).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Intersects reports whether the two rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && r.Right() > o.X && r.Y < o.Bottom() && r.Bottom() > o.Y
}

// PaperSize 为纸张规格。
type PaperSize string

const (
	PaperA3     PaperSize = "A3"
	PaperA4     PaperSize = "A4"
	PaperA5     PaperSize = "A5"
	PaperB4     PaperSize = "B4"
	PaperB5     PaperSize = "B5"
	PaperLetter PaperSize = "Letter"
	PaperLegal  PaperSize = "Legal"
)

var paperPresets = map[PaperSize][2]float64{
	PaperA3:     {297, 420},
	PaperA4:     {210, 297},
	PaperA5:     {148, 210},
	PaperB4:     {257, 364},
	PaperB5:     {182, 257},
	PaperLetter: {215.9, 279.4},
	PaperLegal:  {215.9, 355.6},
}

// ParsePaperSize 不区分大小写地解析纸张规格。
func ParsePaperSize(s string) (PaperSize, error) {
	for p := range paperPresets {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("暂不支持的纸张尺寸：%s", s)
}

// Orientation 为纸张方向。
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Margin 以毫米为单位，X 为左右边距，Y 为上下边距。
type Margin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Grid 为视图级的网格设置，不随元素保存。
type Grid struct {
	Size float64 `json:"size"`
	Snap bool    `json:"snap"`
}

// SnapValue 在启用吸附时把 v 四舍五入到最近的网格单位。
func (g Grid) SnapValue(v float64) float64 {
	if !g.Snap || g.Size <= 0 {
		return v
	}
	return roundTo(v, g.Size)
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Hex 返回 #rrggbb 形式。
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", clampByte(c.R), clampByte(c.G), clampByte(c.B))
}

// ToRGBA 转换为不透明的 color.RGBA。
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: uint8(clampByte(c.R)), G: uint8(clampByte(c.G)), B: uint8(clampByte(c.B)), A: 0xff}
}

// DefaultTextColor 为文本默认颜色。
var DefaultTextColor = Color{R: 30, G: 30, B: 30}

// ParseColor 解析 #rgb / #rrggbb / #rrggbbaa（忽略透明度）。
func ParseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	// 8 位时末两位为透明度，只校验不保存。
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 不是十六进制", value)
	}
	if len(hex) == 8 {
		v >>= 8
	}
	return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
}

// WritingMode 为文本排列方向。
type WritingMode string

const (
	Horizontal WritingMode = "horizontal"
	Vertical   WritingMode = "vertical"
)

// TextAlign 为文本水平对齐。
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// ShapeKind 为图形种类。
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeLine      ShapeKind = "line"
)

// PlacedSnippet 引用外部素材库中的一张图片片段。AssetID 是弱引用。
type PlacedSnippet struct {
	ID       string  `json:"id"`
	AssetID  string  `json:"assetId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"` // 保留字段，始终为 0
}

// Rect returns the snippet geometry.
func (s PlacedSnippet) Rect() Rect { return Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height} }

// TextElement 是可编辑的文本块。
type TextElement struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	FontSize    float64     `json:"fontSize"` // 屏幕参考单位
	FontFamily  string      `json:"fontFamily"`
	Color       Color       `json:"color"`
	WritingMode WritingMode `json:"writingMode"`
	Align       TextAlign   `json:"align"`
}

// Rect returns the text block geometry.
func (t TextElement) Rect() Rect { return Rect{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height} }

// ShapeElement 是矢量图形。线段从左上角画到右下角。
type ShapeElement struct {
	ID          string    `json:"id"`
	Kind        ShapeKind `json:"kind"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	StrokeColor Color     `json:"strokeColor"`
	StrokeWidth float64   `json:"strokeWidth"`
	Fill        *Color    `json:"fill,omitempty"` // 为空表示不填充
}

// Rect returns the shape geometry.
func (s ShapeElement) Rect() Rect { return Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height} }

// Page 记录纸张、边距与三类元素集合。
type Page struct {
	ID          string          `json:"id"`
	Paper       PaperSize       `json:"paper"`
	Orientation Orientation     `json:"orientation"`
	MarginX     *float64        `json:"marginX,omitempty"` // mm，空则使用文档默认值
	MarginY     *float64        `json:"marginY,omitempty"`
	Snippets    []PlacedSnippet `json:"snippets"`
	Texts       []TextElement   `json:"texts"`
	Shapes      []ShapeElement  `json:"shapes"`
}

// SizeMM 返回考虑方向后的纸张宽高（mm）。
func (p *Page) SizeMM() (float64, float64) {
	base, ok := paperPresets[p.Paper]
	if !ok {
		base = paperPresets[PaperA4]
	}
	if p.Orientation == Landscape {
		return base[1], base[0]
	}
	return base[0], base[1]
}

// EffectiveMargin 合并页面覆盖值与文档默认边距。
func (p *Page) EffectiveMargin(def Margin) Margin {
	m := def
	if p.MarginX != nil {
		m.X = *p.MarginX
	}
	if p.MarginY != nil {
		m.Y = *p.MarginY
	}
	return m
}

// PrintableArea 返回可打印区域的尺寸（屏幕参考单位），原点即元素坐标原点。
func (p *Page) PrintableArea(def Margin) Rect {
	w, h := p.SizeMM()
	m := p.EffectiveMargin(def)
	return Rect{
		Width:  MMToUnits(w-2*m.X, ScreenDPI),
		Height: MMToUnits(h-2*m.Y, ScreenDPI),
	}
}

// Snapshot 是页面三类元素集合的深拷贝。
type Snapshot struct {
	Snippets []PlacedSnippet `json:"snippets"`
	Texts    []TextElement   `json:"texts"`
	Shapes   []ShapeElement  `json:"shapes"`
}

// Snapshot 深拷贝当前元素集合。
func (p *Page) Snapshot() Snapshot {
	s := Snapshot{
		Snippets: append([]PlacedSnippet(nil), p.Snippets...),
		Texts:    append([]TextElement(nil), p.Texts...),
	}
	for _, sh := range p.Shapes {
		s.Shapes = append(s.Shapes, sh.clone())
	}
	return s
}

// Restore 用快照替换元素集合，快照本身不会被共享。
func (p *Page) Restore(s Snapshot) {
	c := Page{Snippets: s.Snippets, Texts: s.Texts, Shapes: s.Shapes}
	cp := c.Snapshot()
	p.Snippets, p.Texts, p.Shapes = cp.Snippets, cp.Texts, cp.Shapes
}

// Clone 深拷贝整个页面。
func (p *Page) Clone() *Page {
	c := *p
	if p.MarginX != nil {
		v := *p.MarginX
		c.MarginX = &v
	}
	if p.MarginY != nil {
		v := *p.MarginY
		c.MarginY = &v
	}
	s := p.Snapshot()
	c.Snippets, c.Texts, c.Shapes = s.Snippets, s.Texts, s.Shapes
	return &c
}

func (s ShapeElement) clone() ShapeElement {
	if s.Fill != nil {
		f := *s.Fill
		s.Fill = &f
	}
	return s
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
