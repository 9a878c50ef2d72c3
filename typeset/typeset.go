// Package typeset 把文本元素栅格化为位图。输出文件中文本没有矢量表示，
// 横排逐行从上到下绘制，竖排逐字从上到下绘制、列从右到左排列。
package typeset

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/ByLCY/snipsheet/fonts"
	"github.com/ByLCY/snipsheet/layout"
)

// LineSpacing 为行距（字号的倍数），竖排时也用作列宽与字距。
const LineSpacing = 1.2

// Typesetter 由合成器调用，把文本元素按 scale（输出像素/屏幕单位）栅格化。
// text 为插值后的最终文本。
type Typesetter interface {
	Rasterize(t layout.TextElement, text string, scale float64) (image.Image, error)
}

// Raster 是基于 gg 与 freetype 的 Typesetter。
type Raster struct {
	hinting font.Hinting
}

var _ Typesetter = (*Raster)(nil)

// New creates a rasterizer with full hinting.
func New() *Raster {
	return &Raster{hinting: font.HintingFull}
}

// Rasterize implements Typesetter. The result has a transparent background.
func (r *Raster) Rasterize(t layout.TextElement, text string, scale float64) (image.Image, error) {
	if scale <= 0 {
		scale = 1
	}
	w := max(1, int(math.Ceil(t.Width*scale)))
	h := max(1, int(math.Ceil(t.Height*scale)))
	size := t.FontSize * scale
	if size <= 0 {
		return nil, fmt.Errorf("字号无效: %g", t.FontSize)
	}
	ttf, err := fonts.ForText(t.FontFamily, text)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: r.hinting})
	defer face.Close()

	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetColor(t.Color.ToRGBA())

	if t.WritingMode == layout.Vertical {
		drawVertical(dc, text, float64(w), float64(h), size, func(r rune) bool { return ttf.Index(r) != 0 })
	} else {
		drawHorizontal(dc, text, t.Align, float64(w), size)
	}
	return dc.Image(), nil
}

func drawHorizontal(dc *gg.Context, text string, align layout.TextAlign, w, size float64) {
	measure := func(s string) float64 {
		sw, _ := dc.MeasureString(s)
		return sw
	}
	x, ax := 0.0, 0.0
	switch align {
	case layout.AlignCenter:
		x, ax = w/2, 0.5
	case layout.AlignRight:
		x, ax = w, 1
	}
	lh := size * LineSpacing
	for i, line := range Wrap(text, w, measure) {
		if line.Content == "" {
			continue
		}
		dc.DrawStringAnchored(line.Content, x, float64(i)*lh, ax, 1)
	}
}

func drawVertical(dc *gg.Context, text string, w, h, size float64, has func(rune) bool) {
	cell := size * LineSpacing
	perColumn := max(1, int(h/cell))
	for i, col := range Columns(text, perColumn, has) {
		cx := w - (float64(i)+0.5)*cell
		if cx < -cell {
			break
		}
		for j, r := range col {
			dc.DrawStringAnchored(string(r), cx, (float64(j)+0.5)*cell, 0.5, 0.5)
		}
	}
}
