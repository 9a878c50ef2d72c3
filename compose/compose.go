// Package compose 把编辑器中的页面几何换算为输出几何。下载文件与打印页面
// 使用同一个变换与同一个质量预设，两条路径不会出现视觉差异。
package compose

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/binding"
	"github.com/ByLCY/snipsheet/layout"
	"github.com/ByLCY/snipsheet/typeset"
)

// ErrNoPages 表示没有任何页面可以导出，不会产生部分结果。
var ErrNoPages = errors.New("没有可导出的页面")

// DefaultOutputDPI 为导出文件的默认输出分辨率（1 单位 = 1pt）。
const DefaultOutputDPI = 72.0

// Options 为一次合成的显式参数。
type Options struct {
	OutputDPI     float64
	Preset        Preset
	DefaultMargin layout.Margin
	Data          map[string]any // ${...} 插值可见的用户数据
	Meta          Meta
	Logger        *log.Logger
}

// ForPrint 返回打印路径使用的参数：与编辑器相同的屏幕参考分辨率，其余不变。
func (o Options) ForPrint() Options {
	o.OutputDPI = layout.ScreenDPI
	return o
}

// Transform 把以可打印区域左上角为原点的屏幕单位矩形换算为输出单位，
// 纵轴翻转为左下角原点，返回条目左下角与宽高。
func Transform(r layout.Rect, pageHeight float64, margin layout.Margin, dpi float64) (x, y, w, h float64) {
	ratio := layout.Ratio(dpi)
	w = r.Width * ratio
	h = r.Height * ratio
	x = layout.MMToUnits(margin.X, dpi) + r.X*ratio
	y = pageHeight - layout.MMToUnits(margin.Y, dpi) - r.Y*ratio - h
	return x, y, w, h
}

// Compose 依次合成每一页：先素材，再文本，最后图形。处理严格串行，保证绘制顺序确定。
// 单个素材缺失或处理失败只记录日志并跳过，整个文档仍然完成。
func Compose(pages []*layout.Page, lib assets.Library, ts typeset.Typesetter, opts Options) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if opts.OutputDPI <= 0 {
		opts.OutputDPI = DefaultOutputDPI
	}
	if opts.Preset == "" {
		opts.Preset = PresetStandard
	}
	if ts == nil {
		ts = typeset.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := &composer{lib: lib, ts: ts, opts: opts, quality: opts.Preset.Settings(), log: logger}
	res := &Result{DPI: opts.OutputDPI, Preset: opts.Preset, Meta: opts.Meta}
	for i, page := range pages {
		res.Frames = append(res.Frames, c.page(page, i+1, len(pages), res))
	}
	return res, nil
}

type composer struct {
	lib     assets.Library
	ts      typeset.Typesetter
	opts    Options
	quality Quality
	log     *log.Logger
}

func (c *composer) page(page *layout.Page, number, count int, res *Result) Frame {
	dpi := c.opts.OutputDPI
	wmm, hmm := page.SizeMM()
	frame := Frame{
		PageID: page.ID,
		Width:  layout.MMToUnits(wmm, dpi),
		Height: layout.MMToUnits(hmm, dpi),
	}
	margin := page.EffectiveMargin(c.opts.DefaultMargin)
	place := func(r layout.Rect) (float64, float64, float64, float64) {
		return Transform(r, frame.Height, margin, dpi)
	}
	skip := func(id, reason string, err error) {
		c.log.Printf("跳过页面 %s 的元素 %s: %s: %v", page.ID, id, reason, err)
		res.Skipped = append(res.Skipped, Skip{PageID: page.ID, ElementID: id, Reason: reason})
	}

	for _, sn := range page.Snippets {
		asset, ok := c.lookup(sn.AssetID)
		if !ok {
			skip(sn.ID, "missing-asset", fmt.Errorf("素材 %s 不存在", sn.AssetID))
			continue
		}
		x, y, w, h := place(sn.Rect())
		img, err := c.snippetImage(asset, w, h)
		if err != nil {
			skip(sn.ID, "render-asset", err)
			continue
		}
		frame.Items = append(frame.Items, imageItem("snippet", sn.ID, x, y, w, h, img))
	}

	var scope map[string]any
	for _, t := range page.Texts {
		text := t.Text
		if binding.HasPlaceholders(text) {
			if scope == nil {
				scope = binding.PageScope(number, count, c.opts.Data)
			}
			text = binding.Interpolate(text, scope)
		}
		x, y, w, h := place(t.Rect())
		img, err := c.ts.Rasterize(t, text, layout.Ratio(dpi)*c.quality.Scale)
		if err != nil {
			skip(t.ID, "render-text", err)
			continue
		}
		frame.Items = append(frame.Items, imageItem("text", t.ID, x, y, w, h, img))
	}

	ratio := layout.Ratio(dpi)
	for _, sh := range page.Shapes {
		x, y, w, h := place(sh.Rect())
		frame.Items = append(frame.Items, Item{
			Kind:        ItemShape,
			Source:      "shape",
			ID:          sh.ID,
			X:           x,
			Y:           y,
			Width:       w,
			Height:      h,
			Shape:       sh.Kind,
			StrokeColor: sh.StrokeColor,
			StrokeWidth: sh.StrokeWidth * ratio,
			Fill:        sh.Fill,
		})
	}
	return frame
}

func (c *composer) lookup(id string) (assets.Asset, bool) {
	if c.lib == nil {
		return assets.Asset{}, false
	}
	return c.lib.Asset(id)
}

func imageItem(source, id string, x, y, w, h float64, img image.Image) Item {
	b := img.Bounds()
	return Item{
		Kind:        ItemImage,
		Source:      source,
		ID:          id,
		X:           x,
		Y:           y,
		Width:       w,
		Height:      h,
		Image:       img,
		PixelWidth:  b.Dx(),
		PixelHeight: b.Dy(),
	}
}
