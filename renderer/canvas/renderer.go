package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/layout"
	"github.com/ByLCY/snipsheet/renderer"
)

// Renderer draws compose results via github.com/tdewolff/canvas.
// canvas 以毫米为单位、左下角为原点，与合成结果的坐标系一致，只需把输出单位换算为毫米。
type Renderer struct {
	// Background 仅用于栅格化（打印）路径，PDF 页面保持透明背景。
	Background color.Color
}

var (
	_ renderer.Renderer   = (*Renderer)(nil)
	_ renderer.Rasterizer = (*Renderer)(nil)
)

// NewRenderer creates a renderer with a white print background.
func NewRenderer() *Renderer {
	return &Renderer{Background: color.White}
}

// Render renders the result into a PDF byte slice, one page per frame.
func (r *Renderer) Render(result *compose.Result) ([]byte, error) {
	if err := check(result); err != nil {
		return nil, err
	}
	dpi := result.DPI
	var buf bytes.Buffer
	first := result.Frames[0]
	writer := pdf.New(&buf, toMM(first.Width, dpi), toMM(first.Height, dpi), nil)
	applyMeta(writer, result.Meta)
	for i, frame := range result.Frames {
		w, h := toMM(frame.Width, dpi), toMM(frame.Height, dpi)
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		drawFrame(ctx, frame, dpi)
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Rasterize 按结果的分辨率把每一页栅格化，与 PDF 使用同一套绘制逻辑。
func (r *Renderer) Rasterize(result *compose.Result) ([]image.Image, error) {
	if err := check(result); err != nil {
		return nil, err
	}
	dpi := result.DPI
	out := make([]image.Image, 0, len(result.Frames))
	for _, frame := range result.Frames {
		w, h := toMM(frame.Width, dpi), toMM(frame.Height, dpi)
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		if r.Background != nil {
			ctx.SetFillColor(r.Background)
			ctx.SetStrokeColor(canvas.Transparent)
			ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
		}
		drawFrame(ctx, frame, dpi)
		out = append(out, rasterizer.Draw(c, canvas.DPI(dpi), canvas.DefaultColorSpace))
	}
	return out, nil
}

// Print 栅格化全部页面，确认每一页位图都已就绪后才交给打印设施。
func (r *Renderer) Print(ctx context.Context, result *compose.Result, sink renderer.PrintSink) error {
	if sink == nil {
		return fmt.Errorf("打印设施不能为空")
	}
	pages, err := r.Rasterize(result)
	if err != nil {
		return err
	}
	for i, p := range pages {
		if p == nil || p.Bounds().Empty() {
			return fmt.Errorf("第 %d 页位图未就绪", i+1)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return sink.Print(ctx, pages)
}

func check(result *compose.Result) error {
	if result == nil {
		return fmt.Errorf("渲染结果为空")
	}
	if len(result.Frames) == 0 {
		return fmt.Errorf("缺少可渲染的页面: %w", compose.ErrNoPages)
	}
	if result.DPI <= 0 {
		return fmt.Errorf("输出分辨率无效: %g", result.DPI)
	}
	return nil
}

func applyMeta(writer *pdf.PDF, meta compose.Meta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawFrame 按条目顺序绘制：合成结果已经保证素材、文本、图形的先后。
func drawFrame(ctx *canvas.Context, frame compose.Frame, dpi float64) {
	for _, it := range frame.Items {
		switch it.Kind {
		case compose.ItemImage:
			drawImage(ctx, it, dpi)
		case compose.ItemShape:
			drawShape(ctx, it, dpi)
		}
	}
}

func drawImage(ctx *canvas.Context, it compose.Item, dpi float64) {
	if it.Image == nil {
		return
	}
	x, y := toMM(it.X, dpi), toMM(it.Y, dpi)
	rect := canvas.Rect{X0: x, Y0: y, X1: x + toMM(it.Width, dpi), Y1: y + toMM(it.Height, dpi)}
	ctx.FitImage(it.Image, rect, canvas.ImageFill)
}

func drawShape(ctx *canvas.Context, it compose.Item, dpi float64) {
	x, y := toMM(it.X, dpi), toMM(it.Y, dpi)
	w, h := toMM(it.Width, dpi), toMM(it.Height, dpi)

	if it.Fill != nil && it.Shape != layout.ShapeLine {
		ctx.SetFillColor(colorFromLayout(*it.Fill))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	if it.StrokeWidth > 0 {
		ctx.SetStrokeColor(colorFromLayout(it.StrokeColor))
		ctx.SetStrokeWidth(toMM(it.StrokeWidth, dpi))
	} else {
		ctx.SetStrokeColor(canvas.Transparent)
	}

	switch it.Shape {
	case layout.ShapeCircle:
		// Ellipse 以原点为中心。
		ctx.DrawPath(x+w/2, y+h/2, canvas.Ellipse(w/2, h/2))
	case layout.ShapeLine:
		// 线段从编辑器中的左上角画到右下角，在左下角原点下即 (0,h) -> (w,0)。
		p := &canvas.Path{}
		p.MoveTo(0, h)
		p.LineTo(w, 0)
		ctx.DrawPath(x, y, p)
	default:
		ctx.DrawPath(x, y, canvas.Rectangle(w, h))
	}
}

func colorFromLayout(c layout.Color) color.Color {
	return c.ToRGBA()
}

// toMM 将输出单位换算为毫米。
func toMM(v, dpi float64) float64 { return layout.UnitsToMM(v, dpi) }
