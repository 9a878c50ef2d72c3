package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/layout"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func sampleResult() *compose.Result {
	black := layout.Color{}
	return &compose.Result{
		DPI:  layout.ScreenDPI,
		Meta: compose.Meta{Title: "Sheet", Keywords: []string{"a", "b"}},
		Frames: []compose.Frame{
			{
				PageID: "p1",
				Width:  layout.MMToUnits(210, layout.ScreenDPI),
				Height: layout.MMToUnits(297, layout.ScreenDPI),
				Items: []compose.Item{
					{Kind: compose.ItemImage, Source: "snippet", ID: "s1", X: 300, Y: 300, Width: 40, Height: 40, Image: solid(10, 10, color.RGBA{R: 255, A: 255})},
					{Kind: compose.ItemShape, Source: "shape", ID: "r1", X: 100, Y: 100, Width: 50, Height: 50, Shape: layout.ShapeRectangle, StrokeWidth: 1, Fill: &black},
					{Kind: compose.ItemShape, Source: "shape", ID: "c1", X: 500, Y: 100, Width: 40, Height: 20, Shape: layout.ShapeCircle, StrokeWidth: 2},
					{Kind: compose.ItemShape, Source: "shape", ID: "l1", X: 500, Y: 500, Width: 40, Height: 20, Shape: layout.ShapeLine, StrokeWidth: 2},
				},
			},
			{
				PageID: "p2",
				Width:  layout.MMToUnits(297, layout.ScreenDPI),
				Height: layout.MMToUnits(210, layout.ScreenDPI),
			},
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	data, err := NewRenderer().Render(sampleResult())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
	if !bytes.Contains(data, []byte("Sheet")) {
		t.Fatalf("document title should be written to the info dictionary")
	}
}

func TestRenderRejectsEmptyResult(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
	if _, err := r.Render(&compose.Result{DPI: 72}); !errors.Is(err, compose.ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func dark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r < 0x4000 && g < 0x4000 && b < 0x4000
}

func TestRasterizeMatchesGeometry(t *testing.T) {
	pages, err := NewRenderer().Rasterize(sampleResult())
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	b := pages[0].Bounds()
	if b.Dx() < 793 || b.Dx() > 795 || b.Dy() < 1122 || b.Dy() > 1124 {
		t.Fatalf("unexpected A4 raster size %v", b)
	}
	if l := pages[1].Bounds(); l.Dx() < l.Dy() {
		t.Fatalf("landscape page should be wider than tall: %v", l)
	}
	// 输出坐标原点在左下角，位图原点在左上角。
	if c := pages[0].At(125, b.Dy()-125); !dark(c) {
		t.Fatalf("expected filled rectangle at (125,%d), got %v", b.Dy()-125, c)
	}
	if r, g, _, _ := pages[0].At(320, b.Dy()-320).RGBA(); r < 0xc000 || g > 0x4000 {
		t.Fatalf("expected snippet pixels to be red")
	}
	if c := pages[0].At(10, 10); dark(c) {
		t.Fatalf("background should be white, got %v", c)
	}
}

type recordingSink struct {
	pages []image.Image
}

func (s *recordingSink) Print(_ context.Context, pages []image.Image) error {
	s.pages = pages
	return nil
}

func TestPrintHandsAllPagesToSink(t *testing.T) {
	sink := &recordingSink{}
	if err := NewRenderer().Print(context.Background(), sampleResult(), sink); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if len(sink.pages) != 2 {
		t.Fatalf("sink should receive every page, got %d", len(sink.pages))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink = &recordingSink{}
	if err := NewRenderer().Print(ctx, sampleResult(), sink); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sink.pages != nil {
		t.Fatalf("sink must not be called after cancellation")
	}
}
