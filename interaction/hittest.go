package interaction

import (
	"math"

	"github.com/ByLCY/snipsheet/layout"
)

// HandleRadius 为控制点的命中半径（画布单位）。
const HandleRadius = 6.0

// Hit 是一次命中测试的结果。
type Hit struct {
	ID   string
	Kind layout.ElementKind
	Rect layout.Rect
}

// HitTest 按视觉层级从上到下查找 p 处的元素：图形、文本、素材，各集合内后添加的在上。
func HitTest(page *layout.Page, p layout.Point) (Hit, bool) {
	for i := len(page.Shapes) - 1; i >= 0; i-- {
		if r := page.Shapes[i].Rect(); r.Contains(p) {
			return Hit{ID: page.Shapes[i].ID, Kind: layout.KindShape, Rect: r}, true
		}
	}
	for i := len(page.Texts) - 1; i >= 0; i-- {
		if r := page.Texts[i].Rect(); r.Contains(p) {
			return Hit{ID: page.Texts[i].ID, Kind: layout.KindText, Rect: r}, true
		}
	}
	for i := len(page.Snippets) - 1; i >= 0; i-- {
		if r := page.Snippets[i].Rect(); r.Contains(p) {
			return Hit{ID: page.Snippets[i].ID, Kind: layout.KindSnippet, Rect: r}, true
		}
	}
	return Hit{}, false
}

// HitHandle 返回 p 命中的 r 的控制点。
func HitHandle(r layout.Rect, p layout.Point) (layout.Handle, bool) {
	for _, h := range layout.AllHandles {
		c := h.Position(r)
		if math.Hypot(p.X-c.X, p.Y-c.Y) <= HandleRadius {
			return h, true
		}
	}
	return layout.HandleNone, false
}
