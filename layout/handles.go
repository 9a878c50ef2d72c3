package layout

import (
	"fmt"
	"math"
	"strings"
)

// Handle 是选中元素包围盒上的八个缩放控制点之一。
type Handle int

const (
	HandleNone Handle = iota
	HandleN
	HandleS
	HandleE
	HandleW
	HandleNE
	HandleNW
	HandleSE
	HandleSW
)

// AllHandles lists the eight handles in a stable order.
var AllHandles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

var handleNames = map[Handle]string{
	HandleN: "n", HandleS: "s", HandleE: "e", HandleW: "w",
	HandleNE: "ne", HandleNW: "nw", HandleSE: "se", HandleSW: "sw",
}

func (h Handle) String() string {
	if n, ok := handleNames[h]; ok {
		return n
	}
	return "none"
}

// ParseHandle parses "n", "se", ... case-insensitively.
func ParseHandle(s string) (Handle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for h, n := range handleNames {
		if n == s {
			return h, nil
		}
	}
	return HandleNone, fmt.Errorf("未知的缩放控制点：%s", s)
}

// Signs 返回控制点在两个轴上的方向：+1 表示移动右/下边，-1 表示移动左/上边，0 表示该轴不变。
// 与之相对的边即为锚定边。
func (h Handle) Signs() (sx, sy int) {
	switch h {
	case HandleN:
		return 0, -1
	case HandleS:
		return 0, 1
	case HandleE:
		return 1, 0
	case HandleW:
		return -1, 0
	case HandleNE:
		return 1, -1
	case HandleNW:
		return -1, -1
	case HandleSE:
		return 1, 1
	case HandleSW:
		return -1, 1
	}
	return 0, 0
}

// Position 返回控制点在矩形上的位置。
func (h Handle) Position(r Rect) Point {
	sx, sy := h.Signs()
	return Point{
		X: r.X + r.Width*float64(sx+1)/2,
		Y: r.Y + r.Height*float64(sy+1)/2,
	}
}

// ResizeRect 以拖动控制点的对边为锚点计算新几何：
// 先移动对应的边（可选吸附），再把宽高钳制到 minSize，最后由锚定边反推位置。
func ResizeRect(start Rect, h Handle, delta Point, minSize float64, grid Grid) Rect {
	sx, sy := h.Signs()
	x0, x1 := resizeAxis(start.X, start.Right(), sx, delta.X, minSize, grid)
	y0, y1 := resizeAxis(start.Y, start.Bottom(), sy, delta.Y, minSize, grid)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func resizeAxis(lo, hi float64, sign int, d, minSize float64, grid Grid) (float64, float64) {
	switch sign {
	case 1:
		hi = grid.SnapValue(hi + d)
		if hi-lo < minSize {
			hi = lo + minSize
		}
	case -1:
		lo = grid.SnapValue(lo + d)
		if hi-lo < minSize {
			lo = hi - minSize
		}
	}
	return lo, hi
}

// ClampSize 保证宽高不小于 minSize，锚定在左上角。
func ClampSize(r Rect, minSize float64) Rect {
	r.Width = math.Max(r.Width, minSize)
	r.Height = math.Max(r.Height, minSize)
	return r
}

// clampLine 只限制线段的最小长度，保持方向；零长度的线段变为水平线。
func clampLine(r Rect) Rect {
	r.Width = math.Max(r.Width, 0)
	r.Height = math.Max(r.Height, 0)
	switch l := math.Hypot(r.Width, r.Height); {
	case l == 0:
		r.Width = MinShapeSize
	case l < MinShapeSize:
		r.Width *= MinShapeSize / l
		r.Height *= MinShapeSize / l
	}
	return r
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}
