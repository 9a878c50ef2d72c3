// Package arrange 实现批量排列算法：网格自动排列、对齐、等距分布与统一尺寸。
// 算法本身是纯函数，Engine 负责把结果作为一次原子操作写回 layout.State。
package arrange

import (
	"errors"
	"math"
	"sort"

	"github.com/ByLCY/snipsheet/layout"
)

// ErrTooFewItems 表示等距分布所需的元素不足三个。
var ErrTooFewItems = errors.New("等距分布至少需要三个元素")

// Order 决定网格排列时先填满行还是先填满列。
type Order int

const (
	RowMajor Order = iota
	ColumnMajor
)

// GridOptions 为网格排列参数。Cols/Rows 为 0 时自动推算。
type GridOptions struct {
	Cols  int
	Rows  int
	GapX  float64
	GapY  float64
	Order Order
}

// Item 是参与网格排列的元素及其原始尺寸。
type Item struct {
	ID     string
	Native layout.Size
}

// Edge 为对齐基准。
type Edge int

const (
	EdgeTop Edge = iota
	EdgeLeft
	EdgeBottom
	EdgeRight
	EdgeCenterX
	EdgeCenterY
)

// Axis 为分布方向。
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// Dimension 为统一尺寸的维度。
type Dimension int

const (
	Width Dimension = iota
	Height
	Both
)

// GridShape 返回 n 个元素实际使用的列数与行数；行数不足时向下扩展。
// 只给出行数时按行数推出列数，两者都未给出时取接近正方形的网格。
func GridShape(n int, opts GridOptions) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols, rows = opts.Cols, opts.Rows
	switch {
	case cols > 0:
	case rows > 0:
		cols = (n + rows - 1) / rows
	default:
		cols = int(math.Ceil(math.Sqrt(float64(n))))
	}
	if rows <= 0 || cols*rows < n {
		rows = (n + cols - 1) / cols
	}
	return cols, rows
}

// Cell 返回第 i 个元素所在的行列。
func Cell(i, cols, rows int, order Order) (row, col int) {
	if order == ColumnMajor {
		return i % rows, i / rows
	}
	return i / cols, i % cols
}

// Grid 把元素按输入顺序依次放入 area 划分出的单元格，在单元格内居中，
// 保持原始宽高比，只缩小不放大，以适应 (cellW-gapX, cellH-gapY)。
func Grid(items []Item, area layout.Rect, opts GridOptions) []layout.Placement {
	cols, rows := GridShape(len(items), opts)
	if cols == 0 {
		return nil
	}
	cellW := area.Width / float64(cols)
	cellH := area.Height / float64(rows)
	availW := math.Max(cellW-opts.GapX, 0)
	availH := math.Max(cellH-opts.GapY, 0)

	out := make([]layout.Placement, 0, len(items))
	for i, it := range items {
		row, col := Cell(i, cols, rows, opts.Order)
		nw, nh := it.Native.Width, it.Native.Height
		if nw <= 0 || nh <= 0 {
			nw, nh = availW, availH
		}
		scale := 1.0
		if nw > 0 {
			scale = math.Min(scale, availW/nw)
		}
		if nh > 0 {
			scale = math.Min(scale, availH/nh)
		}
		w, h := nw*scale, nh*scale
		out = append(out, layout.Placement{
			ID: it.ID,
			Rect: layout.Rect{
				X:      area.X + float64(col)*cellW + (cellW-w)/2,
				Y:      area.Y + float64(row)*cellH + (cellH-h)/2,
				Width:  w,
				Height: h,
			},
		})
	}
	return out
}

// Align 把所有成员对齐到同一条边，尺寸不变。
func Align(in []layout.Placement, edge Edge) []layout.Placement {
	out := append([]layout.Placement(nil), in...)
	if len(out) == 0 {
		return out
	}
	var target float64
	switch edge {
	case EdgeTop, EdgeLeft:
		target = math.Inf(1)
	case EdgeBottom, EdgeRight:
		target = math.Inf(-1)
	}
	bounds := boundingBox(out)
	for _, p := range out {
		switch edge {
		case EdgeTop:
			target = math.Min(target, p.Rect.Y)
		case EdgeLeft:
			target = math.Min(target, p.Rect.X)
		case EdgeBottom:
			target = math.Max(target, p.Rect.Bottom())
		case EdgeRight:
			target = math.Max(target, p.Rect.Right())
		}
	}
	for i := range out {
		r := &out[i].Rect
		switch edge {
		case EdgeTop:
			r.Y = target
		case EdgeLeft:
			r.X = target
		case EdgeBottom:
			r.Y = target - r.Height
		case EdgeRight:
			r.X = target - r.Width
		case EdgeCenterX:
			r.X = bounds.X + bounds.Width/2 - r.Width/2
		case EdgeCenterY:
			r.Y = bounds.Y + bounds.Height/2 - r.Height/2
		}
	}
	return out
}

// Distribute 沿 axis 以统一间距重新排布成员，首尾元素保持不动。
// 间距为负（元素重叠）时照常处理。
func Distribute(in []layout.Placement, axis Axis) ([]layout.Placement, error) {
	if len(in) < 3 {
		return nil, ErrTooFewItems
	}
	out := append([]layout.Placement(nil), in...)
	lead := func(r layout.Rect) float64 {
		if axis == Vertical {
			return r.Y
		}
		return r.X
	}
	size := func(r layout.Rect) float64 {
		if axis == Vertical {
			return r.Height
		}
		return r.Width
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lead(out[order[a]].Rect) < lead(out[order[b]].Rect)
	})

	first, last := out[order[0]].Rect, out[order[len(order)-1]].Rect
	span := lead(last) + size(last) - lead(first)
	var total float64
	for _, p := range out {
		total += size(p.Rect)
	}
	gap := (span - total) / float64(len(out)-1)

	pos := lead(first)
	for _, idx := range order {
		r := &out[idx].Rect
		if axis == Vertical {
			r.Y = pos
		} else {
			r.X = pos
		}
		pos += size(*r) + gap
	}
	return out, nil
}

// UnifySize 把第一个成员的宽、高或两者复制给其余成员，左上角不变。
func UnifySize(in []layout.Placement, dim Dimension) []layout.Placement {
	out := append([]layout.Placement(nil), in...)
	if len(out) == 0 {
		return out
	}
	ref := out[0].Rect
	for i := 1; i < len(out); i++ {
		r := &out[i].Rect
		if dim == Width || dim == Both {
			r.Width = ref.Width
		}
		if dim == Height || dim == Both {
			r.Height = ref.Height
		}
	}
	return out
}

func boundingBox(ps []layout.Placement) layout.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range ps {
		minX = math.Min(minX, p.Rect.X)
		minY = math.Min(minY, p.Rect.Y)
		maxX = math.Max(maxX, p.Rect.Right())
		maxY = math.Max(maxY, p.Rect.Bottom())
	}
	return layout.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
