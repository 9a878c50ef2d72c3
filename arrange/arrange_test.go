package arrange

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/history"
	"github.com/ByLCY/snipsheet/layout"
)

func rect(x, y, w, h float64) layout.Rect {
	return layout.Rect{X: x, Y: y, Width: w, Height: h}
}

func TestGridAssignsUniqueCellsWithoutUpscaling(t *testing.T) {
	area := rect(0, 0, 600, 400)
	for _, order := range []Order{RowMajor, ColumnMajor} {
		items := make([]Item, 7)
		for i := range items {
			items[i] = Item{ID: fmt.Sprintf("s%d", i), Native: layout.Size{Width: float64(50 + i*60), Height: 80}}
		}
		opts := GridOptions{Cols: 3, Rows: 2, GapX: 10, GapY: 10, Order: order}
		cols, rows := GridShape(len(items), opts)
		if cols != 3 || rows != 3 {
			t.Fatalf("expected rows extended to 3, got %dx%d", cols, rows)
		}
		seen := map[[2]int]bool{}
		for i := range items {
			r, c := Cell(i, cols, rows, order)
			if seen[[2]int{r, c}] {
				t.Fatalf("order %v: cell (%d,%d) assigned twice", order, r, c)
			}
			seen[[2]int{r, c}] = true
		}
		out := Grid(items, area, opts)
		if len(out) != len(items) {
			t.Fatalf("expected %d placements, got %d", len(items), len(out))
		}
		for i, p := range out {
			n := items[i].Native
			if p.Rect.Width > n.Width+1e-9 || p.Rect.Height > n.Height+1e-9 {
				t.Fatalf("item %d upscaled: %+v native %+v", i, p.Rect, n)
			}
			if math.Abs(p.Rect.Width/p.Rect.Height-n.Width/n.Height) > 1e-9 {
				t.Fatalf("item %d aspect ratio changed", i)
			}
		}
	}
}

func TestGridShapeFromPartialOptions(t *testing.T) {
	cases := []struct {
		n          int
		opts       GridOptions
		cols, rows int
	}{
		{4, GridOptions{Rows: 1}, 4, 1},
		{5, GridOptions{Rows: 2}, 3, 2},
		{4, GridOptions{Cols: 1}, 1, 4},
		{5, GridOptions{}, 3, 2},
		{0, GridOptions{Rows: 3}, 0, 0},
	}
	for _, c := range cases {
		cols, rows := GridShape(c.n, c.opts)
		if cols != c.cols || rows != c.rows {
			t.Fatalf("GridShape(%d, %+v) = %dx%d, want %dx%d", c.n, c.opts, cols, rows, c.cols, c.rows)
		}
	}
}

func TestGridCentersInCell(t *testing.T) {
	out := Grid([]Item{{ID: "a", Native: layout.Size{Width: 40, Height: 20}}}, rect(10, 10, 100, 100), GridOptions{Cols: 1, Rows: 1})
	want := rect(40, 50, 40, 20)
	if out[0].Rect != want {
		t.Fatalf("expected %+v, got %+v", want, out[0].Rect)
	}
}

func TestAlignTopAndRight(t *testing.T) {
	in := []layout.Placement{
		{ID: "a", Rect: rect(10, 40, 50, 50)},
		{ID: "b", Rect: rect(80, 25, 30, 70)},
		{ID: "c", Rect: rect(5, 60, 20, 20)},
	}
	top := Align(in, EdgeTop)
	for _, p := range top {
		if p.Rect.Y != 25 {
			t.Fatalf("expected y=25, got %+v", p)
		}
	}
	right := Align(in, EdgeRight)
	for _, p := range right {
		if p.Rect.Right() != 110 {
			t.Fatalf("expected right edge 110, got %+v", p)
		}
	}
	if in[0].Rect.Y != 40 {
		t.Fatalf("input slice must not be modified")
	}
}

func TestDistributeIsIdempotent(t *testing.T) {
	in := []layout.Placement{
		{ID: "a", Rect: rect(0, 0, 20, 20)},
		{ID: "c", Rect: rect(200, 0, 40, 20)},
		{ID: "b", Rect: rect(30, 0, 30, 20)},
	}
	once, err := Distribute(in, Horizontal)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	// span 240, sizes 90, gap 75: a@0, b@95, c@200
	if once[0].Rect.X != 0 || once[2].Rect.X != 95 || once[1].Rect.X != 200 {
		t.Fatalf("unexpected positions: %+v", once)
	}
	twice, _ := Distribute(once, Horizontal)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second distribute changed positions: %+v", twice)
	}
	if _, err := Distribute(in[:2], Vertical); !errors.Is(err, ErrTooFewItems) {
		t.Fatalf("expected ErrTooFewItems, got %v", err)
	}
}

func TestDistributeAcceptsOverlap(t *testing.T) {
	in := []layout.Placement{
		{ID: "a", Rect: rect(0, 0, 20, 100)},
		{ID: "b", Rect: rect(0, 10, 20, 100)},
		{ID: "c", Rect: rect(0, 20, 20, 100)},
	}
	out, err := Distribute(in, Vertical)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if out[1].Rect.Y != 10 {
		t.Fatalf("expected y=10 with negative gap, got %g", out[1].Rect.Y)
	}
}

func newPage(t *testing.T) (*layout.State, *layout.Page, *history.Manager) {
	t.Helper()
	n := 0
	s := layout.NewState(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	return s, s.AddPage(layout.PaperA4, layout.Portrait), history.New(0)
}

func TestEngineUnifyWidthKeepsPositions(t *testing.T) {
	s, p, h := newPage(t)
	a, _ := s.AddSnippetPlacement(p.ID, layout.AssetRef{ID: "x", Width: 120, Height: 60}, layout.Point{X: 5, Y: 5})
	b, _ := s.AddSnippetPlacement(p.ID, layout.AssetRef{ID: "y", Width: 40, Height: 90}, layout.Point{X: 200, Y: 30})
	e := NewEngine(s, h, nil)
	if err := e.UnifySize(p.ID, []string{a, b}, Width); err != nil {
		t.Fatalf("UnifySize: %v", err)
	}
	rb, _, _ := s.Geometry(p.ID, b)
	if rb != rect(200, 30, 120, 90) {
		t.Fatalf("unexpected geometry: %+v", rb)
	}
	ra, _, _ := s.Geometry(p.ID, a)
	if ra != rect(5, 5, 120, 60) {
		t.Fatalf("first member changed: %+v", ra)
	}
	if h.Len() != 1 {
		t.Fatalf("expected exactly one snapshot, got %d", h.Len())
	}
}

func TestEngineOneSnapshotPerCall(t *testing.T) {
	s, p, h := newPage(t)
	var ids []string
	for i := 0; i < 4; i++ {
		id, _ := s.AddSnippetPlacement(p.ID, layout.AssetRef{ID: "x", Width: 50, Height: 50}, layout.Point{X: float64(i * 70), Y: float64(i * 13)})
		ids = append(ids, id)
	}
	before := p.Snapshot()
	e := NewEngine(s, h, nil)
	if err := e.Align(p.ID, ids, EdgeTop); err != nil {
		t.Fatal(err)
	}
	if err := e.Distribute(p.ID, ids, Horizontal); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 snapshots, got %d", h.Len())
	}
	if err := e.Distribute(p.ID, ids[:2], Horizontal); !errors.Is(err, ErrTooFewItems) {
		t.Fatalf("expected ErrTooFewItems, got %v", err)
	}
	if h.Len() != 2 {
		t.Fatalf("failed call must not push a snapshot")
	}
	h.Undo(s)
	h.Undo(s)
	if !reflect.DeepEqual(p.Snapshot(), before) {
		t.Fatalf("undo did not restore pre-arrangement state")
	}
}

func TestAutoArrangeUsesNativeSize(t *testing.T) {
	s, p, h := newPage(t)
	lib := assets.NewMemory()
	lib.Put(assets.Asset{ID: "big", Width: 300, Height: 150})
	id, _ := s.AddSnippetPlacement(p.ID, layout.AssetRef{ID: "big", Width: 300, Height: 150}, layout.Point{})
	// 先缩小，自动排列应回到原始尺寸比例。
	_ = s.SetGeometry(p.ID, id, rect(0, 0, 30, 30))
	e := NewEngine(s, h, lib)
	if err := e.AutoArrange(p.ID, nil, GridOptions{Cols: 1, Rows: 1}, layout.Margin{X: 15, Y: 15}); err != nil {
		t.Fatalf("AutoArrange: %v", err)
	}
	r, _, _ := s.Geometry(p.ID, id)
	if r.Width != 300 || r.Height != 150 {
		t.Fatalf("expected native size 300x150, got %+v", r)
	}
	area := p.PrintableArea(layout.Margin{X: 15, Y: 15})
	if math.Abs(r.X-(area.Width-300)/2) > 1e-9 {
		t.Fatalf("expected horizontally centered, got x=%g", r.X)
	}
}
