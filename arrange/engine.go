package arrange

import (
	"fmt"

	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/history"
	"github.com/ByLCY/snipsheet/layout"
)

// Engine 把排列算法作为原子操作应用到页面：每次调用恰好记录一个撤销快照。
// Engine 不加锁，由 editor 串行调用。
type Engine struct {
	State   *layout.State
	History *history.Manager
	Library assets.Library
}

// NewEngine wires an engine; lib may be nil (native sizes then fall back to current sizes).
func NewEngine(state *layout.State, hist *history.Manager, lib assets.Library) *Engine {
	return &Engine{State: state, History: hist, Library: lib}
}

// Align aligns the given elements to edge.
func (e *Engine) Align(pageID string, ids []string, edge Edge) error {
	return e.apply(pageID, ids, func(ps []layout.Placement) ([]layout.Placement, error) {
		return Align(ps, edge), nil
	})
}

// Distribute spaces the given elements evenly along axis.
func (e *Engine) Distribute(pageID string, ids []string, axis Axis) error {
	return e.apply(pageID, ids, func(ps []layout.Placement) ([]layout.Placement, error) {
		return Distribute(ps, axis)
	})
}

// UnifySize copies the first element's size onto the rest.
func (e *Engine) UnifySize(pageID string, ids []string, dim Dimension) error {
	return e.apply(pageID, ids, func(ps []layout.Placement) ([]layout.Placement, error) {
		return UnifySize(ps, dim), nil
	})
}

// AutoArrange 在可打印区域内网格排列元素。ids 为空时排列页面上全部素材放置。
// 素材放置使用素材库中的原始尺寸，素材缺失或其他元素使用当前尺寸。
func (e *Engine) AutoArrange(pageID string, ids []string, opts GridOptions, margin layout.Margin) error {
	page, err := e.State.Page(pageID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		for _, sn := range page.Snippets {
			ids = append(ids, sn.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		size, err := e.nativeSize(page, id)
		if err != nil {
			return err
		}
		items = append(items, Item{ID: id, Native: size})
	}
	placements := Grid(items, page.PrintableArea(margin), opts)
	e.History.Push(page)
	return e.State.SetGeometries(pageID, placements)
}

func (e *Engine) nativeSize(page *layout.Page, id string) (layout.Size, error) {
	r, kind, err := e.State.Geometry(page.ID, id)
	if err != nil {
		return layout.Size{}, err
	}
	size := layout.Size{Width: r.Width, Height: r.Height}
	if kind != layout.KindSnippet || e.Library == nil {
		return size, nil
	}
	for _, sn := range page.Snippets {
		if sn.ID != id {
			continue
		}
		if a, ok := e.Library.Asset(sn.AssetID); ok && a.Width > 0 && a.Height > 0 {
			size = layout.Size{Width: a.Width, Height: a.Height}
		}
		break
	}
	return size, nil
}

func (e *Engine) apply(pageID string, ids []string, fn func([]layout.Placement) ([]layout.Placement, error)) error {
	page, err := e.State.Page(pageID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	current := make([]layout.Placement, 0, len(ids))
	for _, id := range ids {
		r, _, err := e.State.Geometry(pageID, id)
		if err != nil {
			return fmt.Errorf("排列失败: %w", err)
		}
		current = append(current, layout.Placement{ID: id, Rect: r})
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	e.History.Push(page)
	return e.State.SetGeometries(pageID, next)
}
