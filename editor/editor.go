// Package editor 是编辑核心的单写者外观：每个输入事件与每条命令都在同一把锁内完成，
// 保证一次用户操作只产生一次原子变更与至多一个撤销快照。
package editor

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ByLCY/snipsheet/arrange"
	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/history"
	"github.com/ByLCY/snipsheet/interaction"
	"github.com/ByLCY/snipsheet/layout"
)

// ErrGestureActive 表示拖动、缩放或文本编辑尚未结束。
var ErrGestureActive = errors.New("手势进行中，暂不能执行该命令")

// ErrNoActivePage 表示尚未选择当前页面。
var ErrNoActivePage = errors.New("没有当前页面")

// Options 为编辑器的显式配置。
type Options struct {
	Margin       layout.Margin
	Grid         layout.Grid
	Viewport     layout.Viewport
	HistoryDepth int
	NudgeStep    float64
	DropDebounce time.Duration
	Now          func() time.Time
	NewID        layout.IDFunc
}

// Editor 持有页面状态、撤销栈、交互控制器与排列引擎。
type Editor struct {
	mu      sync.Mutex
	state   *layout.State
	history *history.Manager
	ctrl    *interaction.Controller
	engine  *arrange.Engine
	lib     assets.Library
	opts    Options
}

// New creates an editor over an empty document.
func New(lib assets.Library, opts Options) *Editor {
	return NewWithState(layout.NewState(opts.NewID), lib, opts)
}

// NewWithState wraps an existing state (e.g. loaded from a script or database).
// The first page, if any, becomes the active page.
func NewWithState(state *layout.State, lib assets.Library, opts Options) *Editor {
	hist := history.New(opts.HistoryDepth)
	e := &Editor{
		state:   state,
		history: hist,
		lib:     lib,
		opts:    opts,
		engine:  arrange.NewEngine(state, hist, lib),
		ctrl: interaction.New(state, hist, lib, interaction.Config{
			Viewport:     opts.Viewport,
			Margin:       opts.Margin,
			Grid:         opts.Grid,
			NudgeStep:    opts.NudgeStep,
			DropDebounce: opts.DropDebounce,
			Now:          opts.Now,
		}),
	}
	if pages := state.Pages(); len(pages) > 0 {
		e.ctrl.SetPage(pages[0].ID)
	}
	return e
}

// Handle 在锁内处理一个输入事件。
func (e *Editor) Handle(ev interaction.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl.Handle(ev)
}

// SetView 更新缩放与网格设置。
func (e *Editor) SetView(viewport layout.Viewport, grid layout.Grid) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Viewport, e.opts.Grid = viewport, grid
	e.ctrl.SetConfig(e.controllerConfig())
}

// SetDefaultMargin 更新文档默认边距（mm）。
func (e *Editor) SetDefaultMargin(m layout.Margin) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Margin = m
	e.ctrl.SetConfig(e.controllerConfig())
}

// DefaultMargin returns the document-wide margin.
func (e *Editor) DefaultMargin() layout.Margin {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.Margin
}

func (e *Editor) controllerConfig() interaction.Config {
	return interaction.Config{
		Viewport:     e.opts.Viewport,
		Margin:       e.opts.Margin,
		Grid:         e.opts.Grid,
		NudgeStep:    e.opts.NudgeStep,
		DropDebounce: e.opts.DropDebounce,
		Now:          e.opts.Now,
	}
}

// SetActivePage 切换当前页面。
func (e *Editor) SetActivePage(pageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.state.Page(pageID); err != nil {
		return err
	}
	e.ctrl.SetPage(pageID)
	return nil
}

// ActivePage returns the id of the page receiving input.
func (e *Editor) ActivePage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.PageID()
}

// Mode returns the controller state.
func (e *Editor) Mode() interaction.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.Mode()
}

// Selection returns the selected element ids in selection order.
func (e *Editor) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.Selection()
}

// Pages 返回所有页面的深拷贝，供合成器与持久化使用。
func (e *Editor) Pages() []*layout.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// HistoryLen returns the number of undoable operations.
func (e *Editor) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Len()
}

// AddPage 追加页面并设为当前页面。
func (e *Editor) AddPage(paper layout.PaperSize, orientation layout.Orientation) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.state.AddPage(paper, orientation)
	e.ctrl.SetPage(p.ID)
	return p.ID
}

// DeletePage 删除页面，清理悬空的选中状态与该页的撤销记录。
func (e *Editor) DeletePage(pageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl.GestureActive() {
		return ErrGestureActive
	}
	removed, err := e.state.RemovePage(pageID)
	if err != nil {
		return err
	}
	e.ctrl.Forget(removed)
	e.history.DropPage(pageID)
	if e.ctrl.PageID() == pageID {
		next := ""
		if pages := e.state.Pages(); len(pages) > 0 {
			next = pages[0].ID
		}
		e.ctrl.SetPage(next)
	}
	return nil
}

// MovePage reorders pages.
func (e *Editor) MovePage(from, to int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.MovePage(from, to)
}

// SetPageMargin 设置页面级边距覆盖值，nil 恢复为文档默认值。
func (e *Editor) SetPageMargin(pageID string, m *layout.Margin) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl.GestureActive() {
		return ErrGestureActive
	}
	p, err := e.state.Page(pageID)
	if err != nil {
		return err
	}
	if m == nil {
		p.MarginX, p.MarginY = nil, nil
		return nil
	}
	x, y := m.X, m.Y
	p.MarginX, p.MarginY = &x, &y
	return nil
}

// AddSnippet 在当前页面放置素材。
func (e *Editor) AddSnippet(assetID string, pos layout.Point) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return "", err
	}
	a, ok := e.lookupAsset(assetID)
	if !ok {
		return "", fmt.Errorf("素材 %s 不存在", assetID)
	}
	e.history.Push(page)
	return e.state.AddSnippetPlacement(page.ID, a.Ref(), pos)
}

// AddText 在当前页面添加文本元素。
func (e *Editor) AddText(t layout.TextElement) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return "", err
	}
	before := page.Snapshot()
	id, err := e.state.AddText(page.ID, t)
	if err != nil {
		return "", err
	}
	e.history.PushSnapshot(page.ID, before)
	return id, nil
}

// UpdateText 修改文本样式或内容，作为一次可撤销的操作。
func (e *Editor) UpdateText(id string, fn func(*layout.TextElement)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return err
	}
	if _, kind, err := e.state.Geometry(page.ID, id); err != nil || kind != layout.KindText {
		return fmt.Errorf("%w: %s", layout.ErrElementNotFound, id)
	}
	e.history.Push(page)
	return e.state.UpdateText(page.ID, id, fn)
}

// AddShape 在当前页面添加图形。
func (e *Editor) AddShape(sh layout.ShapeElement) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return "", err
	}
	before := page.Snapshot()
	id, err := e.state.AddShape(page.ID, sh)
	if err != nil {
		return "", err
	}
	e.history.PushSnapshot(page.ID, before)
	return id, nil
}

// Align 对齐当前选中的元素。
func (e *Editor) Align(edge arrange.Edge) error {
	return e.arrange(func(pageID string, ids []string) error {
		return e.engine.Align(pageID, ids, edge)
	})
}

// Distribute 等距分布当前选中的元素。
func (e *Editor) Distribute(axis arrange.Axis) error {
	return e.arrange(func(pageID string, ids []string) error {
		return e.engine.Distribute(pageID, ids, axis)
	})
}

// UnifySize 以第一个选中的元素为准统一尺寸。
func (e *Editor) UnifySize(dim arrange.Dimension) error {
	return e.arrange(func(pageID string, ids []string) error {
		return e.engine.UnifySize(pageID, ids, dim)
	})
}

// AutoArrange 网格排列选中的元素，没有选中时排列当前页面的全部素材。
func (e *Editor) AutoArrange(opts arrange.GridOptions) error {
	return e.arrange(func(pageID string, ids []string) error {
		return e.engine.AutoArrange(pageID, ids, opts, e.opts.Margin)
	})
}

func (e *Editor) arrange(fn func(pageID string, ids []string) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return err
	}
	return fn(page.ID, e.ctrl.Selection())
}

// Reorder 调整元素在其集合内的层级。
func (e *Editor) Reorder(id string, z layout.ZOrder) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return err
	}
	if _, _, err := e.state.Geometry(page.ID, id); err != nil {
		return err
	}
	e.history.Push(page)
	return e.state.Reorder(page.ID, id, z)
}

// Duplicate 复制选中的元素并偏移 offset，新元素成为选中项。
func (e *Editor) Duplicate(offset layout.Point) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return nil, err
	}
	sel := e.ctrl.Selection()
	if len(sel) == 0 {
		return nil, nil
	}
	e.history.Push(page)
	out := make([]string, 0, len(sel))
	for _, id := range sel {
		nid, err := e.state.Duplicate(page.ID, id, offset)
		if err != nil {
			continue
		}
		out = append(out, nid)
	}
	return out, nil
}

// Undo 撤销最近一次操作。手势进行中时不执行。
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl.GestureActive() {
		return false
	}
	_, ok := e.history.Undo(e.state)
	if ok {
		e.forgetMissing()
	}
	return ok
}

// RemoveAsset 删除素材库中的素材并移除所有引用它的放置。
func (e *Editor) RemoveAsset(assetID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.lib.(interface{ Remove(string) bool }); ok {
		r.Remove(assetID)
	}
	removed := e.state.RemoveAsset(assetID)
	e.ctrl.Forget(removed)
	return removed
}

// ImportRecognition 把识别结果的文本块转换为当前页面上的文本元素。
// 源页面像素按等比缩放到可打印区域内。
func (e *Editor) ImportRecognition(rec assets.Recognition) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, err := e.idlePage()
	if err != nil {
		return nil, err
	}
	if rec.Width <= 0 || rec.Height <= 0 || len(rec.Blocks) == 0 {
		return nil, nil
	}
	area := page.PrintableArea(e.opts.Margin)
	scale := math.Min(area.Width/float64(rec.Width), area.Height/float64(rec.Height))
	e.history.Push(page)
	ids := make([]string, 0, len(rec.Blocks))
	for _, b := range rec.Blocks {
		h := float64(b.Bounds.Dy()) * scale
		id, err := e.state.AddText(page.ID, layout.TextElement{
			Text:     b.Text,
			X:        float64(b.Bounds.Min.X) * scale,
			Y:        float64(b.Bounds.Min.Y) * scale,
			Width:    float64(b.Bounds.Dx()) * scale,
			Height:   h,
			FontSize: math.Max(8, h*0.8),
			Color:    layout.DefaultTextColor,
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Editor) activePage() (*layout.Page, error) {
	id := e.ctrl.PageID()
	if id == "" {
		return nil, ErrNoActivePage
	}
	return e.state.Page(id)
}

// idlePage 返回当前页面；手势未结束时拒绝，避免命令快照夹在手势的前后快照之间。
func (e *Editor) idlePage() (*layout.Page, error) {
	if e.ctrl.GestureActive() {
		return nil, ErrGestureActive
	}
	return e.activePage()
}

func (e *Editor) lookupAsset(id string) (assets.Asset, bool) {
	if e.lib == nil {
		return assets.Asset{}, false
	}
	return e.lib.Asset(id)
}

func (e *Editor) forgetMissing() {
	var gone []string
	for _, id := range e.ctrl.Selection() {
		if _, _, ok := e.state.Find(id); !ok {
			gone = append(gone, id)
		}
	}
	e.ctrl.Forget(gone)
}
