// Package interaction 把指针与键盘事件翻译为对 layout.State 的变更。
// 控制器只保存一次手势期间的临时状态，页面集合始终是唯一事实来源。
package interaction

import (
	"reflect"
	"slices"
	"time"

	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/history"
	"github.com/ByLCY/snipsheet/layout"
)

// Mode 为控制器状态机的状态。
type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
	MultiSelecting
	EditingText
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case MultiSelecting:
		return "multi-selecting"
	case EditingText:
		return "editing-text"
	default:
		return "idle"
	}
}

// DefaultDropDebounce 为外部放置后忽略合成 PointerDown 的时间窗口。
const DefaultDropDebounce = 300 * time.Millisecond

// Config 为控制器的视图级参数，均由调用方显式传入。
type Config struct {
	Viewport     layout.Viewport
	Margin       layout.Margin // 文档默认边距（mm）
	Grid         layout.Grid
	NudgeStep    float64 // 方向键移动步长，默认 1
	DropDebounce time.Duration
	Now          func() time.Time
}

// Controller 是交互状态机。它不加锁，由 editor 在单写者锁内驱动。
type Controller struct {
	state   *layout.State
	history *history.Manager
	lib     assets.Library
	cfg     Config

	pageID   string
	mode     Mode
	selected string
	multi    []string // 按选中顺序

	target      string
	offset      layout.Point
	handle      layout.Handle
	start       layout.Rect
	startCursor layout.Point
	group       map[string]layout.Rect
	before      *layout.Snapshot

	lastDrop time.Time
}

// New creates a controller. lib may be nil, in which case drops are ignored.
func New(state *layout.State, hist *history.Manager, lib assets.Library, cfg Config) *Controller {
	if cfg.NudgeStep <= 0 {
		cfg.NudgeStep = 1
	}
	if cfg.DropDebounce <= 0 {
		cfg.DropDebounce = DefaultDropDebounce
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{state: state, history: hist, lib: lib, cfg: cfg}
}

func (c *Controller) Mode() Mode       { return c.mode }
func (c *Controller) PageID() string   { return c.pageID }
func (c *Controller) Selected() string { return c.selected }

// Selection 返回当前选中的元素：多选优先，按选中顺序。
func (c *Controller) Selection() []string {
	if len(c.multi) > 0 {
		return slices.Clone(c.multi)
	}
	if c.selected != "" {
		return []string{c.selected}
	}
	return nil
}

// GestureActive 报告是否处于拖动、缩放或文本编辑中。
func (c *Controller) GestureActive() bool {
	return c.mode == Dragging || c.mode == Resizing || c.mode == EditingText
}

// SetConfig 更新视图参数（缩放、网格、默认边距）。
func (c *Controller) SetConfig(cfg Config) {
	if cfg.NudgeStep <= 0 {
		cfg.NudgeStep = c.cfg.NudgeStep
	}
	if cfg.DropDebounce <= 0 {
		cfg.DropDebounce = c.cfg.DropDebounce
	}
	if cfg.Now == nil {
		cfg.Now = c.cfg.Now
	}
	c.cfg = cfg
}

// SetPage 切换当前页面。未结束的手势先按 PointerUp 提交。
func (c *Controller) SetPage(pageID string) {
	if pageID == c.pageID {
		return
	}
	c.finish()
	c.pageID = pageID
	c.clearSelection()
}

// Forget 从选中状态中去掉已被删除的元素。
func (c *Controller) Forget(ids []string) {
	for _, id := range ids {
		if c.selected == id {
			c.selected = ""
		}
		if c.target == id {
			c.resetGesture()
			c.mode = Idle
		}
		c.multi = slices.DeleteFunc(c.multi, func(m string) bool { return m == id })
	}
	if c.mode == MultiSelecting && len(c.multi) == 0 {
		c.mode = Idle
	}
}

// Handle 处理一个事件。查找失败等问题在这里自愈，不会返回给宿主。
func (c *Controller) Handle(ev Event) {
	switch e := ev.(type) {
	case PointerDown:
		c.pointerDown(e)
	case PointerMove:
		c.pointerMove(e)
	case PointerUp, LostCapture:
		if c.mode != EditingText {
			c.finish()
		}
	case DoubleClick:
		c.doubleClick(e)
	case Drop:
		c.drop(e)
	case KeyDown:
		c.keyDown(e)
	case TextInput:
		if c.mode == EditingText {
			_ = c.state.UpdateText(c.pageID, c.target, func(t *layout.TextElement) { t.Text = e.Text })
		}
	case Blur:
		if c.mode == EditingText {
			c.commitText()
		}
	}
}

func (c *Controller) page() *layout.Page {
	p, err := c.state.Page(c.pageID)
	if err != nil {
		return nil
	}
	return p
}

// toCanvas 把视图像素换算为以可打印区域左上角为原点的画布单位。
func (c *Controller) toCanvas(page *layout.Page, p layout.Point) layout.Point {
	m := page.EffectiveMargin(c.cfg.Margin)
	q := c.cfg.Viewport.ToCanvas(p)
	return layout.Point{
		X: q.X - layout.MMToUnits(m.X, layout.ScreenDPI),
		Y: q.Y - layout.MMToUnits(m.Y, layout.ScreenDPI),
	}
}

func (c *Controller) pointerDown(e PointerDown) {
	if c.mode == EditingText {
		c.commitText()
	}
	if e.Button != ButtonPrimary || c.mode == Dragging || c.mode == Resizing {
		return
	}
	if c.inDropWindow() {
		return
	}
	page := c.page()
	if page == nil {
		return
	}
	p := c.toCanvas(page, e.Pos)

	if c.selected != "" && !e.Mods.toggles() {
		if r, _, err := c.state.Geometry(page.ID, c.selected); err == nil {
			if h, ok := HitHandle(r, p); ok {
				c.beginGesture(page, Resizing, c.selected)
				c.handle = h
				c.start = r
				c.startCursor = p
				return
			}
		}
	}

	hit, ok := HitTest(page, p)
	if !ok {
		c.clearSelection()
		return
	}
	if e.Mods.toggles() {
		c.toggle(hit.ID)
		return
	}

	if len(c.multi) > 1 && slices.Contains(c.multi, hit.ID) {
		c.beginGesture(page, Dragging, hit.ID)
		c.group = map[string]layout.Rect{}
		for _, id := range c.multi {
			if r, _, err := c.state.Geometry(page.ID, id); err == nil {
				c.group[id] = r
			}
		}
	} else {
		c.multi = nil
		c.beginGesture(page, Dragging, hit.ID)
	}
	c.selected = hit.ID
	c.start = hit.Rect
	c.offset = p.Sub(layout.Point{X: hit.Rect.X, Y: hit.Rect.Y})
}

func (c *Controller) beginGesture(page *layout.Page, mode Mode, target string) {
	snap := page.Snapshot()
	c.before = &snap
	c.mode = mode
	c.target = target
}

func (c *Controller) pointerMove(e PointerMove) {
	page := c.page()
	if page == nil {
		return
	}
	p := c.toCanvas(page, e.Pos)
	switch c.mode {
	case Dragging:
		pos := p.Sub(c.offset)
		pos = layout.Point{X: c.cfg.Grid.SnapValue(pos.X), Y: c.cfg.Grid.SnapValue(pos.Y)}
		if c.group == nil {
			_ = c.state.Move(page.ID, c.target, pos)
			return
		}
		delta := pos.Sub(layout.Point{X: c.start.X, Y: c.start.Y})
		for id, r := range c.group {
			r.X += delta.X
			r.Y += delta.Y
			_ = c.state.SetGeometry(page.ID, id, r)
		}
	case Resizing:
		if _, _, err := c.state.Geometry(page.ID, c.target); err != nil {
			return
		}
		r := layout.ResizeRect(c.start, c.handle, p.Sub(c.startCursor), c.state.AxisMin(page.ID, c.target), c.cfg.Grid)
		_ = c.state.SetGeometry(page.ID, c.target, r)
	}
}

// finish 结束拖动或缩放；几何有变化时为整个手势记录一个快照。
func (c *Controller) finish() {
	if c.mode == EditingText {
		c.commitText()
		return
	}
	if c.mode != Dragging && c.mode != Resizing {
		return
	}
	if page := c.page(); page != nil && c.before != nil && !reflect.DeepEqual(page.Snapshot(), *c.before) {
		c.history.PushSnapshot(page.ID, *c.before)
	}
	c.resetGesture()
	c.settle()
}

func (c *Controller) doubleClick(e DoubleClick) {
	if c.mode == Dragging || c.mode == Resizing {
		c.finish()
	}
	page := c.page()
	if page == nil {
		return
	}
	hit, ok := HitTest(page, c.toCanvas(page, e.Pos))
	if !ok || hit.Kind != layout.KindText {
		return
	}
	if c.mode == EditingText {
		if c.target == hit.ID {
			return
		}
		c.commitText()
	}
	c.multi = nil
	c.selected = hit.ID
	c.beginGesture(page, EditingText, hit.ID)
}

// commitText 结束文本编辑并记录一个快照。
func (c *Controller) commitText() {
	if c.before != nil {
		c.history.PushSnapshot(c.pageID, *c.before)
	}
	c.resetGesture()
	c.settle()
}

// inDropWindow 报告距上一次被接受的放置是否仍在防抖窗口内。
func (c *Controller) inDropWindow() bool {
	return !c.lastDrop.IsZero() && c.cfg.Now().Sub(c.lastDrop) < c.cfg.DropDebounce
}

func (c *Controller) drop(e Drop) {
	if c.mode == Dragging || c.mode == Resizing || c.inDropWindow() {
		return
	}
	if c.mode == EditingText {
		c.commitText()
	}
	page := c.page()
	if page == nil || c.lib == nil {
		return
	}
	a, ok := c.lib.Asset(e.AssetID)
	if !ok {
		return
	}
	p := c.toCanvas(page, e.Pos)
	p = layout.Point{X: c.cfg.Grid.SnapValue(p.X), Y: c.cfg.Grid.SnapValue(p.Y)}
	c.history.Push(page)
	id, err := c.state.AddSnippetPlacement(page.ID, a.Ref(), p)
	if err != nil {
		return
	}
	c.multi = nil
	c.selected = id
	c.mode = Idle
	c.lastDrop = c.cfg.Now()
}

func (c *Controller) keyDown(e KeyDown) {
	if c.mode == EditingText {
		if e.Key == KeyEscape {
			c.commitText()
		}
		return
	}
	if c.mode == Dragging || c.mode == Resizing {
		return
	}
	page := c.page()
	if page == nil {
		return
	}
	switch e.Key {
	case KeyEscape:
		c.clearSelection()
	case KeyDelete, KeyBackspace:
		sel := c.Selection()
		if len(sel) == 0 {
			return
		}
		c.history.Push(page)
		for _, id := range sel {
			_ = c.state.Remove(page.ID, id)
		}
		c.clearSelection()
	case KeyArrowLeft, KeyArrowRight, KeyArrowUp, KeyArrowDown:
		c.nudge(page, e)
	case KeyZ:
		if e.Mods.Has(ModCtrl) || e.Mods.Has(ModMeta) {
			c.history.Undo(c.state)
			c.prune()
		}
	}
}

func (c *Controller) nudge(page *layout.Page, e KeyDown) {
	sel := c.Selection()
	if len(sel) == 0 {
		return
	}
	step := c.cfg.NudgeStep
	if c.cfg.Grid.Snap && c.cfg.Grid.Size > 0 {
		step = c.cfg.Grid.Size
	}
	if e.Mods.Has(ModShift) {
		step *= 10
	}
	var d layout.Point
	switch e.Key {
	case KeyArrowLeft:
		d.X = -step
	case KeyArrowRight:
		d.X = step
	case KeyArrowUp:
		d.Y = -step
	case KeyArrowDown:
		d.Y = step
	}
	c.history.Push(page)
	for _, id := range sel {
		if r, _, err := c.state.Geometry(page.ID, id); err == nil {
			_ = c.state.Move(page.ID, id, layout.Point{X: r.X + d.X, Y: r.Y + d.Y})
		}
	}
}

func (c *Controller) toggle(id string) {
	if c.selected != "" && len(c.multi) == 0 {
		c.multi = []string{c.selected}
	}
	if i := slices.Index(c.multi, id); i >= 0 {
		c.multi = slices.Delete(c.multi, i, i+1)
	} else {
		c.multi = append(c.multi, id)
	}
	c.selected = ""
	if len(c.multi) > 0 {
		c.selected = c.multi[len(c.multi)-1]
	}
	c.settle()
}

// prune 撤销后去掉已不存在的选中元素。
func (c *Controller) prune() {
	page := c.page()
	var gone []string
	for _, id := range c.Selection() {
		if page == nil {
			gone = append(gone, id)
			continue
		}
		if _, _, err := c.state.Geometry(page.ID, id); err != nil {
			gone = append(gone, id)
		}
	}
	c.Forget(gone)
}

func (c *Controller) clearSelection() {
	c.selected = ""
	c.multi = nil
	c.resetGesture()
	c.mode = Idle
}

func (c *Controller) resetGesture() {
	c.target = ""
	c.offset = layout.Point{}
	c.handle = layout.HandleNone
	c.start = layout.Rect{}
	c.startCursor = layout.Point{}
	c.group = nil
	c.before = nil
}

func (c *Controller) settle() {
	if len(c.multi) > 0 {
		c.mode = MultiSelecting
		return
	}
	c.mode = Idle
}
