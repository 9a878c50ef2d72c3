package layout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrPageNotFound    = errors.New("页面不存在")
	ErrElementNotFound = errors.New("元素不存在")
	ErrDuplicateID     = errors.New("元素 id 在页面内重复")
)

// ElementKind 区分三类元素。
type ElementKind int

const (
	KindSnippet ElementKind = iota + 1
	KindText
	KindShape
)

func (k ElementKind) String() string {
	switch k {
	case KindSnippet:
		return "snippet"
	case KindText:
		return "text"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// MinSize returns the minimum width/height for elements of kind k.
func (k ElementKind) MinSize() float64 {
	switch k {
	case KindText:
		return MinTextSize
	case KindShape:
		return MinShapeSize
	default:
		return MinSnippetSize
	}
}

// ZOrder 为同一集合内的层级调整方式。
type ZOrder int

const (
	ZFront ZOrder = iota
	ZBack
	ZForward
	ZBackward
)

// AssetRef 是放置素材时需要的最少信息：素材 id 与原始裁剪尺寸。
type AssetRef struct {
	ID     string
	Width  float64
	Height float64
}

// Placement 是一次批量几何写入的条目。
type Placement struct {
	ID   string
	Rect Rect
}

// IDFunc 生成元素与页面 id。
type IDFunc func() string

// State 持有所有页面及其元素集合，是唯一的事实来源。
// State 本身不加锁，调用方（editor）负责单写者约束。
// 所有几何写入都被钳制，不会因越界而报错。
type State struct {
	pages []*Page
	newID IDFunc
}

// NewState creates an empty state. A nil newID falls back to random UUIDs.
func NewState(newID IDFunc) *State {
	if newID == nil {
		newID = uuid.NewString
	}
	return &State{newID: newID}
}

// Pages returns the live pages in order.
func (s *State) Pages() []*Page { return s.pages }

// Clone 深拷贝所有页面，供合成器或持久化使用。
func (s *State) Clone() []*Page {
	out := make([]*Page, len(s.pages))
	for i, p := range s.pages {
		out[i] = p.Clone()
	}
	return out
}

// Page looks a page up by id.
func (s *State) Page(id string) (*Page, error) {
	for _, p := range s.pages {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
}

// AddPage 追加一页空白页面。
func (s *State) AddPage(paper PaperSize, orientation Orientation) *Page {
	if paper == "" {
		paper = PaperA4
	}
	if orientation == "" {
		orientation = Portrait
	}
	p := &Page{ID: s.newID(), Paper: paper, Orientation: orientation}
	s.pages = append(s.pages, p)
	return p
}

// AppendPage 追加一个已有页面（例如从脚本或数据库载入）。缺失或在页面内重复的 id 会重新生成。
func (s *State) AppendPage(p *Page) *Page {
	if p.ID == "" {
		p.ID = s.newID()
	}
	seen := make(map[string]bool)
	for i := range p.Snippets {
		p.Snippets[i].ID = s.claim(p, seen, p.Snippets[i].ID)
		p.Snippets[i] = clampSnippet(p.Snippets[i])
	}
	for i := range p.Texts {
		p.Texts[i].ID = s.claim(p, seen, p.Texts[i].ID)
		p.Texts[i] = normalizeText(p.Texts[i])
	}
	for i := range p.Shapes {
		p.Shapes[i].ID = s.claim(p, seen, p.Shapes[i].ID)
		p.Shapes[i] = normalizeShape(p.Shapes[i])
	}
	s.pages = append(s.pages, p)
	return p
}

// RemovePage 删除页面并返回其中所有元素的 id，调用方据此清理选中状态。
func (s *State) RemovePage(id string) ([]string, error) {
	for i, p := range s.pages {
		if p.ID != id {
			continue
		}
		var ids []string
		for _, e := range p.Snippets {
			ids = append(ids, e.ID)
		}
		for _, e := range p.Texts {
			ids = append(ids, e.ID)
		}
		for _, e := range p.Shapes {
			ids = append(ids, e.ID)
		}
		s.pages = append(s.pages[:i], s.pages[i+1:]...)
		return ids, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
}

// MovePage 调整页面顺序，越界索引会被钳制。
func (s *State) MovePage(from, to int) {
	n := len(s.pages)
	if n == 0 || from < 0 || from >= n {
		return
	}
	to = max(0, min(to, n-1))
	p := s.pages[from]
	s.pages = append(s.pages[:from], s.pages[from+1:]...)
	s.pages = append(s.pages[:to], append([]*Page{p}, s.pages[to:]...)...)
}

// AddSnippetPlacement 在 pos 处放置素材，初始尺寸为素材的原始裁剪尺寸。
func (s *State) AddSnippetPlacement(pageID string, asset AssetRef, pos Point) (string, error) {
	p, err := s.Page(pageID)
	if err != nil {
		return "", err
	}
	sn := clampSnippet(PlacedSnippet{
		ID:      s.uniqueID(p, nil),
		AssetID: asset.ID,
		X:       pos.X,
		Y:       pos.Y,
		Width:   asset.Width,
		Height:  asset.Height,
	})
	p.Snippets = append(p.Snippets, sn)
	return sn.ID, nil
}

// AddText 添加文本元素，未设置的样式取默认值。id 与页面内已有元素重复时返回 ErrDuplicateID。
func (s *State) AddText(pageID string, t TextElement) (string, error) {
	p, err := s.Page(pageID)
	if err != nil {
		return "", err
	}
	if t.ID, err = s.newElementID(p, t.ID); err != nil {
		return "", err
	}
	t = normalizeText(t)
	p.Texts = append(p.Texts, t)
	return t.ID, nil
}

// UpdateText 修改文本元素，修改后重新钳制尺寸。
func (s *State) UpdateText(pageID, id string, fn func(*TextElement)) error {
	p, err := s.Page(pageID)
	if err != nil {
		return err
	}
	for i := range p.Texts {
		if p.Texts[i].ID == id {
			fn(&p.Texts[i])
			p.Texts[i].ID = id
			p.Texts[i] = normalizeText(p.Texts[i])
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrElementNotFound, id)
}

// AddShape 添加图形元素，id 规则同 AddText。
func (s *State) AddShape(pageID string, sh ShapeElement) (string, error) {
	p, err := s.Page(pageID)
	if err != nil {
		return "", err
	}
	if sh.ID, err = s.newElementID(p, sh.ID); err != nil {
		return "", err
	}
	sh = normalizeShape(sh)
	p.Shapes = append(p.Shapes, sh)
	return sh.ID, nil
}

// UpdateShape 修改图形元素。
func (s *State) UpdateShape(pageID, id string, fn func(*ShapeElement)) error {
	p, err := s.Page(pageID)
	if err != nil {
		return err
	}
	for i := range p.Shapes {
		if p.Shapes[i].ID == id {
			fn(&p.Shapes[i])
			p.Shapes[i].ID = id
			p.Shapes[i] = normalizeShape(p.Shapes[i])
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrElementNotFound, id)
}

// Geometry 返回任意元素的几何与种类。
func (s *State) Geometry(pageID, id string) (Rect, ElementKind, error) {
	p, err := s.Page(pageID)
	if err != nil {
		return Rect{}, 0, err
	}
	kind, idx := locate(p, id)
	switch kind {
	case KindSnippet:
		return p.Snippets[idx].Rect(), kind, nil
	case KindText:
		return p.Texts[idx].Rect(), kind, nil
	case KindShape:
		return p.Shapes[idx].Rect(), kind, nil
	}
	return Rect{}, 0, fmt.Errorf("%w: %s", ErrElementNotFound, id)
}

// SetGeometry 写入任意元素的位置与尺寸，尺寸按种类钳制。
func (s *State) SetGeometry(pageID, id string, r Rect) error {
	p, err := s.Page(pageID)
	if err != nil {
		return err
	}
	kind, idx := locate(p, id)
	if kind == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if kind == KindShape && p.Shapes[idx].Kind == ShapeLine {
		r = clampLine(r)
	} else {
		r = ClampSize(r, kind.MinSize())
	}
	switch kind {
	case KindSnippet:
		e := &p.Snippets[idx]
		e.X, e.Y, e.Width, e.Height = r.X, r.Y, r.Width, r.Height
	case KindText:
		e := &p.Texts[idx]
		e.X, e.Y, e.Width, e.Height = r.X, r.Y, r.Width, r.Height
	case KindShape:
		e := &p.Shapes[idx]
		e.X, e.Y, e.Width, e.Height = r.X, r.Y, r.Width, r.Height
	}
	return nil
}

// SetGeometries 批量写入几何，供排列算法使用；未知 id 被忽略。
func (s *State) SetGeometries(pageID string, placements []Placement) error {
	if _, err := s.Page(pageID); err != nil {
		return err
	}
	for _, pl := range placements {
		_ = s.SetGeometry(pageID, pl.ID, pl.Rect)
	}
	return nil
}

// Move 移动元素左上角到 pos，尺寸不变。
func (s *State) Move(pageID, id string, pos Point) error {
	r, _, err := s.Geometry(pageID, id)
	if err != nil {
		return err
	}
	r.X, r.Y = pos.X, pos.Y
	return s.SetGeometry(pageID, id, r)
}

// Resize 以拖动控制点的对边为锚点，按 delta 调整当前几何。
func (s *State) Resize(pageID, id string, h Handle, delta Point) error {
	r, _, err := s.Geometry(pageID, id)
	if err != nil {
		return err
	}
	return s.SetGeometry(pageID, id, ResizeRect(r, h, delta, s.AxisMin(pageID, id), Grid{}))
}

// AxisMin 返回缩放时每个轴的最小尺寸。线段只限制长度，单轴可以为 0。
func (s *State) AxisMin(pageID, id string) float64 {
	p, err := s.Page(pageID)
	if err != nil {
		return 0
	}
	kind, idx := locate(p, id)
	if kind == KindShape && p.Shapes[idx].Kind == ShapeLine {
		return 0
	}
	return kind.MinSize()
}

// Remove 删除任意元素。
func (s *State) Remove(pageID, id string) error {
	p, err := s.Page(pageID)
	if err != nil {
		return err
	}
	switch kind, idx := locate(p, id); kind {
	case KindSnippet:
		p.Snippets = append(p.Snippets[:idx], p.Snippets[idx+1:]...)
	case KindText:
		p.Texts = append(p.Texts[:idx], p.Texts[idx+1:]...)
	case KindShape:
		p.Shapes = append(p.Shapes[:idx], p.Shapes[idx+1:]...)
	default:
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	return nil
}

// ReplaceAll 整体替换页面的素材放置集合。
func (s *State) ReplaceAll(pageID string, snippets []PlacedSnippet) error {
	p, err := s.Page(pageID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, t := range p.Texts {
		seen[t.ID] = true
	}
	for _, sh := range p.Shapes {
		seen[sh.ID] = true
	}
	out := make([]PlacedSnippet, 0, len(snippets))
	for _, sn := range snippets {
		sn.ID = s.claim(p, seen, sn.ID)
		out = append(out, clampSnippet(sn))
	}
	p.Snippets = out
	return nil
}

// Reorder 在元素所属集合内调整层级。
func (s *State) Reorder(pageID, id string, z ZOrder) error {
	p, err := s.Page(pageID)
	if err != nil {
		return err
	}
	switch kind, idx := locate(p, id); kind {
	case KindSnippet:
		reorder(p.Snippets, idx, z)
	case KindText:
		reorder(p.Texts, idx, z)
	case KindShape:
		reorder(p.Shapes, idx, z)
	default:
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	return nil
}

// Duplicate 复制元素并偏移 offset，返回新 id。
func (s *State) Duplicate(pageID, id string, offset Point) (string, error) {
	p, err := s.Page(pageID)
	if err != nil {
		return "", err
	}
	nid := s.uniqueID(p, nil)
	switch kind, idx := locate(p, id); kind {
	case KindSnippet:
		c := p.Snippets[idx]
		c.ID, c.X, c.Y = nid, c.X+offset.X, c.Y+offset.Y
		p.Snippets = append(p.Snippets, c)
	case KindText:
		c := p.Texts[idx]
		c.ID, c.X, c.Y = nid, c.X+offset.X, c.Y+offset.Y
		p.Texts = append(p.Texts, c)
	case KindShape:
		c := p.Shapes[idx].clone()
		c.ID, c.X, c.Y = nid, c.X+offset.X, c.Y+offset.Y
		p.Shapes = append(p.Shapes, c)
	default:
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	return nid, nil
}

// RemoveAsset 删除所有引用该素材的放置，返回被删除的放置 id。
func (s *State) RemoveAsset(assetID string) []string {
	var removed []string
	for _, p := range s.pages {
		kept := p.Snippets[:0]
		for _, sn := range p.Snippets {
			if sn.AssetID == assetID {
				removed = append(removed, sn.ID)
				continue
			}
			kept = append(kept, sn)
		}
		p.Snippets = kept
	}
	return removed
}

// Find 在所有页面中查找元素所在的页面。
func (s *State) Find(id string) (*Page, ElementKind, bool) {
	for _, p := range s.pages {
		if kind, _ := locate(p, id); kind != 0 {
			return p, kind, true
		}
	}
	return nil, 0, false
}

// newElementID 为新元素分配 id：空 id 自动生成，已被占用的 id 报错。
func (s *State) newElementID(p *Page, id string) (string, error) {
	if id == "" {
		return s.uniqueID(p, nil), nil
	}
	if kind, _ := locate(p, id); kind != 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	return id, nil
}

// claim 在批量载入时登记 id；空 id 或已登记的 id 换成新的。
func (s *State) claim(p *Page, seen map[string]bool, id string) string {
	if id == "" || seen[id] {
		id = s.uniqueID(p, seen)
	}
	seen[id] = true
	return id
}

// uniqueID 生成一个页面内与 seen 中都未使用的 id。自定义生成器连续冲突时退回 UUID。
func (s *State) uniqueID(p *Page, seen map[string]bool) string {
	for i := 0; ; i++ {
		id := s.newID()
		if i >= 16 {
			id = uuid.NewString()
		}
		if kind, _ := locate(p, id); kind == 0 && !seen[id] {
			return id
		}
	}
}

func locate(p *Page, id string) (ElementKind, int) {
	for i := range p.Snippets {
		if p.Snippets[i].ID == id {
			return KindSnippet, i
		}
	}
	for i := range p.Texts {
		if p.Texts[i].ID == id {
			return KindText, i
		}
	}
	for i := range p.Shapes {
		if p.Shapes[i].ID == id {
			return KindShape, i
		}
	}
	return 0, -1
}

func reorder[T any](items []T, idx int, z ZOrder) {
	target := idx
	switch z {
	case ZFront:
		target = len(items) - 1
	case ZBack:
		target = 0
	case ZForward:
		target = min(idx+1, len(items)-1)
	case ZBackward:
		target = max(idx-1, 0)
	}
	if target == idx {
		return
	}
	item := items[idx]
	if target > idx {
		copy(items[idx:target], items[idx+1:target+1])
	} else {
		copy(items[target+1:idx+1], items[target:idx])
	}
	items[target] = item
}

func clampSnippet(sn PlacedSnippet) PlacedSnippet {
	r := ClampSize(sn.Rect(), MinSnippetSize)
	sn.Width, sn.Height = r.Width, r.Height
	sn.Rotation = 0
	return sn
}

func normalizeText(t TextElement) TextElement {
	r := ClampSize(t.Rect(), MinTextSize)
	t.Width, t.Height = r.Width, r.Height
	if t.FontSize <= 0 {
		t.FontSize = 16
	}
	if t.FontFamily == "" {
		t.FontFamily = "sans"
	}
	if t.WritingMode != Vertical {
		t.WritingMode = Horizontal
	}
	switch t.Align {
	case AlignCenter, AlignRight:
	default:
		t.Align = AlignLeft
	}
	return t
}

func normalizeShape(sh ShapeElement) ShapeElement {
	switch sh.Kind {
	case ShapeCircle, ShapeLine:
	default:
		sh.Kind = ShapeRectangle
	}
	r := sh.Rect()
	if sh.Kind == ShapeLine {
		r = clampLine(r)
	} else {
		r = ClampSize(r, MinShapeSize)
	}
	sh.Width, sh.Height = r.Width, r.Height
	if sh.StrokeWidth < 0 {
		sh.StrokeWidth = 0
	}
	return sh
}
