// Package project 把布局脚本的语法树转换为页面状态与素材库，供命令行合成与导出。
package project

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByLCY/snipsheet/arrange"
	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/dsl"
	"github.com/ByLCY/snipsheet/layout"
)

var ErrUnknownAsset = errors.New("未声明的素材")

// Project 是脚本载入后的完整文档。
type Project struct {
	Name    string
	Meta    compose.Meta
	Margin  layout.Margin
	State   *layout.State
	Library *assets.Memory
}

// Options 控制载入行为。
type Options struct {
	// BaseDir 用于解析素材的相对路径。
	BaseDir string
	// Margin 为脚本未声明 margin 时的文档默认边距（mm）。
	Margin layout.Margin
	// SourceDPI 为素材图片的原始分辨率，脚本中的 dpi 赋值优先。
	SourceDPI float64
	NewID     layout.IDFunc
}

// LoadFile 解析并载入脚本文件，BaseDir 为空时使用脚本所在目录。
func LoadFile(path string, opts Options) (*Project, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开脚本 %s: %w", path, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析脚本失败: %w", err)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	return Load(doc, opts)
}

// Load 把语法树转换为 Project。素材段在页面之前处理，页面中引用的素材必须已声明。
func Load(doc *dsl.Document, opts Options) (*Project, error) {
	if doc == nil {
		return nil, fmt.Errorf("脚本为空")
	}
	l := &loader{
		opts: opts,
		proj: &Project{
			Name:    doc.Name,
			Margin:  opts.Margin,
			State:   layout.NewState(opts.NewID),
			Library: assets.NewMemory(),
		},
	}
	for _, s := range doc.Sections {
		switch {
		case s.Meta != nil:
			if err := l.meta(s.Meta.Block); err != nil {
				return nil, err
			}
		case s.Assets != nil:
			if err := l.assets(s.Assets.Block); err != nil {
				return nil, err
			}
		}
	}
	for _, ps := range doc.Pages() {
		if err := l.page(ps); err != nil {
			return nil, err
		}
	}
	return l.proj, nil
}

type loader struct {
	opts Options
	proj *Project
}

func (l *loader) meta(b *dsl.Block) error {
	m := &l.proj.Meta
	for key, v := range b.Assignments() {
		s, _ := v.Scalar()
		switch key {
		case "title":
			m.Title = s
		case "subject":
			m.Subject = s
		case "author":
			m.Author = s
		case "creator":
			m.Creator = s
		case "keywords":
			m.Keywords = v.List()
		case "margin":
			margin, err := parseMargin(v.List())
			if err != nil {
				return err
			}
			l.proj.Margin = margin
		}
	}
	return nil
}

func (l *loader) sourceDPI(b *dsl.Block) (float64, error) {
	dpi := l.opts.SourceDPI
	if v, ok := b.Assignments()["dpi"]; ok {
		s, _ := v.Scalar()
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("无效的素材分辨率：%s", s)
		}
		dpi = f
	}
	return dpi, nil
}

func (l *loader) path(p string) string {
	if filepath.IsAbs(p) || l.opts.BaseDir == "" {
		return p
	}
	return filepath.Join(l.opts.BaseDir, p)
}

func (l *loader) assets(b *dsl.Block) error {
	dpi, err := l.sourceDPI(b)
	if err != nil {
		return err
	}
	lib := l.proj.Library
	if v, ok := b.Assignments()["dir"]; ok {
		for _, dir := range v.List() {
			loaded, err := assets.LoadDir(l.path(dir), dpi)
			if err != nil {
				return err
			}
			for _, id := range loaded.IDs() {
				a, _ := loaded.Asset(id)
				lib.Put(a)
			}
		}
	}
	for _, st := range b.Statements {
		cmd := st.Command
		if cmd == nil {
			continue
		}
		if cmd.Name != "snippet" {
			return fmt.Errorf("行 %d: 素材段不支持 %s", cmd.Pos.Line, cmd.Name)
		}
		if err := l.snippet(cmd, dpi); err != nil {
			return err
		}
	}
	return nil
}

// snippet 登记一个素材；声明 crop: [x y w h]（源图像素）时从源图中裁出片段。
func (l *loader) snippet(cmd *dsl.Command, dpi float64) error {
	ids, err := cmd.Positional(1)
	if err != nil {
		return err
	}
	id := ids[0]
	values := cmd.Block.Assignments()
	src, _ := values["src"].Scalar()
	if src == "" {
		return fmt.Errorf("素材 %s 缺少 src", id)
	}
	data, err := os.ReadFile(l.path(src))
	if err != nil {
		return fmt.Errorf("读取素材 %s 失败: %w", src, err)
	}
	crop, ok := values["crop"]
	if !ok {
		_, err := l.proj.Library.Add(id, data, dpi)
		return err
	}
	r, err := parseCrop(crop.List())
	if err != nil {
		return fmt.Errorf("素材 %s: %w", id, err)
	}
	page, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("解码素材 %s 失败: %w", src, err)
	}
	_, err = assets.CutSnippet(l.proj.Library, assets.Images{page}, 0, r, id, dpi)
	return err
}

func parseCrop(parts []string) (image.Rectangle, error) {
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("crop 需要 4 个数值，得到 %d 个", len(parts))
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSuffix(p, "px"))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("无效的 crop 数值：%s", p)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func parseMargin(parts []string) (layout.Margin, error) {
	if len(parts) == 0 || len(parts) > 2 {
		return layout.Margin{}, fmt.Errorf("margin 需要 1 或 2 个长度")
	}
	var mm []float64
	for _, p := range parts {
		length, ok := layout.ParseLength(p)
		if !ok {
			return layout.Margin{}, fmt.Errorf("无效的边距：%s", p)
		}
		v := length.Value
		if length.Unit != layout.UnitNone {
			v = length.ToMM()
		}
		mm = append(mm, v)
	}
	if len(mm) == 1 {
		return layout.Margin{X: mm[0], Y: mm[0]}, nil
	}
	return layout.Margin{X: mm[0], Y: mm[1]}, nil
}

func (l *loader) page(ps *dsl.PageSection) error {
	paper, err := layout.ParsePaperSize(ps.Spec.Size)
	if err != nil {
		return fmt.Errorf("行 %d: %w", ps.Pos.Line, err)
	}
	page := &layout.Page{Paper: paper, Orientation: layout.Portrait}
	params := ps.Spec.Params
	for i := 0; i < len(params); i++ {
		switch strings.ToLower(params[i].Value) {
		case "portrait":
			page.Orientation = layout.Portrait
		case "landscape":
			page.Orientation = layout.Landscape
		case "margin":
			var lengths []string
			for i+1 < len(params) && params[i+1].Type == "Number" && len(lengths) < 2 {
				i++
				lengths = append(lengths, params[i].Value)
			}
			m, err := parseMargin(lengths)
			if err != nil {
				return fmt.Errorf("行 %d: %w", ps.Pos.Line, err)
			}
			page.MarginX, page.MarginY = &m.X, &m.Y
		default:
			return fmt.Errorf("行 %d: 未知的页面参数 %s", params[i].Pos.Line, params[i].Raw)
		}
	}

	for _, st := range ps.Block.Statements {
		cmd := st.Command
		if cmd == nil {
			continue
		}
		if err := l.element(page, cmd); err != nil {
			return err
		}
	}
	l.proj.State.AppendPage(page)
	return nil
}

func (l *loader) element(page *layout.Page, cmd *dsl.Command) error {
	switch cmd.Name {
	case "place":
		return l.place(page, cmd)
	case "text":
		return l.text(page, cmd)
	case "rect", "circle", "line":
		return l.shape(page, cmd)
	case "grid":
		return l.grid(page, cmd)
	default:
		return fmt.Errorf("行 %d: 未知的页面命令 %s", cmd.Pos.Line, cmd.Name)
	}
}

// args 读取命令的 key value 参数并提供按类型取值的方法，首个错误会被记录下来。
type args struct {
	values map[string]*dsl.Lexeme
	line   int
	err    error
}

func newArgs(cmd *dsl.Command, skip int) (*args, error) {
	values, err := cmd.Pairs(skip)
	if err != nil {
		return nil, err
	}
	return &args{values: values, line: cmd.Pos.Line}, nil
}

func (a *args) has(key string) bool {
	_, ok := a.values[key]
	return ok
}

func (a *args) str(key, def string) string {
	if v, ok := a.values[key]; ok {
		return v.Value
	}
	return def
}

func (a *args) length(key string, def float64) float64 {
	v, ok := a.values[key]
	if !ok {
		return def
	}
	length, ok := layout.ParseLength(v.Value)
	if !ok {
		a.fail(fmt.Errorf("行 %d: %s 不是有效的长度：%s", a.line, key, v.Raw))
		return def
	}
	return length.ToUnits()
}

func (a *args) integer(key string, def int) int {
	v, ok := a.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		a.fail(fmt.Errorf("行 %d: %s 不是整数：%s", a.line, key, v.Raw))
		return def
	}
	return n
}

func (a *args) color(key string, def layout.Color) layout.Color {
	v, ok := a.values[key]
	if !ok {
		return def
	}
	c, err := layout.ParseColor(v.Value)
	if err != nil {
		a.fail(fmt.Errorf("行 %d: %w", a.line, err))
		return def
	}
	return c
}

func (a *args) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (l *loader) asset(id string, line int) (assets.Asset, error) {
	a, ok := l.proj.Library.Asset(id)
	if !ok {
		return assets.Asset{}, fmt.Errorf("行 %d: %w: %s", line, ErrUnknownAsset, id)
	}
	return a, nil
}

// place 放置素材；未给出尺寸时使用原始尺寸，只给出一边时按比例补齐另一边。
func (l *loader) place(page *layout.Page, cmd *dsl.Command) error {
	ids, err := cmd.Positional(1)
	if err != nil {
		return err
	}
	a, err := l.asset(ids[0], cmd.Pos.Line)
	if err != nil {
		return err
	}
	in, err := newArgs(cmd, 1)
	if err != nil {
		return err
	}
	w, h := a.Width, a.Height
	switch {
	case in.has("width") && in.has("height"):
		w, h = in.length("width", w), in.length("height", h)
	case in.has("width"):
		w = in.length("width", w)
		if a.Width > 0 {
			h = a.Height * w / a.Width
		}
	case in.has("height"):
		h = in.length("height", h)
		if a.Height > 0 {
			w = a.Width * h / a.Height
		}
	}
	s := layout.PlacedSnippet{
		AssetID: a.ID,
		X:       in.length("x", 0),
		Y:       in.length("y", 0),
		Width:   w,
		Height:  h,
	}
	if in.err != nil {
		return in.err
	}
	page.Snippets = append(page.Snippets, s)
	return nil
}

func (l *loader) text(page *layout.Page, cmd *dsl.Command) error {
	in, err := newArgs(cmd, 0)
	if err != nil {
		return err
	}
	content, _ := cmd.Block.Text()
	t := layout.TextElement{
		Text:        content,
		X:           in.length("x", 0),
		Y:           in.length("y", 0),
		Width:       in.length("width", 200),
		Height:      in.length("height", 40),
		FontSize:    in.length("size", 16),
		FontFamily:  in.str("font", ""),
		Color:       in.color("color", layout.DefaultTextColor),
		WritingMode: layout.WritingMode(in.str("mode", string(layout.Horizontal))),
		Align:       layout.TextAlign(in.str("align", string(layout.AlignLeft))),
	}
	if in.err != nil {
		return in.err
	}
	page.Texts = append(page.Texts, t)
	return nil
}

var shapeKinds = map[string]layout.ShapeKind{
	"rect":   layout.ShapeRectangle,
	"circle": layout.ShapeCircle,
	"line":   layout.ShapeLine,
}

func (l *loader) shape(page *layout.Page, cmd *dsl.Command) error {
	in, err := newArgs(cmd, 0)
	if err != nil {
		return err
	}
	sh := layout.ShapeElement{
		Kind:        shapeKinds[cmd.Name],
		X:           in.length("x", 0),
		Y:           in.length("y", 0),
		Width:       in.length("width", 50),
		Height:      in.length("height", 50),
		StrokeColor: in.color("stroke", layout.Color{}),
		StrokeWidth: in.length("stroke-width", 1),
	}
	if in.has("fill") && in.str("fill", "") != "none" {
		fill := in.color("fill", layout.Color{})
		sh.Fill = &fill
	}
	if in.err != nil {
		return in.err
	}
	page.Shapes = append(page.Shapes, sh)
	return nil
}

// grid 对块中列出的素材做网格自动排列，素材 id 以空格或换行分隔。
func (l *loader) grid(page *layout.Page, cmd *dsl.Command) error {
	in, err := newArgs(cmd, 0)
	if err != nil {
		return err
	}
	gap := in.length("gap", 0)
	opts := arrange.GridOptions{
		Cols: in.integer("cols", 0),
		Rows: in.integer("rows", 0),
		GapX: in.length("gap-x", gap),
		GapY: in.length("gap-y", gap),
	}
	if in.str("order", "row") == "column" {
		opts.Order = arrange.ColumnMajor
	}
	if in.err != nil {
		return in.err
	}

	var names []string
	if cmd.Block != nil {
		for _, st := range cmd.Block.Statements {
			if st.Command == nil {
				continue
			}
			names = append(names, st.Command.Name)
			for _, arg := range st.Command.Args {
				names = append(names, arg.Value)
			}
		}
	}
	if len(names) == 0 {
		return nil
	}

	items := make([]arrange.Item, 0, len(names))
	for i, name := range names {
		a, err := l.asset(name, cmd.Pos.Line)
		if err != nil {
			return err
		}
		// 网格内部用序号作为临时 id，同一素材可以出现多次。
		items = append(items, arrange.Item{
			ID:     strconv.Itoa(i),
			Native: layout.Size{Width: a.Width, Height: a.Height},
		})
	}
	area := page.PrintableArea(l.proj.Margin)
	for _, p := range arrange.Grid(items, area, opts) {
		i, _ := strconv.Atoi(p.ID)
		page.Snippets = append(page.Snippets, layout.PlacedSnippet{
			AssetID: names[i],
			X:       p.Rect.X,
			Y:       p.Rect.Y,
			Width:   p.Rect.Width,
			Height:  p.Rect.Height,
		})
	}
	return nil
}
