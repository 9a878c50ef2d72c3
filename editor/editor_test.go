package editor

import (
	"errors"
	"fmt"
	"image"
	"reflect"
	"sync"
	"testing"

	"github.com/ByLCY/snipsheet/arrange"
	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/interaction"
	"github.com/ByLCY/snipsheet/layout"
)

func newEditor(t *testing.T) (*Editor, *assets.Memory) {
	t.Helper()
	n := 0
	lib := assets.NewMemory()
	lib.Put(assets.Asset{ID: "fig", Width: 100, Height: 150})
	lib.Put(assets.Asset{ID: "other", Width: 60, Height: 40})
	e := New(lib, Options{NewID: func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}})
	return e, lib
}

func TestCommandsWithoutPageFail(t *testing.T) {
	e, _ := newEditor(t)
	if _, err := e.AddText(layout.TextElement{Text: "x"}); !errors.Is(err, ErrNoActivePage) {
		t.Fatalf("expected ErrNoActivePage, got %v", err)
	}
}

func TestUndoRestoresSequenceOfCommands(t *testing.T) {
	e, _ := newEditor(t)
	pid := e.AddPage(layout.PaperA4, layout.Portrait)
	before := e.Pages()[0].Snapshot()

	a, err := e.AddSnippet("fig", layout.Point{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("AddSnippet: %v", err)
	}
	if _, err := e.AddSnippet("missing", layout.Point{}); err == nil {
		t.Fatalf("expected error for unknown asset")
	}
	txt, _ := e.AddText(layout.TextElement{Text: "hi", X: 200, Y: 10, Width: 100, Height: 40})
	_, _ = e.AddShape(layout.ShapeElement{Kind: layout.ShapeCircle, X: 0, Y: 300, Width: 50, Height: 50})
	_ = e.UpdateText(txt, func(t *layout.TextElement) { t.FontSize = 30 })
	_ = e.Reorder(a, layout.ZFront)
	const ops = 5
	if e.HistoryLen() != ops {
		t.Fatalf("expected %d history entries, got %d", ops, e.HistoryLen())
	}
	for i := 0; i < ops; i++ {
		if !e.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if got := e.Pages()[0].Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("expected pristine page, got %+v", got)
	}
	if e.Undo() {
		t.Fatalf("undo on empty history must be a no-op")
	}
	if e.ActivePage() != pid {
		t.Fatalf("active page changed")
	}
}

func TestArrangeRejectedDuringGesture(t *testing.T) {
	e, _ := newEditor(t)
	e.AddPage(layout.PaperA4, layout.Portrait)
	_, _ = e.AddSnippet("fig", layout.Point{X: 10, Y: 10})
	e.Handle(interaction.PointerDown{Pos: layout.Point{X: 20, Y: 20}})
	if err := e.Align(arrange.EdgeTop); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("expected ErrGestureActive, got %v", err)
	}
	if e.Undo() {
		t.Fatalf("undo must wait for the gesture to end")
	}
	e.Handle(interaction.PointerUp{Pos: layout.Point{X: 20, Y: 20}})
	if err := e.Align(arrange.EdgeTop); err != nil {
		t.Fatalf("align after gesture: %v", err)
	}
}

func TestCommandsRejectedDuringDrag(t *testing.T) {
	e, _ := newEditor(t)
	pid := e.AddPage(layout.PaperA4, layout.Portrait)
	a, _ := e.AddSnippet("fig", layout.Point{X: 10, Y: 10})
	e.Handle(interaction.PointerDown{Pos: layout.Point{X: 20, Y: 20}})
	e.Handle(interaction.PointerMove{Pos: layout.Point{X: 70, Y: 70}})

	if _, err := e.AddText(layout.TextElement{Text: "x", Width: 50, Height: 20}); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("AddText: expected ErrGestureActive, got %v", err)
	}
	if _, err := e.AddSnippet("other", layout.Point{}); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("AddSnippet: expected ErrGestureActive, got %v", err)
	}
	if _, err := e.AddShape(layout.ShapeElement{Kind: layout.ShapeRectangle, Width: 10, Height: 10}); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("AddShape: expected ErrGestureActive, got %v", err)
	}
	if err := e.Reorder(a, layout.ZBack); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("Reorder: expected ErrGestureActive, got %v", err)
	}
	if err := e.SetPageMargin(pid, &layout.Margin{X: 5, Y: 5}); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("SetPageMargin: expected ErrGestureActive, got %v", err)
	}
	if err := e.DeletePage(pid); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("DeletePage: expected ErrGestureActive, got %v", err)
	}
	e.Handle(interaction.PointerUp{Pos: layout.Point{X: 70, Y: 70}})

	if e.HistoryLen() != 2 {
		t.Fatalf("expected add + drag in history, got %d", e.HistoryLen())
	}
	if !e.Undo() {
		t.Fatalf("undo of the drag failed")
	}
	p := e.Pages()[0]
	if len(p.Texts) != 0 || len(p.Snippets) != 1 || p.Snippets[0].X != 10 || p.Snippets[0].Y != 10 {
		t.Fatalf("undo should restore the pre-drag page, got %+v", p.Snapshot())
	}
	if _, err := e.AddText(layout.TextElement{Text: "x", Width: 50, Height: 20}); err != nil {
		t.Fatalf("AddText after the gesture: %v", err)
	}
}

func TestDuplicateIDLeavesNoHistory(t *testing.T) {
	e, _ := newEditor(t)
	e.AddPage(layout.PaperA4, layout.Portrait)
	if _, err := e.AddText(layout.TextElement{ID: "dup", Text: "a"}); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	if _, err := e.AddShape(layout.ShapeElement{ID: "dup"}); !errors.Is(err, layout.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if e.HistoryLen() != 1 || len(e.Pages()[0].Shapes) != 0 {
		t.Fatalf("rejected add must not change the page or history")
	}
}

func TestUnifyWidthOnSelection(t *testing.T) {
	e, _ := newEditor(t)
	e.AddPage(layout.PaperA4, layout.Portrait)
	a, _ := e.AddSnippet("fig", layout.Point{X: 0, Y: 0})
	b, _ := e.AddSnippet("other", layout.Point{X: 300, Y: 300})
	e.Handle(interaction.PointerDown{Pos: layout.Point{X: 10, Y: 10}, Mods: interaction.ModShift})
	e.Handle(interaction.PointerDown{Pos: layout.Point{X: 310, Y: 310}, Mods: interaction.ModShift})
	if sel := e.Selection(); !reflect.DeepEqual(sel, []string{a, b}) {
		t.Fatalf("unexpected selection %v", sel)
	}
	if err := e.UnifySize(arrange.Width); err != nil {
		t.Fatalf("UnifySize: %v", err)
	}
	p := e.Pages()[0]
	if p.Snippets[1].Width != 100 || p.Snippets[1].X != 300 || p.Snippets[1].Y != 300 || p.Snippets[1].Height != 40 {
		t.Fatalf("unexpected second snippet: %+v", p.Snippets[1])
	}
	if err := e.Distribute(arrange.Horizontal); !errors.Is(err, arrange.ErrTooFewItems) {
		t.Fatalf("expected ErrTooFewItems, got %v", err)
	}
}

func TestDeletePageClearsSelectionAndHistory(t *testing.T) {
	e, _ := newEditor(t)
	first := e.AddPage(layout.PaperA4, layout.Portrait)
	second := e.AddPage(layout.PaperA5, layout.Landscape)
	_, _ = e.AddSnippet("fig", layout.Point{X: 0, Y: 0})
	e.Handle(interaction.PointerDown{Pos: layout.Point{X: 10, Y: 10}})
	e.Handle(interaction.PointerUp{Pos: layout.Point{X: 10, Y: 10}})
	if len(e.Selection()) != 1 {
		t.Fatalf("expected a selection")
	}
	if err := e.DeletePage(second); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if len(e.Selection()) != 0 || e.HistoryLen() != 0 {
		t.Fatalf("deleting a page must clear selection and its history")
	}
	if e.ActivePage() != first {
		t.Fatalf("expected first page to become active")
	}
	if err := e.DeletePage(second); !errors.Is(err, layout.ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestRemoveAssetDropsPlacements(t *testing.T) {
	e, lib := newEditor(t)
	e.AddPage(layout.PaperA4, layout.Portrait)
	_, _ = e.AddSnippet("fig", layout.Point{})
	keep, _ := e.AddSnippet("other", layout.Point{X: 200})
	removed := e.RemoveAsset("fig")
	if len(removed) != 1 {
		t.Fatalf("expected one removed placement, got %v", removed)
	}
	if _, ok := lib.Asset("fig"); ok {
		t.Fatalf("asset should be removed from the library")
	}
	p := e.Pages()[0]
	if len(p.Snippets) != 1 || p.Snippets[0].ID != keep {
		t.Fatalf("unexpected snippets: %+v", p.Snippets)
	}
}

func TestImportRecognitionScalesBlocks(t *testing.T) {
	e, _ := newEditor(t)
	e.SetDefaultMargin(layout.Margin{})
	e.AddPage(layout.PaperA4, layout.Portrait)
	area := e.Pages()[0].PrintableArea(layout.Margin{})
	rec := assets.Recognition{
		Width:  int(area.Width * 2),
		Height: int(area.Height * 2),
		Blocks: []assets.RecognizedBlock{{Text: "Title", Bounds: image.Rect(100, 100, 500, 180)}},
	}
	ids, err := e.ImportRecognition(rec)
	if err != nil || len(ids) != 1 {
		t.Fatalf("ImportRecognition: %v %v", ids, err)
	}
	txt := e.Pages()[0].Texts[0]
	if txt.Text != "Title" || txt.Width < 199 || txt.Width > 201 || txt.X < 49 || txt.X > 51 {
		t.Fatalf("unexpected text element: %+v", txt)
	}
	if e.HistoryLen() != 1 {
		t.Fatalf("import should be a single undoable step")
	}
}

func TestConcurrentCommandsAreSerialized(t *testing.T) {
	e, _ := newEditor(t)
	e.AddPage(layout.PaperA4, layout.Portrait)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = e.AddText(layout.TextElement{Text: fmt.Sprint(i)})
			_ = e.Pages()
		}(i)
	}
	wg.Wait()
	if n := len(e.Pages()[0].Texts); n != 16 {
		t.Fatalf("expected 16 texts, got %d", n)
	}
}
