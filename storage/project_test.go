package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/layout"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "snipsheet.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func samplePages() []*layout.Page {
	mx := 12.5
	fill := layout.Color{R: 1, G: 2, B: 3}
	return []*layout.Page{
		{
			ID:          "p1",
			Paper:       layout.PaperA4,
			Orientation: layout.Portrait,
			MarginX:     &mx,
			Snippets:    []layout.PlacedSnippet{{ID: "s1", AssetID: "fig", X: 1, Y: 2, Width: 30, Height: 40}},
			Texts:       []layout.TextElement{{ID: "t1", Text: "hi", Width: 100, Height: 30, FontSize: 16, FontFamily: "sans", WritingMode: layout.Vertical, Align: layout.AlignLeft}},
			Shapes:      []layout.ShapeElement{{ID: "c1", Kind: layout.ShapeCircle, Width: 10, Height: 10, StrokeWidth: 1, Fill: &fill}},
		},
		{ID: "p2", Paper: layout.PaperLegal, Orientation: layout.Landscape},
	}
}

func TestProjectRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	proj := Project{
		ID:     "proj",
		Name:   "Sheet",
		Meta:   compose.Meta{Title: "Quiz", Keywords: []string{"a"}},
		Margin: layout.Margin{X: 15, Y: 10},
		Preset: compose.PresetHigh,
	}
	pages := samplePages()
	if err := db.SaveProject(ctx, proj, pages); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}

	got, loaded, err := db.LoadProject(ctx, "proj")
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if got.Name != "Sheet" || got.Meta.Title != "Quiz" || got.Margin != proj.Margin || got.Preset != compose.PresetHigh {
		t.Fatalf("unexpected project: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("updated_at should be set")
	}
	if len(loaded) != 2 || loaded[0].ID != "p1" || loaded[1].ID != "p2" {
		t.Fatalf("unexpected pages: %+v", loaded)
	}
	if loaded[0].MarginX == nil || *loaded[0].MarginX != 12.5 || loaded[0].MarginY != nil {
		t.Fatalf("page margin override lost: %+v", loaded[0])
	}
	if !reflect.DeepEqual(loaded[0].Snapshot(), pages[0].Snapshot()) {
		t.Fatalf("elements differ after round trip:\n%+v\n%+v", loaded[0].Snapshot(), pages[0].Snapshot())
	}
	if loaded[1].Orientation != layout.Landscape || len(loaded[1].Snippets) != 0 {
		t.Fatalf("unexpected empty page: %+v", loaded[1])
	}

	// 再次保存时页面整体替换。
	if err := db.SaveProject(ctx, proj, pages[1:]); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if _, loaded, _ = db.LoadProject(ctx, "proj"); len(loaded) != 1 || loaded[0].ID != "p2" {
		t.Fatalf("pages should be replaced, got %+v", loaded)
	}

	list, err := db.ListProjects(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "proj" {
		t.Fatalf("ListProjects: %+v %v", list, err)
	}
}

func TestAssetsRoundTripAndDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.SaveProject(ctx, Project{ID: "proj", Name: "x"}, nil); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	lib := assets.NewMemory()
	lib.Put(assets.Asset{ID: "fig", Width: 10, Height: 20, Format: "png", Data: []byte{1, 2, 3}})
	if err := db.SaveAssets(ctx, "proj", lib); err != nil {
		t.Fatalf("SaveAssets: %v", err)
	}
	loaded, err := db.LoadAssets(ctx, "proj")
	if err != nil {
		t.Fatalf("LoadAssets: %v", err)
	}
	a, ok := loaded.Asset("fig")
	if !ok || a.Width != 10 || a.Height != 20 || !reflect.DeepEqual(a.Data, []byte{1, 2, 3}) {
		t.Fatalf("unexpected asset: %+v", a)
	}

	if err := db.DeleteProject(ctx, "proj"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, _, err := db.LoadProject(ctx, "proj"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if loaded, _ := db.LoadAssets(ctx, "proj"); len(loaded.IDs()) != 0 {
		t.Fatalf("assets should be deleted with the project")
	}
	if err := db.DeleteProject(ctx, "proj"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound on second delete, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.SaveProject(context.Background(), Project{ID: "a", Name: "A"}, samplePages()); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	db.Close()

	// 第二次打开会重复执行迁移，ALTER TABLE 的重复列错误应被忽略。
	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, pages, err := db.LoadProject(context.Background(), "a"); err != nil || len(pages) != 2 {
		t.Fatalf("reload: %d pages, %v", len(pages), err)
	}
}
