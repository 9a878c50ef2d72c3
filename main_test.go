package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/layout"
	canvasrenderer "github.com/ByLCY/snipsheet/renderer/canvas"
	"github.com/ByLCY/snipsheet/storage"
)

const worksheet = `
doc Worksheet v1 {
  meta { title: "Worksheet" }
  assets { snippet fig { src: "fig.png" } }
  page A4 portrait margin 15mm {
    place fig x 10 y 10 width 100 height 150
    text x 20 y 200 width 200 height 60 size 14 { "Page ${page.number} of ${page.count}" }
    rect x 0 y 0 width 50 height 50 stroke #000 stroke-width 1
  }
  page A5 landscape { }
}
`

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 150))
	for y := 0; y < 150; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fig.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "worksheet.snip")
	if err := os.WriteFile(path, []byte(worksheet), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunWritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	opts := runOptions{
		Input:    writeFixture(t, dir),
		Output:   filepath.Join(dir, "out", "sheet.pdf"),
		PrintDir: filepath.Join(dir, "print"),
		Debug:    filepath.Join(dir, "debug", "layout.json"),
		DB:       filepath.Join(dir, "db", "snipsheet.db"),
		Compose: compose.Options{
			OutputDPI:     72,
			Preset:        compose.PresetLight,
			DefaultMargin: layout.Margin{X: 10, Y: 10},
		},
	}
	if err := run(context.Background(), opts, canvasrenderer.NewRenderer()); err != nil {
		t.Fatalf("run: %v", err)
	}

	pdf, err := os.ReadFile(opts.Output)
	if err != nil || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected a PDF at %s: %v", opts.Output, err)
	}
	if _, err := os.Stat(opts.Debug); err != nil {
		t.Fatalf("debug json missing: %v", err)
	}
	for _, name := range []string{"page-001.png", "page-002.png"} {
		if _, err := os.Stat(filepath.Join(opts.PrintDir, name)); err != nil {
			t.Fatalf("print page %s missing: %v", name, err)
		}
	}

	db, err := storage.Open(opts.DB)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	proj, pages, err := db.LoadProject(context.Background(), "Worksheet")
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if proj.Meta.Title != "Worksheet" || proj.Meta.Creator != "snipsheet" || len(pages) != 2 {
		t.Fatalf("unexpected saved project %+v with %d pages", proj, len(pages))
	}
	lib, err := db.LoadAssets(context.Background(), "Worksheet")
	if err != nil {
		t.Fatalf("LoadAssets: %v", err)
	}
	if _, ok := lib.Asset("fig"); !ok {
		t.Fatalf("asset should be saved with the project")
	}
}

func TestRunReportsScriptErrors(t *testing.T) {
	err := run(context.Background(), runOptions{Input: filepath.Join(t.TempDir(), "missing.snip")}, canvasrenderer.NewRenderer())
	if err == nil {
		t.Fatalf("expected error for missing script")
	}
	if err := run(context.Background(), runOptions{}, nil); err == nil {
		t.Fatalf("expected error for nil renderer")
	}
}

func TestWatchFileDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.snip")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 50*time.Millisecond, func() { calls <- struct{}{} })
	}()

	// 等待监听建立后再写入。
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte{byte('b' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// 其他文件的变化不会触发导出。
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a re-export after the script changed")
	}
	select {
	case <-calls:
		t.Fatalf("burst of writes should trigger a single re-export")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("watcher did not stop")
	}
}
