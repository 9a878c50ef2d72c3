package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/config"
	"github.com/ByLCY/snipsheet/project"
	"github.com/ByLCY/snipsheet/renderer"
	canvasrenderer "github.com/ByLCY/snipsheet/renderer/canvas"
	"github.com/ByLCY/snipsheet/storage"
	"github.com/ByLCY/snipsheet/typeset"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	if err := cfg.RegisterFonts(); err != nil {
		log.Fatalf("注册字体失败: %v", err)
	}

	input := flag.String("in", "examples/worksheet.snip", "布局脚本路径")
	output := flag.String("out", "output/worksheet.pdf", "PDF 输出路径，为空则不输出")
	printDir := flag.String("print-dir", "", "打印路径：逐页输出 PNG 的目录")
	debug := flag.String("debug", "", "合成结果调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "文本插值使用的 JSON 数据")
	dbPath := flag.String("db", cfg.DBPath, "保存项目的 SQLite 文件")
	preset := flag.String("preset", cfg.Preset, "质量预设：maximum / high / standard / light")
	dpi := flag.Float64("dpi", cfg.OutputDPI, "输出分辨率")
	watch := flag.Bool("watch", false, "脚本变化时重新导出")
	flag.Parse()

	var data map[string]any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &data); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}
	quality, err := compose.ParsePreset(*preset)
	if err != nil {
		log.Fatalf("%v", err)
	}

	copts := cfg.ComposeOptions()
	copts.OutputDPI = *dpi
	copts.Preset = quality
	copts.Data = data

	opts := runOptions{
		Input:     *input,
		Output:    *output,
		PrintDir:  *printDir,
		Debug:     *debug,
		DB:        *dbPath,
		SourceDPI: cfg.SourceDPI,
		Author:    cfg.Author,
		Compose:   copts,
	}
	r := canvasrenderer.NewRenderer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, r); err != nil {
		if !*watch {
			log.Fatalf("导出失败: %v", err)
		}
		log.Printf("导出失败: %v", err)
	} else {
		report(opts)
	}
	if !*watch {
		return
	}
	err = watchFile(ctx, opts.Input, cfg.WatchDebounce, func() {
		if err := run(ctx, opts, r); err != nil {
			log.Printf("导出失败: %v", err)
			return
		}
		report(opts)
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("监听脚本失败: %v", err)
	}
}

func report(opts runOptions) {
	if opts.Output != "" {
		fmt.Printf("已生成 PDF：%s\n", opts.Output)
	}
	if opts.PrintDir != "" {
		fmt.Printf("已输出打印页面：%s\n", opts.PrintDir)
	}
}

// runOptions 汇总一次导出的输入输出。
type runOptions struct {
	Input     string
	Output    string
	PrintDir  string
	Debug     string
	DB        string
	SourceDPI float64
	Author    string
	Compose   compose.Options
}

// run 串联脚本载入、合成、渲染与保存。
func run(ctx context.Context, opts runOptions, r *canvasrenderer.Renderer) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	proj, err := project.LoadFile(opts.Input, project.Options{
		Margin:    opts.Compose.DefaultMargin,
		SourceDPI: opts.SourceDPI,
	})
	if err != nil {
		return err
	}

	copts := opts.Compose
	copts.DefaultMargin = proj.Margin
	copts.Meta = proj.Meta
	if copts.Meta.Author == "" {
		copts.Meta.Author = opts.Author
	}
	if copts.Meta.Creator == "" {
		copts.Meta.Creator = "snipsheet"
	}
	pages := proj.State.Pages()
	ts := typeset.New()

	result, err := compose.Compose(pages, proj.Library, ts, copts)
	if err != nil {
		return fmt.Errorf("合成失败: %w", err)
	}
	if opts.Debug != "" {
		if err := writeDebug(result, opts.Debug); err != nil {
			return err
		}
	}

	if opts.Output != "" {
		if err := writeOutput(r, result, opts.Output); err != nil {
			return err
		}
	}

	if opts.PrintDir != "" {
		printed, err := compose.Compose(pages, proj.Library, ts, copts.ForPrint())
		if err != nil {
			return fmt.Errorf("合成打印页面失败: %w", err)
		}
		if err := r.Print(ctx, printed, renderer.DirSink{Dir: opts.PrintDir}); err != nil {
			return fmt.Errorf("打印失败: %w", err)
		}
	}

	if opts.DB != "" {
		if err := save(ctx, opts.DB, proj, copts.Preset); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(r renderer.Renderer, result *compose.Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func writeDebug(result *compose.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := compose.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

// save 以脚本的文档名作为项目 id，重复导出会覆盖同名项目。
func save(ctx context.Context, dbPath string, proj *project.Project, preset compose.Preset) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}
	defer db.Close()

	rec := storage.Project{
		ID:     proj.Name,
		Name:   proj.Name,
		Meta:   proj.Meta,
		Margin: proj.Margin,
		Preset: preset,
	}
	if err := db.SaveProject(ctx, rec, proj.State.Pages()); err != nil {
		return fmt.Errorf("保存项目失败: %w", err)
	}
	if err := db.SaveAssets(ctx, rec.ID, proj.Library); err != nil {
		return fmt.Errorf("保存素材失败: %w", err)
	}
	return nil
}
