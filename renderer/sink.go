package renderer

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// DirSink 把每一页位图写成 PNG 文件，命名为 page-001.png、page-002.png ……
// 命令行的打印路径使用它代替系统打印对话框。
type DirSink struct {
	Dir string
}

// Print implements PrintSink.
func (s DirSink) Print(ctx context.Context, pages []image.Image) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("创建打印目录失败: %w", err)
	}
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.Dir, fmt.Sprintf("page-%03d.png", i+1))
		if err := writePNG(path, page); err != nil {
			return fmt.Errorf("写入第 %d 页失败: %w", i+1, err)
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
