package renderer

import (
	"context"
	"image"

	"github.com/ByLCY/snipsheet/compose"
)

// Renderer 将合成结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误；失败时不返回部分结果。
type Renderer interface {
	Render(result *compose.Result) ([]byte, error)
}

// Rasterizer 把合成结果逐页栅格化，供打印路径使用。
type Rasterizer interface {
	Rasterize(result *compose.Result) ([]image.Image, error)
}

// PrintSink 是宿主的打印设施，只会在所有页面位图都准备好之后被调用。
type PrintSink interface {
	Print(ctx context.Context, pages []image.Image) error
}
