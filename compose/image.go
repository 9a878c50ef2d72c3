package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/ByLCY/snipsheet/assets"
)

// snippetImage 按质量预设处理素材：重采样到目标像素尺寸（不超过原始尺寸），
// 按预设格式重新编码后再解码，使嵌入的位图与下载文件一致。
func (c *composer) snippetImage(a assets.Asset, w, h float64) (image.Image, error) {
	src, err := a.Decode()
	if err != nil {
		return nil, err
	}
	return Process(src, w, h, c.quality)
}

// Process 把 src 处理为 w×h 输出单位的位图。
func Process(src image.Image, w, h float64, q Quality) (image.Image, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("图片尺寸为空")
	}
	scale := q.Scale
	if scale <= 0 {
		scale = 1
	}
	tw := min(b.Dx(), max(1, int(math.Round(w*scale))))
	th := min(b.Dy(), max(1, int(math.Round(h*scale))))

	var img image.Image = src
	if tw != b.Dx() || th != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		var interp draw.Interpolator = draw.NearestNeighbor
		if q.Smoothing {
			interp = draw.CatmullRom
		}
		interp.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		img = dst
	}
	return reencode(img, q)
}

func reencode(img image.Image, q Quality) (image.Image, error) {
	var buf bytes.Buffer
	switch q.Format {
	case FormatJPEG:
		quality := int(math.Round(q.Quality * 100))
		quality = max(1, min(quality, 100))
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("编码 JPEG 失败: %w", err)
		}
		out, err := jpeg.Decode(&buf)
		if err != nil {
			return nil, fmt.Errorf("解码 JPEG 失败: %w", err)
		}
		return out, nil
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("编码 PNG 失败: %w", err)
		}
		out, err := png.Decode(&buf)
		if err != nil {
			return nil, fmt.Errorf("解码 PNG 失败: %w", err)
		}
		return out, nil
	}
}
