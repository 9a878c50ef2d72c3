package assets

import (
	"fmt"
	"image"
)

// DocumentSource 由外部文档解码器实现：按页提供已经栅格化好的位图。
// 核心从不解析原始文档格式。
type DocumentSource interface {
	PageCount() int
	PageImage(index int) (image.Image, error)
}

// RecognizedBlock 是识别引擎返回的一个文本块，Bounds 为源页面像素坐标。
type RecognizedBlock struct {
	Text   string
	Bounds image.Rectangle
}

// Recognition 是识别引擎对一页的结果，仅用于重建版面显示。
type Recognition struct {
	PageIndex int
	Width     int // 源页面像素宽
	Height    int // 源页面像素高
	Text      string
	Blocks    []RecognizedBlock
}

// CutSnippet 从文档源的某一页裁出片段并登记到素材库。
func CutSnippet(lib *Memory, src DocumentSource, page int, r image.Rectangle, id string, sourceDPI float64) (Asset, error) {
	if page < 0 || page >= src.PageCount() {
		return Asset{}, fmt.Errorf("页码 %d 超出范围（共 %d 页）", page, src.PageCount())
	}
	img, err := src.PageImage(page)
	if err != nil {
		return Asset{}, fmt.Errorf("读取第 %d 页位图失败: %w", page, err)
	}
	cut, err := Crop(img, r)
	if err != nil {
		return Asset{}, err
	}
	return lib.AddImage(id, cut, sourceDPI)
}

// Images 是基于内存位图的 DocumentSource。
type Images []image.Image

func (s Images) PageCount() int { return len(s) }

func (s Images) PageImage(index int) (image.Image, error) {
	if index < 0 || index >= len(s) {
		return nil, fmt.Errorf("页码 %d 超出范围", index)
	}
	return s[index], nil
}
