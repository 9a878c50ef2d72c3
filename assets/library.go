// Package assets 是外部素材库的最小实现：素材由这里持有，页面中的放置只保存 id。
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/snipsheet/layout"
)

var ErrEmptyAsset = errors.New("素材数据为空")

// Asset 是一张已裁剪好的图片片段。Width/Height 为原始裁剪尺寸（屏幕参考单位）。
type Asset struct {
	ID     string
	Width  float64
	Height float64
	Format string
	Data   []byte
}

// Ref 返回放置该素材时需要的引用信息。
func (a Asset) Ref() layout.AssetRef {
	return layout.AssetRef{ID: a.ID, Width: a.Width, Height: a.Height}
}

// Decode 解码素材数据。
func (a Asset) Decode() (image.Image, error) {
	if len(a.Data) == 0 {
		return nil, fmt.Errorf("素材 %s: %w", a.ID, ErrEmptyAsset)
	}
	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, fmt.Errorf("解码素材 %s 失败: %w", a.ID, err)
	}
	return img, nil
}

// Library 由外部内容库实现，核心只通过 id 查询素材。
type Library interface {
	Asset(id string) (Asset, bool)
}

// Memory 是并发安全的内存素材库。
type Memory struct {
	mu    sync.RWMutex
	items map[string]Asset
}

var _ Library = (*Memory)(nil)

// NewMemory creates an empty library.
func NewMemory() *Memory {
	return &Memory{items: map[string]Asset{}}
}

// Asset implements Library.
func (m *Memory) Asset(id string) (Asset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	return a, ok
}

// Add 以编码数据登记素材，原始尺寸取像素尺寸（sourceDPI 下的像素换算为屏幕参考单位）。
// sourceDPI <= 0 时按屏幕参考分辨率处理。
func (m *Memory) Add(id string, data []byte, sourceDPI float64) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, fmt.Errorf("素材 %s: %w", id, ErrEmptyAsset)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Asset{}, fmt.Errorf("读取素材 %s 尺寸失败: %w", id, err)
	}
	scale := 1.0
	if sourceDPI > 0 {
		scale = layout.ScreenDPI / sourceDPI
	}
	a := Asset{
		ID:     id,
		Width:  float64(cfg.Width) * scale,
		Height: float64(cfg.Height) * scale,
		Format: format,
		Data:   data,
	}
	m.Put(a)
	return a, nil
}

// AddImage 把内存中的图片编码为 PNG 后登记。
func (m *Memory) AddImage(id string, img image.Image, sourceDPI float64) (Asset, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Asset{}, fmt.Errorf("编码素材 %s 失败: %w", id, err)
	}
	return m.Add(id, buf.Bytes(), sourceDPI)
}

// Put stores an asset as-is.
func (m *Memory) Put(a Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = a
}

// Remove 删除素材。引用它的放置需要由调用方（editor.RemoveAsset）同步清理。
func (m *Memory) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	delete(m.items, id)
	return ok
}

// IDs returns the sorted asset ids.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true}

// LoadDir 把目录下的图片文件登记为素材，id 为去掉扩展名的文件名。
func LoadDir(dir string, sourceDPI float64) (*Memory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取素材目录 %s 失败: %w", dir, err)
	}
	lib := NewMemory()
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !imageExts[ext] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("读取素材 %s 失败: %w", e.Name(), err)
		}
		if _, err := lib.Add(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), data, sourceDPI); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Crop 从整页位图中裁出一个矩形片段，超出边界的部分被裁掉。
func Crop(src image.Image, r image.Rectangle) (image.Image, error) {
	r = r.Add(src.Bounds().Min).Intersect(src.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("裁剪区域为空")
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, src, r, draw.Src, nil)
	return dst, nil
}
