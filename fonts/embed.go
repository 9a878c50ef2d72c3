// Package fonts 提供文本栅格化使用的字体。内置 Go 字体只覆盖拉丁、希腊与西里尔字母，
// 中日文等字形需要通过 Register / RegisterFile 注册外部 TrueType 字体。
package fonts

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFamily 为未知字体族回退使用的字体。
const DefaultFamily = "sans"

var builtin = map[string][]byte{
	"sans":   goregular.TTF,
	"bold":   gobold.TTF,
	"italic": goitalic.TTF,
	"mono":   gomono.TTF,
}

var (
	mu         sync.Mutex
	parsed     = map[string]*truetype.Font{}
	registered = map[string][]byte{}
	// 按注册顺序排列，缺字时依次尝试。
	fallbacks []string
)

// Register 注册外部字体族，同名覆盖（包括内置字体族）。注册的字体同时作为缺字时的候补。
func Register(family string, data []byte) error {
	name := normalize(family)
	if name == "" {
		return fmt.Errorf("字体族名不能为空")
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return fmt.Errorf("解析字体 %s 失败: %w", family, err)
	}
	mu.Lock()
	defer mu.Unlock()
	registered[name] = data
	parsed[name] = f
	if !slices.Contains(fallbacks, name) {
		fallbacks = append(fallbacks, name)
	}
	return nil
}

// RegisterFile 从 TTF 文件注册字体族。
func RegisterFile(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取字体文件 %s 失败: %w", path, err)
	}
	return Register(family, data)
}

// Load 返回字体族的字节数据，family 可写为 "embed:mono" 或直接 "mono"。
func Load(family string) ([]byte, error) {
	name := normalize(family)
	mu.Lock()
	data, ok := registered[name]
	mu.Unlock()
	if ok {
		return data, nil
	}
	data, ok = builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 不存在", family)
	}
	return data, nil
}

// Parse 解析并缓存字体族对应的 TrueType 字体，未知字体族回退到 DefaultFamily。
func Parse(family string) (*truetype.Font, error) {
	mu.Lock()
	defer mu.Unlock()
	return parseLocked(normalize(family))
}

func parseLocked(name string) (*truetype.Font, error) {
	if f, ok := parsed[name]; ok {
		return f, nil
	}
	data, ok := builtin[name]
	if !ok {
		name = DefaultFamily
		if f, ok := parsed[name]; ok {
			return f, nil
		}
		data = builtin[name]
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", name, err)
	}
	parsed[name] = f
	return f, nil
}

// ForText 返回 family 对应的字体；该字体缺少 text 中的字形时，
// 改用缺字最少的已注册字体，都不更好时仍返回 family 的字体。
func ForText(family, text string) (*truetype.Font, error) {
	mu.Lock()
	defer mu.Unlock()
	best, err := parseLocked(normalize(family))
	if err != nil {
		return nil, err
	}
	least := Missing(best, text)
	for _, name := range fallbacks {
		if least == 0 {
			break
		}
		if n := Missing(parsed[name], text); n < least {
			best, least = parsed[name], n
		}
	}
	return best, nil
}

// Missing 统计 text 中字体没有字形的字符数，空白与控制字符不计。
func Missing(f *truetype.Font, text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		if f.Index(r) == 0 {
			n++
		}
	}
	return n
}

// Families lists the built-in and registered family names.
func Families() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(builtin)+len(registered))
	for name := range builtin {
		out = append(out, name)
	}
	for name := range registered {
		if _, ok := builtin[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func normalize(family string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(family), "embed:")))
}
