package typeset

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Line 是换行后的一行文本及其宽度（像素）。
type Line struct {
	Content string
	Width   float64
}

// Measure 返回字符串的排版宽度。
type Measure func(s string) float64

// Wrap 采用贪心换行：优先在空白处分割，单个词超过限制时在词内拆分，显式换行始终生效。
func Wrap(content string, limit float64, measure Measure) []Line {
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	var lines []Line
	var builder strings.Builder
	current := 0.0

	emit := func(force bool) {
		if builder.Len() == 0 {
			if force {
				lines = append(lines, Line{})
			}
			return
		}
		lines = append(lines, Line{Content: strings.TrimRightFunc(builder.String(), unicode.IsSpace), Width: current})
		builder.Reset()
		current = 0
	}
	appendToken := func(token string) {
		builder.WriteString(token)
		current += measure(token)
	}

	for _, token := range tokenize(content) {
		if token == "\n" {
			emit(true)
			continue
		}
		// 行首的空白不保留。
		if builder.Len() == 0 && strings.TrimSpace(token) == "" {
			continue
		}
		tokenWidth := measure(token)
		if current > 0 && current+tokenWidth > limit {
			emit(false)
			if strings.TrimSpace(token) == "" {
				continue
			}
		}
		if tokenWidth <= limit {
			appendToken(token)
			continue
		}
		for _, chunk := range splitByWidth(token, limit, measure) {
			chunkWidth := measure(chunk)
			if current > 0 && current+chunkWidth > limit {
				emit(false)
			}
			appendToken(chunk)
		}
	}
	emit(false)
	if len(lines) == 0 {
		lines = append(lines, Line{})
	}
	return lines
}

// tokenize 把文本切分为空白与非空白交替的片段，换行单独成为一个片段。
// 汉字等表意文字每个字单独成段，使其可以在任意字之间换行。
func tokenize(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}
	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		if unicode.Is(unicode.Han, r) {
			flush()
			tokens = append(tokens, string(r))
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitByWidth(token string, limit float64, measure Measure) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var runes []rune
	for _, r := range token {
		runes = append(runes, r)
		if len(runes) > 1 && measure(string(runes)) > limit {
			parts = append(parts, string(runes[:len(runes)-1]))
			runes = runes[len(runes)-1:]
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// Columns 把文本切分为竖排的列：字体有对应全角字形的半角字符转为全角，
// 其余字符保持原样直立排列。has 为 nil 时不做转换。每列最多 perColumn 个字，
// 显式换行另起一列。返回的列按阅读顺序排列（绘制时从右到左）。
func Columns(content string, perColumn int, has func(rune) bool) [][]rune {
	if perColumn < 1 {
		perColumn = 1
	}
	var cols [][]rune
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r", ""), "\n") {
		runes := []rune(para)
		if len(runes) == 0 {
			cols = append(cols, nil)
			continue
		}
		for i, r := range runes {
			runes[i] = widen(r, has)
		}
		for len(runes) > 0 {
			n := min(perColumn, len(runes))
			cols = append(cols, runes[:n])
			runes = runes[n:]
		}
	}
	return cols
}

func widen(r rune, has func(rune) bool) rune {
	if has == nil {
		return r
	}
	w, _ := utf8.DecodeRuneInString(width.Widen.String(string(r)))
	if w != r && has(w) {
		return w
	}
	return r
}
