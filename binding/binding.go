// Package binding 处理文本元素中的 ${path} 插值。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// PageScope 构造合成某一页时可见的数据：用户数据的全部键，加上
// page.number（从 1 开始）与 page.count。用户数据中的 page 键会被覆盖。
func PageScope(number, count int, user map[string]any) map[string]any {
	scope := make(map[string]any, len(user)+1)
	for k, v := range user {
		scope[k] = v
	}
	scope["page"] = map[string]any{"number": number, "count": count}
	return scope
}

// HasPlaceholders reports whether text contains any ${...} expression.
func HasPlaceholders(text string) bool {
	return exprPattern.MatchString(text)
}

// Interpolate 将文本中的 ${a.b[0]} 替换为 data 中对应的值。
// data 为空、路径为空或无法解析时保留原占位符。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if path == "" {
			return match
		}
		val, ok := lookup(data, path)
		if !ok {
			return match
		}
		return fmt.Sprint(val)
	})
}

// step 是路径中的一级：map 的键，或 index >= 0 时的切片下标。
type step struct {
	key   string
	index int
}

func lookup(data any, path string) (any, bool) {
	steps, ok := splitPath(path)
	if !ok {
		return nil, false
	}
	current := data
	for _, s := range steps {
		if current, ok = walk(current, s); !ok {
			return nil, false
		}
	}
	return current, true
}

// splitPath 把 "tags[1].name" 拆成 tags、[1]、name 三级。
func splitPath(path string) ([]step, bool) {
	var steps []step
	for _, segment := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(segment, "[")
		if name != "" {
			steps = append(steps, step{key: name, index: -1})
		}
		if rest == "" {
			continue
		}
		for _, raw := range strings.Split("["+rest, "[")[1:] {
			inner, ok := strings.CutSuffix(raw, "]")
			if !ok {
				return nil, false
			}
			idx, err := strconv.Atoi(inner)
			if err != nil || idx < 0 {
				return nil, false
			}
			steps = append(steps, step{index: idx})
		}
	}
	return steps, true
}

func walk(current any, s step) (any, bool) {
	if s.index < 0 {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[s.key]
			return v, ok
		case map[string]string:
			v, ok := m[s.key]
			return v, ok
		}
		return nil, false
	}
	switch l := current.(type) {
	case []any:
		if s.index < len(l) {
			return l[s.index], true
		}
	case []string:
		if s.index < len(l) {
			return l[s.index], true
		}
	}
	return nil, false
}
