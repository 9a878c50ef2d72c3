package dsl

import "fmt"

// Positional 返回前 n 个位置参数的值，数量不足时报错。
func (c *Command) Positional(n int) ([]string, error) {
	if len(c.Args) < n {
		return nil, fmt.Errorf("%s 行 %d: %s 需要 %d 个参数", c.Pos.Filename, c.Pos.Line, c.Name, n)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = c.Args[i].Value
	}
	return out, nil
}

// Pairs 跳过 skip 个位置参数后，把剩余参数按 key value 成对读取。
// key 必须是标识符，同一个 key 出现多次时以最后一次为准。
func (c *Command) Pairs(skip int) (map[string]*Lexeme, error) {
	if skip > len(c.Args) {
		skip = len(c.Args)
	}
	rest := c.Args[skip:]
	if len(rest)%2 != 0 {
		last := rest[len(rest)-1]
		return nil, fmt.Errorf("行 %d: 参数 %s 缺少取值", last.Pos.Line, last.Raw)
	}
	out := make(map[string]*Lexeme, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		key := rest[i]
		if key.Type != "Ident" {
			return nil, fmt.Errorf("行 %d: 期望参数名，得到 %s", key.Pos.Line, key.Raw)
		}
		out[key.Value] = rest[i+1]
	}
	return out, nil
}

// Assignments 收集块内的 key: value 赋值，忽略其他语句。
func (b *Block) Assignments() map[string]*Value {
	out := make(map[string]*Value)
	if b == nil {
		return out
	}
	for _, st := range b.Statements {
		if st.Assignment != nil {
			out[st.Assignment.Key] = st.Assignment.Value
		}
	}
	return out
}

// Text 拼接块内的字符串字面量，多段之间以换行连接。
func (b *Block) Text() (string, bool) {
	if b == nil {
		return "", false
	}
	var text string
	found := false
	for _, st := range b.Statements {
		if st.Text == nil {
			continue
		}
		if found {
			text += "\n"
		}
		text += string(st.Text.Value)
		found = true
	}
	return text, found
}

// Scalar 返回值的字面内容：字符串去掉引号，数字与颜色保持原样，裸词按空格拼接。
func (v *Value) Scalar() (string, bool) {
	switch {
	case v == nil:
		return "", false
	case v.String != nil:
		return string(*v.String), true
	case v.Number != nil:
		return *v.Number, true
	case v.Color != nil:
		return *v.Color, true
	case v.Words != nil:
		var s string
		for i, p := range v.Words.Parts {
			if i > 0 {
				s += " "
			}
			s += p.Value
		}
		return s, true
	default:
		return "", false
	}
}

// List 返回数组中每一项的字面内容，非数组的标量视为单元素列表。
func (v *Value) List() []string {
	if v == nil {
		return nil
	}
	if v.Array == nil {
		if s, ok := v.Scalar(); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.Array.Values))
	for _, item := range v.Array.Values {
		if s, ok := item.Scalar(); ok {
			out = append(out, s)
		}
	}
	return out
}
