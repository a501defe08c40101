package binding

import (
	"regexp"
	"strconv"
	"strings"
)

var placeholder = regexp.MustCompile(`\$\{\s*([^}]*?)\s*\}`)

// Interpolate 把 text 中的 ${a.b[0]} 占位符替换为 data 中对应的值。
// 取不到值（或值为空）的占位符原样保留。导出文件名模板使用它。
func Interpolate(text string, data any) string {
	if data == nil || !strings.Contains(text, "${") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		path := placeholder.FindStringSubmatch(match)[1]
		if val, ok := resolvePath(data, path); ok && !absent(val) {
			return Stringify(val)
		}
		return match
	})
}

// step 是路径中的一步：对象键，或 key 为空时的数组下标。
type step struct {
	key   string
	index int
}

// parsePath 把 a.b[0].c 拆成步骤序列，格式不合法时返回 false。
func parsePath(path string) ([]step, bool) {
	if path == "" {
		return nil, false
	}
	var steps []step
	for _, seg := range strings.Split(path, ".") {
		name, rest := seg, ""
		if i := strings.IndexByte(seg, '['); i >= 0 {
			name, rest = seg[:i], seg[i:]
		}
		if name == "" && rest == "" {
			return nil, false
		}
		if name != "" {
			steps = append(steps, step{key: name})
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, false
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return nil, false
			}
			steps = append(steps, step{index: idx})
			rest = rest[end+1:]
		}
	}
	return steps, true
}

// resolvePath 沿路径逐层取值。
func resolvePath(data any, path string) (any, bool) {
	steps, ok := parsePath(path)
	if !ok {
		return nil, false
	}
	cur := data
	for _, s := range steps {
		if s.key != "" {
			cur, ok = child(cur, s.key)
		} else {
			cur, ok = element(cur, s.index)
		}
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func child(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		val, ok := m[key]
		return val, ok
	case map[string]string:
		val, ok := m[key]
		return val, ok
	}
	return nil, false
}

func element(v any, idx int) (any, bool) {
	switch list := v.(type) {
	case []any:
		if idx < len(list) {
			return list[idx], true
		}
	case []string:
		if idx < len(list) {
			return list[idx], true
		}
	case []map[string]any:
		if idx < len(list) {
			return list[idx], true
		}
	}
	return nil, false
}
