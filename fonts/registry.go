package fonts

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/sfnt"
)

// Face 是解析后的字体选择结果，Key 可用作渲染端的缓存键。
type Face struct {
	Family   string
	Weight   int
	Data     []byte
	Fallback bool
}

// Key 返回 family|weight 形式的缓存键。
func (f Face) Key() string { return fmt.Sprintf("%s|%d", f.Family, f.Weight) }

// Registry 按字体族与字重保存字体数据，并发安全。
type Registry struct {
	mu    sync.RWMutex
	faces map[string]map[int][]byte
}

// NewRegistry 创建只含内置字体的注册表。
func NewRegistry() *Registry {
	return &Registry{faces: map[string]map[int][]byte{}}
}

// Register 注册一份字体数据。family 为空时读取字体文件内的族名。
func (r *Registry) Register(family string, weight int, data []byte) error {
	f, err := sfnt.Parse(data)
	if err != nil {
		return fmt.Errorf("解析字体失败: %w", err)
	}
	if family == "" {
		family, err = f.Name(nil, sfnt.NameIDFamily)
		if err != nil || family == "" {
			return fmt.Errorf("字体缺少族名，请在配置中指定 family")
		}
	}
	if weight <= 0 {
		weight = 400
	}
	key := normalizeFamily(family)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.faces[key] == nil {
		r.faces[key] = map[int][]byte{}
	}
	r.faces[key][weight] = data
	return nil
}

// RegisterFile 读取字体文件并注册。
func (r *Registry) RegisterFile(family string, weight int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	if err := r.Register(family, weight, data); err != nil {
		return fmt.Errorf("注册字体 %s 失败: %w", path, err)
	}
	return nil
}

// Families 返回已注册的字体族（小写）。
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.faces))
	for k := range r.faces {
		out = append(out, k)
	}
	return out
}

// Resolve 按 CSS font-family 列表依次查找已注册字体，取最接近的字重；
// 都找不到时返回内置 Go 字体。
func (r *Registry) Resolve(family string, weight int) Face {
	if weight <= 0 {
		weight = 400
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, candidate := range strings.Split(family, ",") {
		name := normalizeFamily(candidate)
		if name == "" {
			continue
		}
		if name == "monospace" {
			return Face{Family: "go-mono", Weight: 400, Data: gomono.TTF, Fallback: true}
		}
		weights, ok := r.faces[name]
		if !ok || len(weights) == 0 {
			continue
		}
		best := nearestWeight(weights, weight)
		return Face{Family: name, Weight: best, Data: weights[best]}
	}
	return FallbackFace(weight)
}

// FallbackFace 返回内置字体中与 weight 最接近的一款。
func FallbackFace(weight int) Face {
	snapped := 400
	switch {
	case weight >= 600:
		snapped = 700
	case weight >= 500:
		snapped = 500
	}
	return Face{Family: FallbackFamily, Weight: snapped, Data: fallbackData(weight), Fallback: true}
}

// nearestWeight 选距离最小的字重，距离相同时取较粗的一款。
func nearestWeight(weights map[int][]byte, want int) int {
	best, bestDist := 0, -1
	for w := range weights {
		d := w - want
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && w > best) {
			best, bestDist = w, d
		}
	}
	return best
}

func normalizeFamily(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.ToLower(strings.TrimSpace(s))
}
