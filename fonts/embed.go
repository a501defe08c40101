// Package fonts 管理海报渲染使用的字体数据：内置 Go 字体作为兜底，
// 外加按字体族与字重注册的字体文件。
package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// FallbackFamily 是内置兜底字体族的名称。
const FallbackFamily = "go"

var embedded = map[string][]byte{
	"go-regular": goregular.TTF,
	"go-medium":  gomedium.TTF,
	"go-bold":    gobold.TTF,
	"go-italic":  goitalic.TTF,
	"go-mono":    gomono.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:go-bold" 或直接 "go-bold"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimPrefix(name, "embed:"))
	data, ok := embedded[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 不存在", name)
	}
	return data, nil
}

// fallbackData 按字重挑选内置字体。
func fallbackData(weight int) []byte {
	switch {
	case weight >= 600:
		return gobold.TTF
	case weight >= 500:
		return gomedium.TTF
	default:
		return goregular.TTF
	}
}
