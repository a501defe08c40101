package renderer

import (
	"context"

	"github.com/ByLCY/postergen/layout"
)

// Renderer 将布局结果输出为最终文件，例如 PNG 图像。
// Render 返回生成的二进制数据以及可能的错误；ctx 用于取消资源下载。
type Renderer interface {
	Render(ctx context.Context, result *layout.Result) ([]byte, error)
}
