package layout

import "github.com/charmbracelet/log"

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	Logger     *log.Logger // 为空时使用 log.Default()
}

// Metrics 是字体面的纵向度量（像素）。
type Metrics struct {
	Ascent  float64
	Descent float64
}

// Typesetter 负责文本测量。布局与绘制必须使用同一个字体面，
// 否则折行结果与实际绘制宽度会不一致。
type Typesetter interface {
	TextWidth(s string, font FontSpec) float64
	FontMetrics(font FontSpec) Metrics
}

// MeasureFunc 返回文本在某个固定字体下的宽度。
type MeasureFunc func(s string) float64

// Measure 把 Typesetter 绑定到具体字体上。
func Measure(ts Typesetter, font FontSpec) MeasureFunc {
	return func(s string) float64 { return ts.TextWidth(s, font) }
}

func (o BuildOptions) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}
