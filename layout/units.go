package layout

// 模板坐标以像素为单位。渲染端把 1 个画布单位当作 1 像素，
// 而字体系统以 pt 计字号，这里集中放置换算。

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// PxToPt 把像素字号换算为字体面使用的 pt，使字号在画布上恰好占 px 个单位。
func PxToPt(px float64) float64 { return px * MmToPt }

// PtToPx 是 PxToPt 的逆运算。
func PtToPx(pt float64) float64 { return pt * PtToMm }

const (
	defaultFontSize    = 24.0
	defaultTagFontSize = 14.0
)
