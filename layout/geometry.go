package layout

import (
	"math"

	"github.com/ByLCY/postergen/poster"
)

// FitRect 计算尺寸为 srcW×srcH 的图片在 box 中的目标矩形。
//
//	fill    拉伸到 box
//	contain 等比缩放到完全放入 box，居中
//	cover   等比缩放到完全覆盖 box，居中（超出部分由渲染端裁剪）
//	none    原始尺寸，贴 box 左上角
//
// 未知策略按 fill 处理；源尺寸无效时返回 box。
func FitRect(srcW, srcH float64, box Rect, fit poster.Fit) Rect {
	if srcW <= 0 || srcH <= 0 {
		return box
	}
	switch fit.Normalize() {
	case poster.FitContain:
		return scaleCentered(srcW, srcH, box, math.Min(box.Width/srcW, box.Height/srcH))
	case poster.FitCover:
		return scaleCentered(srcW, srcH, box, math.Max(box.Width/srcW, box.Height/srcH))
	case poster.FitNone:
		return Rect{X: box.X, Y: box.Y, Width: srcW, Height: srcH}
	default:
		return box
	}
}

func scaleCentered(srcW, srcH float64, box Rect, scale float64) Rect {
	w, h := srcW*scale, srcH*scale
	return Rect{
		X:      box.X + (box.Width-w)/2,
		Y:      box.Y + (box.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// FlowTags 从 box 左上角开始横向排布标签，放不下时换行。
// 只有当前行已有芯片时才换行，因此超宽的单个标签仍会放在行首。纵向不受 box 高度限制。
func FlowTags(tags []string, box Rect, style poster.TagStyle, measure MeasureFunc) []Chip {
	fontSize := style.FontSize
	if fontSize <= 0 {
		fontSize = defaultTagFontSize
	}
	height := fontSize + style.Padding.Y*2
	x, y := box.X, box.Y
	chips := make([]Chip, 0, len(tags))
	for _, tag := range tags {
		textWidth := measure(tag)
		width := textWidth + style.Padding.X*2
		if x+width > box.X+box.Width && x > box.X {
			x = box.X
			y += height + style.Spacing
		}
		chips = append(chips, Chip{
			Label:     tag,
			X:         x,
			Y:         y,
			Width:     width,
			Height:    height,
			TextWidth: textWidth,
		})
		x += width + style.Spacing
	}
	return chips
}
