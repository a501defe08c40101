package layout

import (
	"strings"

	"github.com/ByLCY/postergen/poster"
)

const ellipsis = "..."

// WrapText 按显式换行拆段，再在每段内逐字符贪心折行。
// 候选行宽度超过 maxWidth 且当前行非空时提交当前行，因此单个字符宽于 maxWidth 时独占一行。
// 只含空白的段落产生一个空行；maxWidth <= 0 时不按宽度折行。
func WrapText(content string, maxWidth float64, measure MeasureFunc) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var lines []string
	for _, paragraph := range strings.Split(content, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			lines = append(lines, "")
			continue
		}
		if maxWidth <= 0 {
			lines = append(lines, paragraph)
			continue
		}
		var current strings.Builder
		for _, r := range paragraph {
			candidate := current.String() + string(r)
			if current.Len() > 0 && measure(candidate) > maxWidth {
				lines = append(lines, current.String())
				current.Reset()
			}
			current.WriteRune(r)
		}
		if current.Len() > 0 {
			lines = append(lines, current.String())
		}
	}
	return lines
}

// Truncate 保留前 maxLines 行，并把最后一行末尾 3 个字符替换为省略号。
// maxLines <= 0 或行数未超出时原样返回。
func Truncate(lines []string, maxLines int) []string {
	if maxLines <= 0 || len(lines) <= maxLines {
		return lines
	}
	out := make([]string, maxLines)
	copy(out, lines[:maxLines])
	last := []rune(out[maxLines-1])
	if len(last) > len(ellipsis) {
		out[maxLines-1] = string(last[:len(last)-len(ellipsis)]) + ellipsis
	} else {
		out[maxLines-1] = ellipsis
	}
	return out
}

// AlignX 返回宽度为 lineWidth 的行在 [x, x+width] 内的起始横坐标。
func AlignX(x, width, lineWidth float64, align poster.Align) float64 {
	switch align {
	case poster.AlignCenter:
		return x + (width-lineWidth)/2
	case poster.AlignRight:
		return x + width - lineWidth
	default:
		return x
	}
}
