package poster

import (
	"cmp"
	"slices"
)

// SortByZIndex 返回按 zIndex 升序稳定排序后的新切片，层级相同的元素保持声明顺序。
// 未设置 zIndex 的元素按 0 处理；入参不会被修改。
func SortByZIndex(elements []Element) []Element {
	sorted := slices.Clone(elements)
	slices.SortStableFunc(sorted, func(a, b Element) int {
		return cmp.Compare(a.Common().Z(), b.Common().Z())
	})
	return sorted
}
