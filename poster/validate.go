package poster

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize  = errors.New("模板尺寸必须大于 0")
	ErrDuplicateID  = errors.New("元素 id 重复")
	ErrMissingField = errors.New("模板缺少必填字段")
)

// Validate 检查模板的结构约束：尺寸为正、元素 id 唯一、id/name 非空。
// 渲染引擎本身不调用它，由模板存储在导入时使用。
func (t *Template) Validate() error {
	var errs []error
	if t.ID == "" || t.Name == "" {
		errs = append(errs, fmt.Errorf("%w: id/name", ErrMissingField))
	}
	if t.Width <= 0 || t.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: %gx%g", ErrInvalidSize, t.Width, t.Height))
	}
	seen := make(map[string]struct{}, len(t.Elements))
	for _, el := range t.Elements {
		id := el.Common().ID
		if _, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateID, id))
			continue
		}
		seen[id] = struct{}{}
	}
	return errors.Join(errs...)
}
