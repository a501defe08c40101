package poster

import "encoding/json"

// Mappings 是以 elementId 为键的字段映射集合，重复写入时后者覆盖前者。
// 零值可直接使用；nil 指针上的查询返回未命中。
type Mappings struct {
	order []string
	byID  map[string]FieldMapping
}

// NewMappings 按顺序写入 list，同一元素的重复映射以最后一个为准。
func NewMappings(list ...FieldMapping) *Mappings {
	m := &Mappings{}
	for _, fm := range list {
		m.Set(fm)
	}
	return m
}

// Set 新增或覆盖一个映射。
func (m *Mappings) Set(fm FieldMapping) {
	if m.byID == nil {
		m.byID = map[string]FieldMapping{}
	}
	if _, ok := m.byID[fm.ElementID]; !ok {
		m.order = append(m.order, fm.ElementID)
	}
	m.byID[fm.ElementID] = fm
}

// Delete 移除元素的映射。
func (m *Mappings) Delete(elementID string) {
	if m == nil || m.byID == nil {
		return
	}
	if _, ok := m.byID[elementID]; !ok {
		return
	}
	delete(m.byID, elementID)
	for i, id := range m.order {
		if id == elementID {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

// Lookup 返回元素对应的映射。
func (m *Mappings) Lookup(elementID string) (FieldMapping, bool) {
	if m == nil {
		return FieldMapping{}, false
	}
	fm, ok := m.byID[elementID]
	return fm, ok
}

// Len 返回映射数量。
func (m *Mappings) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byID)
}

// List 按首次写入顺序返回全部映射。
func (m *Mappings) List() []FieldMapping {
	if m == nil {
		return nil
	}
	out := make([]FieldMapping, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// MarshalJSON 以扁平数组输出。
func (m *Mappings) MarshalJSON() ([]byte, error) {
	list := m.List()
	if list == nil {
		list = []FieldMapping{}
	}
	return json.Marshal(list)
}

// UnmarshalJSON 从扁平数组读取。
func (m *Mappings) UnmarshalJSON(b []byte) error {
	var list []FieldMapping
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*m = Mappings{}
	for _, fm := range list {
		m.Set(fm)
	}
	return nil
}
