// Package binding 负责把数据行中的字段值解析为模板元素的实际内容。
package binding

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ByLCY/postergen/poster"
)

// Resolver 按字段映射从数据行中取值，取不到时回退到元素的静态值。
type Resolver struct {
	mappings *poster.Mappings
}

// NewResolver 创建解析器，mappings 可以为 nil（此时所有元素均使用静态值）。
func NewResolver(mappings *poster.Mappings) *Resolver {
	return &Resolver{mappings: mappings}
}

// lookup 返回映射字段在行中的原始值；元素未声明 fieldKey、没有映射或行中无值时返回 false。
// 取值使用映射上的 fieldKey，映射未填写时才使用元素自身的 fieldKey。
func (r *Resolver) lookup(elementID, fieldKey string, row poster.Row) (any, bool) {
	if fieldKey == "" {
		return nil, false
	}
	mapping, ok := r.mappings.Lookup(elementID)
	if !ok {
		return nil, false
	}
	key := mapping.FieldKey
	if key == "" {
		key = fieldKey
	}
	val, ok := row.Fields[key]
	if !ok && strings.ContainsAny(key, ".[") {
		val, ok = resolvePath(map[string]any(row.Fields), key)
	}
	if !ok || absent(val) {
		return nil, false
	}
	return val, true
}

// Text 返回文本元素的实际内容。
func (r *Resolver) Text(el *poster.TextElement, row poster.Row) string {
	val, ok := r.lookup(el.ID, el.FieldKey, row)
	if !ok {
		return el.Content
	}
	return Stringify(val)
}

// ImageSource 返回图片元素的资源地址，空字符串表示不绘制。
// 附件数组只取第一项，优先使用永久 url，其次 tmpUrl；空数组表示该记录没有图片。
// 值的形态不符合附件数组时回退到静态 src。
func (r *Resolver) ImageSource(el *poster.ImageElement, row poster.Row) string {
	val, ok := r.lookup(el.ID, el.FieldKey, row)
	if !ok {
		return el.Src
	}
	switch v := val.(type) {
	case []any:
		if len(v) == 0 {
			return ""
		}
		return attachmentURL(v[0])
	case []map[string]any:
		if len(v) == 0 {
			return ""
		}
		return attachmentURL(v[0])
	case []poster.Attachment:
		if len(v) == 0 {
			return ""
		}
		return firstNonEmpty(v[0].URL, v[0].TmpURL)
	default:
		return el.Src
	}
}

// Tags 返回标签元素的标签列表。返回值是新切片，不与模板共享底层数组。
func (r *Resolver) Tags(el *poster.TagElement, row poster.Row) []string {
	val, ok := r.lookup(el.ID, el.FieldKey, row)
	if !ok {
		return slices.Clone(el.Tags)
	}
	switch v := val.(type) {
	case string:
		return []string{v}
	case []string:
		return slices.DeleteFunc(slices.Clone(v), func(s string) bool { return s == "" })
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if label := optionLabel(item); label != "" {
				tags = append(tags, label)
			}
		}
		return tags
	default:
		return slices.Clone(el.Tags)
	}
}

// Stringify 将任意字段值转换为可显示的文本。
func Stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ",")
	case []any:
		// 富文本字段是 {type, text} 片段数组，直接拼接；其余数组按逗号连接。
		if segs, ok := textSegments(v); ok {
			return segs
		}
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return optionLabel(v)
	default:
		return fmt.Sprint(v)
	}
}

func textSegments(items []any) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return "", false
		}
		text, ok := m["text"].(string)
		if !ok {
			return "", false
		}
		b.WriteString(text)
	}
	return b.String(), true
}

// optionLabel 读取选项的显示名：字符串本身，或对象上的 text/name。
func optionLabel(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"text", "name"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func attachmentURL(item any) string {
	switch v := item.(type) {
	case map[string]any:
		url, _ := v["url"].(string)
		tmp, _ := v["tmpUrl"].(string)
		return firstNonEmpty(url, tmp)
	case poster.Attachment:
		return firstNonEmpty(v.URL, v.TmpURL)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// absent 判断字段值是否视为“没有值”。
func absent(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}
