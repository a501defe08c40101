package poster

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind 是元素类型的判别字段。
type Kind string

const (
	KindBackground Kind = "background"
	KindText       Kind = "text"
	KindImage      Kind = "image"
	KindTag        Kind = "tag"
)

// ErrUnknownElementType 表示模板中出现了无法识别的元素类型。
var ErrUnknownElementType = errors.New("未知的元素类型")

// Element 是模板元素的封闭联合类型，仅由本包内的四种元素实现。
// 使用方通过 type switch 穷举分派。
type Element interface {
	Common() Base
	isElement()
}

// Base 是所有元素共享的字段。
type Base struct {
	ID       string   `json:"id"`
	Type     Kind     `json:"type"`
	Position Position `json:"position"`
	ZIndex   *int     `json:"zIndex,omitempty"`
}

// Common 返回元素的公共字段。
func (b Base) Common() Base { return b }

// Z 返回用于排序的层级，未设置时为 0。
func (b Base) Z() int {
	if b.ZIndex == nil {
		return 0
	}
	return *b.ZIndex
}

// TextElement 为文本元素。
type TextElement struct {
	Base
	Content   string    `json:"content"`
	FontStyle FontStyle `json:"fontStyle"`
	Align     Align     `json:"align"`
	MaxLines  int       `json:"maxLines,omitempty"`
	FieldKey  string    `json:"fieldKey,omitempty"`
}

// ImageElement 为图片元素，FieldKey 通常映射附件字段。
type ImageElement struct {
	Base
	Src          string  `json:"src"`
	Fit          Fit     `json:"fit"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
	FieldKey     string  `json:"fieldKey,omitempty"`
}

// TagElement 为标签元素，FieldKey 通常映射单选/多选字段。
type TagElement struct {
	Base
	Tags     []string `json:"tags"`
	TagStyle TagStyle `json:"tagStyle"`
	FieldKey string   `json:"fieldKey,omitempty"`
}

// BackgroundElement 为背景元素；颜色与图片可同时存在，图片绘制在颜色之上。
type BackgroundElement struct {
	Base
	BackgroundColor string `json:"backgroundColor,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
}

func (*TextElement) isElement()       {}
func (*ImageElement) isElement()      {}
func (*TagElement) isElement()        {}
func (*BackgroundElement) isElement() {}

// MarshalJSON 保证输出中带有正确的 type 字段。
func (e TextElement) MarshalJSON() ([]byte, error) {
	type alias TextElement
	a := alias(e)
	a.Type = KindText
	return json.Marshal(a)
}

// MarshalJSON 保证输出中带有正确的 type 字段。
func (e ImageElement) MarshalJSON() ([]byte, error) {
	type alias ImageElement
	a := alias(e)
	a.Type = KindImage
	return json.Marshal(a)
}

// MarshalJSON 保证输出中带有正确的 type 字段。
func (e TagElement) MarshalJSON() ([]byte, error) {
	type alias TagElement
	a := alias(e)
	a.Type = KindTag
	return json.Marshal(a)
}

// MarshalJSON 保证输出中带有正确的 type 字段。
func (e BackgroundElement) MarshalJSON() ([]byte, error) {
	type alias BackgroundElement
	a := alias(e)
	a.Type = KindBackground
	return json.Marshal(a)
}

// UnmarshalJSON 根据 elements 中每一项的 type 字段解码为具体元素。
func (t *Template) UnmarshalJSON(b []byte) error {
	type alias Template
	var raw struct {
		alias
		Elements []json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	elements := make([]Element, 0, len(raw.Elements))
	for i, item := range raw.Elements {
		el, err := DecodeElement(item)
		if err != nil {
			return fmt.Errorf("解析第 %d 个元素失败: %w", i+1, err)
		}
		elements = append(elements, el)
	}
	*t = Template(raw.alias)
	t.Elements = elements
	return nil
}

// DecodeElement 解码单个元素。
func DecodeElement(b []byte) (Element, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, err
	}
	var el Element
	switch head.Type {
	case KindText:
		el = &TextElement{}
	case KindImage:
		el = &ImageElement{}
	case KindTag:
		el = &TagElement{}
	case KindBackground:
		el = &BackgroundElement{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownElementType, head.Type)
	}
	if err := json.Unmarshal(b, el); err != nil {
		return nil, err
	}
	return el, nil
}
