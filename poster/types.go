// Package poster 定义海报模板、元素、字段映射与生成结果等数据模型。
//
// 该包只描述数据，不包含渲染逻辑；布局计算见 layout，绘制见 renderer。
package poster

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Position 描述元素的布局框，单位为像素，原点位于左上角。
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Weight 为字重，可以是 normal/bold 或 100~900 的数值。
// JSON 中既可写成字符串也可写成数字。
type Weight string

const (
	WeightNormal Weight = "normal"
	WeightBold   Weight = "bold"
)

// UnmarshalJSON 同时接受 "bold" 与 700 两种写法。
func (w *Weight) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*w = Weight(strings.TrimSpace(s))
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("字重 %s 无法解析", string(b))
	}
	*w = Weight(strconv.Itoa(int(n)))
	return nil
}

// Numeric 返回 CSS 数值字重，无法识别时按 400 处理。
func (w Weight) Numeric() int {
	switch strings.ToLower(string(w)) {
	case "", "normal", "regular":
		return 400
	case "bold":
		return 700
	case "lighter", "light":
		return 300
	case "bolder":
		return 800
	}
	n, err := strconv.Atoi(string(w))
	if err != nil || n < 100 || n > 900 {
		return 400
	}
	return n
}

// lineHeightFactorLimit 以下的行高按字号倍数解释（设计器默认写入 1.5）。
const lineHeightFactorLimit = 5.0

// FontStyle 描述文本字体。
type FontStyle struct {
	Family     string  `json:"family"`
	Size       float64 `json:"size"`
	Weight     Weight  `json:"weight,omitempty"`
	Color      string  `json:"color"`
	LineHeight float64 `json:"lineHeight,omitempty"` // 小于 5 视为字号倍数，否则为像素
}

// ResolvedLineHeight 返回实际行高（像素）。
// 未设置时为 1.2 倍字号；小于 5 的值视为倍数，其余视为绝对像素。
func (f FontStyle) ResolvedLineHeight() float64 {
	switch {
	case f.LineHeight <= 0:
		return f.Size * 1.2
	case f.LineHeight < lineHeightFactorLimit:
		return f.Size * f.LineHeight
	default:
		return f.LineHeight
	}
}

// Align 为文本水平对齐方式。
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Fit 为图片适配策略。
type Fit string

const (
	FitCover   Fit = "cover"
	FitContain Fit = "contain"
	FitFill    Fit = "fill"
	FitNone    Fit = "none"
)

// Normalize 将未知或空的策略归一为 fill。
func (f Fit) Normalize() Fit {
	switch Fit(strings.ToLower(string(f))) {
	case FitCover:
		return FitCover
	case FitContain:
		return FitContain
	case FitNone:
		return FitNone
	default:
		return FitFill
	}
}

// Padding 为标签内边距。
type Padding struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TagStyle 描述标签芯片的外观。
type TagStyle struct {
	BackgroundColor string  `json:"backgroundColor"`
	TextColor       string  `json:"textColor"`
	FontSize        float64 `json:"fontSize"`
	Padding         Padding `json:"padding"`
	BorderRadius    float64 `json:"borderRadius"`
	Spacing         float64 `json:"spacing"`
}

// Template 是一份海报模板。
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Elements    []Element `json:"elements"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// FieldType 为数据源字段类型。
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldAttachment   FieldType = "attachment"
	FieldMultiSelect  FieldType = "multiSelect"
	FieldSingleSelect FieldType = "singleSelect"
)

// FieldMapping 将模板元素绑定到数据源字段。
type FieldMapping struct {
	ElementID string    `json:"elementId"`
	FieldKey  string    `json:"fieldKey"`
	FieldName string    `json:"fieldName"`
	FieldType FieldType `json:"fieldType"`
}

// Row 是驱动一张海报的数据记录。
type Row struct {
	RecordID string         `json:"recordId"`
	Fields   map[string]any `json:"fields"`
}

// Attachment 是附件字段中的单个文件。
type Attachment struct {
	FileToken string `json:"fileToken,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Type      string `json:"type,omitempty"`
	URL       string `json:"url,omitempty"`
	TmpURL    string `json:"tmpUrl,omitempty"`
}

// Result 是单条记录的生成结果。
// Success 为 true 时 Blob 与 DataURL 均有值；失败时仅 Error 有值。
type Result struct {
	RecordID string `json:"recordId"`
	Success  bool   `json:"success"`
	DataURL  string `json:"dataUrl,omitempty"`
	Blob     []byte `json:"-"`
	Error    string `json:"error,omitempty"`
}

// BatchProgress 记录批量生成的进度。
// Completed 统计已处理（成功或失败）的行数，Failed 统计失败行数。
type BatchProgress struct {
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Current   string   `json:"current,omitempty"`
	Results   []Result `json:"results"`
}
