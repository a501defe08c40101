package layout

// 该文件定义布局结果，供布局计算、渲染与调试 JSON 共用。

import (
	"image/color"

	"github.com/ByLCY/postergen/paint"
	"github.com/ByLCY/postergen/poster"
)

// Result 是一张海报的布局结果：画布尺寸与按绘制顺序排列的元素。
type Result struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Items  []Item  `json:"items"`
}

// Rect 以像素为单位，原点位于左上角。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectOf 把模板中的 Position 转为 Rect。
func RectOf(p poster.Position) Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// FontSpec 描述测量与绘制文本所用的字体。Size 单位为像素。
type FontSpec struct {
	Family string  `json:"family"`
	Weight int     `json:"weight"`
	Size   float64 `json:"size"`
}

// ItemKind 标识绘制项的种类。
type ItemKind string

const (
	KindFill  ItemKind = "fill"
	KindImage ItemKind = "image"
	KindText  ItemKind = "text"
	KindTags  ItemKind = "tags"
)

// Item 是已经定位好的绘制项，只由本包内的四种类型实现。
type Item interface {
	Kind() ItemKind
	Element() string
}

// FillItem 用纯色或渐变填充一个矩形（背景色）。
type FillItem struct {
	ElementID string      `json:"elementId"`
	Box       Rect        `json:"box"`
	Paint     paint.Paint `json:"paint"`
}

// ImageItem 表示一张待加载的图片；源图尺寸在渲染时才可知，
// 因此目标区域由渲染端通过 FitRect 计算。
type ImageItem struct {
	ElementID string     `json:"elementId"`
	Box       Rect       `json:"box"`
	Src       string     `json:"src"`
	Fit       poster.Fit `json:"fit"`
	Radius    float64    `json:"radius,omitempty"`
}

// TextItem 是已经折行、截断并对齐的文本块。
type TextItem struct {
	ElementID  string      `json:"elementId"`
	Box        Rect        `json:"box"`
	Font       FontSpec    `json:"font"`
	Color      color.NRGBA `json:"color"`
	LineHeight float64     `json:"lineHeight"`
	Lines      []TextLine  `json:"lines"`
}

// TextLine 是一行文本，X 为左端，Y 为行顶部。
type TextLine struct {
	Content string  `json:"content"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
}

// TagsItem 是一组流式排布的标签芯片。
type TagsItem struct {
	ElementID  string      `json:"elementId"`
	Font       FontSpec    `json:"font"`
	Background color.NRGBA `json:"background"`
	TextColor  color.NRGBA `json:"textColor"`
	Radius     float64     `json:"radius"`
	PaddingX   float64     `json:"paddingX"`
	Chips      []Chip      `json:"chips"`
}

// Chip 是单个标签的位置与尺寸。
type Chip struct {
	Label     string  `json:"label"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	TextWidth float64 `json:"textWidth"`
}

func (FillItem) Kind() ItemKind  { return KindFill }
func (ImageItem) Kind() ItemKind { return KindImage }
func (TextItem) Kind() ItemKind  { return KindText }
func (TagsItem) Kind() ItemKind  { return KindTags }

func (i FillItem) Element() string  { return i.ElementID }
func (i ImageItem) Element() string { return i.ElementID }
func (i TextItem) Element() string  { return i.ElementID }
func (i TagsItem) Element() string  { return i.ElementID }
