package layout

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/ByLCY/postergen/binding"
	"github.com/ByLCY/postergen/paint"
	"github.com/ByLCY/postergen/poster"
)

// 标签固定使用无衬线兜底字体、常规字重。
const tagFontFamily = "sans-serif"

var (
	defaultTextColor = color.NRGBA{A: 255}
	defaultTagBg     = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 255}
	defaultTagText   = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 255}
)

// Build 按 zIndex 排序模板元素，解析每个元素的数据绑定，生成按绘制顺序排列的布局结果。
// 模板与行数据不会被修改。
func Build(tpl *poster.Template, row poster.Row, mappings *poster.Mappings, opts BuildOptions) (*Result, error) {
	if tpl == nil {
		return nil, fmt.Errorf("模板为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	b := &builder{
		resolver: binding.NewResolver(mappings),
		row:      row,
		opts:     opts,
	}
	res := &Result{Width: tpl.Width, Height: tpl.Height}
	for _, el := range poster.SortByZIndex(tpl.Elements) {
		var items []Item
		switch e := el.(type) {
		case *poster.BackgroundElement:
			items = b.background(e)
		case *poster.TextElement:
			items = b.text(e)
		case *poster.ImageElement:
			items = b.image(e)
		case *poster.TagElement:
			items = b.tags(e)
		default:
			return nil, fmt.Errorf("%w: %T", poster.ErrUnknownElementType, el)
		}
		res.Items = append(res.Items, items...)
	}
	return res, nil
}

type builder struct {
	resolver *binding.Resolver
	row      poster.Row
	opts     BuildOptions
}

// background 先填充颜色/渐变，再把背景图拉伸铺满元素框。
func (b *builder) background(el *poster.BackgroundElement) []Item {
	box := RectOf(el.Position)
	var items []Item
	if strings.TrimSpace(el.BackgroundColor) != "" {
		p, err := paint.Parse(el.BackgroundColor)
		if err != nil {
			b.opts.logger().Warn("背景颜色无法解析，已跳过", "element", el.ID, "err", err)
		} else if !p.Transparent() {
			items = append(items, FillItem{ElementID: el.ID, Box: box, Paint: p})
		}
	}
	if el.BackgroundImage != "" {
		items = append(items, ImageItem{ElementID: el.ID, Box: box, Src: el.BackgroundImage, Fit: poster.FitFill})
	}
	return items
}

func (b *builder) text(el *poster.TextElement) []Item {
	content := b.resolver.Text(el, b.row)
	if content == "" {
		return nil
	}
	box := RectOf(el.Position)
	size := el.FontStyle.Size
	if size <= 0 {
		size = defaultFontSize
	}
	style := el.FontStyle
	style.Size = size
	font := FontSpec{Family: style.Family, Weight: style.Weight.Numeric(), Size: size}
	measure := Measure(b.opts.Typesetter, font)

	lineHeight := style.ResolvedLineHeight()
	wrapped := Truncate(WrapText(content, box.Width, measure), el.MaxLines)
	lines := make([]TextLine, 0, len(wrapped))
	for i, s := range wrapped {
		w := measure(s)
		lines = append(lines, TextLine{
			Content: s,
			X:       AlignX(box.X, box.Width, w, el.Align),
			Y:       box.Y + float64(i)*lineHeight,
			Width:   w,
		})
	}
	return []Item{TextItem{
		ElementID:  el.ID,
		Box:        box,
		Font:       font,
		Color:      paint.ColorOr(style.Color, defaultTextColor),
		LineHeight: lineHeight,
		Lines:      lines,
	}}
}

func (b *builder) image(el *poster.ImageElement) []Item {
	src := b.resolver.ImageSource(el, b.row)
	if src == "" {
		return nil
	}
	return []Item{ImageItem{
		ElementID: el.ID,
		Box:       RectOf(el.Position),
		Src:       src,
		Fit:       el.Fit.Normalize(),
		Radius:    el.BorderRadius,
	}}
}

func (b *builder) tags(el *poster.TagElement) []Item {
	tags := b.resolver.Tags(el, b.row)
	if len(tags) == 0 {
		return nil
	}
	style := el.TagStyle
	size := style.FontSize
	if size <= 0 {
		size = defaultTagFontSize
	}
	font := FontSpec{Family: tagFontFamily, Weight: 400, Size: size}
	return []Item{TagsItem{
		ElementID:  el.ID,
		Font:       font,
		Background: paint.ColorOr(style.BackgroundColor, defaultTagBg),
		TextColor:  paint.ColorOr(style.TextColor, defaultTagText),
		Radius:     style.BorderRadius,
		PaddingX:   style.Padding.X,
		Chips:      FlowTags(tags, RectOf(el.Position), style, Measure(b.opts.Typesetter, font)),
	}}
}
