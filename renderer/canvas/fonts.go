package canvasrenderer

import (
	"image/color"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/postergen/fonts"
	"github.com/ByLCY/postergen/layout"
)

var measureColor = color.RGBA{30, 30, 30, 255}

// TextWidth 实现 layout.Typesetter，使用与绘制相同的字体面测量宽度（像素）。
func (r *Renderer) TextWidth(s string, font layout.FontSpec) float64 {
	face, err := r.fontFace(font, measureColor)
	if err != nil {
		return 0
	}
	return face.TextWidth(s)
}

// FontMetrics 实现 layout.Typesetter。
func (r *Renderer) FontMetrics(font layout.FontSpec) layout.Metrics {
	face, err := r.fontFace(font, measureColor)
	if err != nil {
		return layout.Metrics{}
	}
	m := face.Metrics()
	return layout.Metrics{Ascent: m.Ascent, Descent: m.Descent}
}

// fontFace 解析字体族与字重，加载失败时退回内置字体。
// 字号以像素给出，字体面需要 pt，这里做一次 px→pt。
func (r *Renderer) fontFace(font layout.FontSpec, col color.Color) (*canvas.FontFace, error) {
	selected := r.fonts.Resolve(font.Family, font.Weight)
	family, err := r.ensureFamily(selected)
	if err != nil && !selected.Fallback {
		r.logger.Warn("字体加载失败，使用内置字体", "family", selected.Family, "weight", selected.Weight, "err", err)
		selected = fonts.FallbackFace(font.Weight)
		family, err = r.ensureFamily(selected)
	}
	if err != nil {
		return nil, err
	}
	style := weightStyle(selected.Weight)
	return family.Face(layout.PxToPt(font.Size), col, style, canvas.FontNormal), nil
}

// ensureFamily 为每个 family|weight 组合缓存一个 canvas.FontFamily。
func (r *Renderer) ensureFamily(face fonts.Face) (*canvas.FontFamily, error) {
	key := face.Key()
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.families[key]; ok {
		return family, nil
	}
	family := canvas.NewFontFamily(key)
	if err := family.LoadFont(face.Data, 0, weightStyle(face.Weight)); err != nil {
		return nil, err
	}
	r.families[key] = family
	return family, nil
}

// weightStyle 把 CSS 数值字重映射为 canvas 字体样式。
func weightStyle(weight int) canvas.FontStyle {
	switch {
	case weight >= 900:
		return canvas.FontBlack
	case weight >= 800:
		return canvas.FontExtraBold
	case weight >= 700:
		return canvas.FontBold
	case weight >= 600:
		return canvas.FontSemiBold
	case weight >= 500:
		return canvas.FontMedium
	case weight > 0 && weight <= 300:
		return canvas.FontLight
	default:
		return canvas.FontRegular
	}
}
