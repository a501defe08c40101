package canvasrenderer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	xdraw "golang.org/x/image/draw"

	"github.com/ByLCY/postergen/layout"
	"github.com/ByLCY/postergen/poster"
)

// composeImage 把 src 按适配策略缩放到 w×h 的离屏图层上。
// 超出图层的部分被裁掉，因此任何策略下图片都不会画出元素框；
// radius > 0 时再用圆角矩形蒙版裁剪四角。
func composeImage(src image.Image, w, h float64, fit poster.Fit, radius float64) *image.NRGBA {
	pw, ph := pixelSize(w), pixelSize(h)
	// 离屏图层按整像素分配，目标矩形按同样的比例换算。
	sx, sy := float64(pw)/w, float64(ph)/h
	sb := src.Bounds()
	target := layout.FitRect(float64(sb.Dx()), float64(sb.Dy()), layout.Rect{Width: w, Height: h}, fit)
	dst := image.Rect(
		int(math.Round(target.X*sx)),
		int(math.Round(target.Y*sy)),
		int(math.Round((target.X+target.Width)*sx)),
		int(math.Round((target.Y+target.Height)*sy)),
	)

	tile := image.NewNRGBA(image.Rect(0, 0, pw, ph))
	if dst.Dx() > 0 && dst.Dy() > 0 {
		xdraw.CatmullRom.Scale(tile, dst, src, sb, xdraw.Over, nil)
	}
	if r := clampRadius(radius, w, h); r > 0 {
		mask := roundedMask(pw, ph, r*math.Min(sx, sy))
		clipped := image.NewNRGBA(tile.Bounds())
		draw.DrawMask(clipped, clipped.Bounds(), tile, image.Point{}, mask, image.Point{}, draw.Src)
		tile = clipped
	}
	return tile
}

// roundedMask 用 canvas 栅格化一个圆角矩形，四角为四分之一圆。
func roundedMask(w, h int, radius float64) *image.RGBA {
	c := canvas.New(float64(w), float64(h))
	ctx := canvas.NewContext(c)
	ctx.SetFillColor(color.RGBA{0, 0, 0, 255})
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(0, 0, canvas.RoundedRectangle(float64(w), float64(h), radius))
	return rasterizer.Draw(c, canvas.DPMM(1), canvas.DefaultColorSpace)
}
