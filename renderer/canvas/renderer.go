package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/postergen/asset"
	"github.com/ByLCY/postergen/fonts"
	"github.com/ByLCY/postergen/layout"
	"github.com/ByLCY/postergen/renderer"
)

// Renderer draws layout results via github.com/tdewolff/canvas and rasterizes them to PNG.
// 画布单位与像素一一对应：栅格化分辨率为 1 像素/单位。
type Renderer struct {
	fonts  *fonts.Registry
	assets *asset.Loader
	logger *log.Logger

	fontMu   sync.Mutex
	families map[string]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	Fonts  *fonts.Registry // 为空时只使用内置字体
	Assets *asset.Loader   // 为空时只能加载 data: URI 与绝对路径
	Logger *log.Logger
}

// NewRenderer creates a renderer. 兜底字体无法加载时返回错误，此时无法渲染任何文本。
func NewRenderer(opts Options) (*Renderer, error) {
	r := &Renderer{
		fonts:    opts.Fonts,
		assets:   opts.Assets,
		logger:   opts.Logger,
		families: map[string]*canvas.FontFamily{},
	}
	if r.fonts == nil {
		r.fonts = fonts.NewRegistry()
	}
	if r.assets == nil {
		r.assets = asset.NewLoader(asset.Options{Logger: opts.Logger})
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if _, err := r.ensureFamily(fonts.FallbackFace(400)); err != nil {
		return nil, fmt.Errorf("加载兜底字体失败: %w", err)
	}
	return r, nil
}

// Render 绘制并编码为 PNG。
func (r *Renderer) Render(ctx context.Context, result *layout.Result) ([]byte, error) {
	img, err := r.Rasterize(ctx, result)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Rasterize 在一块全新的透明画布上按顺序绘制所有绘制项。
// 每次调用使用独立的画布，因此 Renderer 可以并发使用。
func (r *Renderer) Rasterize(ctx context.Context, result *layout.Result) (*image.RGBA, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if result.Width <= 0 || result.Height <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %gx%g", result.Width, result.Height)
	}
	c := canvas.New(result.Width, result.Height)
	cctx := canvas.NewContext(c)
	cctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	for _, item := range result.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch it := item.(type) {
		case layout.FillItem:
			scoped(cctx, func() { r.drawFill(cctx, it) })
		case layout.ImageItem:
			scoped(cctx, func() { r.drawImage(ctx, cctx, it) })
		case layout.TextItem:
			scoped(cctx, func() { err = r.drawText(cctx, it) })
		case layout.TagsItem:
			scoped(cctx, func() { err = r.drawTags(cctx, it) })
		default:
			err = fmt.Errorf("未知的绘制项 %T", item)
		}
		if err != nil {
			return nil, err
		}
	}
	return rasterizer.Draw(c, canvas.DPMM(1), canvas.DefaultColorSpace), nil
}

// scoped 保证绘制状态在 fn 返回（包括 panic）后恢复。
func scoped(ctx *canvas.Context, fn func()) {
	ctx.Push()
	defer ctx.Pop()
	fn()
}

func (r *Renderer) drawFill(ctx *canvas.Context, it layout.FillItem) {
	box := it.Box
	if box.Width <= 0 || box.Height <= 0 {
		return
	}
	if g := it.Paint.Gradient; g != nil {
		w, h := pixelSize(box.Width), pixelSize(box.Height)
		ctx.DrawImage(box.X, box.Y, g.Image(w, h), canvas.DPMM(float64(w)/box.Width))
		return
	}
	ctx.SetFillColor(it.Paint.Color)
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(box.X, box.Y, canvas.Rectangle(box.Width, box.Height))
}

// drawImage 加载失败时只记录警告并跳过该元素，不影响整张海报。
func (r *Renderer) drawImage(ctx context.Context, cctx *canvas.Context, it layout.ImageItem) {
	box := it.Box
	if box.Width <= 0 || box.Height <= 0 {
		return
	}
	src, err := r.assets.Image(ctx, it.Src)
	if err != nil {
		r.logger.Warn("图片加载失败，已跳过", "element", it.ElementID, "err", err)
		return
	}
	tile := composeImage(src, box.Width, box.Height, it.Fit, it.Radius)
	cctx.DrawImage(box.X, box.Y, tile, canvas.DPMM(float64(tile.Bounds().Dx())/box.Width))
}

func (r *Renderer) drawText(ctx *canvas.Context, it layout.TextItem) error {
	face, err := r.fontFace(it.Font, it.Color)
	if err != nil {
		return err
	}
	metrics := face.Metrics()
	for _, line := range it.Lines {
		if line.Content == "" {
			continue
		}
		// 基线位置：以行顶部加上字体上升部（Ascent）
		baseline := line.Y + metrics.Ascent
		ctx.DrawText(line.X, baseline, canvas.NewTextLine(face, line.Content, canvas.Left))
	}
	return nil
}

func (r *Renderer) drawTags(ctx *canvas.Context, it layout.TagsItem) error {
	face, err := r.fontFace(it.Font, it.TextColor)
	if err != nil {
		return err
	}
	metrics := face.Metrics()
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	for _, chip := range it.Chips {
		ctx.SetFillColor(it.Background)
		ctx.DrawPath(chip.X, chip.Y, chipPath(chip.Width, chip.Height, it.Radius))
		// 文本在芯片内垂直居中
		baseline := chip.Y + chip.Height/2 + (metrics.Ascent-metrics.Descent)/2
		ctx.DrawText(chip.X+it.PaddingX, baseline, canvas.NewTextLine(face, chip.Label, canvas.Left))
	}
	return nil
}

func chipPath(w, h, radius float64) *canvas.Path {
	radius = clampRadius(radius, w, h)
	if radius <= 0 {
		return canvas.Rectangle(w, h)
	}
	return canvas.RoundedRectangle(w, h, radius)
}

// clampRadius 把圆角半径限制在短边的一半以内。
func clampRadius(radius, w, h float64) float64 {
	return math.Max(0, math.Min(radius, math.Min(w, h)/2))
}

func pixelSize(v float64) int {
	return max(1, int(math.Ceil(v-1e-9)))
}
