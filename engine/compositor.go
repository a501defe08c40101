// Package engine 把模板、数据行与字段映射合成为海报图片，并支持逐行批量生成。
package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime/debug"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/postergen/asset"
	"github.com/ByLCY/postergen/fonts"
	"github.com/ByLCY/postergen/layout"
	"github.com/ByLCY/postergen/poster"
	canvasrenderer "github.com/ByLCY/postergen/renderer/canvas"
)

const dataURLPrefix = "data:image/png;base64,"

// Option 配置 Compositor。
type Option func(*Compositor)

// WithLogger 设置日志输出。
func WithLogger(l *log.Logger) Option { return func(c *Compositor) { c.logger = l } }

// WithFonts 设置字体注册表。
func WithFonts(reg *fonts.Registry) Option { return func(c *Compositor) { c.fonts = reg } }

// WithAssets 设置图片加载器。
func WithAssets(l *asset.Loader) Option { return func(c *Compositor) { c.assets = l } }

// Compositor 负责单张海报的合成。每次渲染使用独立画布，可并发使用。
type Compositor struct {
	logger   *log.Logger
	fonts    *fonts.Registry
	assets   *asset.Loader
	renderer *canvasrenderer.Renderer
}

// New 创建 Compositor。兜底字体无法加载时返回错误，此时不会处理任何数据行。
func New(opts ...Option) (*Compositor, error) {
	c := &Compositor{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.assets == nil {
		c.assets = asset.NewLoader(asset.Options{Logger: c.logger})
	}
	r, err := canvasrenderer.NewRenderer(canvasrenderer.Options{
		Fonts:  c.fonts,
		Assets: c.assets,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化渲染器失败: %w", err)
	}
	c.renderer = r
	return c, nil
}

// Layout 只做布局计算，不绘制。用于调试输出。
func (c *Compositor) Layout(tpl *poster.Template, row poster.Row, mappings *poster.Mappings) (*layout.Result, error) {
	return layout.Build(tpl, row, mappings, layout.BuildOptions{Typesetter: c.renderer, Logger: c.logger})
}

// RenderOne 渲染一条记录。任何错误或 panic 都会转为失败的结果，不会向外传播。
func (c *Compositor) RenderOne(ctx context.Context, tpl *poster.Template, row poster.Row, mappings *poster.Mappings) (res poster.Result) {
	res.RecordID = row.RecordID
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("渲染时发生 panic", "record", row.RecordID, "panic", p, "stack", string(debug.Stack()))
			res = failed(row.RecordID, fmt.Errorf("渲染失败: %v", p))
		}
	}()

	result, err := c.Layout(tpl, row, mappings)
	if err != nil {
		return failed(row.RecordID, err)
	}
	blob, err := c.renderer.Render(ctx, result)
	if err != nil {
		return failed(row.RecordID, err)
	}
	return poster.Result{
		RecordID: row.RecordID,
		Success:  true,
		Blob:     blob,
		DataURL:  dataURLPrefix + base64.StdEncoding.EncodeToString(blob),
	}
}

func failed(recordID string, err error) poster.Result {
	return poster.Result{RecordID: recordID, Success: false, Error: err.Error()}
}
