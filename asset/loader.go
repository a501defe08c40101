// Package asset 加载模板引用的图片：http(s) 地址、本地路径、data: URI 与 built-in: 内置资源。
//
// 远程资源带重试与磁盘缓存；解码后的图片在内存中缓存，并发的相同请求只下载一次。
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound = errors.New("资源不存在")
	ErrFetch    = errors.New("资源获取失败")
	ErrDecode   = errors.New("图片解码失败")
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRetries    = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultMemEntries = 64
	maxAssetBytes     = 32 << 20
)

// Options 配置资源加载器。
type Options struct {
	BaseDir    string            // 相对路径的根目录；为空时不允许使用相对路径
	Builtin    map[string][]byte // 通过 built-in:<name> 访问的内置资源
	HTTPClient *http.Client
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Cache      Cache // 远程资源的磁盘缓存，可为空
	CacheTTL   time.Duration
	MemEntries int // 内存中保留的已解码图片数量
	Logger     *log.Logger
}

// Loader 按地址加载并解码图片，并发安全。
type Loader struct {
	opts   Options
	client *http.Client
	group  singleflight.Group

	mu     sync.Mutex
	images map[string]image.Image
	order  []string
}

// NewLoader 创建加载器，未设置的选项使用默认值。
func NewLoader(opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.MemEntries <= 0 {
		opts.MemEntries = defaultMemEntries
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Loader{
		opts:   opts,
		client: client,
		images: map[string]image.Image{},
	}
}

// Image 返回解码后的图片。JPEG 的 EXIF 方向会被自动校正。
// 同一地址的并发请求共享一次加载；共享的加载不随某个调用方取消而中止，
// 每个调用方只在自己的 ctx 结束时提前返回。
func (l *Loader) Image(ctx context.Context, src string) (image.Image, error) {
	if img, ok := l.cached(src); ok {
		return img, nil
	}
	ch := l.group.DoChan(src, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.fetchBudget())
		defer cancel()
		data, err := l.Bytes(fetchCtx, src)
		if err != nil {
			return nil, err
		}
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, displaySrc(src), err)
		}
		l.remember(src, img)
		return img, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(image.Image), nil
	}
}

// fetchBudget 是一次共享加载的总时限：每次尝试的超时加上各次重试的等待。
func (l *Loader) fetchBudget() time.Duration {
	budget := time.Duration(l.opts.Retries) * l.opts.Timeout
	for i, delay := 1, l.opts.RetryDelay; i < l.opts.Retries; i, delay = i+1, delay*2 {
		budget += delay
	}
	return budget
}

// Bytes 返回资源的原始字节。
func (l *Loader) Bytes(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, fmt.Errorf("%w: 空地址", ErrNotFound)
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:"):
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		blob, ok := l.opts.Builtin[name]
		if !ok {
			return nil, fmt.Errorf("%w: 找不到内置资源 built-in:%s", ErrNotFound, name)
		}
		return blob, nil
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		return l.fetchRemote(ctx, src)
	default:
		return l.readFile(src)
	}
}

func (l *Loader) readFile(src string) ([]byte, error) {
	path := src
	if u, err := url.Parse(src); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	if !filepath.IsAbs(path) {
		if l.opts.BaseDir == "" {
			return nil, fmt.Errorf("%w: 未指定资源目录时不允许直接使用相对路径：%s", ErrNotFound, src)
		}
		path = filepath.Join(l.opts.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: 读取 %s: %v", ErrFetch, src, err)
	}
	return data, nil
}

func (l *Loader) fetchRemote(ctx context.Context, src string) ([]byte, error) {
	if l.opts.Cache != nil {
		if data, ok, err := l.opts.Cache.Get(ctx, src); err == nil && ok {
			return data, nil
		}
	}
	data, err := l.download(ctx, src)
	if err != nil {
		return nil, err
	}
	if l.opts.Cache != nil {
		if err := l.opts.Cache.Set(ctx, src, data, l.opts.CacheTTL); err != nil {
			l.opts.Logger.Warn("写入资源缓存失败", "src", src, "err", err)
		}
	}
	return data, nil
}

func (l *Loader) get(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transient(fmt.Errorf("%w: %s: %v", ErrFetch, src, err))
	}
	defer resp.Body.Close()
	if err := checkStatus(src, resp.StatusCode); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, transient(fmt.Errorf("%w: 读取响应 %s: %v", ErrFetch, src, err))
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("%w: %s 超过 %d 字节", ErrFetch, src, maxAssetBytes)
	}
	return data, nil
}

func checkStatus(src string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: %s (status %d)", ErrNotFound, src, code)
	case code >= 500 || code == http.StatusTooManyRequests:
		return transient(fmt.Errorf("%w: %s (status %d)", ErrFetch, src, code))
	default:
		return fmt.Errorf("%w: %s (status %d)", ErrFetch, src, code)
	}
}

// decodeDataURI 解析 data:[<mediatype>][;base64],<data>。
func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: data URI 缺少逗号", ErrDecode)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: data URI base64: %v", ErrDecode, err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: data URI: %v", ErrDecode, err)
	}
	return []byte(text), nil
}

func (l *Loader) cached(src string) (image.Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	img, ok := l.images[src]
	return img, ok
}

// remember 缓存解码结果，超出容量时淘汰最早加入的条目。data: URI 不缓存。
func (l *Loader) remember(src string, img image.Image) {
	if strings.HasPrefix(src, "data:") {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.images[src]; ok {
		return
	}
	if len(l.order) >= l.opts.MemEntries {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.images, oldest)
	}
	l.images[src] = img
	l.order = append(l.order, src)
}

// displaySrc 截短 data: URI，便于日志与错误信息阅读。
func displaySrc(src string) string {
	if len(src) > 64 && strings.HasPrefix(src, "data:") {
		return src[:48] + "..."
	}
	return src
}
