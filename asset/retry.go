package asset

import (
	"context"
	"errors"
	"time"
)

// transientError 标记可以重试的下载失败：网络错误、429 与 5xx 响应。
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error { return &transientError{err: err} }

// download 下载远程图片，临时失败时最多尝试 Retries 次，间隔从 RetryDelay 开始逐次翻倍。
// 每次重试都会带上图片地址记录一条警告，批量生成时便于定位是哪张图拖慢了进度。
func (l *Loader) download(ctx context.Context, src string) ([]byte, error) {
	delay := l.opts.RetryDelay
	for attempt := 1; ; attempt++ {
		data, err := l.get(ctx, src)
		var te *transientError
		if err == nil || !errors.As(err, &te) {
			return data, err
		}
		if attempt >= l.opts.Retries {
			l.opts.Logger.Warn("图片下载失败，已放弃", "src", src, "attempts", attempt, "err", te.err)
			return nil, err
		}
		l.opts.Logger.Warn("图片下载失败，稍后重试", "src", src, "attempt", attempt, "wait", delay, "err", te.err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
