// Package cli 实现 postergen 命令行。
//
// 主要命令：
//   - render：用一行数据渲染一张海报
//   - batch：逐行批量生成，输出到目录或 ZIP
//   - watch：监听模板与数据文件，变更后自动重新渲染
//   - serve：启动 HTTP 预览服务
//   - template：管理模板仓库（list/import/export/delete）
//   - presets：列出背景预设
//
// 所有命令支持 --verbose (-v) 与 --config；日志器与配置作为一次会话放在 context 中传递。
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/postergen/config"
	"github.com/ByLCY/postergen/poster"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          "postergen",
	})
}

// progress 跟踪一个模板的渲染任务，日志里都带上模板 id。
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger, tpl *poster.Template) *progress {
	return &progress{logger: l.With("template", tpl.ID), start: time.Now()}
}

// row 在批处理每完成一行后调用，按调试级别输出进度与预计剩余时间。
func (p *progress) row(bp poster.BatchProgress) {
	if bp.Completed == 0 || bp.Total == 0 {
		return
	}
	elapsed := time.Since(p.start)
	remaining := elapsed / time.Duration(bp.Completed) * time.Duration(bp.Total-bp.Completed)
	p.logger.Debug("进度",
		"record", bp.Current,
		"done", fmt.Sprintf("%d/%d", bp.Completed, bp.Total),
		"failed", bp.Failed,
		"eta", remaining.Round(100*time.Millisecond))
}

// done 输出 msg 与耗时，例如 "已处理 12 行 (1.234s)"。
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// session 是一次命令执行共享的日志器与配置。
type session struct {
	logger *log.Logger
	cfg    *config.Config
}

type sessionKey struct{}

func withSession(ctx context.Context, l *log.Logger, cfg *config.Config) context.Context {
	return context.WithValue(ctx, sessionKey{}, session{logger: l, cfg: cfg})
}

func sessionFrom(ctx context.Context) session {
	s, _ := ctx.Value(sessionKey{}).(session)
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	return s
}

func loggerFromContext(ctx context.Context) *log.Logger { return sessionFrom(ctx).logger }

func configFromContext(ctx context.Context) *config.Config { return sessionFrom(ctx).cfg }
