package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ByLCY/postergen/poster"
)

// ProgressFunc 在每行处理完成后调用，completed 统计成功与失败的行数。
type ProgressFunc func(completed, total int)

// RenderBatch 按输入顺序逐行渲染，返回与 rows 一一对应的结果。
// 单行失败不影响其余行；ctx 取消后剩余行均记为失败。
func (c *Compositor) RenderBatch(ctx context.Context, tpl *poster.Template, rows []poster.Row, mappings *poster.Mappings, onProgress ProgressFunc) []poster.Result {
	var fn func(poster.BatchProgress)
	if onProgress != nil {
		fn = func(p poster.BatchProgress) { onProgress(p.Completed, p.Total) }
	}
	return c.RenderBatchProgress(ctx, tpl, rows, mappings, fn).Results
}

// RenderBatchProgress 与 RenderBatch 相同，但回调收到完整的进度快照。
// 回调中的 panic 会被记录并忽略，批处理继续进行。
func (c *Compositor) RenderBatchProgress(ctx context.Context, tpl *poster.Template, rows []poster.Row, mappings *poster.Mappings, onProgress func(poster.BatchProgress)) poster.BatchProgress {
	batchID := uuid.NewString()
	logger := c.logger.With("batch", batchID)
	start := time.Now()

	progress := poster.BatchProgress{
		Total:   len(rows),
		Results: make([]poster.Result, 0, len(rows)),
	}
	logger.Info("开始批量生成", "template", templateID(tpl), "rows", len(rows))

	for _, row := range rows {
		progress.Current = row.RecordID
		var res poster.Result
		if err := ctx.Err(); err != nil {
			res = failed(row.RecordID, fmt.Errorf("已取消: %w", err))
		} else {
			res = c.RenderOne(ctx, tpl, row, mappings)
		}
		if !res.Success {
			progress.Failed++
			logger.Warn("记录生成失败", "record", row.RecordID, "err", res.Error)
		}
		progress.Results = append(progress.Results, res)
		progress.Completed++
		c.notify(logger, onProgress, progress)
	}
	progress.Current = ""

	logger.Info("批量生成完成",
		"total", progress.Total,
		"failed", progress.Failed,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return progress
}

// notify 调用进度回调；回调拿到的是快照，修改它不会影响批处理。
func (c *Compositor) notify(logger *log.Logger, fn func(poster.BatchProgress), p poster.BatchProgress) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("进度回调发生 panic，已忽略", "panic", r)
		}
	}()
	snapshot := p
	snapshot.Results = append([]poster.Result(nil), p.Results...)
	fn(snapshot)
}

func templateID(tpl *poster.Template) string {
	if tpl == nil {
		return ""
	}
	return tpl.ID
}
