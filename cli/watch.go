package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 150 * time.Millisecond

type watchOpts struct {
	inputOpts
	output   string
	recordID string
	index    int
}

func newWatchCmd() *cobra.Command {
	opts := watchOpts{output: "output/preview.png"}

	cmd := &cobra.Command{
		Use:   "watch <template-file>",
		Short: "监听模板与数据文件，保存后自动重新渲染",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			out := cmd.OutOrStdout()

			c, err := newCompositor(ctx, opts.assets)
			if err != nil {
				return err
			}
			render := func() {
				tpl, err := loadTemplate(ctx, args[0])
				if err != nil {
					printError(out, "%v", err)
					return
				}
				rows, mappings, err := loadInputs(opts.rows, opts.mappings)
				if err != nil {
					printError(out, "%v", err)
					return
				}
				row, err := pickRow(rows, opts.recordID, opts.index)
				if err != nil {
					printError(out, "%v", err)
					return
				}
				prog := newProgress(logger, tpl)
				res := c.RenderOne(ctx, tpl, row, mappings)
				if !res.Success {
					printError(out, "渲染失败: %s", res.Error)
					return
				}
				if err := writeOutput(opts.output, res.Blob); err != nil {
					printError(out, "%v", err)
					return
				}
				prog.done("已更新 " + opts.output)
			}

			files := []string{args[0], opts.rows, opts.mappings}
			w, err := newFileWatcher(files)
			if err != nil {
				return err
			}
			defer w.Close()

			render()
			printInfo(out, "正在监听 %s，按 Ctrl+C 停止", args[0])
			return w.run(ctx, func(name string) {
				logger.Debug("文件已变更", "file", name)
				render()
			})
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.output, "out", "o", opts.output, "PNG 输出路径")
	cmd.Flags().StringVarP(&opts.recordID, "record", "r", "", "按记录 id 选择数据行")
	cmd.Flags().IntVar(&opts.index, "index", 0, "按序号（从 1 开始）选择数据行")
	return cmd
}

// fileWatcher 监听若干文件。监听的是所在目录，编辑器“写临时文件再重命名”的保存方式也能捕获。
type fileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
}

func newFileWatcher(paths []string) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &fileWatcher{watcher: watcher, files: map[string]bool{}}
	dirs := map[string]bool{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		fw.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("监听 %s 失败: %w", dir, err)
		}
		dirs[dir] = true
	}
	return fw, nil
}

func (w *fileWatcher) Close() error { return w.watcher.Close() }

// run 把短时间内的连续变更合并为一次回调，直到 ctx 结束。
func (w *fileWatcher) run(ctx context.Context, onChange func(name string)) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange(pending)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (w *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	return err == nil && w.files[abs]
}
