package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/postergen/export"
	"github.com/ByLCY/postergen/poster"
)

type batchOpts struct {
	inputOpts
	output string
	name   string
	report string
}

func newBatchCmd() *cobra.Command {
	opts := batchOpts{output: "output"}

	cmd := &cobra.Command{
		Use:   "batch <template>",
		Short: "逐行批量生成海报",
		Long: `对数据文件中的每一行生成一张海报。单行失败不会中断批处理。
--out 以 .zip 结尾时打包为压缩包，否则写入目录。文件名模板可使用 ${n}、${index}、${recordId}。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			out := cmd.OutOrStdout()

			if opts.rows == "" {
				return fmt.Errorf("需要通过 --data 指定数据文件")
			}
			tpl, err := loadTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			rows, mappings, err := loadInputs(opts.rows, opts.mappings)
			if err != nil {
				return err
			}
			c, err := newCompositor(ctx, opts.assets)
			if err != nil {
				return err
			}

			prog := newProgress(logger, tpl)
			result := c.RenderBatchProgress(ctx, tpl, rows, mappings, prog.row)
			prog.done(fmt.Sprintf("已处理 %d 行", result.Completed))

			for _, r := range result.Results {
				if !r.Success {
					printError(out, "%s: %s", r.RecordID, r.Error)
				}
			}
			if opts.report != "" {
				if err := writeReport(opts.report, result); err != nil {
					return err
				}
			}

			exportOpts := export.Options{NameTemplate: opts.name}
			var written int
			if isZipPath(opts.output) {
				written, err = writeZipFile(opts.output, result.Results, exportOpts)
			} else {
				var paths []string
				paths, err = export.WriteDir(opts.output, result.Results, exportOpts)
				written = len(paths)
			}
			if err != nil {
				return err
			}

			printSuccess(out, "已生成 %d 张海报：%s", written, opts.output)
			if result.Failed > 0 {
				printWarning(out, "%d 行生成失败", result.Failed)
				return fmt.Errorf("%d/%d 行生成失败", result.Failed, result.Total)
			}
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.output, "out", "o", opts.output, "输出目录或 .zip 文件")
	cmd.Flags().StringVar(&opts.name, "name", "", "文件名模板（默认 poster_${n}）")
	cmd.Flags().StringVar(&opts.report, "report", "", "把每行结果写成 JSON 报告")
	return cmd
}

func writeZipFile(path string, results []poster.Result, opts export.Options) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("创建压缩包失败: %w", err)
	}
	n, err := export.WriteZip(f, results, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}

// writeReport 输出不含图片数据的批处理报告。
func writeReport(path string, p poster.BatchProgress) error {
	results := make([]poster.Result, len(p.Results))
	for i, r := range p.Results {
		r.DataURL = ""
		results[i] = r
	}
	p.Results = results
	data, err := poster.Encode(p, poster.FormatFromPath(path))
	if err != nil {
		return err
	}
	return writeOutput(path, data)
}
