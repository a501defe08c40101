package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/postergen/engine"
	"github.com/ByLCY/postergen/layout"
	"github.com/ByLCY/postergen/poster"
)

// inputOpts 是 render/batch/watch 共用的输入参数。
type inputOpts struct {
	rows     string // 数据行文件（JSON/YAML/CSV）
	mappings string // 字段映射文件（JSON/YAML）
	assets   string // 相对图片路径的根目录
}

func (o *inputOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.rows, "data", "d", "", "数据行文件（.json/.yaml/.csv）")
	cmd.Flags().StringVarP(&o.mappings, "mappings", "m", "", "字段映射文件（.json/.yaml）")
	cmd.Flags().StringVar(&o.assets, "assets", "", "相对图片路径的根目录（覆盖配置 assets.base_dir）")
}

type renderOpts struct {
	inputOpts
	output   string
	debug    string
	recordID string
	index    int
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{output: "output/poster.png"}

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "用一行数据渲染一张海报",
		Long:  "template 可以是模板文件路径，也可以是模板仓库中的模板 id。未指定数据时按模板原样渲染。",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			tpl, err := loadTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			rows, mappings, err := loadInputs(opts.rows, opts.mappings)
			if err != nil {
				return err
			}
			row, err := pickRow(rows, opts.recordID, opts.index)
			if err != nil {
				return err
			}
			c, err := newCompositor(ctx, opts.assets)
			if err != nil {
				return err
			}

			prog := newProgress(logger, tpl)
			if opts.debug != "" {
				if err := writeDebug(c, tpl, row, mappings, opts.debug); err != nil {
					return err
				}
			}
			res := c.RenderOne(ctx, tpl, row, mappings)
			if !res.Success {
				return fmt.Errorf("渲染失败: %s", res.Error)
			}
			if err := writeOutput(opts.output, res.Blob); err != nil {
				return err
			}
			prog.done("渲染完成")
			printSuccess(cmd.OutOrStdout(), "已生成海报：%s", opts.output)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.output, "out", "o", opts.output, "PNG 输出路径")
	cmd.Flags().StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	cmd.Flags().StringVarP(&opts.recordID, "record", "r", "", "按记录 id 选择数据行")
	cmd.Flags().IntVar(&opts.index, "index", 0, "按序号（从 1 开始）选择数据行")
	return cmd
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 PNG 文件失败: %w", err)
	}
	return nil
}

func writeDebug(c *engine.Compositor, tpl *poster.Template, row poster.Row, mappings *poster.Mappings, debugPath string) error {
	result, err := c.Layout(tpl, row, mappings)
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
