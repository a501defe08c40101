package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ByLCY/postergen/poster"
)

func newTemplateCmd() *cobra.Command {
	var storeDir string

	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"tpl"},
		Short:   "管理模板仓库",
	}
	cmd.PersistentFlags().StringVar(&storeDir, "store", "", "模板目录（默认读取配置 store.dir）")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出模板",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), storeDir)
			if err != nil {
				return err
			}
			list, err := st.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				printInfo(out, "模板目录 %s 为空", st.Dir())
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{
					t.ID,
					t.Name,
					fmt.Sprintf("%gx%g", t.Width, t.Height),
					strconv.Itoa(len(t.Elements)),
					formatTime(t.UpdatedAt),
				})
			}
			printTable(out, []string{"ID", "名称", "尺寸", "元素", "更新时间"}, rows)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>...",
		Short: "导入模板文件（JSON/YAML）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), storeDir)
			if err != nil {
				return err
			}
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				tpl, err := st.Import(f, poster.FormatFromPath(path))
				f.Close()
				if err != nil {
					return fmt.Errorf("导入 %s 失败: %w", path, err)
				}
				printSuccess(cmd.OutOrStdout(), "已导入 %s（%s）", tpl.Name, tpl.ID)
			}
			return nil
		},
	})

	var format, output string
	export := &cobra.Command{
		Use:   "export <id>",
		Short: "导出模板",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := poster.FormatJSON
			if output != "" {
				f = poster.FormatFromPath(output)
			}
			if format != "" {
				var err error
				if f, err = poster.ParseFormat(format); err != nil {
					return err
				}
			}
			st, err := openStore(cmd.Context(), storeDir)
			if err != nil {
				return err
			}
			data, err := st.Export(args[0], f)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := writeOutput(output, data); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "已导出到 %s", output)
			return nil
		},
	}
	export.Flags().StringVarP(&format, "format", "f", "", "json 或 yaml（默认按输出文件扩展名）")
	export.Flags().StringVarP(&output, "out", "o", "", "输出文件，默认写到标准输出")
	cmd.AddCommand(export)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>...",
		Short: "删除模板",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), storeDir)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := st.Delete(id); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "已删除 %s", id)
			}
			return nil
		},
	})

	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
