package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ByLCY/postergen/config"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion 设置 --version 输出的版本信息，通常由 main 通过 ldflags 注入。
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute 运行命令行。ctx 结束（例如收到 Ctrl+C）时 serve 与 watch 会退出。
func Execute(ctx context.Context) error {
	return newRootCmd(os.Stderr).ExecuteContext(ctx)
}

// newRootCmd 构建命令树；日志写到 logOut。
func newRootCmd(logOut io.Writer) *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "postergen",
		Short:        "postergen 用模板与表格数据批量生成海报",
		Long:         `postergen 把海报模板与数据行合成为 PNG 图片，支持单张预览、批量导出、文件监听与 HTTP 服务。`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("POSTERGEN_CONFIG")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			level := cfg.Level()
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withSession(cmd.Context(), newLogger(logOut, level), cfg))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("postergen %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML 配置文件路径（默认读取 $POSTERGEN_CONFIG）")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newTemplateCmd())
	root.AddCommand(newPresetsCmd())

	return root
}
