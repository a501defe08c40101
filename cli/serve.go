package cli

import (
	"github.com/spf13/cobra"

	"github.com/ByLCY/postergen/server"
)

func newServeCmd() *cobra.Command {
	var addr, storeDir, assetDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 预览与批量生成服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if addr == "" {
				addr = configFromContext(ctx).Server.Addr
			}
			c, err := newCompositor(ctx, assetDir)
			if err != nil {
				return err
			}
			st, err := openStore(ctx, storeDir)
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), "服务地址 http://%s/ ，模板目录 %s，按 Ctrl+C 停止", displayAddr(addr), st.Dir())
			return server.New(c, st, server.WithLogger(logger)).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址（默认读取配置 server.addr）")
	cmd.Flags().StringVar(&storeDir, "store", "", "模板目录（默认读取配置 store.dir）")
	cmd.Flags().StringVar(&assetDir, "assets", "", "相对图片路径的根目录")
	return cmd
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
