package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	"github.com/ByLCY/postergen/paint"
)

func newPresetsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "列出背景预设（可直接写入 backgroundColor）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := paint.Presets(paint.PresetKind(kind))
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				rows = append(rows, []string{swatch(p.Value) + " " + p.ID, p.Name, p.Value})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "名称", "值"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "solid 或 gradient，默认全部")
	return cmd
}

// swatch 用预设的颜色（渐变取起点色）画一个色块。
func swatch(value string) string {
	p, err := paint.Parse(value)
	if err != nil {
		return "  "
	}
	c := p.Color
	if p.Gradient != nil {
		c = p.Gradient.At(0)
	}
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "  "
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(cf.Hex())).Render("  ")
}
