package layout

import (
	"encoding/json"
	"os"
)

type debugItem struct {
	Kind ItemKind `json:"kind"`
	Item Item     `json:"item"`
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。每个绘制项附带 kind 字段。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	items := make([]debugItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, debugItem{Kind: it.Kind(), Item: it})
	}
	doc := struct {
		Width  float64     `json:"width"`
		Height float64     `json:"height"`
		Items  []debugItem `json:"items"`
	}{res.Width, res.Height, items}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
