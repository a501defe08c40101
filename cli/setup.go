package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/postergen/asset"
	"github.com/ByLCY/postergen/engine"
	"github.com/ByLCY/postergen/poster"
	"github.com/ByLCY/postergen/source"
	"github.com/ByLCY/postergen/store"
)

// newCompositor 按配置加载字体与资源加载器并创建 Compositor。
// assetDir 非空时覆盖配置中的 assets.base_dir。
func newCompositor(ctx context.Context, assetDir string) (*engine.Compositor, error) {
	cfg := configFromContext(ctx)
	logger := loggerFromContext(ctx)

	reg, err := cfg.FontRegistry()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.AssetOptions(logger)
	if err != nil {
		return nil, err
	}
	if assetDir != "" {
		opts.BaseDir = assetDir
	}
	return engine.New(
		engine.WithLogger(logger),
		engine.WithFonts(reg),
		engine.WithAssets(asset.NewLoader(opts)),
	)
}

// openStore 打开模板仓库，dir 为空时使用配置中的 store.dir。
func openStore(ctx context.Context, dir string) (*store.Store, error) {
	if dir == "" {
		dir = configFromContext(ctx).Store.Dir
	}
	return store.Open(dir, store.WithLogger(loggerFromContext(ctx)))
}

// loadTemplate 优先把 ref 当作文件路径读取，文件不存在时再按 id 在模板仓库中查找。
func loadTemplate(ctx context.Context, ref string) (*poster.Template, error) {
	if _, err := os.Stat(ref); err == nil {
		f, err := os.Open(ref)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return store.Parse(f, poster.FormatFromPath(ref))
	}
	st, err := openStore(ctx, "")
	if err != nil {
		return nil, err
	}
	tpl, err := st.Get(ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("找不到模板 %q（既不是文件，也不在模板目录 %s 中）", ref, st.Dir())
	}
	return tpl, err
}

// loadInputs 读取数据行与字段映射，两者都可以省略。
func loadInputs(rowsPath, mappingsPath string) ([]poster.Row, *poster.Mappings, error) {
	var (
		rows     []poster.Row
		mappings *poster.Mappings
		err      error
	)
	if rowsPath != "" {
		if rows, err = source.LoadRows(rowsPath); err != nil {
			return nil, nil, err
		}
	}
	if mappingsPath != "" {
		if mappings, err = source.LoadMappings(mappingsPath); err != nil {
			return nil, nil, err
		}
	}
	return rows, mappings, nil
}

// pickRow 按记录 id 或序号（从 1 开始）选出一行；都未指定时取第一行，没有数据时返回空行。
func pickRow(rows []poster.Row, recordID string, index int) (poster.Row, error) {
	switch {
	case recordID != "":
		for _, r := range rows {
			if r.RecordID == recordID {
				return r, nil
			}
		}
		return poster.Row{}, fmt.Errorf("找不到记录 %q", recordID)
	case index > 0:
		if index > len(rows) {
			return poster.Row{}, fmt.Errorf("记录序号 %d 超出范围（共 %d 行）", index, len(rows))
		}
		return rows[index-1], nil
	case len(rows) > 0:
		return rows[0], nil
	default:
		return poster.Row{RecordID: "preview"}, nil
	}
}

func isZipPath(p string) bool { return strings.EqualFold(filepath.Ext(p), ".zip") }
