// Package export 把批量生成的结果写到目录或 ZIP 压缩包中。
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ByLCY/postergen/binding"
	"github.com/ByLCY/postergen/poster"
)

// ErrNothingToExport 表示没有任何成功的结果。
var ErrNothingToExport = errors.New("没有可导出的海报")

// Options 控制导出文件的命名。
type Options struct {
	// NameTemplate 是文件名模板，可使用 ${n}、${index}、${recordId}。
	// 为空时使用 poster_${n}，n 为成功结果的序号（从 1 开始）。
	NameTemplate string
	// Modified 写入 ZIP 条目的修改时间，为零时使用当前时间。
	Modified time.Time
}

const defaultNameTemplate = "poster_${n}"

// File 是一个待写出的文件。
type File struct {
	Name     string
	RecordID string
	Data     []byte
}

// Files 只保留成功的结果并计算文件名。同名文件追加 _2、_3 等后缀。
func Files(results []poster.Result, opts Options) []File {
	tmpl := opts.NameTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = defaultNameTemplate
	}
	seen := map[string]int{}
	var files []File
	for i, r := range results {
		if !r.Success || len(r.Blob) == 0 {
			continue
		}
		n := len(files) + 1
		name := sanitize(binding.Interpolate(tmpl, map[string]any{
			"n":        n,
			"index":    i + 1,
			"recordId": r.RecordID,
		}))
		if name == "" {
			name = "poster_" + strconv.Itoa(n)
		}
		key := strings.ToLower(name)
		if c := seen[key]; c > 0 {
			name = fmt.Sprintf("%s_%d", name, c+1)
		}
		seen[key]++
		files = append(files, File{Name: name + ".png", RecordID: r.RecordID, Data: r.Blob})
	}
	return files
}

// WriteDir 把成功的结果写入目录，返回写出的文件路径。
func WriteDir(dir string, results []poster.Result, opts Options) ([]string, error) {
	files := Files(results, opts)
	if len(files) == 0 {
		return nil, ErrNothingToExport
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(dir, f.Name)
		if err := os.WriteFile(p, f.Data, 0o644); err != nil {
			return paths, fmt.Errorf("写入 %s 失败: %w", f.Name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// WriteZip 把成功的结果打包为 ZIP 写入 w，返回条目数量。
// PNG 已经压缩过，条目使用 Store 方式避免重复压缩。
func WriteZip(w io.Writer, results []poster.Result, opts Options) (int, error) {
	files := Files(results, opts)
	if len(files) == 0 {
		return 0, ErrNothingToExport
	}
	modified := opts.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	zw := zip.NewWriter(w)
	for _, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			return 0, fmt.Errorf("创建压缩条目失败: %w", err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return 0, fmt.Errorf("写入压缩条目失败: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("生成压缩包失败: %w", err)
	}
	return len(files), nil
}

// sanitize 去掉文件名中的路径分隔符与控制字符。
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	return strings.Trim(name, ". ")
}
