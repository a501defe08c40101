// Package store 把海报模板保存在一个目录中，每个模板一个 JSON 或 YAML 文件。
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ByLCY/postergen/poster"
)

var (
	// ErrNotFound 表示模板不存在。
	ErrNotFound = errors.New("模板不存在")
	// ErrInvalidTemplate 表示导入的模板结构不合法。
	ErrInvalidTemplate = errors.New("无效的模板格式")
)

var extensions = []string{".json", ".yaml", ".yml"}

// Store 是基于目录的模板仓库，可并发使用。
type Store struct {
	dir    string
	logger *log.Logger
	now    func() time.Time

	mu sync.RWMutex
}

// Option 配置 Store。
type Option func(*Store)

// WithLogger 设置日志输出。
func WithLogger(l *log.Logger) Option { return func(s *Store) { s.logger = l } }

// WithClock 替换时间来源，测试用。
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open 打开（必要时创建）模板目录。
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建模板目录失败: %w", err)
	}
	s := &Store{dir: dir, logger: log.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir 返回模板目录。
func (s *Store) Dir() string { return s.dir }

// List 返回所有可解析的模板，按名称排序。无法解析的文件记录警告后跳过。
func (s *Store) List() ([]*poster.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("读取模板目录失败: %w", err)
	}
	var out []*poster.Template
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		tpl, err := readFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("加载模板失败，已跳过", "file", e.Name(), "err", err)
			continue
		}
		out = append(out, tpl)
	}
	slices.SortFunc(out, func(a, b *poster.Template) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Get 按 id 读取模板。
func (s *Store) Get(id string) (*poster.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, ok := s.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return readFile(path)
}

// Save 新增或覆盖模板。id 为空时生成新 id；CreatedAt 仅在首次保存时写入。
// 模板始终以 JSON 写入，同 id 的 YAML 文件会被替换。
func (s *Store) Save(tpl *poster.Template) error {
	if tpl == nil {
		return fmt.Errorf("%w: 模板为空", ErrInvalidTemplate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	} else if err := checkID(tpl.ID); err != nil {
		return err
	}
	now := s.now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
		if old, ok := s.find(tpl.ID); ok {
			if prev, err := readFile(old); err == nil && !prev.CreatedAt.IsZero() {
				tpl.CreatedAt = prev.CreatedAt
			}
		}
	}
	tpl.UpdatedAt = now

	data, err := poster.Encode(tpl, poster.FormatJSON)
	if err != nil {
		return fmt.Errorf("序列化模板失败: %w", err)
	}
	target := filepath.Join(s.dir, tpl.ID+".json")
	if err := writeAtomic(target, data); err != nil {
		return err
	}
	for _, ext := range extensions[1:] {
		_ = os.Remove(filepath.Join(s.dir, tpl.ID+ext))
	}
	s.logger.Debug("模板已保存", "id", tpl.ID, "name", tpl.Name)
	return nil
}

// Delete 删除模板的所有文件。
func (s *Store) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for _, ext := range extensions {
		err := os.Remove(filepath.Join(s.dir, id+ext))
		switch {
		case err == nil:
			removed = true
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("删除模板失败: %w", err)
		}
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Import 解析并校验模板后保存。id、name 与 elements 为必填项。
func (s *Store) Import(r io.Reader, format poster.Format) (*poster.Template, error) {
	tpl, err := Parse(r, format)
	if err != nil {
		return nil, err
	}
	if err := s.Save(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Export 以缩进格式导出模板。
func (s *Store) Export(id string, format poster.Format) ([]byte, error) {
	tpl, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return poster.Encode(tpl, format)
}

// Parse 解码并校验一份模板，不写入存储。
func Parse(r io.Reader, format poster.Format) (*poster.Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取模板失败: %w", err)
	}
	var presence struct {
		Elements any `json:"elements"`
	}
	if err := poster.Decode(data, format, &presence); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if presence.Elements == nil {
		return nil, fmt.Errorf("%w: 缺少 elements", ErrInvalidTemplate)
	}
	var tpl poster.Template
	if err := poster.Decode(data, format, &tpl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	return &tpl, nil
}

func (s *Store) find(id string) (string, bool) {
	if checkID(id) != nil {
		return "", false
	}
	for _, ext := range extensions {
		p := filepath.Join(s.dir, id+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func readFile(path string) (*poster.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取模板失败: %w", err)
	}
	return Parse(bytes.NewReader(data), poster.FormatFromPath(path))
}

// checkID 拒绝会逃出模板目录的 id。
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: 非法的模板 id %q", ErrInvalidTemplate, id)
	}
	return nil
}

// writeAtomic 先写临时文件再重命名，避免读到写了一半的模板。
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tpl-*")
	if err != nil {
		return fmt.Errorf("写入模板失败: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入模板失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入模板失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("写入模板失败: %w", err)
	}
	return nil
}
