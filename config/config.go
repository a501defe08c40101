// Package config 读取 postergen 的 TOML 配置文件。
//
// 示例：
//
//	log_level = "info"
//
//	[assets]
//	base_dir  = "./assets"
//	cache_dir = "~/.cache/postergen"
//	cache_ttl = "24h"
//	timeout   = "15s"
//	retries   = 3
//
//	[[fonts]]
//	family = "Noto Sans SC"
//	weight = 700
//	path   = "fonts/NotoSansSC-Bold.otf"
//
//	[store]
//	dir = "./templates"
//
//	[server]
//	addr = ":8080"
//
// 配置文件中的相对路径以配置文件所在目录为基准。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/ByLCY/postergen/asset"
	"github.com/ByLCY/postergen/fonts"
)

// ErrUnknownKey 表示配置文件中存在无法识别的键。
var ErrUnknownKey = errors.New("未知的配置项")

type Config struct {
	LogLevel string `toml:"log_level"`
	Assets   Assets `toml:"assets"`
	Fonts    []Font `toml:"fonts"`
	Store    Store  `toml:"store"`
	Server   Server `toml:"server"`
}

type Assets struct {
	BaseDir  string        `toml:"base_dir"`
	CacheDir string        `toml:"cache_dir"`
	CacheTTL time.Duration `toml:"cache_ttl"`
	Timeout  time.Duration `toml:"timeout"`
	Retries  int           `toml:"retries"`
}

// Font 把一个字体文件注册到指定字体族与字重；Family 为空时读取字体自带的名称。
type Font struct {
	Family string `toml:"family"`
	Weight int    `toml:"weight"`
	Path   string `toml:"path"`
}

type Store struct {
	Dir string `toml:"dir"`
}

type Server struct {
	Addr string `toml:"addr"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Assets: Assets{
			CacheTTL: 24 * time.Hour,
			Timeout:  15 * time.Second,
			Retries:  3,
		},
		Store:  Store{Dir: "templates"},
		Server: Server{Addr: ":8080"},
	}
}

// Load 读取配置文件并覆盖默认值。path 为空时直接返回默认配置。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Assets.Retries < 0 {
		errs = append(errs, fmt.Errorf("assets.retries 不能为负数"))
	}
	for i, f := range c.Fonts {
		if f.Path == "" {
			errs = append(errs, fmt.Errorf("fonts[%d].path 不能为空", i))
		}
		if f.Weight != 0 && (f.Weight < 100 || f.Weight > 900) {
			errs = append(errs, fmt.Errorf("fonts[%d].weight 必须在 100~900 之间", i))
		}
	}
	return errors.Join(errs...)
}

// Level 返回日志级别，无法解析时为 info。
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// AssetOptions 生成资源加载器的选项；配置了 cache_dir 时启用磁盘缓存。
func (c *Config) AssetOptions(logger *log.Logger) (asset.Options, error) {
	opts := asset.Options{
		BaseDir:  c.Assets.BaseDir,
		Timeout:  c.Assets.Timeout,
		Retries:  c.Assets.Retries,
		CacheTTL: c.Assets.CacheTTL,
		Logger:   logger,
	}
	if c.Assets.CacheDir != "" {
		cache, err := asset.NewFileCache(c.Assets.CacheDir)
		if err != nil {
			return opts, err
		}
		opts.Cache = cache
	}
	return opts, nil
}

// FontRegistry 创建字体注册表并加载配置的所有字体。
func (c *Config) FontRegistry() (*fonts.Registry, error) {
	reg := fonts.NewRegistry()
	for _, f := range c.Fonts {
		weight := f.Weight
		if weight == 0 {
			weight = 400
		}
		if err := reg.RegisterFile(f.Family, weight, f.Path); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (c *Config) resolvePaths(base string) {
	c.Assets.BaseDir = resolve(base, c.Assets.BaseDir)
	c.Assets.CacheDir = resolve(base, c.Assets.CacheDir)
	c.Store.Dir = resolve(base, c.Store.Dir)
	for i := range c.Fonts {
		c.Fonts[i].Path = resolve(base, c.Fonts[i].Path)
	}
}

func resolve(base, p string) string {
	if p == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
