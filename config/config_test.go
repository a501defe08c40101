package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "postergen.toml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Assets.Retries != 3 || cfg.Level() != log.InfoLevel {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	p := writeConfig(t, `
log_level = "debug"

[assets]
base_dir = "assets"
cache_ttl = "2h"
timeout = "5s"
retries = 5

[[fonts]]
family = "Brand"
weight = 700
path = "fonts/brand.ttf"

[server]
addr = "127.0.0.1:9000"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := filepath.Dir(p)
	if cfg.Level() != log.DebugLevel {
		t.Fatalf("unexpected level %v", cfg.Level())
	}
	if cfg.Assets.BaseDir != filepath.Join(dir, "assets") {
		t.Fatalf("base_dir should resolve against the config file, got %q", cfg.Assets.BaseDir)
	}
	if cfg.Assets.CacheTTL != 2*time.Hour || cfg.Assets.Timeout != 5*time.Second || cfg.Assets.Retries != 5 {
		t.Fatalf("unexpected assets %+v", cfg.Assets)
	}
	if len(cfg.Fonts) != 1 || cfg.Fonts[0].Path != filepath.Join(dir, "fonts", "brand.ttf") || cfg.Fonts[0].Weight != 700 {
		t.Fatalf("unexpected fonts %+v", cfg.Fonts)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	// 未设置的项保留默认值
	if cfg.Store.Dir != filepath.Join(dir, "templates") {
		t.Fatalf("unexpected store dir %q", cfg.Store.Dir)
	}

	opts, err := cfg.AssetOptions(nil)
	if err != nil {
		t.Fatalf("AssetOptions: %v", err)
	}
	if opts.Cache != nil || opts.Retries != 5 {
		t.Fatalf("unexpected asset options %+v", opts)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	p := writeConfig(t, "log_level = \"info\"\n[server]\nport = 80\n")
	_, err := Load(p)
	if !errors.Is(err, ErrUnknownKey) || !strings.Contains(err.Error(), "server.port") {
		t.Fatalf("expected ErrUnknownKey mentioning server.port, got %v", err)
	}
}

func TestLoadValidates(t *testing.T) {
	p := writeConfig(t, "log_level = \"loud\"\n[[fonts]]\nweight = 1000\n")
	_, err := Load(p)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"log_level", "fonts[0].path", "fonts[0].weight"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}

func TestFontRegistryReportsMissingFile(t *testing.T) {
	cfg := Default()
	cfg.Fonts = []Font{{Family: "x", Path: filepath.Join(t.TempDir(), "missing.ttf")}}
	if _, err := cfg.FontRegistry(); err == nil {
		t.Fatalf("expected error for missing font file")
	}
}
