package cli

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/klauspost/compress/zip"

	"github.com/ByLCY/postergen/config"
	"github.com/ByLCY/postergen/poster"
)

const testTemplate = `{
  "id": "cli-card", "name": "CLI Card", "width": 64, "height": 48,
  "elements": [
    {"id": "bg", "type": "background", "position": {"x": 0, "y": 0, "width": 64, "height": 48}, "backgroundColor": "linear-gradient(135deg, #667eea 0%, #764ba2 100%)"},
    {"id": "title", "type": "text", "position": {"x": 4, "y": 4, "width": 56, "height": 20},
     "content": "-", "fontStyle": {"family": "sans-serif", "size": 12, "color": "#fff"}}
  ]
}`

const testRows = `[
  {"recordId": "a", "fields": {"t": "Alpha"}},
  {"recordId": "b", "fields": {"t": "Beta"}}
]`

const testMappings = `[{"elementId": "title", "fieldKey": "t", "fieldType": "text"}]`

type fixture struct {
	dir, tpl, rows, mappings, store string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	t.Setenv("POSTERGEN_CONFIG", "")
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		tpl:      filepath.Join(dir, "card.json"),
		rows:     filepath.Join(dir, "rows.json"),
		mappings: filepath.Join(dir, "mappings.json"),
		store:    filepath.Join(dir, "store"),
	}
	for path, content := range map[string]string{f.tpl: testTemplate, f.rows: testRows, f.mappings: testMappings} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

// run 执行命令并返回标准输出。
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(io.Discard)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2026-01-01")
	if version != "1.0.0" || commit != "abc123" || date != "2026-01-01" {
		t.Fatalf("version info not stored: %q %q %q", version, commit, date)
	}
	SetVersion("", "", "")
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	if loggerFromContext(ctx) != log.Default() {
		t.Fatalf("expected default logger")
	}
	l := newLogger(io.Discard, log.DebugLevel)
	cfg := config.Default()
	cfg.Store.Dir = "elsewhere"
	ctx = withSession(ctx, l, cfg)
	if loggerFromContext(ctx) != l || configFromContext(ctx).Store.Dir != "elsewhere" {
		t.Fatalf("session not attached to context")
	}
	if configFromContext(ctx).Server.Addr == "" {
		t.Fatalf("expected default config")
	}
}

func TestProgressLogsRowsWithTemplate(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.DebugLevel), &poster.Template{ID: "card"})
	prog.row(poster.BatchProgress{Total: 4})
	prog.row(poster.BatchProgress{Total: 4, Completed: 1, Current: "a"})
	prog.done("已处理 1 行")
	out := buf.String()
	if strings.Count(out, "template=card") != 2 {
		t.Fatalf("each line should carry the template id:\n%s", out)
	}
	if !strings.Contains(out, "done=1/4") || !strings.Contains(out, "record=a") || !strings.Contains(out, "eta=") {
		t.Fatalf("unexpected progress line:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "out", "b.png")
	debug := filepath.Join(f.dir, "debug", "layout.json")
	stdout, err := run(t, "render", f.tpl, "-d", f.rows, "-m", f.mappings, "-r", "b", "-o", out, "--debug", debug)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(stdout, out) {
		t.Fatalf("output should mention the file, got %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil || img.Bounds().Dx() != 64 {
		t.Fatalf("unexpected PNG: %v", err)
	}
	dbg, err := os.ReadFile(debug)
	if err != nil || !strings.Contains(string(dbg), `"Beta"`) {
		t.Fatalf("debug JSON should contain the resolved text, got %s (%v)", dbg, err)
	}

	if _, err := run(t, "render", f.tpl, "-d", f.rows, "-r", "zzz", "-o", out); err == nil {
		t.Fatalf("unknown record should fail")
	}
}

func TestBatchCommandZip(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "posters.zip")
	report := filepath.Join(f.dir, "report.json")
	if _, err := run(t, "batch", f.tpl, "-d", f.rows, "-m", f.mappings, "-o", out, "--name", "card_${recordId}", "--report", report); err != nil {
		t.Fatalf("batch: %v", err)
	}
	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 || zr.File[0].Name != "card_a.png" || zr.File[1].Name != "card_b.png" {
		t.Fatalf("unexpected entries %v", zr.File)
	}
	rep, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if strings.Contains(string(rep), "dataUrl") || !strings.Contains(string(rep), `"completed": 2`) {
		t.Fatalf("unexpected report:\n%s", rep)
	}
}

func TestBatchCommandDirRequiresData(t *testing.T) {
	f := newFixture(t)
	if _, err := run(t, "batch", f.tpl, "-o", filepath.Join(f.dir, "out")); err == nil {
		t.Fatalf("batch without --data should fail")
	}
}

func TestTemplateCommands(t *testing.T) {
	f := newFixture(t)
	if _, err := run(t, "template", "import", "--store", f.store, f.tpl); err != nil {
		t.Fatalf("import: %v", err)
	}
	list, err := run(t, "template", "list", "--store", f.store)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(list, "cli-card") || !strings.Contains(list, "64x48") {
		t.Fatalf("unexpected list output:\n%s", list)
	}

	yml, err := run(t, "template", "export", "--store", f.store, "-f", "yaml", "cli-card")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var tpl poster.Template
	if err := poster.Decode([]byte(yml), poster.FormatYAML, &tpl); err != nil || tpl.Name != "CLI Card" {
		t.Fatalf("exported YAML should decode: %v\n%s", err, yml)
	}

	// 模板仓库中的 id 也可以直接用于 render
	t.Setenv("POSTERGEN_CONFIG", writeConfigFile(t, f))
	if _, err := run(t, "render", "cli-card", "-o", filepath.Join(f.dir, "byid.png")); err != nil {
		t.Fatalf("render by id: %v", err)
	}

	if _, err := run(t, "template", "delete", "--store", f.store, "cli-card"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := run(t, "template", "export", "--store", f.store, "cli-card"); err == nil {
		t.Fatalf("export after delete should fail")
	}
}

func writeConfigFile(t *testing.T, f fixture) string {
	t.Helper()
	p := filepath.Join(f.dir, "postergen.toml")
	if err := os.WriteFile(p, []byte("[store]\ndir = \"store\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPresetsCommand(t *testing.T) {
	out, err := run(t, "presets", "--kind", "gradient")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	if !strings.Contains(out, "gradient-sunset") || strings.Contains(out, "solid-white") {
		t.Fatalf("unexpected presets output:\n%s", out)
	}
}

func TestPickRow(t *testing.T) {
	rows := []poster.Row{{RecordID: "a"}, {RecordID: "b"}}
	if r, _ := pickRow(rows, "", 0); r.RecordID != "a" {
		t.Fatalf("default should be the first row")
	}
	if r, _ := pickRow(rows, "", 2); r.RecordID != "b" {
		t.Fatalf("index is 1-based")
	}
	if _, err := pickRow(rows, "", 3); err == nil {
		t.Fatalf("out of range index should fail")
	}
	if r, _ := pickRow(nil, "", 0); r.RecordID != "preview" {
		t.Fatalf("no data should render the template as-is")
	}
}

func TestFileWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "tpl.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := newFileWatcher([]string{target, ""})
	if err != nil {
		t.Fatalf("newFileWatcher: %v", err)
	}
	defer w.Close()

	if w.relevant(fsnotify.Event{Name: filepath.Join(dir, "other.json"), Op: fsnotify.Write}) {
		t.Fatalf("unrelated files must be ignored")
	}
	if w.relevant(fsnotify.Event{Name: target, Op: fsnotify.Chmod}) {
		t.Fatalf("chmod must be ignored")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- w.run(ctx, func(string) {
			calls++
			cancel()
		})
	}()
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(target, []byte("{ }"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("rapid writes should collapse into one callback, got %d", calls)
	}
}
