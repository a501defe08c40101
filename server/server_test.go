package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"github.com/ByLCY/postergen/engine"
	"github.com/ByLCY/postergen/poster"
	"github.com/ByLCY/postergen/store"
)

const tplJSON = `{
  "id": "greet", "name": "Greeting", "width": 80, "height": 40,
  "elements": [
    {"id": "bg", "type": "background", "position": {"x": 0, "y": 0, "width": 80, "height": 40}, "backgroundColor": "#336699"},
    {"id": "name", "type": "text", "position": {"x": 4, "y": 4, "width": 72, "height": 32},
     "content": "?", "fontStyle": {"family": "sans-serif", "size": 14, "color": "#ffffff"}}
  ]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	c, err := engine.New(engine.WithLogger(logger))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	st, err := store.Open(t.TempDir(), store.WithLogger(logger))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if _, err := st.Import(strings.NewReader(tplJSON), poster.FormatJSON); err != nil {
		t.Fatalf("Import: %v", err)
	}
	ts := httptest.NewServer(New(c, st, WithLogger(logger)))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestRenderByTemplateID(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/v1/render", `{
		"templateId": "greet",
		"row": {"recordId": "r1", "fields": {"n": "Ada"}},
		"mappings": [{"elementId": "name", "fieldKey": "n", "fieldType": "text"}]
	}`)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("body is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 40 {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestRenderInlineTemplate(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/v1/render", `{"template": `+tplJSON+`, "row": {"recordId": "x"}}`)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
}

func TestRenderErrors(t *testing.T) {
	ts := newTestServer(t)
	cases := []struct {
		body   string
		status int
	}{
		{`{`, http.StatusBadRequest},
		{`{"row": {}}`, http.StatusBadRequest},
		{`{"templateId": "missing"}`, http.StatusNotFound},
		{`{"template": {"id": "z", "name": "z", "width": 0, "height": 0, "elements": []}}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		resp := post(t, ts.URL+"/v1/render", tc.body)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: status %d, want %d", tc.body, resp.StatusCode, tc.status)
		}
		var payload map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload["error"] == "" {
			t.Fatalf("%s: expected JSON error body, got %v (%v)", tc.body, payload, err)
		}
	}
}

const batchBody = `{
	"templateId": "greet",
	"rows": [
		{"recordId": "a", "fields": {"n": "A"}},
		{"recordId": "b", "fields": {"n": "B"}}
	],
	"mappings": [{"elementId": "name", "fieldKey": "n"}]
}`

func TestBatchJSON(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/v1/batch", batchBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var progress poster.BatchProgress
	if err := json.NewDecoder(resp.Body).Decode(&progress); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if progress.Total != 2 || progress.Completed != 2 || progress.Failed != 0 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	for _, r := range progress.Results {
		if !r.Success || !strings.HasPrefix(r.DataURL, "data:image/png;base64,") {
			t.Fatalf("unexpected result %+v", r)
		}
	}
}

func TestBatchZip(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/v1/batch?format=zip", batchBody)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/zip" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	data, _ := io.ReadAll(resp.Body)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("body is not a zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "poster_1.png" {
		t.Fatalf("unexpected entries %d", len(zr.File))
	}
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/templates")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list []templateSummary
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != "greet" || list[0].Elements != 2 {
		t.Fatalf("unexpected list %+v", list)
	}

	one, err := http.Get(ts.URL + "/v1/templates/greet")
	if err != nil {
		t.Fatal(err)
	}
	defer one.Body.Close()
	var tpl poster.Template
	if err := json.NewDecoder(one.Body).Decode(&tpl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tpl.Name != "Greeting" || len(tpl.Elements) != 2 {
		t.Fatalf("unexpected template %+v", tpl)
	}

	missing, err := http.Get(ts.URL + "/v1/templates/nope")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestPresets(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/presets?kind=solid")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var presets []map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&presets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(presets) != 6 {
		t.Fatalf("expected 6 solid presets, got %d", len(presets))
	}
}
