package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/postergen/poster"
)

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	c, err := New(WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func cardTemplate() *poster.Template {
	return &poster.Template{
		ID: "card", Name: "card", Width: 120, Height: 80,
		Elements: []poster.Element{
			&poster.BackgroundElement{
				Base:            poster.Base{ID: "bg", Type: poster.KindBackground, Position: poster.Position{Width: 120, Height: 80}},
				BackgroundColor: "linear-gradient(90deg, #ff0000, #0000ff)",
			},
			&poster.TextElement{
				Base:      poster.Base{ID: "title", Type: poster.KindText, ZIndex: z(1), Position: poster.Position{X: 8, Y: 8, Width: 104, Height: 30}},
				Content:   "placeholder",
				FontStyle: poster.FontStyle{Family: "sans-serif", Size: 14, Color: "#ffffff"},
			},
			&poster.TagElement{
				Base:     poster.Base{ID: "tags", Type: poster.KindTag, ZIndex: z(2), Position: poster.Position{X: 8, Y: 44, Width: 104, Height: 30}},
				Tags:     []string{"a"},
				TagStyle: poster.TagStyle{FontSize: 12, Padding: poster.Padding{X: 6, Y: 3}, Spacing: 4},
			},
		},
	}
}

func rows(n int) []poster.Row {
	out := make([]poster.Row, n)
	for i := range out {
		out[i] = poster.Row{
			RecordID: "rec" + string(rune('0'+i)),
			Fields:   map[string]any{"title": "Row " + string(rune('A'+i)), "tags": []any{"x", "y"}},
		}
	}
	return out
}

var cardMappings = poster.NewMappings(
	poster.FieldMapping{ElementID: "title", FieldKey: "title", FieldType: poster.FieldText},
	poster.FieldMapping{ElementID: "tags", FieldKey: "tags", FieldType: poster.FieldMultiSelect},
)

func TestRenderOneProducesPNGAndDataURL(t *testing.T) {
	c := newTestCompositor(t)
	res := c.RenderOne(context.Background(), cardTemplate(), rows(1)[0], cardMappings)
	if !res.Success || res.Error != "" {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.RecordID != "rec0" {
		t.Fatalf("record id not propagated: %q", res.RecordID)
	}
	img, err := png.Decode(bytes.NewReader(res.Blob))
	if err != nil {
		t.Fatalf("blob is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Fatalf("unexpected size %v", b)
	}
	if !strings.HasPrefix(res.DataURL, dataURLPrefix) {
		t.Fatalf("unexpected data URL prefix: %.40q", res.DataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(res.DataURL, dataURLPrefix))
	if err != nil || !bytes.Equal(raw, res.Blob) {
		t.Fatalf("data URL must carry the same bytes as the blob")
	}
}

func TestRenderOneIsDeterministic(t *testing.T) {
	c := newTestCompositor(t)
	row := rows(1)[0]
	a := c.RenderOne(context.Background(), cardTemplate(), row, cardMappings)
	b := c.RenderOne(context.Background(), cardTemplate(), row, cardMappings)
	if !a.Success || !b.Success || !bytes.Equal(a.Blob, b.Blob) {
		t.Fatalf("identical inputs should render identical bytes")
	}
}

func TestRenderOneDoesNotMutateInputs(t *testing.T) {
	c := newTestCompositor(t)
	tpl := cardTemplate()
	row := rows(1)[0]
	c.RenderOne(context.Background(), tpl, row, cardMappings)
	if tpl.Elements[1].(*poster.TextElement).Content != "placeholder" {
		t.Fatalf("template must not be modified")
	}
	if row.Fields["title"] != "Row A" {
		t.Fatalf("row must not be modified")
	}
}

func TestRenderOneReportsFailure(t *testing.T) {
	c := newTestCompositor(t)
	tpl := cardTemplate()
	tpl.Width = 0
	res := c.RenderOne(context.Background(), tpl, poster.Row{RecordID: "bad"}, nil)
	if res.Success || res.Error == "" || res.RecordID != "bad" {
		t.Fatalf("expected failure with message, got %+v", res)
	}
	if res.Blob != nil || res.DataURL != "" {
		t.Fatalf("failed result must not carry image data")
	}
}

func TestRenderBatchProgress(t *testing.T) {
	c := newTestCompositor(t)
	var calls [][2]int
	results := c.RenderBatch(context.Background(), cardTemplate(), rows(3), cardMappings, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if !r.Success || r.RecordID != rows(3)[i].RecordID {
			t.Fatalf("result %d out of order or failed: %+v", i, r)
		}
	}
	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(calls) != len(want) {
		t.Fatalf("unexpected progress calls %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("progress call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestRenderBatchEmpty(t *testing.T) {
	c := newTestCompositor(t)
	called := false
	results := c.RenderBatch(context.Background(), cardTemplate(), nil, nil, func(int, int) { called = true })
	if len(results) != 0 || called {
		t.Fatalf("empty batch should produce no results and no progress calls")
	}
}

func TestRenderBatchIsolatesFailures(t *testing.T) {
	c := newTestCompositor(t)
	tpl := cardTemplate()
	tpl.Height = -1
	p := c.RenderBatchProgress(context.Background(), tpl, rows(2), cardMappings, nil)
	if p.Total != 2 || p.Completed != 2 || p.Failed != 2 || len(p.Results) != 2 {
		t.Fatalf("every row should be reported, got %+v", p)
	}
}

// photoTemplate 在卡片模板上加一个映射到附件字段的图片元素。
func photoTemplate() (*poster.Template, *poster.Mappings) {
	tpl := cardTemplate()
	tpl.Elements = append(tpl.Elements, &poster.ImageElement{
		Base: poster.Base{ID: "photo", Type: poster.KindImage, ZIndex: z(3), Position: poster.Position{X: 80, Y: 40, Width: 32, Height: 32}},
		Fit:  poster.FitCover,
	})
	m := poster.NewMappings(
		poster.FieldMapping{ElementID: "title", FieldKey: "title", FieldType: poster.FieldText},
		poster.FieldMapping{ElementID: "tags", FieldKey: "tags", FieldType: poster.FieldMultiSelect},
		poster.FieldMapping{ElementID: "photo", FieldKey: "photo", FieldType: poster.FieldAttachment},
	)
	return tpl, m
}

func TestRenderBatchMalformedImageLeavesNeighboursIntact(t *testing.T) {
	c := newTestCompositor(t)
	tpl, mappings := photoTemplate()
	batch := rows(3)
	batch[1].Fields["photo"] = []any{map[string]any{"url": "data:image/png;base64,!!!!"}}
	batch[2].Fields["photo"] = 42

	first := c.RenderBatch(context.Background(), tpl, batch, mappings, nil)
	second := c.RenderBatch(context.Background(), tpl, batch, mappings, nil)
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 results per run, got %d and %d", len(first), len(second))
	}
	if !first[0].Success || !first[2].Success {
		t.Fatalf("rows around the malformed one must succeed: %+v / %+v", first[0].Error, first[2].Error)
	}

	// 图片字段损坏的行只是省略图片，与没有图片的同一行渲染结果一致
	plain := c.RenderOne(context.Background(), tpl, poster.Row{RecordID: batch[1].RecordID, Fields: map[string]any{
		"title": batch[1].Fields["title"], "tags": batch[1].Fields["tags"],
	}}, mappings)
	if !first[1].Success || !bytes.Equal(first[1].Blob, plain.Blob) {
		t.Fatalf("malformed image should be omitted: %+v", first[1].Error)
	}

	for i := range first {
		if first[i].RecordID != batch[i].RecordID || second[i].RecordID != batch[i].RecordID {
			t.Fatalf("row %d out of order", i)
		}
		if first[i].Success != second[i].Success || !bytes.Equal(first[i].Blob, second[i].Blob) {
			t.Fatalf("row %d differs between identical runs", i)
		}
	}
}

// 示例：100×100 白底，(0,0) 处写 "Hi"。
func TestRenderOneHiExample(t *testing.T) {
	c := newTestCompositor(t)
	tpl := &poster.Template{
		ID: "hi", Name: "hi", Width: 100, Height: 100,
		Elements: []poster.Element{
			&poster.BackgroundElement{
				Base:            poster.Base{ID: "bg", Type: poster.KindBackground, ZIndex: z(0), Position: poster.Position{Width: 100, Height: 100}},
				BackgroundColor: "#FFFFFF",
			},
			&poster.TextElement{
				Base:      poster.Base{ID: "t", Type: poster.KindText, ZIndex: z(1), Position: poster.Position{X: 0, Y: 0, Width: 100, Height: 20}},
				Content:   "Hi",
				Align:     poster.AlignLeft,
				FontStyle: poster.FontStyle{Size: 16},
			},
		},
	}
	for _, row := range []poster.Row{{RecordID: "empty"}, rows(1)[0]} {
		res := c.RenderOne(context.Background(), tpl, row, nil)
		if !res.Success {
			t.Fatalf("render %s: %s", row.RecordID, res.Error)
		}
		img, err := png.Decode(bytes.NewReader(res.Blob))
		if err != nil {
			t.Fatalf("blob is not a PNG: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
			t.Fatalf("unexpected size %v", b)
		}
		if px := color.NRGBAModel.Convert(img.At(90, 90)).(color.NRGBA); px != (color.NRGBA{255, 255, 255, 255}) {
			t.Fatalf("background should be white, got %v", px)
		}
		dark := 0
		for y := 0; y < 20; y++ {
			for x := 0; x < 30; x++ {
				if px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA); px.R < 128 {
					dark++
				}
			}
		}
		if dark == 0 {
			t.Fatalf("expected text pixels near the origin")
		}
	}
}

func TestRenderBatchSurvivesPanickingCallback(t *testing.T) {
	c := newTestCompositor(t)
	n := 0
	results := c.RenderBatch(context.Background(), cardTemplate(), rows(3), cardMappings, func(int, int) {
		n++
		panic("boom")
	})
	if n != 3 || len(results) != 3 {
		t.Fatalf("batch should continue after callback panic: calls=%d results=%d", n, len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("callback panic must not fail rows: %+v", r)
		}
	}
}

func TestRenderBatchStopsOnCancel(t *testing.T) {
	c := newTestCompositor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var snapshots []poster.BatchProgress
	p := c.RenderBatchProgress(ctx, cardTemplate(), rows(3), cardMappings, func(bp poster.BatchProgress) {
		snapshots = append(snapshots, bp)
		cancel()
	})
	if !p.Results[0].Success {
		t.Fatalf("first row rendered before cancel should succeed: %+v", p.Results[0])
	}
	for _, r := range p.Results[1:] {
		if r.Success || !strings.Contains(r.Error, "canceled") {
			t.Fatalf("rows after cancel should fail with the context error, got %+v", r)
		}
	}
	if p.Failed != 2 || p.Completed != 3 {
		t.Fatalf("unexpected totals %+v", p)
	}
	if len(snapshots) != 3 || snapshots[0].Current != "rec0" || len(snapshots[0].Results) != 1 {
		t.Fatalf("unexpected snapshots %+v", snapshots)
	}
}

func z(n int) *int { return &n }
