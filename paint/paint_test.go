package paint

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}},
		{"#1A2b3C", color.NRGBA{0x1a, 0x2b, 0x3c, 255}},
		{"#ff000080", color.NRGBA{255, 0, 0, 0x80}},
		{"#0f08", color.NRGBA{0, 255, 0, 0x88}},
		{"rgb(10, 20, 30)", color.NRGBA{10, 20, 30, 255}},
		{"rgba(255,0,0,0.5)", color.NRGBA{255, 0, 0, 128}},
		{"rgb(100% 0% 0% / 50%)", color.NRGBA{255, 0, 0, 128}},
		{"RED", color.NRGBA{255, 0, 0, 255}},
		{"transparent", color.NRGBA{}},
		{"hsl(120, 100%, 50%)", color.NRGBA{0, 255, 0, 255}},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		if err != nil {
			t.Fatalf("ParseColor(%q) error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseColorRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "#12", "notacolor", "rgb(1,2)", "linear-gradient(#fff, #000)"} {
		if _, err := ParseColor(in); !errors.Is(err, ErrInvalidColor) {
			t.Fatalf("ParseColor(%q) err=%v, want ErrInvalidColor", in, err)
		}
	}
}

func TestParseGradient(t *testing.T) {
	p, err := Parse("linear-gradient(135deg, #FF6B6B 0%, #FFE66D 100%)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !p.IsGradient() {
		t.Fatalf("expected gradient")
	}
	g := p.Gradient
	if g.Angle != 135 || len(g.Stops) != 2 {
		t.Fatalf("unexpected gradient %+v", g)
	}
	if g.Stops[0].Offset != 0 || g.Stops[1].Offset != 1 {
		t.Fatalf("unexpected offsets %+v", g.Stops)
	}
}

func TestGradientDefaultsAndOffsets(t *testing.T) {
	p, err := Parse("linear-gradient(red, lime, blue 80%)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	g := p.Gradient
	if g.Angle != 180 {
		t.Fatalf("默认方向应为 180deg，实际 %g", g.Angle)
	}
	if math.Abs(g.Stops[1].Offset-0.4) > 1e-9 {
		t.Fatalf("middle stop offset = %g, want 0.4", g.Stops[1].Offset)
	}
}

func TestGradientToSides(t *testing.T) {
	p, err := Parse("linear-gradient(to right, #000, #fff)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if p.Gradient.Angle != 90 {
		t.Fatalf("to right should be 90deg, got %g", p.Gradient.Angle)
	}
	img := p.Gradient.Image(100, 10)
	left, right := img.NRGBAAt(0, 5), img.NRGBAAt(99, 5)
	if left.R > 10 || right.R < 245 {
		t.Fatalf("horizontal gradient endpoints wrong: left=%v right=%v", left, right)
	}

	corner, err := Parse("linear-gradient(to bottom right, #000, #fff)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := corner.Gradient.AngleFor(100, 100); math.Abs(got-135) > 1e-9 {
		t.Fatalf("square box corner angle = %g, want 135", got)
	}
}

func TestPresetsAreRenderable(t *testing.T) {
	for _, p := range Presets("") {
		if _, err := Parse(p.Value); err != nil {
			t.Fatalf("preset %s 无法解析: %v", p.ID, err)
		}
	}
	if len(Presets(PresetGradient)) != 12 || len(Presets(PresetSolid)) != 6 {
		t.Fatalf("unexpected preset counts")
	}
	if _, ok := LookupPreset("gradient-ocean"); !ok {
		t.Fatalf("gradient-ocean missing")
	}
}
