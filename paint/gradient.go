package paint

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Stop 是渐变色标，Offset 取值 0~1。
type Stop struct {
	Color  color.NRGBA `json:"color"`
	Offset float64     `json:"offset"`
}

// LinearGradient 描述 CSS 线性渐变。
// Angle 遵循 CSS 约定：0deg 指向上方，顺时针增加，默认 180deg（自上而下）。
// 使用 "to top right" 这类角落写法时 Corner 记录目标角，实际角度取决于绘制区域的宽高比。
type LinearGradient struct {
	Angle  float64 `json:"angle"`
	Corner string  `json:"corner,omitempty"`
	Stops  []Stop  `json:"stops"`
}

func evalGradient(g *gradientExpr) (*LinearGradient, error) {
	out := &LinearGradient{Angle: 180}
	if d := g.Direction; d != nil {
		if d.Angle != "" {
			deg, err := angleDegrees(d.Angle)
			if err != nil {
				return nil, err
			}
			out.Angle = deg
		} else if err := out.applySides(d.To); err != nil {
			return nil, err
		}
	}
	if len(g.Stops) < 2 {
		return nil, fmt.Errorf("%w: 渐变至少需要两个色标", ErrInvalidColor)
	}
	offsets := make([]float64, len(g.Stops))
	known := make([]bool, len(g.Stops))
	for i, s := range g.Stops {
		c, err := evalColor(s.Color)
		if err != nil {
			return nil, err
		}
		out.Stops = append(out.Stops, Stop{Color: c})
		if s.Offset != "" {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s.Offset, "%"), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: 色标位置 %q", ErrInvalidColor, s.Offset)
			}
			offsets[i], known[i] = v/100, true
		}
	}
	fillOffsets(offsets, known)
	for i := range out.Stops {
		out.Stops[i].Offset = offsets[i]
	}
	return out, nil
}

func (g *LinearGradient) applySides(sides []string) error {
	var vertical, horizontal string
	for _, s := range sides {
		switch strings.ToLower(s) {
		case "top", "bottom":
			vertical = strings.ToLower(s)
		case "left", "right":
			horizontal = strings.ToLower(s)
		default:
			return fmt.Errorf("%w: 渐变方向 %q", ErrInvalidColor, s)
		}
	}
	switch {
	case vertical != "" && horizontal != "":
		g.Corner = vertical + " " + horizontal
	case vertical == "top":
		g.Angle = 0
	case vertical == "bottom":
		g.Angle = 180
	case horizontal == "right":
		g.Angle = 90
	case horizontal == "left":
		g.Angle = 270
	default:
		return fmt.Errorf("%w: 缺少渐变方向", ErrInvalidColor)
	}
	return nil
}

// fillOffsets 补齐未写位置的色标：首尾默认 0 与 1，中间在已知色标之间均分，
// 并保证位置单调不减。
func fillOffsets(offsets []float64, known []bool) {
	n := len(offsets)
	if !known[0] {
		offsets[0], known[0] = 0, true
	}
	if !known[n-1] {
		offsets[n-1], known[n-1] = 1, true
	}
	prev := 0
	for i := 1; i < n; i++ {
		if !known[i] {
			continue
		}
		if gap := i - prev; gap > 1 {
			step := (offsets[i] - offsets[prev]) / float64(gap)
			for j := prev + 1; j < i; j++ {
				offsets[j] = offsets[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	for i := 1; i < n; i++ {
		offsets[i] = math.Max(offsets[i], offsets[i-1])
	}
}

// AngleFor 返回在 w×h 区域上实际使用的角度（度）。
func (g *LinearGradient) AngleFor(w, h float64) float64 {
	if g.Corner == "" {
		return g.Angle
	}
	a := math.Atan2(h, w) * 180 / math.Pi
	switch g.Corner {
	case "top right":
		return a
	case "bottom right":
		return 180 - a
	case "bottom left":
		return 180 + a
	default:
		return 360 - a
	}
}

// At 返回渐变线上位置 t（0~1）处的颜色。颜色在 sRGB 空间混合。
func (g *LinearGradient) At(t float64) color.NRGBA {
	stops := g.Stops
	if len(stops) == 0 {
		return color.NRGBA{}
	}
	if t <= stops[0].Offset {
		return stops[0].Color
	}
	last := stops[len(stops)-1]
	if t >= last.Offset {
		return last.Color
	}
	i, _ := slices.BinarySearchFunc(stops, t, func(s Stop, t float64) int {
		switch {
		case s.Offset < t:
			return -1
		case s.Offset > t:
			return 1
		default:
			return 0
		}
	})
	if i == 0 {
		return stops[0].Color
	}
	a, b := stops[i-1], stops[i]
	span := b.Offset - a.Offset
	if span <= 0 {
		return b.Color
	}
	return mix(a.Color, b.Color, (t-a.Offset)/span)
}

// Image 把渐变栅格化为 w×h 的图像。
func (g *LinearGradient) Image(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	if w <= 0 || h <= 0 {
		return img
	}
	rad := g.AngleFor(float64(w), float64(h)) * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	length := math.Abs(float64(w)*dx) + math.Abs(float64(h)*dy)
	if length == 0 {
		length = 1
	}
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px, py := float64(x)+0.5-cx, float64(y)+0.5-cy
			t := (px*dx+py*dy)/length + 0.5
			img.SetNRGBA(x, y, g.At(t))
		}
	}
	return img
}

func mix(a, b color.NRGBA, t float64) color.NRGBA {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	r, gg, bb := ca.BlendRgb(cb, t).Clamped().RGB255()
	alpha := float64(a.A) + (float64(b.A)-float64(a.A))*t
	return color.NRGBA{R: r, G: gg, B: bb, A: uint8(math.Round(alpha))}
}
