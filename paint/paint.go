// Package paint 解析模板中使用的 CSS 颜色写法，并把线性渐变栅格化为图像。
//
// 支持 #rgb / #rgba / #rrggbb / #rrggbbaa、rgb()/rgba()、hsl()/hsla()、
// SVG 颜色名、transparent，以及 linear-gradient(...)。
package paint

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ErrInvalidColor 表示无法识别的颜色写法。
var ErrInvalidColor = errors.New("无效的颜色")

// Paint 是解析后的填充：纯色或线性渐变，二者只有一个有效。
type Paint struct {
	Color    color.NRGBA     `json:"color"`
	Gradient *LinearGradient `json:"gradient,omitempty"`
}

// IsGradient 报告该填充是否为渐变。
func (p Paint) IsGradient() bool { return p.Gradient != nil }

// Transparent 报告该填充是否完全透明（绘制时可以跳过）。
func (p Paint) Transparent() bool {
	if p.Gradient != nil {
		for _, s := range p.Gradient.Stops {
			if s.Color.A > 0 {
				return false
			}
		}
		return true
	}
	return p.Color.A == 0
}

// Parse 解析颜色或渐变表达式。
func Parse(s string) (Paint, error) {
	if strings.TrimSpace(s) == "" {
		return Paint{}, fmt.Errorf("%w: 空字符串", ErrInvalidColor)
	}
	expr, err := parseExpr(s)
	if err != nil {
		return Paint{}, fmt.Errorf("%w: %w", ErrInvalidColor, err)
	}
	if expr.Gradient != nil {
		g, err := evalGradient(expr.Gradient)
		if err != nil {
			return Paint{}, err
		}
		return Paint{Gradient: g}, nil
	}
	c, err := evalColor(expr.Color)
	if err != nil {
		return Paint{}, err
	}
	return Paint{Color: c}, nil
}

// ParseColor 只接受纯色；渐变返回错误。
func ParseColor(s string) (color.NRGBA, error) {
	p, err := Parse(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	if p.Gradient != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q 是渐变而不是纯色", ErrInvalidColor, s)
	}
	return p.Color, nil
}

// ColorOr 解析纯色，失败时返回 fallback。
func ColorOr(s string, fallback color.NRGBA) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

func evalColor(c *colorExpr) (color.NRGBA, error) {
	switch {
	case c == nil:
		return color.NRGBA{}, fmt.Errorf("%w: 缺少颜色", ErrInvalidColor)
	case c.Hex != "":
		return parseHex(c.Hex)
	case c.Func != nil:
		return evalFunc(c.Func)
	default:
		name := strings.ToLower(c.Name)
		if name == "transparent" {
			return color.NRGBA{}, nil
		}
		rgba, ok := colornames.Map[name]
		if !ok {
			return color.NRGBA{}, fmt.Errorf("%w: 未知颜色名 %q", ErrInvalidColor, c.Name)
		}
		return color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: rgba.A}, nil
	}
}

// parseHex 把短写法展开成 #rrggbb 后交给 colorful 解析，alpha 分量单独处理。
func parseHex(s string) (color.NRGBA, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) == 3 || len(digits) == 4 {
		var b strings.Builder
		for _, r := range digits {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		digits = b.String()
	}
	if len(digits) != 6 && len(digits) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	cf, err := colorful.Hex("#" + digits[:6])
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	alpha := uint64(255)
	if len(digits) == 8 {
		alpha, err = strconv.ParseUint(digits[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}
	r, g, b := cf.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha)}, nil
}

func evalFunc(f *funcExpr) (color.NRGBA, error) {
	name := strings.ToLower(f.Name)
	if len(f.Args) != 3 && len(f.Args) != 4 {
		return color.NRGBA{}, fmt.Errorf("%w: %s() 需要 3 或 4 个参数", ErrInvalidColor, name)
	}
	alpha := 1.0
	if len(f.Args) == 4 {
		a, err := fraction(f.Args[3], 1)
		if err != nil {
			return color.NRGBA{}, err
		}
		alpha = a
	}
	var cf colorful.Color
	switch name {
	case "rgb", "rgba":
		var ch [3]float64
		for i := range ch {
			v, err := fraction(f.Args[i], 255)
			if err != nil {
				return color.NRGBA{}, err
			}
			ch[i] = v
		}
		cf = colorful.Color{R: ch[0], G: ch[1], B: ch[2]}
	default:
		h, err := hue(f.Args[0])
		if err != nil {
			return color.NRGBA{}, err
		}
		s, err := fraction(f.Args[1], 100)
		if err != nil {
			return color.NRGBA{}, err
		}
		l, err := fraction(f.Args[2], 100)
		if err != nil {
			return color.NRGBA{}, err
		}
		cf = colorful.Hsl(h, s, l)
	}
	r, g, b := cf.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}, nil
}

// fraction 把数值或百分比换算到 0~1；纯数值按 scale 归一。
func fraction(arg string, scale float64) (float64, error) {
	if v, ok := strings.CutSuffix(arg, "%"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColor, arg)
		}
		return clamp01(f / 100), nil
	}
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, arg)
	}
	return clamp01(f / scale), nil
}

func hue(arg string) (float64, error) {
	deg, err := angleDegrees(arg)
	if err != nil {
		return 0, err
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}

// angleDegrees 解析 deg/grad/rad/turn，无单位时按度处理。
func angleDegrees(arg string) (float64, error) {
	units := []struct {
		suffix string
		factor float64
	}{
		{"deg", 1},
		{"grad", 0.9},
		{"rad", 180 / math.Pi},
		{"turn", 360},
	}
	num, factor := arg, 1.0
	for _, u := range units {
		if v, ok := strings.CutSuffix(arg, u.suffix); ok {
			num, factor = v, u.factor
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: 角度 %q", ErrInvalidColor, arg)
	}
	return f * factor, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
