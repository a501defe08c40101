package layout

import (
	"math"
	"testing"
)

// TestPxPtRoundTrip 验证 px↔pt 换算的往返精度（允许极小的浮点误差）。
func TestPxPtRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, px := range samples {
		back := PtToPx(PxToPt(px))
		if diff := math.Abs(back - px); diff > 1e-9 {
			t.Fatalf("px→pt→px 往返误差过大: in=%g back=%g diff=%g", px, back, diff)
		}
	}
}
