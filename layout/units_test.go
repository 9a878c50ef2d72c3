package layout

import (
	"math"
	"testing"
)

// TestMMUnitsRoundTrip 验证 mm↔单位 换算的往返精度（允许极小的浮点误差）。
func TestMMUnitsRoundTrip(t *testing.T) {
	samples := []float64{0.001, 1, 12, 14.4, 72, 96, 144, 210, 297, 1000}
	for _, dpi := range []float64{72, 96, 150, 300} {
		for _, mm := range samples {
			units := MMToUnits(mm, dpi)
			back := UnitsToMM(units, dpi)
			if diff := math.Abs(back - mm); diff > 1e-9 {
				t.Fatalf("mm→units→mm 往返误差过大: dpi=%g in=%g units=%g back=%g", dpi, mm, units, back)
			}
		}
	}
}

// TestMMToUnitsKnownValues 覆盖常见的换算值。
func TestMMToUnitsKnownValues(t *testing.T) {
	if got := MMToUnits(25.4, ScreenDPI); math.Abs(got-96) > 1e-9 {
		t.Fatalf("25.4mm@96dpi 期望 96，实际 %g", got)
	}
	if got := MMToUnits(25.4, 72); math.Abs(got-72) > 1e-9 {
		t.Fatalf("25.4mm@72dpi 期望 72，实际 %g", got)
	}
	if got := Ratio(72); got != 0.75 {
		t.Fatalf("Ratio(72) 期望 0.75，实际 %g", got)
	}
	if got := UnitsToMM(10, 0); got != 0 {
		t.Fatalf("dpi 为 0 时应返回 0，实际 %g", got)
	}
}

// TestLengthConversions 覆盖 Length 在常见单位上的转换。
func TestLengthConversions(t *testing.T) {
	cases := []struct {
		in     string
		wantMM float64
	}{
		{"1in", 25.4},
		{"2.54cm", 25.4},
		{"15mm", 15},
		{"72pt", 25.4},
		{"96px", 25.4},
		{"96", 25.4},
	}
	for _, c := range cases {
		l, ok := ParseLength(c.in)
		if !ok {
			t.Fatalf("无法解析 %q", c.in)
		}
		if got := l.ToMM(); math.Abs(got-c.wantMM) > 1e-9 {
			t.Fatalf("%s 转 mm 期望 %g，实际 %g", c.in, c.wantMM, got)
		}
	}
	if _, ok := ParseLength("portrait"); ok {
		t.Fatalf("非数值不应被解析为长度")
	}
	l, _ := ParseLength("25.4mm")
	if got := l.ToUnits(); math.Abs(got-96) > 1e-9 {
		t.Fatalf("25.4mm 转单位期望 96，实际 %g", got)
	}
}

func TestViewportZoomDoesNotLeak(t *testing.T) {
	v := Viewport{Zoom: 2}
	p := v.ToCanvas(Point{X: 200, Y: 100})
	if p.X != 100 || p.Y != 50 {
		t.Fatalf("unexpected canvas point: %+v", p)
	}
	back := v.ToScreen(p)
	if back.X != 200 || back.Y != 100 {
		t.Fatalf("unexpected screen point: %+v", back)
	}
	if got := (Viewport{}).ToCanvas(Point{X: 3, Y: 4}); got.X != 3 || got.Y != 4 {
		t.Fatalf("zero zoom should act as 1, got %+v", got)
	}
}
