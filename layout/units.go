package layout

import (
	"strconv"
	"strings"
)

// 坐标模型：编辑器始终使用固定的屏幕参考分辨率（ScreenDPI）下的单位，
// 合成器使用输出分辨率，两者之间只通过 MMToUnits/UnitsToMM 与 Ratio 换算。
// 缩放（zoom）只属于视图，不会进入持久化的位置与尺寸。

// ScreenDPI 为编辑器的屏幕参考分辨率。
const ScreenDPI = 96.0

// MMPerInch 为每英寸毫米数。
const MMPerInch = 25.4

// Conversion constants between pt and mm.
const (
	PtToMm = MMPerInch / 72.0
	MmToPt = 1.0 / PtToMm
)

// MMToUnits 将毫米换算为给定 dpi 下的单位。
func MMToUnits(mm, dpi float64) float64 {
	return mm / MMPerInch * dpi
}

// UnitsToMM 将给定 dpi 下的单位换算为毫米。
func UnitsToMM(units, dpi float64) float64 {
	if dpi == 0 {
		return 0
	}
	return units / dpi * MMPerInch
}

// Ratio 返回输出分辨率相对屏幕参考分辨率的换算比例。
func Ratio(outputDPI float64) float64 {
	return outputDPI / ScreenDPI
}

// Viewport 描述视图层的缩放，仅用于屏幕像素与画布单位之间的转换。
type Viewport struct {
	Zoom float64
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ToCanvas 把相对纸张左上角的视图像素换算为画布单位。
func (v Viewport) ToCanvas(p Point) Point {
	z := v.zoom()
	return Point{X: p.X / z, Y: p.Y / z}
}

// ToScreen 把画布单位换算为视图像素。
func (v Viewport) ToScreen(p Point) Point {
	z := v.zoom()
	return Point{X: p.X * z, Y: p.Y * z}
}

// Unit represents the original unit of a length value as written in a layout script.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, read as screen units
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // screen reference pixels
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts the length to millimeters. Unit-less values are screen units.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * MMPerInch
	case UnitPT:
		return l.Value * PtToMm
	default:
		return UnitsToMM(l.Value, ScreenDPI)
	}
}

// ToUnits converts the length to screen reference units.
func (l Length) ToUnits() float64 {
	if l.Unit == UnitNone || l.Unit == UnitPX {
		return l.Value
	}
	return MMToUnits(l.ToMM(), ScreenDPI)
}

// ParseLength parses a length string like "15mm", "12pt" or "40" preserving its unit.
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}
