package interaction

import "github.com/ByLCY/snipsheet/layout"

// Event 是宿主传入的指针或键盘事件。指针坐标为相对纸张左上角的视图像素。
type Event interface {
	event()
}

// Button identifies the pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Modifiers 为按下的修饰键位掩码。
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModMeta
	ModAlt
)

// Has reports whether every bit of m is set.
func (mods Modifiers) Has(m Modifiers) bool { return mods&m == m }

// toggles 为切换多选成员的修饰键。
func (mods Modifiers) toggles() bool {
	return mods&(ModShift|ModCtrl|ModMeta) != 0
}

// Key 为控制器关心的按键。
type Key int

const (
	KeyOther Key = iota
	KeyEscape
	KeyDelete
	KeyBackspace
	KeyArrowLeft
	KeyArrowRight
	KeyArrowUp
	KeyArrowDown
	KeyZ
)

type PointerDown struct {
	Pos    layout.Point
	Button Button
	Mods   Modifiers
}

type PointerMove struct {
	Pos layout.Point
}

type PointerUp struct {
	Pos layout.Point
}

// LostCapture 视同 PointerUp。
type LostCapture struct{}

type DoubleClick struct {
	Pos layout.Point
}

// Drop 是从素材列表拖入画布的外部放置，与画布内拖动是不同的路径。
type Drop struct {
	Pos     layout.Point
	AssetID string
}

type KeyDown struct {
	Key  Key
	Mods Modifiers
}

// TextInput 替换正在编辑的文本内容。
type TextInput struct {
	Text string
}

// Blur 表示编辑区失去焦点。
type Blur struct{}

func (PointerDown) event() {}
func (PointerMove) event() {}
func (PointerUp) event()   {}
func (LostCapture) event() {}
func (DoubleClick) event() {}
func (Drop) event()        {}
func (KeyDown) event()     {}
func (TextInput) event()   {}
func (Blur) event()        {}
