package protocol

import "fmt"

// Fixed is a signed 24.8 fixed-point number, as used for surface coordinates.
type Fixed int32

// FixedFromInt converts an integer to Fixed.
func FixedFromInt(v int) Fixed {
	return Fixed(v * 256)
}

// FixedFromFloat converts a float to Fixed, truncating the excess precision.
func FixedFromFloat(v float64) Fixed {
	return Fixed(v * 256)
}

// Float returns the value as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / 256
}

// Int returns the integer part, truncated toward zero.
func (f Fixed) Int() int32 {
	return int32(f) / 256
}

// Event is one decoded frame payload: TouchEvent, KeyEvent or PointerEvent.
type Event interface {
	FrameType() FrameType
}

// TouchKind enumerates touch event kinds.
type TouchKind uint32

const (
	TouchDown TouchKind = iota
	TouchUp
	TouchMotion
	TouchFrame
	TouchCancel
)

func (k TouchKind) String() string {
	switch k {
	case TouchDown:
		return "down"
	case TouchUp:
		return "up"
	case TouchMotion:
		return "motion"
	case TouchFrame:
		return "frame"
	case TouchCancel:
		return "cancel"
	default:
		return fmt.Sprintf("touch(%d)", uint32(k))
	}
}

// TouchEvent is a single multi-touch contact event.
type TouchEvent struct {
	Kind TouchKind
	ID   uint32
	X    Fixed
	Y    Fixed
	Time uint32
}

// FrameType implements Event.
func (TouchEvent) FrameType() FrameType { return FrameTouch }

// KeyKind enumerates key event kinds.
type KeyKind uint32

// KeyKey is the only key event kind.
const KeyKey KeyKind = 0

// Key states
const (
	KeyReleased uint32 = 0
	KeyPressed  uint32 = 1
)

// KeyEvent carries a keycode transition plus the sender's modifier state.
type KeyEvent struct {
	Kind          KeyKind
	Time          uint32
	Key           uint32
	State         uint32
	ModsDepressed uint32
	ModsLatched   uint32
	ModsLocked    uint32
	Group         uint32
}

// FrameType implements Event.
func (KeyEvent) FrameType() FrameType { return FrameKey }

// Pressed reports whether the key went down.
func (e KeyEvent) Pressed() bool { return e.State != KeyReleased }

// PointerKind enumerates pointer event kinds.
type PointerKind uint32

const (
	PointerMotion PointerKind = iota
	PointerEnter
	PointerLeave
	PointerButton
	PointerAxis
)

func (k PointerKind) String() string {
	switch k {
	case PointerMotion:
		return "motion"
	case PointerEnter:
		return "enter"
	case PointerLeave:
		return "leave"
	case PointerButton:
		return "button"
	case PointerAxis:
		return "axis"
	default:
		return fmt.Sprintf("pointer(%d)", uint32(k))
	}
}

// Button states
const (
	ButtonReleased uint32 = 0
	ButtonPressed  uint32 = 1
)

// PointerEvent is a pointer event from the sender. Only the fields relevant
// to Kind are meaningful.
type PointerEvent struct {
	Kind   PointerKind
	Time   uint32
	X      Fixed
	Y      Fixed
	Button uint32
	State  uint32
	Axis   uint32
	Value  Fixed
}

// FrameType implements Event.
func (PointerEvent) FrameType() FrameType { return FramePointer }

// Pressed reports whether a button event is a press.
func (e PointerEvent) Pressed() bool { return e.State != ButtonReleased }
