// Package input provides the sinks received events are delivered to: a
// virtual input device (uinput on Linux) or a compositor surface relay.
package input

import (
	"errors"

	"inputrelay/internal/protocol"
)

// Sink modes
const (
	ModeOutput  = "output"
	ModeSurface = "surface"
)

// ErrSinkClosed is returned when injecting into a sink after Close.
var ErrSinkClosed = errors.New("input: sink closed")

// ErrKeyRange is returned for key codes that do not fit an input event code.
var ErrKeyRange = errors.New("input: key code out of range")

// Sink receives touch and key events. Implementations are used from a single
// goroutine.
type Sink interface {
	Touch(ev protocol.TouchEvent) error
	Key(ev protocol.KeyEvent) error
	// Flush pushes any buffered events out; called once per received frame.
	Flush() error
	Close() error
	Mode() string
}

// Device is one virtual input device.
type Device interface {
	// Emit writes a single raw input event (type, code, value).
	Emit(typ, code uint16, value int32) error
	// Close destroys the device.
	Close() error
}

// Backend creates virtual input devices.
type Backend interface {
	CreateTouchDevice(maxX, maxY, maxSlots int32) (Device, error)
	CreateKeyboardDevice() (Device, error)
}

// Relay delivers events to one addressed surface through the compositor.
// Sends are fire-and-forget; delivery problems are the relay's concern.
type Relay interface {
	SendTouch(surfaceID uint32, kind protocol.TouchKind, id uint32, x, y protocol.Fixed, time uint32)
	SendKey(surfaceID, time, key, state, modsDepressed, modsLatched, modsLocked, group uint32)
	Flush() error
}

// Geometry is the position and size of the output events are mapped into.
type Geometry struct {
	X      int32 `json:"x"`
	Y      int32 `json:"y"`
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// Map converts surface coordinates into a device touch space of
// [0, maxX] x [0, maxY], rounding down. The fractional part of x and y is
// dropped before scaling.
func (g Geometry) Map(x, y protocol.Fixed, maxX, maxY int32) (int32, int32) {
	dx := floorDiv((int64(x.Int())+int64(g.X))*int64(maxX), int64(g.Width))
	dy := floorDiv((int64(y.Int())+int64(g.Y))*int64(maxY), int64(g.Height))
	return int32(dx), int32(dy)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
