//go:build !linux

package input

import (
	"errors"
)

// Stub implementation for non-Linux platforms

// ErrUnsupported is returned when virtual devices are not available.
var ErrUnsupported = errors.New("virtual input devices are only supported on Linux")

// UinputBackend represents a stub backend
type UinputBackend struct {
	Path string
}

// NewUinputBackend creates a new stub backend
func NewUinputBackend() *UinputBackend {
	return &UinputBackend{}
}

// CreateTouchDevice returns ErrUnsupported
func (b *UinputBackend) CreateTouchDevice(maxX, maxY, maxSlots int32) (Device, error) {
	return nil, ErrUnsupported
}

// CreateKeyboardDevice returns ErrUnsupported
func (b *UinputBackend) CreateKeyboardDevice() (Device, error) {
	return nil, ErrUnsupported
}
