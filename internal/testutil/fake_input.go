// Package testutil provides recording fakes for the input sink contracts.
package testutil

import (
	"errors"
	"sync"

	"inputrelay/internal/input"
	"inputrelay/internal/protocol"
)

// RawEvent records a single emitted input event.
type RawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// FakeDevice implements input.Device and records emitted events.
type FakeDevice struct {
	mu      sync.Mutex
	Name    string
	Events  []RawEvent
	Closed  bool
	EmitErr error
}

// Ensure FakeDevice implements the interface.
var _ input.Device = (*FakeDevice)(nil)

// Emit records an event, or returns EmitErr when set.
func (d *FakeDevice) Emit(typ, code uint16, value int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return errors.New("fake device: emit after close")
	}
	if d.EmitErr != nil {
		return d.EmitErr
	}
	d.Events = append(d.Events, RawEvent{Type: typ, Code: code, Value: value})
	return nil
}

// Close marks the device destroyed.
func (d *FakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// Recorded returns a copy of the emitted events.
func (d *FakeDevice) Recorded() []RawEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RawEvent, len(d.Events))
	copy(out, d.Events)
	return out
}

// IsClosed reports whether Close was called.
func (d *FakeDevice) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Closed
}

// FakeBackend implements input.Backend with FakeDevices.
type FakeBackend struct {
	Touch       *FakeDevice
	Keyboard    *FakeDevice
	TouchErr    error
	KeyboardErr error

	TouchBounds [3]int32
}

// Ensure FakeBackend implements the interface.
var _ input.Backend = (*FakeBackend)(nil)

// CreateTouchDevice returns a new FakeDevice, or TouchErr.
func (b *FakeBackend) CreateTouchDevice(maxX, maxY, maxSlots int32) (input.Device, error) {
	if b.TouchErr != nil {
		return nil, b.TouchErr
	}
	b.TouchBounds = [3]int32{maxX, maxY, maxSlots}
	b.Touch = &FakeDevice{Name: "touch"}
	return b.Touch, nil
}

// CreateKeyboardDevice returns a new FakeDevice, or KeyboardErr.
func (b *FakeBackend) CreateKeyboardDevice() (input.Device, error) {
	if b.KeyboardErr != nil {
		return nil, b.KeyboardErr
	}
	b.Keyboard = &FakeDevice{Name: "keyboard"}
	return b.Keyboard, nil
}

// RelayCall records a single relay request.
type RelayCall struct {
	Name      string
	SurfaceID uint32
	Touch     protocol.TouchEvent
	Key       protocol.KeyEvent
}

// FakeRelay implements input.Relay and records calls.
type FakeRelay struct {
	mu      sync.Mutex
	Calls   []RelayCall
	Flushes int
}

// Ensure FakeRelay implements the interface.
var _ input.Relay = (*FakeRelay)(nil)

// SendTouch records a touch request.
func (r *FakeRelay) SendTouch(surfaceID uint32, kind protocol.TouchKind, id uint32, x, y protocol.Fixed, time uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, RelayCall{
		Name:      "SendTouch",
		SurfaceID: surfaceID,
		Touch:     protocol.TouchEvent{Kind: kind, ID: id, X: x, Y: y, Time: time},
	})
}

// SendKey records a key request.
func (r *FakeRelay) SendKey(surfaceID, time, key, state, modsDepressed, modsLatched, modsLocked, group uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, RelayCall{
		Name:      "SendKey",
		SurfaceID: surfaceID,
		Key: protocol.KeyEvent{
			Time: time, Key: key, State: state,
			ModsDepressed: modsDepressed, ModsLatched: modsLatched, ModsLocked: modsLocked, Group: group,
		},
	})
}

// Flush records a flush.
func (r *FakeRelay) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Flushes++
	return nil
}

// Recorded returns a copy of the recorded calls.
func (r *FakeRelay) Recorded() ([]RelayCall, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RelayCall, len(r.Calls))
	copy(out, r.Calls)
	return out, r.Flushes
}
