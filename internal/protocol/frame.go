package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// FrameType identifies the payload that follows a frame header.
type FrameType uint32

// Frame types
const (
	FrameTouch   FrameType = 0
	FrameKey     FrameType = 1
	FramePointer FrameType = 2
)

func (t FrameType) String() string {
	switch t {
	case FrameTouch:
		return "touch"
	case FrameKey:
		return "key"
	case FramePointer:
		return "pointer"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// Header: [type(4)] [size(4)] = 8 bytes
const HeaderSize = 8

// Fixed payload widths per frame type.
const (
	TouchPayloadSize   = 20
	KeyPayloadSize     = 32
	PointerPayloadSize = 32

	// MaxPayloadSize bounds what the receiver will buffer for a single frame.
	MaxPayloadSize = 4096
)

var (
	// ErrDecode is wrapped by every decode failure.
	ErrDecode = errors.New("frame: decode error")
	// ErrShortHeader is returned when fewer than HeaderSize bytes are given.
	ErrShortHeader = fmt.Errorf("%w: header too short", ErrDecode)
	// ErrUnknownType is returned for a header type outside the known set.
	ErrUnknownType = fmt.Errorf("%w: unknown frame type", ErrDecode)
	// ErrPayloadSize is returned when a payload does not have the width of its type.
	ErrPayloadSize = fmt.Errorf("%w: payload size mismatch", ErrDecode)
	// ErrUnknownKind is returned when an event kind is outside its enum.
	ErrUnknownKind = fmt.Errorf("%w: unknown event kind", ErrDecode)
)

// Header precedes every payload on the wire.
type Header struct {
	Type FrameType
	Size uint32
}

// PayloadSize returns the fixed payload width for a frame type.
func PayloadSize(t FrameType) (int, bool) {
	switch t {
	case FrameTouch:
		return TouchPayloadSize, true
	case FrameKey:
		return KeyPayloadSize, true
	case FramePointer:
		return PointerPayloadSize, true
	default:
		return 0, false
	}
}

// DecodeHeader parses the 8-byte frame header. The type is not validated
// here so the caller can still skip the payload of an unknown frame.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	return Header{
		Type: FrameType(binary.BigEndian.Uint32(data[0:4])),
		Size: binary.BigEndian.Uint32(data[4:8]),
	}, nil
}

// EncodeHeader serializes a frame header.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Type))
	binary.BigEndian.PutUint32(buf[4:8], h.Size)
	return buf
}

// DecodePayload decodes the payload that followed h into a typed event.
//
// Wire format per type (all fields 4 bytes, big-endian):
//
//	Touch   (0): kind, id, x, y, time                                          = 20 bytes
//	Key     (1): kind, time, key, state, depressed, latched, locked, group     = 32 bytes
//	Pointer (2): kind, time, x, y, button, state, axis, value                  = 32 bytes
func DecodePayload(h Header, data []byte) (Event, error) {
	want, ok := PayloadSize(h.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint32(h.Type))
	}
	if int(h.Size) != want || len(data) != want {
		return nil, fmt.Errorf("%w: %s frame has %d bytes, want %d", ErrPayloadSize, h.Type, len(data), want)
	}

	u := func(i int) uint32 { return binary.BigEndian.Uint32(data[i*4 : i*4+4]) }
	f := func(i int) Fixed { return Fixed(int32(u(i))) }

	switch h.Type {
	case FrameTouch:
		ev := TouchEvent{
			Kind: TouchKind(u(0)),
			ID:   u(1),
			X:    f(2),
			Y:    f(3),
			Time: u(4),
		}
		if ev.Kind > TouchCancel {
			return nil, fmt.Errorf("%w: touch kind %d", ErrUnknownKind, uint32(ev.Kind))
		}
		return ev, nil

	case FrameKey:
		ev := KeyEvent{
			Kind:          KeyKind(u(0)),
			Time:          u(1),
			Key:           u(2),
			State:         u(3),
			ModsDepressed: u(4),
			ModsLatched:   u(5),
			ModsLocked:    u(6),
			Group:         u(7),
		}
		if ev.Kind != KeyKey {
			return nil, fmt.Errorf("%w: key kind %d", ErrUnknownKind, uint32(ev.Kind))
		}
		return ev, nil

	default:
		ev := PointerEvent{
			Kind:   PointerKind(u(0)),
			Time:   u(1),
			X:      f(2),
			Y:      f(3),
			Button: u(4),
			State:  u(5),
			Axis:   u(6),
			Value:  f(7),
		}
		if ev.Kind > PointerAxis {
			return nil, fmt.Errorf("%w: pointer kind %d", ErrUnknownKind, uint32(ev.Kind))
		}
		return ev, nil
	}
}

// EncodeFrame serializes an event, header included.
func EncodeFrame(ev Event) []byte {
	var fields []uint32
	switch e := ev.(type) {
	case TouchEvent:
		fields = []uint32{uint32(e.Kind), e.ID, uint32(e.X), uint32(e.Y), e.Time}
	case KeyEvent:
		fields = []uint32{uint32(e.Kind), e.Time, e.Key, e.State, e.ModsDepressed, e.ModsLatched, e.ModsLocked, e.Group}
	case PointerEvent:
		fields = []uint32{uint32(e.Kind), e.Time, uint32(e.X), uint32(e.Y), e.Button, e.State, e.Axis, uint32(e.Value)}
	default:
		return nil
	}

	buf := make([]byte, HeaderSize+len(fields)*4)
	copy(buf, EncodeHeader(Header{Type: ev.FrameType(), Size: uint32(len(fields) * 4)}))
	payload := buf[HeaderSize:]
	for i, v := range fields {
		binary.BigEndian.PutUint32(payload[i*4:i*4+4], v)
	}
	return buf
}
