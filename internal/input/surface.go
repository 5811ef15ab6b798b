package input

import (
	"errors"
	"log"

	"inputrelay/internal/protocol"
)

// SurfaceSink forwards events unchanged to one surface through a Relay. The
// compositor interprets the coordinates relative to the surface.
type SurfaceSink struct {
	surfaceID uint32
	relay     Relay
	verbose   int
}

// NewSurfaceSink creates a sink addressing surfaceID.
func NewSurfaceSink(surfaceID uint32, relay Relay, verbose int) (*SurfaceSink, error) {
	if relay == nil {
		return nil, errors.New("input: relay is required")
	}
	if surfaceID == 0 {
		return nil, errors.New("input: surface id must be non-zero")
	}
	log.Printf("Input: Relaying events to surface %d", surfaceID)
	return &SurfaceSink{surfaceID: surfaceID, relay: relay, verbose: verbose}, nil
}

// Mode implements Sink.
func (s *SurfaceSink) Mode() string { return ModeSurface }

// Touch forwards a touch event of any kind.
func (s *SurfaceSink) Touch(ev protocol.TouchEvent) error {
	if s.relay == nil {
		return ErrSinkClosed
	}
	if s.verbose > 0 {
		log.Printf("Input: Touch %s at (%.2f,%.2f) id=%d for surface %d", ev.Kind, ev.X.Float(), ev.Y.Float(), ev.ID, s.surfaceID)
	}
	s.relay.SendTouch(s.surfaceID, ev.Kind, ev.ID, ev.X, ev.Y, ev.Time)
	return nil
}

// Key forwards a key event with its modifier state.
func (s *SurfaceSink) Key(ev protocol.KeyEvent) error {
	if s.relay == nil {
		return ErrSinkClosed
	}
	if s.verbose > 0 {
		log.Printf("Input: Key %d state %d for surface %d", ev.Key, ev.State, s.surfaceID)
	}
	s.relay.SendKey(s.surfaceID, ev.Time, ev.Key, ev.State, ev.ModsDepressed, ev.ModsLatched, ev.ModsLocked, ev.Group)
	return nil
}

// Flush flushes the relay's connection to the compositor.
func (s *SurfaceSink) Flush() error {
	if s.relay == nil {
		return ErrSinkClosed
	}
	return s.relay.Flush()
}

// Close detaches the relay. The relay itself belongs to the caller.
func (s *SurfaceSink) Close() error {
	s.relay = nil
	return nil
}
