package input

import (
	"errors"
	"fmt"
	"log"
	"math"

	"inputrelay/internal/protocol"
)

// OutputSink injects events into virtual touch and keyboard devices, mapping
// touch coordinates into the configured output.
type OutputSink struct {
	geometry Geometry
	touch    Device
	keyboard Device
	verbose  int
}

// NewOutputSink creates the touch and keyboard devices on backend. If either
// device cannot be created, nothing is left behind.
func NewOutputSink(backend Backend, geometry Geometry, verbose int) (*OutputSink, error) {
	if backend == nil {
		return nil, errors.New("input: backend is required")
	}
	if geometry.Width <= 0 || geometry.Height <= 0 {
		return nil, fmt.Errorf("input: invalid output size %dx%d", geometry.Width, geometry.Height)
	}

	touch, err := backend.CreateTouchDevice(MaxTouchX, MaxTouchY, MaxTouchSlots)
	if err != nil {
		return nil, fmt.Errorf("create touch device: %w", err)
	}
	keyboard, err := backend.CreateKeyboardDevice()
	if err != nil {
		if cerr := touch.Close(); cerr != nil {
			log.Printf("Input: Failed to destroy touch device: %v", cerr)
		}
		return nil, fmt.Errorf("create keyboard device: %w", err)
	}

	log.Printf("Input: Sending events to output at %d,%d (%dx%d)", geometry.X, geometry.Y, geometry.Width, geometry.Height)
	return &OutputSink{
		geometry: geometry,
		touch:    touch,
		keyboard: keyboard,
		verbose:  verbose,
	}, nil
}

// Mode implements Sink.
func (s *OutputSink) Mode() string { return ModeOutput }

// Touch injects one touch event. Frame and cancel events have no device
// equivalent and are dropped.
func (s *OutputSink) Touch(ev protocol.TouchEvent) error {
	if s.touch == nil {
		return ErrSinkClosed
	}

	w := &emitter{dev: s.touch}
	switch ev.Kind {
	case protocol.TouchDown:
		if s.verbose > 0 {
			log.Printf("Input: Touch down at (%.2f,%.2f) id=%d", ev.X.Float(), ev.Y.Float(), ev.ID)
		}
		w.emit(EvAbs, AbsMTSlot, int32(ev.ID))
		w.emit(EvAbs, AbsMTTrackingID, int32(ev.ID))
		s.position(w, ev)
		w.emit(EvSyn, SynReport, 0)
	case protocol.TouchUp:
		w.emit(EvAbs, AbsMTSlot, int32(ev.ID))
		w.emit(EvAbs, AbsMTTrackingID, -1)
		w.emit(EvSyn, SynReport, 0)
	case protocol.TouchMotion:
		w.emit(EvAbs, AbsMTSlot, int32(ev.ID))
		s.position(w, ev)
		w.emit(EvSyn, SynReport, 0)
	default:
		if s.verbose > 1 {
			log.Printf("Input: Dropping touch %s event for output", ev.Kind)
		}
	}
	return w.err()
}

// Key injects one key transition.
func (s *OutputSink) Key(ev protocol.KeyEvent) error {
	if s.keyboard == nil {
		return ErrSinkClosed
	}
	if ev.Key > math.MaxUint16 {
		return fmt.Errorf("%w: %d", ErrKeyRange, ev.Key)
	}
	if s.verbose > 1 {
		log.Printf("Input: Key %d state %d for output", ev.Key, ev.State)
	}

	w := &emitter{dev: s.keyboard}
	w.emit(EvKey, uint16(ev.Key), int32(ev.State))
	w.emit(EvSyn, SynReport, 0)
	return w.err()
}

// Flush implements Sink; device writes are not buffered.
func (s *OutputSink) Flush() error { return nil }

// Close destroys both devices.
func (s *OutputSink) Close() error {
	var errs []error
	if s.keyboard != nil {
		errs = append(errs, s.keyboard.Close())
		s.keyboard = nil
	}
	if s.touch != nil {
		errs = append(errs, s.touch.Close())
		s.touch = nil
	}
	return errors.Join(errs...)
}

func (s *OutputSink) position(w *emitter, ev protocol.TouchEvent) {
	x, y := s.geometry.Map(ev.X, ev.Y, MaxTouchX, MaxTouchY)
	w.emit(EvAbs, AbsMTPositionX, x)
	w.emit(EvAbs, AbsMTPositionY, y)
}

// emitter writes a sequence of events, continuing past failures so that the
// synchronization marker is still attempted, and collects the errors.
type emitter struct {
	dev  Device
	errs []error
}

func (w *emitter) emit(typ, code uint16, value int32) {
	if err := w.dev.Emit(typ, code, value); err != nil {
		w.errs = append(w.errs, fmt.Errorf("emit %#x/%#x: %w", typ, code, err))
	}
}

func (w *emitter) err() error {
	return errors.Join(w.errs...)
}
