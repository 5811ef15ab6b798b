// Package receiver runs the loop that reads input frames from the remote
// sender and delivers them to the configured sink.
package receiver

import (
	"log"

	"inputrelay/internal/gesture"
	"inputrelay/internal/input"
	"inputrelay/internal/metrics"
	"inputrelay/internal/protocol"
)

// Dispatcher routes decoded events to a sink. Pointer events go through the
// gesture translator first, since both sinks only accept touch and key
// events.
type Dispatcher struct {
	sink     input.Sink
	gestures *gesture.Translator
	metrics  *metrics.Metrics
}

// NewDispatcher creates a dispatcher for sink. m may be nil.
func NewDispatcher(sink input.Sink, gestures *gesture.Translator, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{sink: sink, gestures: gestures, metrics: m}
}

// Dispatch delivers one event and flushes the sink. Sink failures are logged
// and otherwise ignored.
func (d *Dispatcher) Dispatch(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.TouchEvent:
		d.touch(e)
	case protocol.KeyEvent:
		if err := d.sink.Key(e); err != nil {
			log.Printf("Receiver: Failed to inject key %d: %v", e.Key, err)
			d.metrics.SinkError("key")
		}
	case protocol.PointerEvent:
		if t, ok := d.gestures.Translate(e); ok {
			d.touch(t)
		}
	}
	d.flush()
}

// ReleaseContact lifts a pointer-derived contact that is still down.
func (d *Dispatcher) ReleaseContact() {
	if t, ok := d.gestures.Release(); ok {
		log.Printf("Receiver: Releasing touch contact %d", t.ID)
		d.touch(t)
		d.flush()
	}
}

func (d *Dispatcher) touch(ev protocol.TouchEvent) {
	if err := d.sink.Touch(ev); err != nil {
		log.Printf("Receiver: Failed to inject touch %s: %v", ev.Kind, err)
		d.metrics.SinkError("touch")
	}
}

func (d *Dispatcher) flush() {
	if err := d.sink.Flush(); err != nil {
		log.Printf("Receiver: Failed to flush %s sink: %v", d.sink.Mode(), err)
		d.metrics.SinkError("flush")
	}
}
