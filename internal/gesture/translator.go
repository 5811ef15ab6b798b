package gesture

import (
	"log"

	"inputrelay/internal/protocol"
)

// BtnMouse is the first pointer button code (BTN_MOUSE / BTN_LEFT).
const BtnMouse = 0x110

// SyntheticTouchID is the slot used for every pointer-derived contact.
// Only one contact is ever emulated, whatever the number of held buttons.
const SyntheticTouchID = 3

// State is a snapshot of the translator's button state.
type State struct {
	Pressed   ButtonSet
	TouchDown bool
	Changed   bool
}

// Translator converts pointer events to touch events. Holding any button
// is one touch contact: the contact goes down on the first motion after the
// first button press, and up on the first motion after the last release.
// It is not safe for concurrent use.
type Translator struct {
	pressed   ButtonSet
	touchDown bool
	changed   bool
	verbose   int
}

// NewTranslator returns a translator with no buttons held. Rejected buttons
// are always logged; verbose > 1 also logs every pointer event.
func NewTranslator(verbose int) *Translator {
	return &Translator{verbose: verbose}
}

// State returns the current button state.
func (t *Translator) State() State {
	return State{Pressed: t.pressed, TouchDown: t.touchDown, Changed: t.changed}
}

// Translate feeds one pointer event and returns the touch event it produces,
// if any. At most one touch event is produced per pointer event.
func (t *Translator) Translate(ev protocol.PointerEvent) (protocol.TouchEvent, bool) {
	switch ev.Kind {
	case protocol.PointerButton:
		t.button(ev)
		return protocol.TouchEvent{}, false
	case protocol.PointerMotion:
		return t.motion(ev)
	default:
		if t.verbose > 1 {
			log.Printf("Gesture: Pointer %s event (axis %d value %.2f)", ev.Kind, ev.Axis, ev.Value.Float())
		}
		return protocol.TouchEvent{}, false
	}
}

// Release lifts a contact left down, e.g. after the sender went away, and
// resets the button state.
func (t *Translator) Release() (protocol.TouchEvent, bool) {
	down := t.touchDown
	t.pressed, t.touchDown, t.changed = 0, false, false
	if !down {
		return protocol.TouchEvent{}, false
	}
	return protocol.TouchEvent{Kind: protocol.TouchUp, ID: SyntheticTouchID}, true
}

func (t *Translator) button(ev protocol.PointerEvent) {
	if t.verbose > 1 {
		log.Printf("Gesture: Pointer button %#x state %d", ev.Button, ev.State)
	}
	idx := int64(ev.Button) - BtnMouse
	if idx < 0 || idx >= MaxButtons {
		log.Printf("Gesture: Ignoring button %#x, only %d buttons are tracked", ev.Button, MaxButtons)
		return
	}

	wasEmpty := t.pressed.Empty()
	if ev.Pressed() {
		_ = t.pressed.Set(int(idx))
	} else {
		_ = t.pressed.Clear(int(idx))
	}
	if wasEmpty != t.pressed.Empty() {
		t.changed = true
	}
}

func (t *Translator) motion(ev protocol.PointerEvent) (protocol.TouchEvent, bool) {
	touch := protocol.TouchEvent{ID: SyntheticTouchID, X: ev.X, Y: ev.Y, Time: ev.Time}

	if t.changed {
		t.changed = false
		switch {
		case t.touchDown && t.pressed.Empty():
			t.touchDown = false
			touch.Kind = protocol.TouchUp
			return touch, true
		case !t.touchDown && !t.pressed.Empty():
			t.touchDown = true
			touch.Kind = protocol.TouchDown
			return touch, true
		}
		return protocol.TouchEvent{}, false
	}

	if t.pressed.Empty() {
		return protocol.TouchEvent{}, false
	}
	touch.Kind = protocol.TouchMotion
	return touch, true
}
