package input

// Linux input event codes (linux/input-event-codes.h).
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvAbs uint16 = 0x03

	SynReport uint16 = 0

	BtnTouch uint16 = 0x14a

	AbsX            uint16 = 0x00
	AbsY            uint16 = 0x01
	AbsMTSlot       uint16 = 0x2f
	AbsMTPositionX  uint16 = 0x35
	AbsMTPositionY  uint16 = 0x36
	AbsMTTrackingID uint16 = 0x39
)

// Touch device bounds.
const (
	MaxTouchX     int32 = 4096
	MaxTouchY     int32 = 4096
	MaxTouchSlots int32 = 8
)

const (
	absCnt           = 0x40
	maxKeyboardKeys  = 248
	uinputMaxNameLen = 80
)
