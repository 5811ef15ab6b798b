//go:build linux

package input

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sys/unix"
)

// uinput ioctls (linux/uinput.h).
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567

	busUSB = 0x03
)

// DefaultUinputPath is the uinput control node.
const DefaultUinputPath = "/dev/uinput"

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	Name       [uinputMaxNameLen]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [absCnt]int32
	Absmin     [absCnt]int32
	Absfuzz    [absCnt]int32
	Absflat    [absCnt]int32
}

// inputEvent mirrors struct input_event. A zero time lets the kernel stamp it.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// UinputBackend creates virtual devices through /dev/uinput.
type UinputBackend struct {
	Path string
}

// NewUinputBackend returns a backend using DefaultUinputPath.
func NewUinputBackend() *UinputBackend {
	return &UinputBackend{Path: DefaultUinputPath}
}

// CreateTouchDevice creates a multi-touch screen with the given bounds.
func (b *UinputBackend) CreateTouchDevice(maxX, maxY, maxSlots int32) (Device, error) {
	dev := uinputUserDev{ID: inputID{Bustype: busUSB, Vendor: 0x8086, Product: 0xf0f0, Version: 0x01}}
	copy(dev.Name[:], "remote-display-input-touch")
	dev.Absmax[AbsMTPositionX] = maxX
	dev.Absmax[AbsMTPositionY] = maxY
	dev.Absmax[AbsMTSlot] = maxSlots - 1
	dev.Absmax[AbsX] = maxX
	dev.Absmax[AbsY] = maxY

	return b.create(dev, func(fd int) error {
		return ioctlAll(fd,
			ioctlArg{uiSetEvBit, int(EvKey)},
			ioctlArg{uiSetKeyBit, int(BtnTouch)},
			ioctlArg{uiSetEvBit, int(EvAbs)},
			ioctlArg{uiSetAbsBit, int(AbsMTSlot)},
			ioctlArg{uiSetAbsBit, int(AbsMTTrackingID)},
			ioctlArg{uiSetAbsBit, int(AbsMTPositionX)},
			ioctlArg{uiSetAbsBit, int(AbsMTPositionY)},
			ioctlArg{uiSetAbsBit, int(AbsX)},
			ioctlArg{uiSetAbsBit, int(AbsY)},
		)
	})
}

// CreateKeyboardDevice creates a keyboard exposing the first 248 key codes.
func (b *UinputBackend) CreateKeyboardDevice() (Device, error) {
	dev := uinputUserDev{ID: inputID{Bustype: busUSB, Vendor: 0x8086, Product: 0xf0f1, Version: 0x01}}
	copy(dev.Name[:], "remote-display-input-keyboard")

	return b.create(dev, func(fd int) error {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, int(EvKey)); err != nil {
			return err
		}
		for key := 0; key < maxKeyboardKeys; key++ {
			if err := unix.IoctlSetInt(fd, uiSetKeyBit, key); err != nil {
				return fmt.Errorf("enable key %d: %w", key, err)
			}
		}
		return nil
	})
}

func (b *UinputBackend) create(dev uinputUserDev, setup func(fd int) error) (Device, error) {
	name := string(bytes.TrimRight(dev.Name[:], "\x00"))
	path := b.Path
	if path == "" {
		path = DefaultUinputPath
	}

	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	fail := func(err error) (Device, error) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	if err := setup(fd); err != nil {
		return fail(err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, &dev); err != nil {
		return fail(err)
	}
	if _, err := unix.Write(fd, buf.Bytes()); err != nil {
		return fail(fmt.Errorf("write device description: %w", err))
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fail(fmt.Errorf("UI_DEV_CREATE: %w", err))
	}

	log.Printf("Input: Created virtual device %q", name)
	return &uinputDevice{fd: fd, name: name}, nil
}

type ioctlArg struct {
	req   uint
	value int
}

func ioctlAll(fd int, args ...ioctlArg) error {
	for _, a := range args {
		if err := unix.IoctlSetInt(fd, a.req, a.value); err != nil {
			return fmt.Errorf("ioctl %#x(%d): %w", a.req, a.value, err)
		}
	}
	return nil
}

// uinputDevice is one created uinput device.
type uinputDevice struct {
	fd   int
	name string
	buf  bytes.Buffer
}

// Emit writes one input_event.
func (d *uinputDevice) Emit(typ, code uint16, value int32) error {
	if d.fd < 0 {
		return ErrSinkClosed
	}
	d.buf.Reset()
	ev := inputEvent{Type: typ, Code: code, Value: value}
	if err := binary.Write(&d.buf, binary.NativeEndian, &ev); err != nil {
		return err
	}
	_, err := unix.Write(d.fd, d.buf.Bytes())
	return err
}

// Close destroys the device and closes its file descriptor.
func (d *uinputDevice) Close() error {
	if d.fd < 0 {
		return nil
	}
	var errs []error
	if err := unix.IoctlSetInt(d.fd, uiDevDestroy, 0); err != nil {
		errs = append(errs, fmt.Errorf("UI_DEV_DESTROY %s: %w", d.name, err))
	}
	if err := unix.Close(d.fd); err != nil {
		errs = append(errs, err)
	}
	d.fd = -1
	log.Printf("Input: Destroyed virtual device %q", d.name)
	return errors.Join(errs...)
}
