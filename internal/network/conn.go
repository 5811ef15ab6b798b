// Package network owns the stream connection to the remote input sender.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"time"

	"inputrelay/internal/protocol"
)

var (
	// ErrClosed means the connection was lost; the caller should reconnect.
	ErrClosed = errors.New("conn: closed")
	// ErrSkip means one frame was discarded; the connection is still usable.
	ErrSkip = errors.New("conn: frame skipped")
	// ErrNotConnected is returned by ReceiveFrame before a successful Connect.
	ErrNotConnected = fmt.Errorf("%w: not connected", ErrClosed)
)

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Conn is the client side of the sender connection. It is not safe for
// concurrent use: one goroutine connects and reads, and the only
// cross-goroutine interaction is cancellation of the context given to Connect.
type Conn struct {
	addr   string
	dialer Dialer

	conn    net.Conn
	unwatch func() bool

	header [protocol.HeaderSize]byte
}

// NewConn creates a disconnected Conn for address:port. A nil dialer uses a
// plain net.Dialer.
func NewConn(address string, port int, dialer Dialer) *Conn {
	if dialer == nil {
		dialer = &net.Dialer{KeepAlive: 30 * time.Second}
	}
	return &Conn{
		addr:   net.JoinHostPort(address, strconv.Itoa(port)),
		dialer: dialer,
	}
}

// Address returns the configured sender address in host:port form.
func (c *Conn) Address() string {
	return c.addr
}

// Connected reports whether a connection is currently established.
func (c *Conn) Connected() bool {
	return c.conn != nil
}

// RemoteAddr returns the peer address of the live connection, or "".
func (c *Conn) RemoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// Connect dials the sender. Any previous connection is released first.
// Cancelling ctx afterwards tears the connection down so that a blocked
// ReceiveFrame returns immediately.
func (c *Conn) Connect(ctx context.Context) error {
	c.release()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.addr, err)
	}

	c.conn = conn
	c.unwatch = context.AfterFunc(ctx, func() { interrupt(conn) })
	log.Printf("Conn: Connected to input sender %s", c.addr)
	return nil
}

// ReceiveFrame blocks until one complete frame has been read and decoded.
// Errors wrap ErrSkip when the frame was discarded but the stream is still
// aligned, or ErrClosed when the connection was lost and has been released.
func (c *Conn) ReceiveFrame() (protocol.Event, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	if _, err := io.ReadFull(c.conn, c.header[:]); err != nil {
		return nil, c.lost("header", err)
	}
	h, err := protocol.DecodeHeader(c.header[:])
	if err != nil {
		return nil, c.lost("header", err)
	}

	want, known := protocol.PayloadSize(h.Type)
	if !known || h.Size > protocol.MaxPayloadSize {
		// Keep the stream aligned on the next header.
		if _, err := io.CopyN(io.Discard, c.conn, int64(h.Size)); err != nil {
			return nil, c.lost("payload", err)
		}
		if !known {
			return nil, fmt.Errorf("%w: %w: %d", ErrSkip, protocol.ErrUnknownType, uint32(h.Type))
		}
		return nil, fmt.Errorf("%w: %w: %s frame of %d bytes, want %d", ErrSkip, protocol.ErrPayloadSize, h.Type, h.Size, want)
	}

	payload := make([]byte, h.Size)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, c.lost("payload", err)
	}

	ev, err := protocol.DecodePayload(h, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSkip, err)
	}
	return ev, nil
}

// Close releases the connection, if any.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	log.Printf("Conn: Closing connection to %s", c.addr)
	return c.release()
}

// lost releases the connection after a failed read.
func (c *Conn) lost(stage string, err error) error {
	_ = c.release()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: sender closed the connection", ErrClosed)
	}
	return fmt.Errorf("%w: %s read: %w", ErrClosed, stage, err)
}

func (c *Conn) release() error {
	if c.conn == nil {
		return nil
	}
	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// interrupt forces a pending read on conn to return. It shuts down the read
// side where the transport supports it and expires the read deadline in any
// case, so the reader sees an error instead of blocking.
func interrupt(conn net.Conn) {
	if cr, ok := conn.(interface{ CloseRead() error }); ok {
		_ = cr.CloseRead()
	}
	_ = conn.SetReadDeadline(time.Now())
}
