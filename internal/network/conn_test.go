package network

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"inputrelay/internal/protocol"
)

// startSender listens on loopback and hands the first accepted connection to
// the returned channel.
func startSender(t *testing.T) (string, int, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port, accepted
}

func connectTo(t *testing.T, ctx context.Context) (*Conn, net.Conn) {
	t.Helper()
	host, port, accepted := startSender(t)
	c := NewConn(host, port, nil)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	select {
	case server := <-accepted:
		t.Cleanup(func() { server.Close() })
		return c, server
	case <-time.After(2 * time.Second):
		t.Fatal("sender never accepted the connection")
		return nil, nil
	}
}

func TestReceiveFrame(t *testing.T) {
	c, server := connectTo(t, context.Background())
	if !c.Connected() {
		t.Fatal("Expected Connected after Connect")
	}

	want := protocol.TouchEvent{Kind: protocol.TouchDown, ID: 1, X: protocol.FixedFromInt(5), Y: protocol.FixedFromInt(6), Time: 42}
	go server.Write(protocol.EncodeFrame(want))

	got, err := c.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame: %v", err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestReceiveFrameSkipsUnknownType(t *testing.T) {
	c, server := connectTo(t, context.Background())

	want := protocol.KeyEvent{Kind: protocol.KeyKey, Key: 30, State: protocol.KeyPressed}
	go func() {
		server.Write(protocol.EncodeHeader(protocol.Header{Type: 7, Size: 5}))
		server.Write([]byte{1, 2, 3, 4, 5})
		server.Write(protocol.EncodeFrame(want))
	}()

	_, err := c.ReceiveFrame()
	if !errors.Is(err, ErrSkip) || !errors.Is(err, protocol.ErrUnknownType) {
		t.Fatalf("Expected ErrSkip wrapping ErrUnknownType, got %v", err)
	}
	if !c.Connected() {
		t.Fatal("Expected connection to survive an unknown frame")
	}

	got, err := c.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame after skip: %v", err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestReceiveFrameSkipsWrongSize(t *testing.T) {
	c, server := connectTo(t, context.Background())

	go func() {
		server.Write(protocol.EncodeHeader(protocol.Header{Type: protocol.FrameTouch, Size: 8}))
		server.Write(make([]byte, 8))
	}()

	_, err := c.ReceiveFrame()
	if !errors.Is(err, ErrSkip) || !errors.Is(err, protocol.ErrPayloadSize) {
		t.Fatalf("Expected ErrSkip wrapping ErrPayloadSize, got %v", err)
	}
	if !c.Connected() {
		t.Error("Expected connection to survive a malformed frame")
	}
}

func TestReceiveFrameClosedBySender(t *testing.T) {
	c, server := connectTo(t, context.Background())
	server.Close()

	_, err := c.ReceiveFrame()
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	if c.Connected() {
		t.Error("Expected Disconnected after a zero-byte read")
	}
}

func TestReceiveFrameShortPayload(t *testing.T) {
	c, server := connectTo(t, context.Background())

	frame := protocol.EncodeFrame(protocol.PointerEvent{Kind: protocol.PointerMotion})
	go func() {
		server.Write(frame[:protocol.HeaderSize+10])
		server.Close()
	}()

	_, err := c.ReceiveFrame()
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected truncated frame to be treated as connection loss, got %v", err)
	}
	if c.Connected() {
		t.Error("Expected Disconnected after a short read")
	}
}

func TestCancelInterruptsBlockedRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, _ := connectTo(t, ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.ReceiveFrame()
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveFrame still blocked after cancellation")
	}
}

func TestReceiveFrameNotConnected(t *testing.T) {
	c := NewConn("127.0.0.1", 1, nil)
	if _, err := c.ReceiveFrame(); !errors.Is(err, ErrNotConnected) || !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

type failingDialer struct {
	calls int
}

func (d *failingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls++
	return nil, errors.New("connection refused")
}

func TestConnectFailureStaysDisconnected(t *testing.T) {
	d := &failingDialer{}
	c := NewConn("10.0.0.1", 5000, d)
	if c.Address() != "10.0.0.1:5000" {
		t.Errorf("Expected address 10.0.0.1:5000, got %s", c.Address())
	}
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("Expected connect error")
	}
	if c.Connected() {
		t.Error("Expected Disconnected after failed connect")
	}
	if d.calls != 1 {
		t.Errorf("Expected 1 dial, got %d", d.calls)
	}
}
