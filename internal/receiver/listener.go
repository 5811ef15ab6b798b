package receiver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"inputrelay/internal/gesture"
	"inputrelay/internal/input"
	"inputrelay/internal/metrics"
	"inputrelay/internal/network"
	"inputrelay/internal/protocol"
)

// DefaultBackoff is the pause between failed connection attempts.
const DefaultBackoff = time.Second

// Config configures the listener.
type Config struct {
	// Address and Port locate the input sender. An empty Address disables
	// the listener.
	Address string
	Port    int

	// Verbose > 1 logs every received frame.
	Verbose int

	// Backoff is the pause after a failed connection attempt (default 1s).
	Backoff time.Duration

	// Dialer opens the connection; nil uses a net.Dialer.
	Dialer network.Dialer

	// Metrics records loop activity; may be nil.
	Metrics *metrics.Metrics

	// OnStatus is called from the receive loop whenever the connection
	// state changes. It must not block.
	OnStatus func(Status)

	// Wait pauses for d or until ctx is done, whichever comes first.
	Wait func(ctx context.Context, d time.Duration)
}

// Target selects the sink. A non-zero SurfaceID relays to that surface
// through Relay; otherwise virtual devices are created on Backend and touch
// coordinates are mapped into Geometry.
type Target struct {
	SurfaceID uint32
	Relay     input.Relay

	Backend  input.Backend
	Geometry input.Geometry
}

// Status is a snapshot of the listener.
type Status struct {
	Mode       string
	Remote     string
	Connected  bool
	Frames     uint64
	Skipped    uint64
	Reconnects uint64
}

// Payload converts the snapshot into its websocket form.
func (s Status) Payload() protocol.StatusPayload {
	return protocol.StatusPayload{
		Mode:       s.Mode,
		Remote:     s.Remote,
		Connected:  s.Connected,
		Frames:     s.Frames,
		Skipped:    s.Skipped,
		Reconnects: s.Reconnects,
	}
}

// Listener owns the receive loop goroutine. The connection, the gesture
// state and the sink are only touched by that goroutine.
type Listener struct {
	cfg        Config
	conn       *network.Conn
	sink       input.Sink
	dispatcher *Dispatcher
	target     string

	cancel context.CancelFunc
	done   chan struct{}

	connected atomic.Bool
	connects  atomic.Uint64
	frames    atomic.Uint64
	skipped   atomic.Uint64
}

// Start creates the sink and starts the receive loop. It returns (nil, nil)
// when no sender address is configured, and an error when the sink cannot
// be created; in both cases nothing is left running.
func Start(cfg Config, target Target) (*Listener, error) {
	if cfg.Address == "" {
		log.Println("Receiver: Not listening for input events; network configuration not set")
		return nil, nil
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Wait == nil {
		cfg.Wait = sleep
	}

	sink, err := newSink(target, cfg.Verbose)
	if err != nil {
		log.Printf("Receiver: Error initialising input sink: %v", err)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		cfg:        cfg,
		conn:       network.NewConn(cfg.Address, cfg.Port, cfg.Dialer),
		sink:       sink,
		dispatcher: NewDispatcher(sink, gesture.NewTranslator(cfg.Verbose), cfg.Metrics),
		target:     describeTarget(target),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	log.Printf("Receiver: Receiving input events from %s for %s", l.conn.Address(), l.target)
	go l.run(ctx)
	return l, nil
}

func newSink(target Target, verbose int) (input.Sink, error) {
	if target.SurfaceID != 0 {
		s, err := input.NewSurfaceSink(target.SurfaceID, target.Relay, verbose)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := input.NewOutputSink(target.Backend, target.Geometry, verbose)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func describeTarget(target Target) string {
	if target.SurfaceID != 0 {
		return fmt.Sprintf("surface %d", target.SurfaceID)
	}
	return "output"
}

// Stop signals the loop, interrupts a pending read and blocks until the loop
// has exited and released the connection and the sink. It is safe to call
// on a nil Listener and more than once.
func (l *Listener) Stop() {
	if l == nil {
		return
	}
	if l.cfg.Verbose > 0 {
		log.Println("Receiver: Waiting for input receiver to finish...")
	}
	l.cancel()
	<-l.done
	log.Println("Receiver: Input receiver stopped")
}

// Done is closed once the loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Status returns a snapshot of the listener.
func (l *Listener) Status() Status {
	var reconnects uint64
	if n := l.connects.Load(); n > 1 {
		reconnects = n - 1
	}
	return Status{
		Mode:       l.sink.Mode(),
		Remote:     l.conn.Address(),
		Connected:  l.connected.Load(),
		Frames:     l.frames.Load(),
		Skipped:    l.skipped.Load(),
		Reconnects: reconnects,
	}
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	defer l.release()

	for ctx.Err() == nil {
		if !l.conn.Connected() {
			l.connect(ctx)
			continue
		}

		ev, err := l.conn.ReceiveFrame()
		if ctx.Err() != nil {
			log.Println("Receiver: Receive interrupted by shutdown")
			break
		}

		switch {
		case err == nil:
			l.frames.Add(1)
			l.cfg.Metrics.Frame(ev.FrameType().String())
			if l.cfg.Verbose > 1 {
				log.Printf("Receiver: %s event received for %s", ev.FrameType(), l.target)
			}
			l.dispatcher.Dispatch(ev)

		case errors.Is(err, network.ErrSkip):
			l.skipped.Add(1)
			l.cfg.Metrics.Skipped(skipReason(err))
			if l.cfg.Verbose > 1 {
				log.Printf("Receiver: Discarding frame for %s: %v", l.target, err)
			}

		default:
			log.Printf("Receiver: Sender has closed socket (%v). Attempting to reconnect...", err)
			l.cfg.Metrics.Disconnected()
			l.setConnected(false)
			l.dispatcher.ReleaseContact()
		}
	}
}

// connect makes one connection attempt and waits out the backoff if it
// fails. The first connection and every reconnection go through here.
func (l *Listener) connect(ctx context.Context) {
	err := l.conn.Connect(ctx)
	if ctx.Err() != nil {
		return
	}
	l.cfg.Metrics.ConnectAttempt(err == nil)
	if err != nil {
		log.Printf("Receiver: Error connecting to input sender: %v", err)
		l.cfg.Wait(ctx, l.cfg.Backoff)
		return
	}
	l.connects.Add(1)
	l.setConnected(true)
}

func (l *Listener) setConnected(v bool) {
	if l.connected.Swap(v) == v {
		return
	}
	if l.cfg.OnStatus != nil {
		l.cfg.OnStatus(l.Status())
	}
}

func (l *Listener) release() {
	if err := l.conn.Close(); err != nil {
		log.Printf("Receiver: Error closing transport: %v", err)
	}
	if l.connected.Load() {
		l.cfg.Metrics.Disconnected()
	}
	l.setConnected(false)
	if err := l.sink.Close(); err != nil {
		log.Printf("Receiver: Error releasing %s sink: %v", l.sink.Mode(), err)
	}
	log.Println("Receiver: Receive loop finished")
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, protocol.ErrPayloadSize):
		return "payload_size"
	default:
		return "decode"
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
