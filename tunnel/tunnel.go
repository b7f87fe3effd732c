// Package tunnel relays one client connection to one backend while tracking
// the protocol state and injecting the player's address and offline UUID
// into the login handshake.
package tunnel

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/go-mc/motion/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrUnexpectedPacket is returned when the client sends anything other than
// login start while its login handshake is being held back.
var ErrUnexpectedPacket = errors.New("unexpected packet before login start")

// TunnelState is what the tunnel itself learns about the player.
type TunnelState struct {
	// nil until login start has been seen
	Username          *string
	WaitingLoginStart bool
	// set when login start carried a UUID other than the offline one, which
	// means the client holds an online account the backend will not see
	OnlineClient bool
}

// Tunnel is the session for a single accepted connection.
type Tunnel struct {
	upstreamAddr net.Addr
	log          *zap.Logger
	listener     Listener

	mu          sync.Mutex
	state       protocol.State
	tunnelState TunnelState
	// closed when the game state leaves handshake
	handshakeDone chan struct{}
}

// New creates a tunnel for a client connecting from upstreamAddr.
func New(upstreamAddr net.Addr, log *zap.Logger) *Tunnel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tunnel{
		upstreamAddr:  upstreamAddr,
		log:           log,
		listener:      StubListener(0),
		handshakeDone: make(chan struct{}),
	}
}

func (t *Tunnel) SetupListener(l Listener) {
	t.listener = l
}

func (t *Tunnel) UpstreamAddr() net.Addr {
	return t.upstreamAddr
}

// State returns a snapshot of the protocol state.
func (t *Tunnel) State() protocol.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// TunnelState returns a snapshot of what is known about the player.
func (t *Tunnel) TunnelState() TunnelState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.tunnelState
	if s.Username != nil {
		name := *s.Username
		s.Username = &name
	}
	return s
}

// Establish relays frames between upstream (the client) and downstream (the
// backend) until either side fails or ctx is done. Both connections are closed
// before it returns. A clean end of stream is reported as nil.
func (t *Tunnel) Establish(ctx context.Context, upstream, downstream net.Conn) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- t.pipe(ctx, upstream, downstream, protocol.C2S) }()
	go func() { errs <- t.pipe(ctx, downstream, upstream, protocol.S2C) }()

	pending := 2
	select {
	case err = <-errs:
		pending--
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()
	closeErr := multierr.Combine(upstream.Close(), downstream.Close())
	for ; pending > 0; pending-- {
		<-errs
	}

	if errors.Is(err, io.EOF) {
		err = nil
	}
	err = multierr.Append(err, closeErr)
	t.listener.OnClose(t, err)
	return err
}

// upstreamIP is the textual address of the client without its port.
func (t *Tunnel) upstreamIP() string {
	if t.upstreamAddr == nil {
		return ""
	}
	if addr, ok := t.upstreamAddr.(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	host, _, err := net.SplitHostPort(t.upstreamAddr.String())
	if err != nil {
		return t.upstreamAddr.String()
	}
	return host
}
