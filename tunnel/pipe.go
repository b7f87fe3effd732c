package tunnel

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/go-mc/motion/protocol"
	"go.uber.org/zap"
)

// pipe moves frames from src to dst in one direction.
func (t *Tunnel) pipe(ctx context.Context, src io.Reader, dst io.Writer, dir protocol.Direction) error {
	r := bufio.NewReader(src)
	log := t.log.With(zap.Stringer("dir", dir))
	for {
		state, err := t.awaitReadable(ctx, dir)
		if err != nil {
			return err
		}
		pkt, err := protocol.ReadPacket(r, state, dir)
		if err != nil {
			return err
		}

		if frame, ok := pkt.(*protocol.UnknownFrame); ok {
			if dir == protocol.C2S && state.GameState == protocol.StateLogin && t.waitingLoginStart() {
				return fmt.Errorf("%w: 0x%02X", ErrUnexpectedPacket, frame.ID)
			}
			if _, err := dst.Write(frame.Raw); err != nil {
				return err
			}
			continue
		}
		log.Debug("packet", zap.Int32("id", pkt.PacketID()), zap.Stringer("state", state.GameState))

		if hs, ok := pkt.(*protocol.Handshake); ok {
			t.apply(hs, false)
			if hs.NextState == protocol.NextLogin {
				// held back until login start tells us who is joining
				continue
			}
			if err := protocol.WritePacket(dst, hs, state); err != nil {
				return err
			}
			continue
		}

		t.apply(pkt, true)

		login, isLoginStart := pkt.(*protocol.LoginStart)
		if isLoginStart && dir == protocol.C2S {
			hs, err := t.rewrittenHandshake()
			if err != nil {
				return err
			}
			if err := protocol.WritePacket(dst, hs, state); err != nil {
				return err
			}
		}

		if err := protocol.WritePacket(dst, pkt, state); err != nil {
			return err
		}

		if isLoginStart {
			t.listener.OnLogin(t, login.Username, protocol.OfflineUUID(login.Username))
		}
	}
}

// awaitReadable blocks the backend direction until the client handshake has
// been seen, then returns a snapshot of the state to decode with.
func (t *Tunnel) awaitReadable(ctx context.Context, dir protocol.Direction) (protocol.State, error) {
	if dir == protocol.S2C {
		select {
		case <-t.handshakeDone:
		case <-ctx.Done():
			return protocol.State{}, ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone(), nil
}

func (t *Tunnel) waitingLoginStart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tunnelState.WaitingLoginStart
}

// apply runs the optional transform and the state update under the lock and
// reports any transition to the listener afterwards.
func (t *Tunnel) apply(p protocol.Packet, transform bool) {
	t.mu.Lock()
	if transform {
		t.transformPacket(p)
	}
	tr, changed := t.updateState(p)
	t.mu.Unlock()

	if changed {
		t.log.Debug("state transition", zap.Stringer("from", tr.from), zap.Stringer("to", tr.to))
		t.listener.OnStateTransition(t, tr.from, tr.to)
	}
}

// rewrittenHandshake returns a copy of the cached handshake with the
// forwarding information applied.
func (t *Tunnel) rewrittenHandshake() (*protocol.Handshake, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Handshake == nil {
		return nil, protocol.ErrMissingHandshake
	}
	hs := *t.state.Handshake
	t.transformPacket(&hs)
	return &hs, nil
}
