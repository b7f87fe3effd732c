package tunnel

import (
	"strings"

	"github.com/go-mc/motion/protocol"
	"github.com/google/uuid"
)

// ForwardedAddress builds the handshake server address understood by backends
// running in BungeeCord ip-forward mode.
func ForwardedAddress(serverAddress, clientIP string, id uuid.UUID) string {
	return strings.Join([]string{serverAddress, clientIP, id.String()}, "\x00")
}

type transition struct {
	from, to protocol.GameState
}

// transformPacket rewrites a client handshake once the username is known.
// Callers hold t.mu.
func (t *Tunnel) transformPacket(p protocol.Packet) {
	hs, ok := p.(*protocol.Handshake)
	if !ok || t.tunnelState.Username == nil {
		return
	}
	id := protocol.OfflineUUID(*t.tunnelState.Username)
	hs.ServerAddress = ForwardedAddress(hs.ServerAddress, t.upstreamIP(), id)
}

// updateState advances the state machine for p. Callers hold t.mu.
func (t *Tunnel) updateState(p protocol.Packet) (tr transition, changed bool) {
	from := t.state.GameState
	switch p := p.(type) {
	case *protocol.Handshake:
		if from != protocol.StateHandshake {
			return
		}
		hs := *p
		t.state.Handshake = &hs
		t.state.GameState = p.NextState.GameState()
		t.tunnelState.WaitingLoginStart = true
		close(t.handshakeDone)
	case *protocol.LoginStart:
		if from != protocol.StateLogin {
			return
		}
		name := p.Username
		t.tunnelState.Username = &name
		t.tunnelState.WaitingLoginStart = false
		t.tunnelState.OnlineClient = p.PlayerUUID != nil && !protocol.OfflineSuggestion(name, *p.PlayerUUID)
	case *protocol.LoginSuccess:
		if from != protocol.StateLogin {
			return
		}
		t.state.GameState = protocol.StatePlay
	}
	if t.state.GameState == from {
		return
	}
	return transition{from: from, to: t.state.GameState}, true
}
