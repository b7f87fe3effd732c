package tunnel

import (
	"github.com/go-mc/motion/protocol"
	"github.com/google/uuid"
)

// Listener observes the lifecycle of a tunnel. Callbacks run on the pipe
// goroutines, outside the state lock, and should return quickly.
type Listener interface {
	OnStateTransition(t *Tunnel, from, to protocol.GameState)
	// OnLogin fires once the rewritten handshake and login start reached the backend.
	OnLogin(t *Tunnel, username string, id uuid.UUID)
	OnClose(t *Tunnel, err error)
}

type StubListener int

func (StubListener) OnStateTransition(*Tunnel, protocol.GameState, protocol.GameState) {}

func (StubListener) OnLogin(*Tunnel, string, uuid.UUID) {}

func (StubListener) OnClose(*Tunnel, error) {}
