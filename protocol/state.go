package protocol

import "fmt"

// GameState is the protocol phase of a connection.
type GameState int

const (
	StateHandshake GameState = iota
	StateStatus
	StateLogin
	StatePlay
)

func (s GameState) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StatePlay:
		return "play"
	}
	return fmt.Sprintf("GameState(%d)", int(s))
}

// Direction is the flow of a frame relative to the backend server.
type Direction int

const (
	C2S Direction = iota
	S2C
)

func (d Direction) String() string {
	if d == C2S {
		return "C2S"
	}
	return "S2C"
}

// State is the per-connection protocol state shared by both directions.
// Handshake is non-nil whenever GameState is past StateHandshake.
type State struct {
	GameState GameState
	Handshake *Handshake
}

// Clone returns a copy that does not share the cached handshake.
func (s State) Clone() State {
	if s.Handshake != nil {
		hs := *s.Handshake
		s.Handshake = &hs
	}
	return s
}

// Version returns the protocol version from the cached handshake.
func (s State) Version() (ProtocolVersion, error) {
	if s.Handshake == nil {
		return 0, ErrMissingHandshake
	}
	return ProtocolVersion(s.Handshake.ProtocolVersion), nil
}
