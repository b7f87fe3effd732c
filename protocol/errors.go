package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrVarIntTooBig     = errors.New("varint is too big")
	ErrInvalidString    = errors.New("string is not valid utf-8")
	ErrStringTooLong    = errors.New("string length out of bounds")
	ErrInvalidNextState = errors.New("invalid next state")
	ErrMissingHandshake = errors.New("handshake packet not received")
	ErrFrameTooLarge    = errors.New("frame length out of bounds")
	ErrTrailingData     = errors.New("packet has trailing data")
	ErrInvalidUUID      = errors.New("invalid uuid")
)

// DecodeError is returned when a structured packet fails to decode.
type DecodeError struct {
	ID        int32
	State     GameState
	Direction Direction
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s packet 0x%02X in %s: %v", e.Direction, e.ID, e.State, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
