package protocol

import (
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Packet is a frame read from or written to one side of a connection.
type Packet interface {
	PacketID() int32
	Direction() Direction
}

// Structured is a packet whose payload the proxy understands.
type Structured interface {
	Packet
	ReadPayload(r io.Reader, s State) error
	WritePayload(w io.Writer, s State) error
}

// UnknownFrame is a frame the proxy does not decode.
// Raw holds every byte of the frame, length prefix included.
type UnknownFrame struct {
	ID  int32
	Dir Direction
	Raw []byte
}

func (f *UnknownFrame) PacketID() int32      { return f.ID }
func (f *UnknownFrame) Direction() Direction { return f.Dir }

// NextState is the intent announced by a handshake.
type NextState int32

const (
	NextStatus NextState = 1
	NextLogin  NextState = 2
)

func (n NextState) GameState() GameState {
	if n == NextStatus {
		return StateStatus
	}
	return StateLogin
}

func (n NextState) String() string {
	switch n {
	case NextStatus:
		return "status"
	case NextLogin:
		return "login"
	}
	return fmt.Sprintf("NextState(%d)", int32(n))
}

// Handshake is the first packet a client sends.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       NextState
}

func (h *Handshake) PacketID() int32      { return ProtocolVersion(h.ProtocolVersion).Handshake() }
func (h *Handshake) Direction() Direction { return C2S }

func (h *Handshake) ReadPayload(r io.Reader, _ State) (err error) {
	if h.ProtocolVersion, err = ReadVarInt(r); err != nil {
		return err
	}
	if h.ServerAddress, err = ReadString(r); err != nil {
		return err
	}
	if h.ServerPort, err = ReadUint16(r); err != nil {
		return err
	}
	next, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	switch NextState(next) {
	case NextStatus, NextLogin:
		h.NextState = NextState(next)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidNextState, next)
	}
	return nil
}

func (h *Handshake) WritePayload(w io.Writer, _ State) error {
	if err := WriteVarInt(w, h.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteString(w, h.ServerAddress); err != nil {
		return err
	}
	if err := WriteUint16(w, h.ServerPort); err != nil {
		return err
	}
	return WriteVarInt(w, int32(h.NextState))
}

// LoginStart opens the login phase. PlayerUUID is only carried by 1.16+ clients
// and may be absent even then.
type LoginStart struct {
	Username   string
	PlayerUUID *uuid.UUID
}

func (l *LoginStart) PacketID() int32      { return ProtocolVersion(0).LoginStart() }
func (l *LoginStart) Direction() Direction { return C2S }

func (l *LoginStart) ReadPayload(r io.Reader, s State) (err error) {
	version, err := s.Version()
	if err != nil {
		return err
	}
	if l.Username, err = ReadString(r); err != nil {
		return err
	}
	l.PlayerUUID = nil
	if !version.BinaryLoginUUID() {
		return nil
	}
	has, err := ReadBool(r)
	if err != nil || !has {
		return err
	}
	id, err := ReadUUID(r)
	if err != nil {
		return err
	}
	l.PlayerUUID = &id
	return nil
}

func (l *LoginStart) WritePayload(w io.Writer, s State) error {
	version, err := s.Version()
	if err != nil {
		return err
	}
	if err := WriteString(w, l.Username); err != nil {
		return err
	}
	if !version.BinaryLoginUUID() {
		return nil
	}
	if err := WriteBool(w, l.PlayerUUID != nil); err != nil {
		return err
	}
	if l.PlayerUUID == nil {
		return nil
	}
	return WriteUUID(w, *l.PlayerUUID)
}

// Property is a signed profile property such as the skin texture.
type Property struct {
	Name      string
	Value     string
	Signature *string
}

// LoginSuccess ends the login phase.
// Properties is nil for protocol versions that do not send the list.
type LoginSuccess struct {
	UUID       uuid.UUID
	Username   string
	Properties []Property
}

func (l *LoginSuccess) PacketID() int32      { return ProtocolVersion(0).LoginSuccess() }
func (l *LoginSuccess) Direction() Direction { return S2C }

func (l *LoginSuccess) ReadPayload(r io.Reader, s State) error {
	version, err := s.Version()
	if err != nil {
		return err
	}
	if version.BinaryLoginUUID() {
		if l.UUID, err = ReadUUID(r); err != nil {
			return err
		}
	} else {
		text, err := ReadString(r)
		if err != nil {
			return err
		}
		if l.UUID, err = uuid.Parse(text); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidUUID, text)
		}
	}
	if l.Username, err = ReadString(r); err != nil {
		return err
	}
	l.Properties = nil
	if !version.LoginProperties() {
		return nil
	}
	n, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("negative property count %d", n)
	}
	l.Properties = make([]Property, 0, min(int(n), 16))
	for i := int32(0); i < n; i++ {
		var p Property
		if p.Name, err = ReadString(r); err != nil {
			return err
		}
		if p.Value, err = ReadString(r); err != nil {
			return err
		}
		signed, err := ReadBool(r)
		if err != nil {
			return err
		}
		if signed {
			sig, err := ReadString(r)
			if err != nil {
				return err
			}
			p.Signature = &sig
		}
		l.Properties = append(l.Properties, p)
	}
	return nil
}

func (l *LoginSuccess) WritePayload(w io.Writer, s State) error {
	version, err := s.Version()
	if err != nil {
		return err
	}
	if version.BinaryLoginUUID() {
		err = WriteUUID(w, l.UUID)
	} else {
		err = WriteString(w, l.UUID.String())
	}
	if err != nil {
		return err
	}
	if err := WriteString(w, l.Username); err != nil {
		return err
	}
	if !version.LoginProperties() {
		return nil
	}
	if err := WriteVarInt(w, int32(len(l.Properties))); err != nil {
		return err
	}
	for _, p := range l.Properties {
		if err := WriteString(w, p.Name); err != nil {
			return err
		}
		if err := WriteString(w, p.Value); err != nil {
			return err
		}
		if err := WriteBool(w, p.Signature != nil); err != nil {
			return err
		}
		if p.Signature != nil {
			if err := WriteString(w, *p.Signature); err != nil {
				return err
			}
		}
	}
	return nil
}
