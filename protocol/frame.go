package protocol

import (
	"bytes"
	"fmt"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

// MaxFrameLength is the largest frame length a 3-byte var-int can announce.
const MaxFrameLength = 1<<21 - 1

type registryKey struct {
	id    int32
	state GameState
	dir   Direction
}

var registry = map[registryKey]func() Structured{
	{ProtocolVersion(0).Handshake(), StateHandshake, C2S}: func() Structured { return new(Handshake) },
	{ProtocolVersion(0).LoginStart(), StateLogin, C2S}:    func() Structured { return new(LoginStart) },
	{ProtocolVersion(0).LoginSuccess(), StateLogin, S2C}:  func() Structured { return new(LoginSuccess) },
}

// Known reports whether frames with this id are decoded in the given state and direction.
func Known(id int32, state GameState, dir Direction) bool {
	_, ok := registry[registryKey{id, state, dir}]
	return ok
}

// ReadPacket reads one frame from r. Frames without a structured decoder for
// (id, s.GameState, dir) come back as *UnknownFrame with their exact bytes.
// A clean end of stream before the first byte returns io.EOF.
func ReadPacket(r io.Reader, s State, dir Direction) (Packet, error) {
	length, lengthRaw, err := ReadVarIntRaw(r)
	if err != nil {
		return nil, err
	}
	if length < 1 || length > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, length)
	}
	id, idRaw, err := ReadVarIntRaw(r)
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	if len(idRaw) > int(length) {
		return nil, fmt.Errorf("%w: packet id longer than frame", ErrFrameTooLarge)
	}
	payload := make([]byte, int(length)-len(idRaw))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, unexpectedEOF(err)
	}

	newPacket, ok := registry[registryKey{id, s.GameState, dir}]
	if !ok {
		raw := make([]byte, 0, len(lengthRaw)+int(length))
		raw = append(raw, lengthRaw...)
		raw = append(raw, idRaw...)
		raw = append(raw, payload...)
		return &UnknownFrame{ID: id, Dir: dir, Raw: raw}, nil
	}

	p := newPacket()
	br := bytes.NewReader(payload)
	if err := p.ReadPayload(br, s); err != nil {
		return nil, &DecodeError{ID: id, State: s.GameState, Direction: dir, Err: unexpectedEOF(err)}
	}
	if br.Len() != 0 {
		return nil, &DecodeError{
			ID: id, State: s.GameState, Direction: dir,
			Err: fmt.Errorf("%w: %d bytes", ErrTrailingData, br.Len()),
		}
	}
	return p, nil
}

// WritePacket encodes p and writes it to w with a single Write call.
func WritePacket(w io.Writer, p Packet, s State) error {
	switch p := p.(type) {
	case *UnknownFrame:
		_, err := w.Write(p.Raw)
		return err
	case Structured:
		frame, err := Encode(p, s)
		if err != nil {
			return err
		}
		_, err = w.Write(frame)
		return err
	}
	return fmt.Errorf("cannot write packet of type %T", p)
}

// Encode returns the full frame for p, length prefix included.
func Encode(p Structured, s State) ([]byte, error) {
	var payload bytes.Buffer
	if err := p.WritePayload(&payload, s); err != nil {
		return nil, err
	}
	pkt := pk.Packet{ID: p.PacketID(), Data: payload.Bytes()}
	var frame bytes.Buffer
	if err := pkt.Pack(&frame, -1); err != nil {
		return nil, err
	}
	return frame.Bytes(), nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
