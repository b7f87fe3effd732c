package protocol

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

const statusHandshakeHex = "0f002f096c6f63616c686f737463dd01"

func loginState(version int32) State {
	return State{
		GameState: StateLogin,
		Handshake: &Handshake{ProtocolVersion: version, ServerAddress: "localhost", ServerPort: 25565, NextState: NextLogin},
	}
}

func TestReadHandshake(t *testing.T) {
	wire := mustHex(t, statusHandshakeHex)
	p, err := ReadPacket(bytes.NewReader(wire), State{}, C2S)
	require.NoError(t, err)
	require.IsType(t, &Handshake{}, p)
	assert.Equal(t, &Handshake{
		ProtocolVersion: 47,
		ServerAddress:   "localhost",
		ServerPort:      25565,
		NextState:       NextStatus,
	}, p)

	out, err := Encode(p.(Structured), State{})
	require.NoError(t, err)
	assert.Equal(t, wire, out)
}

func TestHandshakeInvalidNextState(t *testing.T) {
	wire := mustHex(t, statusHandshakeHex)
	wire[len(wire)-1] = 0x03
	_, err := ReadPacket(bytes.NewReader(wire), State{}, C2S)
	require.ErrorIs(t, err, ErrInvalidNextState)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, StateHandshake, de.State)
	assert.Equal(t, C2S, de.Direction)
}

func TestReadLoginStartLegacy(t *testing.T) {
	wire := mustHex(t, "0700054e6f746368")
	p, err := ReadPacket(bytes.NewReader(wire), loginState(47), C2S)
	require.NoError(t, err)
	assert.Equal(t, &LoginStart{Username: "Notch"}, p)

	out, err := Encode(p.(Structured), loginState(47))
	require.NoError(t, err)
	assert.Equal(t, wire, out)
}

func TestLoginStartNeedsHandshake(t *testing.T) {
	wire := mustHex(t, "0700054e6f746368")
	_, err := ReadPacket(bytes.NewReader(wire), State{GameState: StateLogin}, C2S)
	require.ErrorIs(t, err, ErrMissingHandshake)

	_, err = Encode(&LoginStart{Username: "Notch"}, State{GameState: StateLogin})
	require.ErrorIs(t, err, ErrMissingHandshake)
}

func TestLoginStartRoundTrip(t *testing.T) {
	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	cases := []struct {
		name    string
		version int32
		packet  *LoginStart
	}{
		{"legacy", 340, &LoginStart{Username: "Notch"}},
		{"modern without uuid", 760, &LoginStart{Username: "Notch"}},
		{"modern with uuid", 760, &LoginStart{Username: "Notch", PlayerUUID: &id}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := loginState(c.version)
			wire, err := Encode(c.packet, s)
			require.NoError(t, err)
			got, err := ReadPacket(bytes.NewReader(wire), s, C2S)
			require.NoError(t, err)
			assert.Equal(t, c.packet, got)
		})
	}
}

func TestLoginSuccessRoundTrip(t *testing.T) {
	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	sig := "c2lnbmF0dXJl"
	cases := []struct {
		name    string
		version int32
		packet  *LoginSuccess
	}{
		{"string uuid", 340, &LoginSuccess{UUID: id, Username: "Notch"}},
		{"binary uuid", 754, &LoginSuccess{UUID: id, Username: "Notch"}},
		{"no properties", 759, &LoginSuccess{UUID: id, Username: "Notch", Properties: []Property{}}},
		{"properties", 760, &LoginSuccess{UUID: id, Username: "Notch", Properties: []Property{
			{Name: "textures", Value: "e30=", Signature: &sig},
			{Name: "other", Value: "x"},
		}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := loginState(c.version)
			wire, err := Encode(c.packet, s)
			require.NoError(t, err)
			got, err := ReadPacket(bytes.NewReader(wire), s, S2C)
			require.NoError(t, err)
			assert.Equal(t, c.packet, got)
		})
	}
}

func TestLoginSuccessBinaryWire(t *testing.T) {
	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	var wire bytes.Buffer
	wire.Write([]byte{0x17, 0x02})
	wire.Write(id[:])
	wire.Write([]byte{0x05, 'N', 'o', 't', 'c', 'h'})

	p, err := ReadPacket(bytes.NewReader(wire.Bytes()), loginState(754), S2C)
	require.NoError(t, err)
	assert.Equal(t, &LoginSuccess{UUID: id, Username: "Notch"}, p)

	out, err := Encode(p.(Structured), loginState(754))
	require.NoError(t, err)
	assert.Equal(t, wire.Bytes(), out)
}

func TestLoginSuccessBadUUIDString(t *testing.T) {
	var payload bytes.Buffer
	require.NoError(t, WriteString(&payload, "not-a-uuid"))
	require.NoError(t, WriteString(&payload, "Notch"))
	var wire bytes.Buffer
	require.NoError(t, WriteVarInt(&wire, int32(payload.Len()+1)))
	wire.WriteByte(0x02)
	wire.Write(payload.Bytes())

	_, err := ReadPacket(&wire, loginState(340), S2C)
	require.ErrorIs(t, err, ErrInvalidUUID)
}

func TestUnknownFramePreservesBytes(t *testing.T) {
	cases := []struct {
		name  string
		state State
		dir   Direction
		wire  []byte
	}{
		{"play c2s", State{GameState: StatePlay}, C2S, append([]byte{0x0F, 0x10}, bytes.Repeat([]byte{0xAB}, 14)...)},
		{"status request", State{GameState: StateStatus}, C2S, []byte{0x01, 0x00}},
		{"login disconnect", loginState(754), S2C, []byte{0x03, 0x00, 0x01, '"'}},
		{"multi-byte id", State{GameState: StatePlay}, S2C, []byte{0x03, 0x80, 0x01, 0x42}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := bytes.NewReader(append(append([]byte{}, c.wire...), 0x99))
			p, err := ReadPacket(r, c.state, c.dir)
			require.NoError(t, err)
			f, ok := p.(*UnknownFrame)
			require.True(t, ok, "got %T", p)
			assert.Equal(t, c.wire, f.Raw)
			assert.Equal(t, c.dir, f.Direction())
			assert.Equal(t, 1, r.Len(), "frame must not consume the next frame")

			var out bytes.Buffer
			require.NoError(t, WritePacket(&out, f, c.state))
			assert.Equal(t, c.wire, out.Bytes())
		})
	}
}

func TestUnknownFrameID(t *testing.T) {
	p, err := ReadPacket(bytes.NewReader([]byte{0x03, 0x80, 0x01, 0x42}), State{GameState: StatePlay}, S2C)
	require.NoError(t, err)
	assert.Equal(t, int32(128), p.PacketID())
}

func TestFrameErrors(t *testing.T) {
	t.Run("clean eof", func(t *testing.T) {
		_, err := ReadPacket(bytes.NewReader(nil), State{}, C2S)
		require.ErrorIs(t, err, io.EOF)
	})
	t.Run("zero length", func(t *testing.T) {
		_, err := ReadPacket(bytes.NewReader([]byte{0x00}), State{}, C2S)
		require.ErrorIs(t, err, ErrFrameTooLarge)
	})
	t.Run("oversized", func(t *testing.T) {
		var wire bytes.Buffer
		require.NoError(t, WriteVarInt(&wire, MaxFrameLength+1))
		_, err := ReadPacket(&wire, State{}, C2S)
		require.ErrorIs(t, err, ErrFrameTooLarge)
	})
	t.Run("malformed length", func(t *testing.T) {
		_, err := ReadPacket(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}), State{}, C2S)
		require.ErrorIs(t, err, ErrVarIntTooBig)
	})
	t.Run("truncated unknown", func(t *testing.T) {
		_, err := ReadPacket(bytes.NewReader([]byte{0x05, 0x10, 0x01}), State{GameState: StatePlay}, C2S)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("truncated handshake", func(t *testing.T) {
		wire := mustHex(t, statusHandshakeHex)
		_, err := ReadPacket(bytes.NewReader(wire[:8]), State{}, C2S)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("trailing data", func(t *testing.T) {
		wire := mustHex(t, statusHandshakeHex)
		wire[0]++
		wire = append(wire, 0x00)
		_, err := ReadPacket(bytes.NewReader(wire), State{}, C2S)
		require.ErrorIs(t, err, ErrTrailingData)
	})
	t.Run("short payload", func(t *testing.T) {
		// frame claims 3 bytes but the handshake fields need more
		_, err := ReadPacket(bytes.NewReader([]byte{0x03, 0x00, 0x2F, 0x09}), State{}, C2S)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		var de *DecodeError
		require.ErrorAs(t, err, &de)
	})
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(0x00, StateHandshake, C2S))
	assert.True(t, Known(0x00, StateLogin, C2S))
	assert.True(t, Known(0x02, StateLogin, S2C))
	assert.False(t, Known(0x00, StateHandshake, S2C))
	assert.False(t, Known(0x00, StateStatus, C2S))
	assert.False(t, Known(0x02, StatePlay, S2C))
}
