package protocol

import (
	"io"
	"unicode/utf8"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/google/uuid"
)

const (
	// MaxVarIntLen is the longest encoding of a 32-bit var-int.
	MaxVarIntLen = 5
	// MaxStringLen is the vanilla limit on string length, in characters.
	MaxStringLen = 32767
)

// readByte reads exactly one byte, using io.ByteReader when r has one.
func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadVarIntRaw reads a var-int and also returns the bytes it was encoded with.
func ReadVarIntRaw(r io.Reader) (int32, []byte, error) {
	var (
		value uint32
		raw   = make([]byte, 0, MaxVarIntLen)
	)
	for {
		b, err := readByte(r)
		if err != nil {
			if err == io.EOF && len(raw) > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, raw, err
		}
		raw = append(raw, b)
		value |= uint32(b&0x7F) << (7 * (len(raw) - 1))
		if b&0x80 == 0 {
			return int32(value), raw, nil
		}
		if len(raw) == MaxVarIntLen {
			return 0, raw, ErrVarIntTooBig
		}
	}
}

func ReadVarInt(r io.Reader) (int32, error) {
	v, _, err := ReadVarIntRaw(r)
	return v, err
}

func WriteVarInt(w io.Writer, v int32) error {
	_, err := pk.VarInt(v).WriteTo(w)
	return err
}

// ReadString reads a var-int length prefixed UTF-8 string.
func ReadString(r io.Reader) (string, error) {
	l, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	// each character is at most 3 bytes of UTF-8 in the modified encoding
	if l < 0 || l > MaxStringLen*3 {
		return "", ErrStringTooLong
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidString
	}
	if utf8.RuneCount(buf) > MaxStringLen {
		return "", ErrStringTooLong
	}
	return string(buf), nil
}

func WriteString(w io.Writer, s string) error {
	if len(s) > MaxStringLen*3 || utf8.RuneCountInString(s) > MaxStringLen {
		return ErrStringTooLong
	}
	_, err := pk.String(s).WriteTo(w)
	return err
}

func ReadUint8(r io.Reader) (uint8, error) {
	var v pk.UnsignedByte
	if _, err := v.ReadFrom(r); err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func WriteUint8(w io.Writer, v uint8) error {
	_, err := pk.UnsignedByte(v).WriteTo(w)
	return err
}

func ReadUint16(r io.Reader) (uint16, error) {
	var v pk.UnsignedShort
	if _, err := v.ReadFrom(r); err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func WriteUint16(w io.Writer, v uint16) error {
	_, err := pk.UnsignedShort(v).WriteTo(w)
	return err
}

// ReadBool treats any non-zero byte as true.
func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadUint8(r)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func WriteBool(w io.Writer, v bool) error {
	_, err := pk.Boolean(v).WriteTo(w)
	return err
}

// ReadUUID reads 16 big-endian bytes.
func ReadUUID(r io.Reader) (uuid.UUID, error) {
	var id pk.UUID
	if _, err := id.ReadFrom(r); err != nil {
		return uuid.Nil, err
	}
	return uuid.UUID(id), nil
}

func WriteUUID(w io.Writer, id uuid.UUID) error {
	_, err := pk.UUID(id).WriteTo(w)
	return err
}
