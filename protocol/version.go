package protocol

// ProtocolVersion is the protocol number announced in the handshake.
type ProtocolVersion int32

const (
	// Version1_16 is the first release that sends UUIDs as raw bytes during login.
	Version1_16 ProtocolVersion = 735
	// Version1_19 is the first release with a property list in login success.
	Version1_19 ProtocolVersion = 759
)

// BinaryLoginUUID reports whether login packets carry UUIDs as 16 raw bytes
// rather than as text, and whether login start has the optional UUID.
func (v ProtocolVersion) BinaryLoginUUID() bool {
	return v >= Version1_16
}

// LoginProperties reports whether login success carries the profile property list.
func (v ProtocolVersion) LoginProperties() bool {
	return v >= Version1_19
}

func (v ProtocolVersion) Handshake() int32 {
	return 0x00
}

func (v ProtocolVersion) StatusRequest() int32 {
	return 0x00
}

func (v ProtocolVersion) StatusResponse() int32 {
	return 0x00
}

func (v ProtocolVersion) LoginStart() int32 {
	return 0x00
}

func (v ProtocolVersion) LoginSuccess() int32 {
	return 0x02
}
