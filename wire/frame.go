// Package wire implements the binary framing layer of the transport: the
// frame model, the frame codec, and the connection-upgrade handshake.
// Everything above it (reassembly, duplex streams, application codecs)
// deals in complete frames; everything below it is a raw byte socket.
package wire

import "fmt"

// Opcode identifies the purpose of a frame as defined in RFC 6455 Section 5.2.
type Opcode byte

const (
	// OpContinuation carries another fragment of the current message.
	OpContinuation Opcode = 0x0
	// OpText carries UTF-8 text payload.
	OpText Opcode = 0x1
	// OpBinary carries arbitrary binary payload.
	OpBinary Opcode = 0x2
	// OpClose signals connection teardown.
	OpClose Opcode = 0x8
	// OpPing requests a pong with the same payload.
	OpPing Opcode = 0x9
	// OpPong answers a ping.
	OpPong Opcode = 0xA

	// OpUnknown is the decode-only sentinel for opcodes outside the six
	// known values. It is never transmitted; encoding a frame with it is
	// an error.
	OpUnknown Opcode = 0xF
)

// IsControl reports whether the opcode is a control frame opcode.
func (o Opcode) IsControl() bool {
	switch o {
	case OpClose, OpPing, OpPong:
		return true
	default:
		return false
	}
}

// IsData reports whether the opcode carries message payload.
func (o Opcode) IsData() bool {
	switch o {
	case OpContinuation, OpText, OpBinary:
		return true
	default:
		return false
	}
}

// String returns the opcode name for logging.
func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "CONTINUATION"
	case OpText:
		return "TEXT"
	case OpBinary:
		return "BINARY"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	default:
		return fmt.Sprintf("UNKNOWN(0x%X)", byte(o))
	}
}

// mapOpcode collapses raw opcode bits into the tagged Opcode set. Values
// outside the six known ones become OpUnknown rather than an error so a
// peer speaking a newer protocol revision does not kill the connection.
func mapOpcode(raw byte) Opcode {
	switch op := Opcode(raw & 0x0F); op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return op
	default:
		return OpUnknown
	}
}

// Frame is one discrete unit of the wire protocol: header, optional mask
// and payload. Frames are transient values; nothing above the codec holds
// on to one past dispatch.
type Frame struct {
	// Fin marks the frame as the last fragment of a logical message.
	Fin bool

	// Opcode identifies the frame's purpose.
	Opcode Opcode

	// Masked indicates the payload was (or should be) XOR-masked.
	Masked bool

	// Mask is the 4-byte masking key. Only meaningful when Masked is set.
	Mask [4]byte

	// Payload holds exactly the number of bytes the length field declared.
	Payload []byte
}

// Text returns a final text frame wrapping payload.
func Text(payload []byte) *Frame {
	return &Frame{Fin: true, Opcode: OpText, Payload: payload}
}

// Binary returns a final binary frame wrapping payload.
func Binary(payload []byte) *Frame {
	return &Frame{Fin: true, Opcode: OpBinary, Payload: payload}
}

// Close returns a close frame with an optional payload.
func Close(payload []byte) *Frame {
	return &Frame{Fin: true, Opcode: OpClose, Payload: payload}
}

// Ping returns a ping frame with an optional payload.
func Ping(payload []byte) *Frame {
	return &Frame{Fin: true, Opcode: OpPing, Payload: payload}
}

// Pong returns the pong answering ping, echoing its payload verbatim.
func Pong(ping *Frame) *Frame {
	return &Frame{Fin: true, Opcode: OpPong, Payload: ping.Payload}
}
