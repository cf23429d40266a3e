package wire

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

// DefaultMaxPayload caps the payload length a single frame may declare.
// A peer announcing more than this fails decode instead of driving the
// reassembly buffers to arbitrary sizes.
const DefaultMaxPayload = 16 << 20 // 16 MiB

var (
	// ErrPayloadTooLarge is returned when a frame declares a payload
	// larger than the configured maximum.
	ErrPayloadTooLarge = errors.New("wire: frame payload exceeds maximum")

	// ErrEncodeUnknown is returned when asked to encode the OpUnknown
	// sentinel, which only exists on the decode side.
	ErrEncodeUnknown = errors.New("wire: cannot encode UNKNOWN opcode")
)

// Decode parses one frame from the front of raw and returns it together
// with the number of bytes consumed. Chunk boundaries on a socket are
// unrelated to frame boundaries, so raw may hold a partial frame, exactly
// one frame, or several; Decode consumes exactly one and never reads past
// it. If raw does not yet contain a complete frame it returns (nil, 0, nil)
// and the caller should buffer more bytes and retry.
func Decode(raw []byte) (*Frame, int, error) {
	return DecodeLimit(raw, DefaultMaxPayload)
}

// DecodeLimit is Decode with an explicit payload cap. A maxPayload of zero
// or less means no limit.
func DecodeLimit(raw []byte, maxPayload int64) (*Frame, int, error) {
	if len(raw) < 2 {
		return nil, 0, nil
	}

	f := &Frame{
		Fin:    raw[0]&0x80 != 0,
		Opcode: mapOpcode(raw[0]),
		Masked: raw[1]&0x80 != 0,
	}

	length := int64(raw[1] & 0x7F)
	offset := 2
	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, 0, nil
		}
		length = int64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, 0, nil
		}
		ext := binary.BigEndian.Uint64(raw[offset:])
		if ext > 1<<62 {
			return nil, 0, ErrPayloadTooLarge
		}
		length = int64(ext)
		offset += 8
	}

	if maxPayload > 0 && length > maxPayload {
		return nil, 0, ErrPayloadTooLarge
	}

	if f.Masked {
		if len(raw) < offset+4 {
			return nil, 0, nil
		}
		copy(f.Mask[:], raw[offset:offset+4])
		offset += 4
	}

	total := offset + int(length)
	if len(raw) < total {
		return nil, 0, nil
	}

	f.Payload = make([]byte, length)
	copy(f.Payload, raw[offset:total])
	if f.Masked {
		applyMask(f.Payload, f.Mask)
	}
	return f, total, nil
}

// Encode serializes f into a fresh byte slice without masking. This is the
// server-to-client direction; frames written by a server are never masked.
func Encode(f *Frame) ([]byte, error) {
	return encode(f, false, [4]byte{})
}

// EncodeMasked serializes f with a freshly generated random masking key.
// This is the client-to-server direction, which the protocol requires to
// be masked.
func EncodeMasked(f *Frame) ([]byte, error) {
	var key [4]byte
	rand.Read(key[:])
	return encode(f, true, key)
}

func encode(f *Frame, masked bool, key [4]byte) ([]byte, error) {
	if f.Opcode == OpUnknown {
		return nil, ErrEncodeUnknown
	}

	plen := len(f.Payload)
	var b0 byte
	if f.Fin {
		b0 = 0x80
	}
	b0 |= byte(f.Opcode) & 0x0F

	var maskBit byte
	if masked {
		maskBit = 0x80
	}

	var hdr [10]byte
	var header []byte
	switch {
	case plen < 126:
		header = hdr[:2]
		header[1] = byte(plen) | maskBit
	case plen < 1<<16:
		header = hdr[:4]
		header[1] = 126 | maskBit
		binary.BigEndian.PutUint16(header[2:], uint16(plen))
	default:
		header = hdr[:10]
		header[1] = 127 | maskBit
		binary.BigEndian.PutUint64(header[2:], uint64(plen))
	}
	header[0] = b0

	out := make([]byte, 0, len(header)+4+plen)
	out = append(out, header...)
	if masked {
		out = append(out, key[:]...)
	}
	start := len(out)
	out = append(out, f.Payload...)
	if masked {
		applyMask(out[start:], key)
	}
	return out, nil
}

// applyMask XORs p in place with key cycled every four bytes. Masking is
// an involution: applying the same key twice recovers the original bytes.
func applyMask(p []byte, key [4]byte) {
	for i := range p {
		p[i] ^= key[i%4]
	}
}
