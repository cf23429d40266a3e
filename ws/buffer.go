// Package ws wires raw sockets to duplex streams: it owns the per
// connection reassembly state and the server and client connection
// drivers. Inbound bytes flow socket -> reassembler -> application codec
// -> Duplex.ToServer; outbound messages flow Duplex.ToClient -> codec ->
// wire.Encode -> socket.
package ws

// growBuffer is the binary message accumulator: a dynamic byte vector with
// an explicit write offset. Capacity doubles whenever an incoming payload
// would overflow it; completing a message resets the offset to zero while
// keeping the storage for the next one.
type growBuffer struct {
	buf []byte
	off int
}

const growBufferInitialCap = 512

// append copies p into the buffer at the current offset, growing first if
// needed, and advances the offset.
func (b *growBuffer) append(p []byte) {
	need := b.off + len(p)
	if need > len(b.buf) {
		newCap := len(b.buf)
		if newCap == 0 {
			newCap = growBufferInitialCap
		}
		for newCap < need {
			newCap *= 2
		}
		grown := make([]byte, newCap)
		copy(grown, b.buf[:b.off])
		b.buf = grown
	}
	copy(b.buf[b.off:], p)
	b.off += len(p)
}

// bytes returns the filled region.
func (b *growBuffer) bytes() []byte {
	return b.buf[:b.off]
}

// len returns the number of accumulated bytes.
func (b *growBuffer) len() int {
	return b.off
}

// reset rewinds the offset without releasing storage.
func (b *growBuffer) reset() {
	b.off = 0
}
