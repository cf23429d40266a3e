package ws

import (
	"strings"

	"github.com/panyam/wirekit/codec"
	"github.com/panyam/wirekit/wire"
)

// reassembler turns a sequence of raw byte deliveries into complete
// logical messages. Chunk boundaries are arbitrary and unrelated to frame
// boundaries, so it keeps an undecoded backlog and re-invokes the frame
// codec until no complete frame remains: one delivery may hold a partial
// header, one frame, or several.
//
// One reassembler is owned by exactly one connection driver and is only
// ever touched from that connection's read loop.
type reassembler struct {
	maxPayload int64

	// backlog holds bytes that did not yet form a complete frame.
	backlog []byte

	// text accumulates fragmented text payloads until a fin frame.
	text strings.Builder

	// bin accumulates fragmented binary payloads until a fin frame.
	bin growBuffer

	// fragOp remembers whether the in-flight fragmented message started
	// as text or binary, so continuation frames land in the right
	// accumulator.
	fragOp wire.Opcode

	// onMessage receives each completed payload and its kind.
	onMessage func(payload []byte, kind codec.Kind)

	// onPing receives ping frames for immediate pong replies.
	onPing func(f *wire.Frame)
}

// feed runs chunk through the frame codec. It reports closed=true when a
// close frame was seen; the caller terminates the socket and must not feed
// again. A non-nil error means the byte stream is poisoned (oversized
// frame declaration) and the connection should be torn down.
func (r *reassembler) feed(chunk []byte) (closed bool, err error) {
	r.backlog = append(r.backlog, chunk...)

	for {
		f, n, err := wire.DecodeLimit(r.backlog, r.maxPayload)
		if err != nil {
			return false, err
		}
		if f == nil {
			return false, nil
		}
		r.backlog = r.backlog[n:]

		switch f.Opcode {
		case wire.OpPing:
			if r.onPing != nil {
				r.onPing(f)
			}
		case wire.OpPong:
			// Liveness is tracked by the driver's read timestamps.
		case wire.OpClose:
			return true, nil
		case wire.OpText:
			r.fragOp = wire.OpText
			r.appendData(f)
		case wire.OpBinary:
			r.fragOp = wire.OpBinary
			r.appendData(f)
		case wire.OpContinuation:
			r.appendData(f)
		case wire.OpUnknown:
			// Unknown opcodes are ignored; the connection stays open.
		}
	}
}

// appendData adds a data frame's payload to the active accumulator and
// emits the completed message when the frame carries fin.
func (r *reassembler) appendData(f *wire.Frame) {
	if r.fragOp == wire.OpBinary {
		r.bin.append(f.Payload)
		if f.Fin {
			r.emit(r.bin.bytes(), codec.KindBinary)
			r.bin.reset()
			r.fragOp = 0
		}
		return
	}

	// Text is the default lane; a continuation with no preceding data
	// frame lands here as well.
	r.text.Write(f.Payload)
	if f.Fin {
		r.emit([]byte(r.text.String()), codec.KindText)
		r.text.Reset()
		r.fragOp = 0
	}
}

func (r *reassembler) emit(payload []byte, kind codec.Kind) {
	if r.onMessage != nil {
		r.onMessage(payload, kind)
	}
}
