package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/wirekit/codec"
	"github.com/panyam/wirekit/wire"
)

type collected struct {
	payloads []string
	kinds    []codec.Kind
	pings    []*wire.Frame
}

func newCollector(maxPayload int64) (*reassembler, *collected) {
	got := &collected{}
	r := &reassembler{
		maxPayload: maxPayload,
		onMessage: func(payload []byte, kind codec.Kind) {
			got.payloads = append(got.payloads, string(payload))
			got.kinds = append(got.kinds, kind)
		},
		onPing: func(f *wire.Frame) { got.pings = append(got.pings, f) },
	}
	return r, got
}

func encodeFrame(t *testing.T, f *wire.Frame) []byte {
	t.Helper()
	raw, err := wire.Encode(f)
	require.NoError(t, err)
	return raw
}

func TestFragmentedText(t *testing.T) {
	r, got := newCollector(0)

	// Two text fragments reassemble into exactly one logical message.
	closed, err := r.feed(encodeFrame(t, &wire.Frame{Opcode: wire.OpText, Payload: []byte(`"he`)}))
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Empty(t, got.payloads)

	closed, err = r.feed(encodeFrame(t, &wire.Frame{Fin: true, Opcode: wire.OpText, Payload: []byte(`llo"`)}))
	require.NoError(t, err)
	assert.False(t, closed)
	require.Equal(t, []string{`"hello"`}, got.payloads)
	assert.Equal(t, codec.KindText, got.kinds[0])
}

func TestContinuationFrames(t *testing.T) {
	r, got := newCollector(0)

	r.feed(encodeFrame(t, &wire.Frame{Opcode: wire.OpBinary, Payload: []byte{1, 2}}))
	r.feed(encodeFrame(t, &wire.Frame{Opcode: wire.OpContinuation, Payload: []byte{3}}))
	r.feed(encodeFrame(t, &wire.Frame{Fin: true, Opcode: wire.OpContinuation, Payload: []byte{4, 5}}))

	require.Equal(t, []string{string([]byte{1, 2, 3, 4, 5})}, got.payloads)
	assert.Equal(t, codec.KindBinary, got.kinds[0])

	// The accumulator reset on fin: the next message starts clean.
	r.feed(encodeFrame(t, &wire.Frame{Fin: true, Opcode: wire.OpBinary, Payload: []byte{9}}))
	require.Len(t, got.payloads, 2)
	assert.Equal(t, string([]byte{9}), got.payloads[1])
}

func TestPingAutoReply(t *testing.T) {
	r, got := newCollector(0)

	closed, err := r.feed(encodeFrame(t, wire.Ping([]byte{1, 2, 3})))
	require.NoError(t, err)
	assert.False(t, closed)

	// Exactly one ping surfaced and zero messages.
	require.Len(t, got.pings, 1)
	assert.Equal(t, []byte{1, 2, 3}, got.pings[0].Payload)
	assert.Empty(t, got.payloads)

	pong := wire.Pong(got.pings[0])
	assert.True(t, pong.Fin)
	assert.Equal(t, wire.OpPong, pong.Opcode)
	assert.Equal(t, []byte{1, 2, 3}, pong.Payload)
}

func TestCloseEndsFeed(t *testing.T) {
	r, got := newCollector(0)
	closed, err := r.feed(encodeFrame(t, wire.Close(nil)))
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Empty(t, got.payloads)
}

func TestChunkBoundariesAreArbitrary(t *testing.T) {
	r, got := newCollector(0)

	first := encodeFrame(t, wire.Text([]byte(`"chunky delivery"`)))
	second := encodeFrame(t, wire.Text([]byte(`"two"`)))
	all := append(append([]byte(nil), first...), second...)

	// Feed byte by byte: headers and payloads split across deliveries.
	for _, b := range all {
		closed, err := r.feed([]byte{b})
		require.NoError(t, err)
		require.False(t, closed)
	}
	assert.Equal(t, []string{`"chunky delivery"`, `"two"`}, got.payloads)
}

func TestMultipleFramesPerChunk(t *testing.T) {
	r, got := newCollector(0)

	var chunk []byte
	chunk = append(chunk, encodeFrame(t, wire.Text([]byte(`1`)))...)
	chunk = append(chunk, encodeFrame(t, wire.Ping([]byte{7}))...)
	chunk = append(chunk, encodeFrame(t, wire.Text([]byte(`2`)))...)

	closed, err := r.feed(chunk)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, []string{"1", "2"}, got.payloads)
	assert.Len(t, got.pings, 1)
}

func TestUnknownOpcodeIgnored(t *testing.T) {
	r, got := newCollector(0)

	// Reserved opcode 0x5 passes through without killing the stream.
	closed, err := r.feed([]byte{0x85, 0x02, 0xAA, 0xBB})
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Empty(t, got.payloads)

	r.feed(encodeFrame(t, wire.Text([]byte(`"still alive"`))))
	assert.Equal(t, []string{`"still alive"`}, got.payloads)
}

func TestOversizedFramePoisonsStream(t *testing.T) {
	r, _ := newCollector(16)
	big := encodeFrame(t, wire.Binary(make([]byte, 64)))
	_, err := r.feed(big)
	assert.ErrorIs(t, err, wire.ErrPayloadTooLarge)
}

func TestMaskedInboundFrames(t *testing.T) {
	r, got := newCollector(0)

	raw, err := wire.EncodeMasked(wire.Text([]byte(`"masked"`)))
	require.NoError(t, err)
	closed, err := r.feed(raw)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, []string{`"masked"`}, got.payloads)
}

func TestGrowBufferDoubles(t *testing.T) {
	var b growBuffer
	b.append(make([]byte, growBufferInitialCap))
	assert.Equal(t, growBufferInitialCap, b.len())
	assert.Equal(t, growBufferInitialCap, len(b.buf))

	// One more byte forces a doubling.
	b.append([]byte{1})
	assert.Equal(t, growBufferInitialCap+1, b.len())
	assert.Equal(t, 2*growBufferInitialCap, len(b.buf))

	// Reset rewinds the offset but keeps capacity.
	b.reset()
	assert.Zero(t, b.len())
	assert.Equal(t, 2*growBufferInitialCap, len(b.buf))

	b.append([]byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, b.bytes())
}
