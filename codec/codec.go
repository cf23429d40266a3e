// Package codec defines the application-level message boundary of the
// transport. The framing layer reassembles complete text or binary
// payloads; a Codec turns those payloads into typed values and back. The
// endpoint-dispatch layer supplies the codec; JSON is the default.
package codec

import (
	"encoding/json"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Kind says whether a payload travelled (or should travel) as a text or a
// binary message on the wire.
type Kind int

const (
	// KindText marks UTF-8 text payloads.
	KindText Kind = iota
	// KindBinary marks opaque binary payloads.
	KindBinary
)

// Codec converts between wire payloads and typed messages. I is the type
// decoded from inbound payloads, O the type encoded for outbound ones.
type Codec[I any, O any] interface {
	// Decode turns a complete reassembled payload into a typed value.
	Decode(data []byte, kind Kind) (I, error)

	// Encode turns a typed value into payload bytes plus the Kind the
	// frame should carry.
	Encode(msg O) ([]byte, Kind, error)
}

// JSON is the default codec: untyped JSON in both directions, useful when
// message shapes are not known at compile time.
type JSON struct{}

func (JSON) Decode(data []byte, kind Kind) (any, error) {
	var out any
	err := json.Unmarshal(data, &out)
	return out, err
}

func (JSON) Encode(msg any) ([]byte, Kind, error) {
	data, err := json.Marshal(msg)
	return data, KindText, err
}

// TypedJSON is a JSON codec with concrete message structs on both sides.
type TypedJSON[I any, O any] struct{}

func (TypedJSON[I, O]) Decode(data []byte, kind Kind) (I, error) {
	var out I
	err := json.Unmarshal(data, &out)
	return out, err
}

func (TypedJSON[I, O]) Encode(msg O) ([]byte, Kind, error) {
	data, err := json.Marshal(msg)
	return data, KindText, err
}

// ProtoJSON carries protobuf messages in protojson text form: readable on
// the wire while keeping proto type safety.
//
// New, when set, constructs inbound message instances. Without it the
// codec falls back to reflecting on the Exemplar value, which is slower.
type ProtoJSON[I proto.Message, O proto.Message] struct {
	New      func() I
	Exemplar I

	Marshal   protojson.MarshalOptions
	Unmarshal protojson.UnmarshalOptions
}

func (c *ProtoJSON[I, O]) Decode(data []byte, kind Kind) (I, error) {
	msg := newMessage(c.New, c.Exemplar)
	err := c.Unmarshal.Unmarshal(data, msg)
	return msg, err
}

func (c *ProtoJSON[I, O]) Encode(msg O) ([]byte, Kind, error) {
	data, err := c.Marshal.Marshal(msg)
	return data, KindText, err
}

// ProtoBinary carries protobuf messages in their binary wire form, riding
// on binary frames. Use this for high-throughput paths.
type ProtoBinary[I proto.Message, O proto.Message] struct {
	New      func() I
	Exemplar I
}

func (c *ProtoBinary[I, O]) Decode(data []byte, kind Kind) (I, error) {
	msg := newMessage(c.New, c.Exemplar)
	err := proto.Unmarshal(data, msg)
	return msg, err
}

func (c *ProtoBinary[I, O]) Encode(msg O) ([]byte, Kind, error) {
	data, err := proto.Marshal(msg)
	return data, KindBinary, err
}

// newMessage builds a fresh inbound instance, preferring the factory and
// reflecting on the exemplar otherwise.
func newMessage[I proto.Message](factory func() I, exemplar I) I {
	if factory != nil {
		return factory()
	}
	t := reflect.TypeOf(exemplar)
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface().(I)
	}
	return reflect.New(t).Elem().Interface().(I)
}

var (
	_ Codec[any, any] = JSON{}
	_ Codec[any, any] = TypedJSON[any, any]{}
)
