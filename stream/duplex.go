package stream

import "github.com/pkg/errors"

// ErrViewClosed is returned by every operation on a sealed view.
var ErrViewClosed = errors.New("stream: view already closed")

// View is one face of a Duplex. Writing on a view sends to the opposite
// face; listening observes traffic addressed to this face. R is the type
// this view reads, W the type it writes.
type View[R any, W any] interface {
	// Write sends msg to the listeners of the opposite view.
	Write(msg W) error

	// Fail raises err on the listeners of the opposite view.
	Fail(err error) error

	// Close notifies the listeners of the opposite view that this side
	// is done writing.
	Close() error

	// AddListener registers l for traffic addressed to this view.
	AddListener(l *Listener[R]) error

	// On registers a message-only listener and returns it for removal.
	On(fn func(R)) (*Listener[R], error)

	// RemoveListener removes a previous registration by identity.
	RemoveListener(l *Listener[R]) error
}

// Duplex owns the two Streams of one logical connection: ToServer carries
// client-to-server traffic, ToClient the reverse. The Server and Client
// views face opposite directions, so a message written on one is observed
// only by listeners on the other; the two Streams are never cross-wired to
// themselves.
//
// The ToServer/ToClient fields are the raw channels; connection drivers
// feed them directly. Application code should only touch the views.
type Duplex[In any, Out any] struct {
	ToServer *Stream[In]
	ToClient *Stream[Out]

	server View[In, Out]
	client View[Out, In]
}

// NewDuplex returns a Duplex with both views live.
func NewDuplex[In any, Out any]() *Duplex[In, Out] {
	d := &Duplex[In, Out]{
		ToServer: New[In](),
		ToClient: New[Out](),
	}
	d.server = &liveView[In, Out]{reads: d.ToServer, writes: d.ToClient}
	d.client = &liveView[Out, In]{reads: d.ToClient, writes: d.ToServer}
	return d
}

// Server returns the server-facing view: writes go to ToClient, listeners
// observe ToServer.
func (d *Duplex[In, Out]) Server() View[In, Out] { return d.server }

// Client returns the client-facing view: writes go to ToServer, listeners
// observe ToClient.
func (d *Duplex[In, Out]) Client() View[Out, In] { return d.client }

// CloseServer permanently replaces the server view with a sealed variant
// whose every operation returns ErrViewClosed. The client view remains
// fully functional. This is irreversible.
func (d *Duplex[In, Out]) CloseServer() {
	d.server = sealedView[In, Out]{}
}

// CloseClient permanently seals the client view. The server view remains
// fully functional. This is irreversible.
func (d *Duplex[In, Out]) CloseClient() {
	d.client = sealedView[Out, In]{}
}

// liveView is the functional face of a Duplex. reads is the stream this
// view observes, writes the stream its output lands on.
type liveView[R any, W any] struct {
	reads  *Stream[R]
	writes *Stream[W]
}

func (v *liveView[R, W]) Write(msg W) error {
	v.writes.Write(msg)
	return nil
}

func (v *liveView[R, W]) Fail(err error) error {
	v.writes.Fail(err)
	return nil
}

func (v *liveView[R, W]) Close() error {
	v.writes.Close()
	return nil
}

func (v *liveView[R, W]) AddListener(l *Listener[R]) error {
	v.reads.AddListener(l)
	return nil
}

func (v *liveView[R, W]) On(fn func(R)) (*Listener[R], error) {
	return v.reads.On(fn), nil
}

func (v *liveView[R, W]) RemoveListener(l *Listener[R]) error {
	v.reads.RemoveListener(l)
	return nil
}

// sealedView is the terminal state of a closed view. It is a distinct
// null-object implementation rather than a flag on liveView so a sealed
// view cannot be revived.
type sealedView[R any, W any] struct{}

func (sealedView[R, W]) Write(W) error                    { return ErrViewClosed }
func (sealedView[R, W]) Fail(error) error                 { return ErrViewClosed }
func (sealedView[R, W]) Close() error                     { return ErrViewClosed }
func (sealedView[R, W]) AddListener(*Listener[R]) error   { return ErrViewClosed }
func (sealedView[R, W]) On(func(R)) (*Listener[R], error) { return nil, ErrViewClosed }
func (sealedView[R, W]) RemoveListener(*Listener[R]) error {
	return ErrViewClosed
}
