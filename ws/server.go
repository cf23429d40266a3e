package ws

import (
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	conc "github.com/panyam/gocurrent"
	gut "github.com/panyam/goutils/utils"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/panyam/wirekit/codec"
	"github.com/panyam/wirekit/stream"
	"github.com/panyam/wirekit/wire"
)

// Session describes one accepted connection: the codec that converts
// payloads to and from application messages, plus lifecycle hooks. OnOpen
// receives the connection's Duplex before any frame traffic flows; the
// dispatch layer registers its listeners there.
type Session[I any, O any] struct {
	// Codec converts between wire payloads and typed messages.
	// Must be set before the connection is used.
	Codec codec.Codec[I, O]

	// Name is an optional human-readable label for logging.
	Name string

	// ConnId uniquely identifies this connection. Auto-generated if empty.
	ConnId string

	// OnOpen is called once the upgrade completed. Register listeners on
	// d.Server() here. Returning an error tears the connection down.
	OnOpen func(d *stream.Duplex[I, O]) error

	// OnClose is called when the connection ends, for any reason.
	OnClose func()
}

// connId returns the session id, generating one on first use.
func (s *Session[I, O]) connId() string {
	if s.ConnId == "" {
		s.ConnId = gut.RandString(10, "")
	}
	return s.ConnId
}

// Handler validates HTTP requests and creates sessions. It is the factory
// the upgrade endpoint consults before converting a request into a
// persistent socket; typical implementations authenticate here.
type Handler[I any, O any] interface {
	// Validate checks the request. Return (session, true) to proceed with
	// the upgrade, or (nil, false) after writing a rejection response.
	Validate(w http.ResponseWriter, r *http.Request) (*Session[I, O], bool)
}

// JSONHandler accepts every connection with the untyped JSON codec.
type JSONHandler struct{}

func (JSONHandler) Validate(w http.ResponseWriter, r *http.Request) (*Session[any, any], bool) {
	return &Session[any, any]{Codec: codec.JSON{}, Name: "JSONSession"}, true
}

// Serve returns an http.HandlerFunc that upgrades requests into framed
// sockets and drives their lifecycle:
//
//  1. handler.Validate gates the request and supplies the session
//  2. the upgrade handshake is answered and the connection hijacked
//  3. session.OnOpen receives the Duplex; the unused client view is sealed
//  4. inbound frames are reassembled, decoded and written to the Duplex
//  5. on close, session.OnClose runs and Duplex listeners see Close
//
// The handler goroutine blocks until the connection ends.
func Serve[I any, O any](handler Handler[I, O], config *Config) http.HandlerFunc {
	config = config.withDefaults()
	return func(rw http.ResponseWriter, req *http.Request) {
		sess, ok := handler.Validate(rw, req)
		if !ok {
			return
		}

		key, err := wire.ValidateUpgrade(req)
		if err != nil {
			SendJSONResponse(rw, nil, status.Error(codes.InvalidArgument, err.Error()))
			return
		}

		hj, ok := rw.(http.Hijacker)
		if !ok {
			SendJSONResponse(rw, nil, status.Error(codes.Internal, "connection does not support hijacking"))
			return
		}
		conn, brw, err := hj.Hijack()
		if err != nil {
			config.Logger.Error("hijack failed", zap.Error(err))
			return
		}

		// The http server's deadlines no longer apply to this socket.
		conn.SetDeadline(time.Time{})

		if _, err := conn.Write(wire.UpgradeResponse(key)); err != nil {
			config.Logger.Error("writing upgrade response", zap.Error(err))
			conn.Close()
			return
		}

		// Bytes the http server already buffered belong to the frame
		// stream; hand them to the reassembler before reading the socket.
		var buffered []byte
		if n := brw.Reader.Buffered(); n > 0 {
			buffered, _ = brw.Reader.Peek(n)
		}

		serveConn(conn, buffered, sess, config)
	}
}

// serveConn runs one established connection to completion. All reassembly
// and listener dispatch happens on this goroutine; outbound traffic (data,
// pings, pongs) funnels through one serialized writer so frames never
// interleave.
func serveConn[I any, O any](conn net.Conn, buffered []byte, sess *Session[I, O], config *Config) {
	logger := config.Logger.With(
		zap.String("conn", sess.connId()),
		zap.String("name", sess.Name),
	)

	writer := conc.NewWriter(func(p []byte) error {
		_, err := conn.Write(p)
		return err
	})
	defer writer.Stop()

	d := stream.NewDuplex[I, O]()

	// Outbound: every message the application writes becomes one complete
	// fin frame; no outbound fragmentation. Closing the server view sends
	// a close frame and terminates the socket.
	d.ToClient.AddListener(&stream.Listener[O]{
		OnMessage: func(msg O) {
			frame, err := encodeOutbound(sess.Codec, msg, false)
			if err != nil {
				logger.Warn("dropping unencodable message", zap.Error(err))
				return
			}
			writer.Send(frame)
		},
		OnError: func(err error) {
			logger.Warn("application error on outbound stream", zap.Error(err))
		},
		OnClose: func() {
			if raw, err := wire.Encode(wire.Close(nil)); err == nil {
				writer.Send(raw)
			}
			conn.Close()
		},
	})

	// Only the server view is meant for in-process code; the remote peer
	// is represented by the socket itself.
	d.CloseClient()

	reasm := &reassembler{
		maxPayload: config.maxPayload(),
		onMessage: func(payload []byte, kind codec.Kind) {
			msg, err := sess.Codec.Decode(payload, kind)
			if err != nil {
				// Bad payloads are logged and swallowed; the connection
				// stays open and listeners see no error.
				logger.Warn("dropping undecodable message", zap.Error(err))
				return
			}
			d.ToServer.Write(msg)
		},
		onPing: func(f *wire.Frame) {
			if raw, err := wire.Encode(wire.Pong(f)); err == nil {
				writer.Send(raw)
			}
		},
	}

	defer func() {
		conn.Close()
		d.ToServer.Close()
		if sess.OnClose != nil {
			sess.OnClose()
		}
		logger.Info("connection closed")
	}()

	if sess.OnOpen != nil {
		if err := sess.OnOpen(d); err != nil {
			logger.Warn("session rejected in OnOpen", zap.Error(err))
			return
		}
	}

	if len(buffered) > 0 {
		if closed, err := reasm.feed(buffered); closed || err != nil {
			if err != nil {
				logger.Warn("poisoned byte stream", zap.Error(err))
			}
			return
		}
	}

	reader := conc.NewReader(func() ([]byte, error) {
		buf := make([]byte, config.ReadChunkSize)
		n, err := conn.Read(buf)
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	})
	defer reader.Stop()

	lastReadAt := time.Now()
	pingTimer := time.NewTicker(config.PingPeriod)
	pongChecker := time.NewTicker(config.PongPeriod)
	defer pingTimer.Stop()
	defer pongChecker.Stop()

	for {
		select {
		case <-pingTimer.C:
			if raw, err := wire.Encode(wire.Ping([]byte(sess.connId()))); err == nil {
				writer.Send(raw)
			}
		case <-pongChecker.C:
			if silence := time.Since(lastReadAt); silence > config.PongPeriod {
				logger.Warn("no data within pong period, killing connection",
					zap.Duration("silence", silence))
				return
			}
		case result := <-reader.OutputChan():
			lastReadAt = time.Now()
			if result.Error != nil {
				if !isClosedError(result.Error) {
					// Socket errors surface verbatim on the Duplex.
					d.ToServer.Fail(result.Error)
				}
				return
			}
			closed, err := reasm.feed(result.Value)
			if err != nil {
				logger.Warn("poisoned byte stream", zap.Error(err))
				return
			}
			if closed {
				// Close frames end the socket without a reply.
				return
			}
		}
	}
}

// encodeOutbound runs msg through the application codec and wraps it in a
// single fin frame, masked for the client-to-server direction.
func encodeOutbound[I any, O any](cdc codec.Codec[I, O], msg O, masked bool) ([]byte, error) {
	data, kind, err := cdc.Encode(msg)
	if err != nil {
		return nil, err
	}
	var f *wire.Frame
	if kind == codec.KindBinary {
		f = wire.Binary(data)
	} else {
		f = wire.Text(data)
	}
	if masked {
		return wire.EncodeMasked(f)
	}
	return wire.Encode(f)
}

// isClosedError reports whether err is the normal end of a socket rather
// than a fault worth surfacing to error listeners.
func isClosedError(err error) bool {
	return err == io.EOF || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
