package ws

import (
	"bufio"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"sync"

	conc "github.com/panyam/gocurrent"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/panyam/wirekit/codec"
	"github.com/panyam/wirekit/stream"
	"github.com/panyam/wirekit/wire"
)

// ClientConn is the client side of one framed socket. I is the message
// type this client sends, O the type it receives. Application code talks
// to View(); the driver owns everything else.
type ClientConn[I any, O any] struct {
	// Duplex carries this connection's two streams. The server view is
	// sealed; use View().
	Duplex *stream.Duplex[I, O]

	conn      net.Conn
	writer    *conc.Writer[[]byte]
	logger    *zap.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// View returns the application-facing side of the connection: writes are
// framed and sent to the server, listeners observe decoded server traffic.
func (c *ClientConn[I, O]) View() stream.View[O, I] {
	return c.Duplex.Client()
}

// Done is closed once the read loop has exited for any reason.
func (c *ClientConn[I, O]) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and tears the socket down. Safe to call more
// than once.
func (c *ClientConn[I, O]) Close() error {
	c.closeOnce.Do(func() {
		if raw, err := wire.EncodeMasked(wire.Close(nil)); err == nil {
			c.writer.Send(raw)
		}
		c.conn.Close()
	})
	return nil
}

// Dial opens a framed socket to urlStr and blocks until the connection is
// open: the TCP socket is connected, the upgrade handshake has been
// answered and verified, and the outbound wiring is installed. http(s)
// schemes are upgraded to ws(s) first. There is no cancellation for an
// in-flight dial; cap it with net timeouts at the OS level if needed.
//
// cdc decodes inbound payloads into O and encodes outbound I messages;
// every outbound message becomes one masked fin frame.
func Dial[I any, O any](urlStr string, cdc codec.Codec[O, I], config *Config) (*ClientConn[I, O], error) {
	config = config.withDefaults()

	u, err := url.Parse(NormalizeURL(urlStr))
	if err != nil {
		return nil, errors.Wrap(err, "ws: parsing dial url")
	}

	var conn net.Conn
	switch u.Scheme {
	case "ws":
		conn, err = net.Dial("tcp", hostPort(u, "80"))
	case "wss":
		conn, err = tls.Dial("tcp", hostPort(u, "443"), nil)
	default:
		return nil, errors.Errorf("ws: unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, errors.Wrap(err, "ws: dialing")
	}

	buffered, err := clientHandshake(conn, u)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &ClientConn[I, O]{
		Duplex: stream.NewDuplex[I, O](),
		conn:   conn,
		logger: config.Logger.With(zap.String("remote", u.Host)),
		done:   make(chan struct{}),
	}
	c.writer = conc.NewWriter(func(p []byte) error {
		_, err := conn.Write(p)
		return err
	})

	// Outbound wiring: installed only now that the socket is open, so a
	// message written before Dial returned could never race the handshake.
	c.Duplex.ToServer.AddListener(&stream.Listener[I]{
		OnMessage: func(msg I) {
			frame, err := clientEncode(cdc, msg)
			if err != nil {
				c.logger.Warn("dropping unencodable message", zap.Error(err))
				return
			}
			c.writer.Send(frame)
		},
		OnClose: func() { c.Close() },
	})
	c.Duplex.CloseServer()

	go c.readLoop(cdc, buffered, config)
	return c, nil
}

// clientHandshake sends the upgrade request and verifies the 101 reply,
// returning any frame bytes that arrived buffered behind the response.
func clientHandshake(conn net.Conn, u *url.URL) ([]byte, error) {
	key, err := wire.GenerateKey()
	if err != nil {
		return nil, err
	}

	path := u.RequestURI()
	if path == "" {
		path = "/"
	}
	req := "GET " + path + " HTTP/1.1\r\n" +
		"Host: " + u.Host + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
	if _, err := conn.Write([]byte(req)); err != nil {
		return nil, errors.Wrap(err, "ws: writing upgrade request")
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return nil, errors.Wrap(err, "ws: reading upgrade response")
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return nil, errors.Wrapf(wire.ErrBadUpgradeReply, "got %s", resp.Status)
	}
	if !wire.VerifyAccept(key, resp.Header.Get("Sec-WebSocket-Accept")) {
		return nil, wire.ErrAcceptMismatch
	}

	if n := br.Buffered(); n > 0 {
		peeked, _ := br.Peek(n)
		out := make([]byte, n)
		copy(out, peeked)
		return out, nil
	}
	return nil, nil
}

// readLoop reassembles inbound traffic until the socket ends. Decoded
// messages land on ToClient, where the application's listeners live;
// socket close and error forward there 1:1.
func (c *ClientConn[I, O]) readLoop(cdc codec.Codec[O, I], buffered []byte, config *Config) {
	defer close(c.done)
	defer c.writer.Stop()
	defer c.conn.Close()
	defer c.Duplex.ToClient.Close()

	reasm := &reassembler{
		maxPayload: config.maxPayload(),
		onMessage: func(payload []byte, kind codec.Kind) {
			msg, err := cdc.Decode(payload, kind)
			if err != nil {
				c.logger.Warn("dropping undecodable message", zap.Error(err))
				return
			}
			c.Duplex.ToClient.Write(msg)
		},
		onPing: func(f *wire.Frame) {
			// This client is its own platform, so it answers pings
			// itself; client-direction frames are masked.
			if raw, err := wire.EncodeMasked(wire.Pong(f)); err == nil {
				c.writer.Send(raw)
			}
		},
	}

	if len(buffered) > 0 {
		if closed, err := reasm.feed(buffered); closed || err != nil {
			return
		}
	}

	buf := make([]byte, config.ReadChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			if !isClosedError(err) {
				c.Duplex.ToClient.Fail(err)
			}
			return
		}
		closed, err := reasm.feed(buf[:n])
		if err != nil {
			c.logger.Warn("poisoned byte stream", zap.Error(err))
			return
		}
		if closed {
			return
		}
	}
}

// clientEncode frames one outbound message in the masked direction.
func clientEncode[I any, O any](cdc codec.Codec[O, I], msg I) ([]byte, error) {
	data, kind, err := cdc.Encode(msg)
	if err != nil {
		return nil, err
	}
	f := wire.Text(data)
	if kind == codec.KindBinary {
		f = wire.Binary(data)
	}
	return wire.EncodeMasked(f)
}

// hostPort appends the scheme's default port when the URL has none.
func hostPort(u *url.URL, def string) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), def)
}
