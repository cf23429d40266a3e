package wire

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// keyGUID is the fixed GUID every accept key is salted with (RFC 6455
// Section 1.3).
const keyGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Handshake validation errors.
var (
	ErrNotUpgrade      = errors.New("wire: not a websocket upgrade request")
	ErrMissingKey      = errors.New("wire: missing Sec-WebSocket-Key header")
	ErrBadVersion      = errors.New("wire: unsupported Sec-WebSocket-Version; only 13 is supported")
	ErrAcceptMismatch  = errors.New("wire: Sec-WebSocket-Accept mismatch")
	ErrBadUpgradeReply = errors.New("wire: peer did not answer 101 Switching Protocols")
)

// AcceptKey computes the Sec-WebSocket-Accept value for the peer-supplied
// opaque key: base64(SHA1(key + GUID)). Pure; called once per connection
// before any frame traffic.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + keyGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// UpgradeResponse renders the complete 101 response that converts an
// ordinary HTTP connection into a framed socket. The header block is
// written verbatim; callers push it onto the raw connection and start
// framing immediately after.
func UpgradeResponse(key string) []byte {
	var sb strings.Builder
	sb.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Sec-WebSocket-Accept: " + AcceptKey(key) + "\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

// ValidateUpgrade checks that r is a well-formed websocket upgrade request
// and returns the client's Sec-WebSocket-Key.
func ValidateUpgrade(r *http.Request) (string, error) {
	if r.Method != http.MethodGet {
		return "", ErrNotUpgrade
	}
	if !headerHasToken(r.Header, "Upgrade", "websocket") ||
		!headerHasToken(r.Header, "Connection", "upgrade") {
		return "", ErrNotUpgrade
	}
	if v := r.Header.Get("Sec-WebSocket-Version"); v != "13" {
		return "", ErrBadVersion
	}
	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return "", ErrMissingKey
	}
	return key, nil
}

// GenerateKey produces a random Sec-WebSocket-Key for a client-initiated
// handshake: 16 random bytes, base64 encoded.
func GenerateKey() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "wire: generating handshake key")
	}
	return base64.StdEncoding.EncodeToString(nonce), nil
}

// VerifyAccept reports whether accept is the correct answer for key.
func VerifyAccept(key, accept string) bool {
	return AcceptKey(key) == accept
}

// headerHasToken reports whether any comma-separated value of the named
// header equals token, case-insensitively.
func headerHasToken(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
