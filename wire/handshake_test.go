package wire

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Canonical vector from RFC 6455 Section 1.3.
func TestAcceptKeyVector(t *testing.T) {
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestUpgradeResponse(t *testing.T) {
	resp := string(UpgradeResponse("dGhlIHNhbXBsZSBub25jZQ=="))
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 101 Switching Protocols\r\n"))
	assert.Contains(t, resp, "Upgrade: websocket\r\n")
	assert.Contains(t, resp, "Connection: Upgrade\r\n")
	assert.Contains(t, resp, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n")
	assert.True(t, strings.HasSuffix(resp, "\r\n\r\n"))
}

func upgradeRequest() *http.Request {
	r, _ := http.NewRequest("GET", "http://example.com/ws", nil)
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Connection", "keep-alive, Upgrade")
	r.Header.Set("Sec-WebSocket-Version", "13")
	r.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return r
}

func TestValidateUpgrade(t *testing.T) {
	key, err := ValidateUpgrade(upgradeRequest())
	require.NoError(t, err)
	assert.Equal(t, "dGhlIHNhbXBsZSBub25jZQ==", key)

	r := upgradeRequest()
	r.Method = http.MethodPost
	_, err = ValidateUpgrade(r)
	assert.ErrorIs(t, err, ErrNotUpgrade)

	r = upgradeRequest()
	r.Header.Del("Upgrade")
	_, err = ValidateUpgrade(r)
	assert.ErrorIs(t, err, ErrNotUpgrade)

	r = upgradeRequest()
	r.Header.Set("Sec-WebSocket-Version", "8")
	_, err = ValidateUpgrade(r)
	assert.ErrorIs(t, err, ErrBadVersion)

	r = upgradeRequest()
	r.Header.Del("Sec-WebSocket-Key")
	_, err = ValidateUpgrade(r)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestGenerateAndVerifyKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.True(t, VerifyAccept(key, AcceptKey(key)))
	assert.False(t, VerifyAccept(key, "bogus"))
}
