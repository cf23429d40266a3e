package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorToHTTPCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, ErrorToHTTPCode(nil))
	assert.Equal(t, http.StatusForbidden, ErrorToHTTPCode(status.Error(codes.PermissionDenied, "no")))
	assert.Equal(t, http.StatusNotFound, ErrorToHTTPCode(status.Error(codes.NotFound, "gone")))
	assert.Equal(t, http.StatusConflict, ErrorToHTTPCode(status.Error(codes.AlreadyExists, "dup")))
	assert.Equal(t, http.StatusBadRequest, ErrorToHTTPCode(status.Error(codes.InvalidArgument, "bad")))
	assert.Equal(t, http.StatusInternalServerError, ErrorToHTTPCode(status.Error(codes.Internal, "boom")))
	assert.Equal(t, http.StatusInternalServerError, ErrorToHTTPCode(errors.New("plain")))
}

func TestSendJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendJSONResponse(rec, map[string]any{"ok": true}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	SendJSONResponse(rec, nil, status.Error(codes.InvalidArgument, "missing key"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InvalidArgument", body["error"])
	assert.Equal(t, "missing key", body["message"])
}
