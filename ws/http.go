package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	gut "github.com/panyam/goutils/utils"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SendJSONResponse writes resp as JSON. When err is non-nil the body is an
// error object instead and the HTTP status comes from ErrorToHTTPCode, so
// upgrade rejections carry machine-readable causes.
func SendJSONResponse(w http.ResponseWriter, resp any, err error) {
	output := resp
	if err != nil {
		if st, ok := status.FromError(err); ok {
			output = gut.StrMap{"error": st.Code().String(), "message": st.Message()}
		} else {
			output = gut.StrMap{"error": err.Error()}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorToHTTPCode(err))
	body, _ := json.Marshal(output)
	w.Write(body)
}

// ErrorToHTTPCode maps an error to an HTTP status code. gRPC status codes
// carried by err pick the specific client error; anything else is a 500.
// A nil err is 200.
func ErrorToHTTPCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.PermissionDenied:
			return http.StatusForbidden
		case codes.NotFound:
			return http.StatusNotFound
		case codes.AlreadyExists:
			return http.StatusConflict
		case codes.InvalidArgument:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// NormalizeURL converts an http(s) URL to its ws(s) equivalent and strips
// any trailing slash. URLs already using a ws scheme pass through.
//
//	NormalizeURL("https://example.com/ws/") // "wss://example.com/ws"
func NormalizeURL(httpOrWsURL string) string {
	out := strings.TrimSuffix(httpOrWsURL, "/")
	if strings.HasPrefix(out, "http:") {
		return "ws:" + out[len("http:"):]
	}
	if strings.HasPrefix(out, "https:") {
		return "wss:" + out[len("https:"):]
	}
	return out
}
