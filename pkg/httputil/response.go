package httputil

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"
)

// ErrorBody is the JSON body of every error response
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON sends v as JSON with the given status. Encoding errors after the
// header is written cannot be reported to the client and are dropped.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteOK sends v with 200
func WriteOK(w http.ResponseWriter, v interface{}) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteError sends an ErrorBody carrying the request id set by RequestID, if any
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{
		Error:     message,
		RequestID: w.Header().Get(HeaderRequestID),
	})
}

// WriteRetryLater sends 503 with a Retry-After of at least one second
func WriteRetryLater(w http.ResponseWriter, after time.Duration, message string) {
	seconds := int(math.Ceil(after.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	WriteError(w, http.StatusServiceUnavailable, message)
}
