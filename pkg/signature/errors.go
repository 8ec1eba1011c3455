package signature

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Messages sent back to the events service
const (
	MsgBadPayload   = "Failed to understand the payload"
	MsgNotRecipient = "Unable to authenticate, not a valid target recipient"
	MsgBadSignature = "Unable to authenticate, invalid digital signature"
)

var (
	// ErrUntrustedKeyLocation is returned for key locators outside the trusted hosts
	ErrUntrustedKeyLocation = errors.New("untrusted public key location")

	// ErrEmptyKey is returned when the CDN answers with an empty body
	ErrEmptyKey = errors.New("empty public key")
)

// ResponseError is an HTTP shaped failure a webhook handler can send as is
type ResponseError struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// NewResponseError builds a JSON response error
func NewResponseError(statusCode int, message string) *ResponseError {
	return &ResponseError{
		StatusCode: statusCode,
		Body:       message,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Write sends the error as an HTTP response with body {"error": message}
func (e *ResponseError) Write(w http.ResponseWriter) {
	for k, v := range e.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": e.Body})
}
