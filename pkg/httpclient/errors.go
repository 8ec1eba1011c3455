package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of a failed response is kept
const maxErrorBody = 4 << 10

// StatusError is returned when a response has an unexpected status code
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
	RequestID  string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// NewStatusError builds a StatusError from resp and closes its body
func NewStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     status,
		Body:       string(body),
		RequestID:  resp.Header.Get("x-request-id"),
	}
}
