package journal

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// DefaultInterval is the idle check interval and the wait after a failed fetch
const DefaultInterval = 2000 * time.Millisecond

// RelNext is the Link relation the poller follows
const RelNext = "next"

// ErrCursorNotFound is returned by a CursorStore with nothing saved for a key
var ErrCursorNotFound = errors.New("journal cursor not found")

// Event is one journal entry. Position is an opaque server token.
type Event struct {
	Position string          `json:"position"`
	Event    json.RawMessage `json:"event"`
}

// Page is the pagination block of a journal response
type Page struct {
	Last  string `json:"last,omitempty"`
	Count int    `json:"count"`
}

// Body is the JSON document returned with HTTP 200
type Body struct {
	Events []Event `json:"events"`
	Page   *Page   `json:"_page,omitempty"`
}

// FetchResult is the outcome of one journal fetch
type FetchResult struct {
	Events []Event
	Page   *Page
	// Links maps a relation to an absolute URL; nil when the header was missing
	Links map[string]string
	// RetryAfter is zero when the header was absent or unparseable
	RetryAfter time.Duration
	// Headers holds the raw response headers when the caller asked for them
	Headers http.Header
}

// Next returns the resolved next link, if the response had one
func (r *FetchResult) Next() (string, bool) {
	if r == nil || r.Links == nil {
		return "", false
	}
	next, ok := r.Links[RelNext]
	return next, ok && next != ""
}

// Cursor tracks where the next fetch goes
type Cursor struct {
	NextURL string
	// PollInterval, when set, overrides any server supplied wait
	PollInterval time.Duration
}

// Advance moves the cursor to the result's next link and reports whether it
// moved. A missing next link leaves the cursor unchanged.
func (c *Cursor) Advance(r *FetchResult) bool {
	next, ok := r.Next()
	if !ok {
		return false
	}
	c.NextURL = next
	return true
}

// NextWait returns how long to wait after a fetch with no events:
// the configured interval, else the server's Retry-After, else idle.
func NextWait(configured, retryAfter, idle time.Duration) time.Duration {
	switch {
	case configured > 0:
		return configured
	case retryAfter > 0:
		return retryAfter
	default:
		return idle
	}
}
