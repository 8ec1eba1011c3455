package journal

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomnomnom/linkheader"
)

// ParseLinkHeader parses RFC 5988 Link header values into relation -> URL,
// resolving each URL against base. Returns nil when no usable link is present.
func ParseLinkHeader(values []string, base *url.URL) map[string]string {
	if len(values) == 0 {
		return nil
	}

	links := make(map[string]string)
	for _, link := range linkheader.ParseMultiple(values) {
		ref, err := url.Parse(strings.TrimSpace(link.URL))
		if err != nil {
			continue
		}
		resolved := ref
		if base != nil {
			resolved = base.ResolveReference(ref)
		}
		for _, rel := range strings.Fields(link.Rel) {
			rel = strings.ToLower(rel)
			if _, seen := links[rel]; !seen {
				links[rel] = resolved.String()
			}
		}
	}

	if len(links) == 0 {
		return nil
	}
	return links
}

// maxRetryAfterSeconds keeps the result within time.Duration
const maxRetryAfterSeconds = int64(1<<63-1) / int64(time.Second)

// ParseRetryAfter converts a Retry-After value to a duration. Digits are
// seconds; anything else must be an HTTP-date, measured from now. Unparseable
// values and dates not in the future yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if isDigits(value) {
		seconds, err := strconv.ParseInt(value, 10, 64)
		if err != nil || seconds <= 0 || seconds > maxRetryAfterSeconds {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0
	}
	if wait := at.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
