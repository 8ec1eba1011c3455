package httpclient

import (
	"net/url"
	"strings"
)

// QueryParam is one key/value pair, kept ordered so generated URLs are stable
type QueryParam struct {
	Key   string
	Value string
}

// AppendQueryParams appends params with empty values skipped, using ? or &
// depending on whether rawURL already has a query.
func AppendQueryParams(rawURL string, params ...QueryParam) string {
	var b strings.Builder
	b.WriteString(rawURL)

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
		if strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&") {
			sep = ""
		}
	}

	for _, p := range params {
		if p.Value == "" {
			continue
		}
		b.WriteString(sep)
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
		sep = "&"
	}

	return b.String()
}
