package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/platinummonkey/ioevents/pkg/httpclient"
	"github.com/platinummonkey/ioevents/pkg/journal"
)

// GetEventsFromJournal reads one batch from a journal URL or next link.
// HTTP 200 carries events, 204 means nothing new. The Link header is resolved
// against journalURL. Any other status is an ERROR_GET_JOURNAL_DATA error.
func (c *Client) GetEventsFromJournal(ctx context.Context, journalURL string, opts JournalOptions, fetchResponseHeaders bool) (*journal.FetchResult, error) {
	target := httpclient.AppendQueryParams(journalURL, opts.params()...)

	req, err := c.newRequest(ctx, http.MethodGet, target, nil, nil)
	if err != nil {
		return nil, c.fail(CodeGetJournalData, req, nil, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(CodeGetJournalData, req, nil, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		details := requestDetails(req, resp)
		statusErr := httpclient.NewStatusError(resp)
		return nil, &SDKError{
			Code:    CodeGetJournalData,
			Message: fmt.Sprintf("get journal events failed with %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Details: details,
			Err:     statusErr,
		}
	}
	defer resp.Body.Close()

	result := &journal.FetchResult{}
	if resp.StatusCode == http.StatusOK {
		var body journal.Body
		err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, c.fail(CodeGetJournalData, req, resp, fmt.Errorf("failed to decode journal response: %w", err))
		}
		result.Events = body.Events
		result.Page = body.Page
	}

	base, err := url.Parse(journalURL)
	if err != nil {
		base = req.URL
	}
	result.Links = journal.ParseLinkHeader(resp.Header.Values("Link"), base)
	result.RetryAfter = journal.ParseRetryAfter(resp.Header.Get("Retry-After"), c.clock.Now())
	if fetchResponseHeaders {
		result.Headers = resp.Header.Clone()
	}

	return result, nil
}

// FetchJournal implements journal.Fetcher
func (c *Client) FetchJournal(ctx context.Context, journalURL string) (*journal.FetchResult, error) {
	return c.GetEventsFromJournal(ctx, journalURL, JournalOptions{}, false)
}

// EventsObservableFromJournal starts a poller over the journal. Events are
// only fetched while the poller has subscribers; call Stop when done.
func (c *Client) EventsObservableFromJournal(ctx context.Context, journalURL string, opts JournalOptions, polling PollingOptions) *journal.Poller {
	start := httpclient.AppendQueryParams(journalURL, opts.params()...)

	pollerOpts := journal.Options{
		Interval: polling.Interval,
		Clock:    c.clock,
		Logger:   c.logger,
		Metrics:  c.metrics,
	}
	if c.store != nil && polling.StoreKey != "" {
		pollerOpts.Store = c.store
		pollerOpts.StoreKey = polling.StoreKey
	}

	poller := journal.NewPoller(c, start, pollerOpts)
	poller.Start(ctx)
	return poller
}
