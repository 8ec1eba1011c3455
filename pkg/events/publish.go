package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PublishEvent posts a CloudEvents 1.0 event to the ingress endpoint. The
// response text is returned for 200 and "" for 204. Retries follow the
// client's retry configuration.
func (c *Client) PublishEvent(ctx context.Context, event interface{}) (string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return "", newSDKError(CodePublishEvent, nil, fmt.Errorf("failed to marshal event: %w", err))
	}

	header := http.Header{}
	header.Set(HeaderContentType, contentTypeCloudEvent)

	req, err := c.newRequest(ctx, http.MethodPost, c.ingressURL, body, header)
	if err != nil {
		return "", c.fail(CodePublishEvent, req, nil, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.fail(CodePublishEvent, req, nil, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.fail(CodePublishEvent, req, resp, reduceError(resp, c.ingressURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", c.fail(CodePublishEvent, req, resp, fmt.Errorf("failed to read response: %w", err))
	}
	return string(text), nil
}
