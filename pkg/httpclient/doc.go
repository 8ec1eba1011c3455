// Package httpclient is the shared HTTP collaborator for the events API and
// the public key CDN.
//
// Client.Do retries on network errors, HTTP 429 and 5xx with exponential
// backoff from cenkalti/backoff, starting at one second. The number of retries
// comes from RetryConfig.MaxRetries and defaults to zero. Requests are traced
// through an otelhttp transport and counted on observability.Metrics.
//
//	client := httpclient.New(httpclient.Options{
//		Retry:  httpclient.RetryConfig{MaxRetries: 3},
//		Logger: logger,
//	})
//	resp, err := client.Do(req)
//
// AppendQueryParams builds journal and provider URLs:
//
//	u := httpclient.AppendQueryParams(journalURL,
//		httpclient.QueryParam{Key: "limit", Value: "10"})
package httpclient
