// Package events is the client for the cloud eventing service: provider,
// event metadata and registration management, event publishing, journal
// consumption and webhook signature verification.
//
// # Usage
//
//	client, err := events.New(events.Config{
//		OrganizationID: orgID,
//		APIKey:         apiKey,
//		AccessToken:    token,
//		Retry:          httpclient.RetryConfig{MaxRetries: 3},
//		Logger:         logger,
//	})
//	if err != nil {
//		return err
//	}
//
//	poller := client.EventsObservableFromJournal(ctx, journalURL,
//		events.JournalOptions{Latest: true}, events.PollingOptions{})
//	defer poller.Stop()
//	poller.SubscribeFunc(func(e journal.Event) { handle(e) }, func(err error) { log(err) })
//
// Every operation returns an *SDKError whose Code names the failed call.
// Request details attached to errors have the Authorization and x-api-key
// headers masked.
//
// # Related Packages
//
//   - pkg/journal: the poller behind EventsObservableFromJournal
//   - pkg/signature: payload decoding and RSA signature checks
//   - pkg/httpclient: the retrying transport
package events
