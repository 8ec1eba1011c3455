// Package cli provides the ioevents command-line interface.
//
// # Commands
//
// journal: Read events from a journal, optionally following it or draining it on a cron schedule
//
//	ioevents journal -url https://events-va6.adobe.io/events/organizations/... -limit 10
//	ioevents journal -follow -consumer-key reg-1 -count 100
//	ioevents journal -schedule "*/5 * * * *" -consumer-key reg-1
//
// verify: Verify the digital signatures of a webhook payload
//
//	ioevents verify -file event.json \
//		-sig1 "$SIG1" -sig2 "$SIG2" \
//		-key1 /prod/keys/pub-key-1.pem -key2 /prod/keys/pub-key-2.pem
//
// publish: Publish a CloudEvent
//
//	ioevents publish -source urn:uuid:<provider id> -type com.example.created -data '{"id":1}'
//	ioevents publish -file event.json
//
// providers: List providers of a consumer org, or show one provider
//
//	ioevents providers -consumer-org 12345 -metadata
//	ioevents providers -id <provider id>
//
// registrations: List registrations of an org, or of one workspace
//
//	ioevents registrations -consumer-org 12345 -page 1 -size 20
//	ioevents registrations -consumer-org 12345 -project p1 -workspace w1
//
// # Configuration
//
// Commands read the same IOEVENTS_* environment (and optional
// IOEVENTS_CONFIG_FILE) as the webhook service; see package config.
// With -consumer-key the journal cursor is stored in the configured cursor
// store, so a later run resumes after the last event printed.
package cli
