package events

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/ioevents/pkg/httpclient"
)

// Link is a HAL link
type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
}

// Links maps a relation to a HAL link
type Links map[string]Link

// ProviderInput is the body of CreateProvider and UpdateProvider
type ProviderInput struct {
	Label               string `json:"label"`
	Description         string `json:"description,omitempty"`
	DocsURL             string `json:"docs_url,omitempty"`
	InstanceID          string `json:"instance_id,omitempty"`
	EventDeliveryFormat string `json:"event_delivery_format,omitempty"`
}

// Provider is an events provider
type Provider struct {
	ID                  string `json:"id"`
	Label               string `json:"label"`
	Description         string `json:"description,omitempty"`
	Source              string `json:"source,omitempty"`
	DocsURL             string `json:"docs_url,omitempty"`
	PublisherOrgID      string `json:"publisher,omitempty"`
	InstanceID          string `json:"instance_id,omitempty"`
	ProviderMetadata    string `json:"provider_metadata,omitempty"`
	EventDeliveryFormat string `json:"event_delivery_format,omitempty"`
	Embedded            *struct {
		EventMetadata []EventMetadata `json:"eventmetadata,omitempty"`
	} `json:"_embedded,omitempty"`
	Links Links `json:"_links,omitempty"`
}

// ProviderList is the response of GetAllProviders
type ProviderList struct {
	Embedded struct {
		Providers []Provider `json:"providers"`
	} `json:"_embedded"`
	Links Links `json:"_links,omitempty"`
}

// ProviderMetadata describes a provider type the org is entitled to
type ProviderMetadata struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Links       Links  `json:"_links,omitempty"`
}

// ProviderMetadataList is the response of GetProviderMetadata
type ProviderMetadataList struct {
	Embedded struct {
		ProviderMetadata []ProviderMetadata `json:"providermetadata"`
	} `json:"_embedded"`
	Links Links `json:"_links,omitempty"`
}

// ProviderOptions filters GetAllProviders. ProviderMetadataID and
// ProviderMetadataIDs are mutually exclusive.
type ProviderOptions struct {
	ProviderMetadataID  string
	InstanceID          string
	ProviderMetadataIDs []string
}

func (o ProviderOptions) params() []httpclient.QueryParam {
	return []httpclient.QueryParam{
		{Key: "providerMetadataId", Value: o.ProviderMetadataID},
		{Key: "instanceId", Value: o.InstanceID},
		{Key: "providerMetadataIds", Value: strings.Join(o.ProviderMetadataIDs, ",")},
	}
}

// EventMetadataInput is the body of the event metadata create and update calls
type EventMetadataInput struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	EventCode   string `json:"event_code"`
	// SampleEventTemplate is base64 encoded
	SampleEventTemplate string `json:"sample_event_template,omitempty"`
}

// EventMetadata describes one event type of a provider
type EventMetadata struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	EventCode   string `json:"event_code"`
	Links       Links  `json:"_links,omitempty"`
}

// EventMetadataList is the response of GetAllEventMetadataForProvider
type EventMetadataList struct {
	Embedded struct {
		EventMetadata []EventMetadata `json:"eventmetadata"`
	} `json:"_embedded"`
	Links Links `json:"_links,omitempty"`
}

// EventsOfInterest selects one event code of one provider
type EventsOfInterest struct {
	ProviderID string `json:"provider_id"`
	EventCode  string `json:"event_code"`
}

// Delivery types
const (
	DeliveryWebhook      = "webhook"
	DeliveryWebhookBatch = "webhook_batch"
	DeliveryJournal      = "journal"
)

// RegistrationCreate is the body of CreateRegistration
type RegistrationCreate struct {
	ClientID         string             `json:"client_id"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	WebhookURL       string             `json:"webhook_url,omitempty"`
	EventsOfInterest []EventsOfInterest `json:"events_of_interest"`
	DeliveryType     string             `json:"delivery_type"`
	Enabled          *bool              `json:"enabled,omitempty"`
}

// RegistrationUpdate is the body of UpdateRegistration
type RegistrationUpdate struct {
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	WebhookURL       string             `json:"webhook_url,omitempty"`
	EventsOfInterest []EventsOfInterest `json:"events_of_interest"`
	DeliveryType     string             `json:"delivery_type"`
	Enabled          *bool              `json:"enabled,omitempty"`
}

// Registration is a webhook or journal registration
type Registration struct {
	ID               string             `json:"id,omitempty"`
	RegistrationID   string             `json:"registration_id"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	ClientID         string             `json:"client_id"`
	WebhookURL       string             `json:"webhook_url,omitempty"`
	WebhookStatus    string             `json:"webhook_status,omitempty"`
	DeliveryType     string             `json:"delivery_type"`
	Enabled          bool               `json:"enabled"`
	EventsOfInterest []EventsOfInterest `json:"events_of_interest,omitempty"`
	CreatedDate      *time.Time         `json:"created_date,omitempty"`
	UpdatedDate      *time.Time         `json:"updated_date,omitempty"`
	Links            Links              `json:"_links,omitempty"`
}

// JournalURL returns the journal link of a journal registration
func (r Registration) JournalURL() string {
	return r.Links["rel:events"].Href
}

// RegistrationList is the response of the registration list calls
type RegistrationList struct {
	Embedded struct {
		Registrations []Registration `json:"registrations"`
	} `json:"_embedded"`
	Links Links     `json:"_links,omitempty"`
	Page  *PageInfo `json:"page,omitempty"`
}

// PageInfo is the pagination block of GetAllRegistrationsForOrg
type PageInfo struct {
	Size          int `json:"size"`
	Number        int `json:"number"`
	NumberOfElems int `json:"numberOfElements"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// Page requests one page of GetAllRegistrationsForOrg. Zero values are omitted.
type Page struct {
	Page int
	Size int
}

func (p Page) params() []httpclient.QueryParam {
	return []httpclient.QueryParam{
		{Key: "page", Value: nonZero(p.Page)},
		{Key: "size", Value: nonZero(p.Size)},
	}
}

// JournalOptions are query options for a journal read. Zero values are omitted.
type JournalOptions struct {
	// Latest starts from the newest event
	Latest bool
	// Since is the position to read after
	Since string
	// Limit caps the number of events returned
	Limit int
}

func (o JournalOptions) params() []httpclient.QueryParam {
	latest := ""
	if o.Latest {
		latest = "true"
	}
	return []httpclient.QueryParam{
		{Key: "latest", Value: latest},
		{Key: "since", Value: o.Since},
		{Key: "limit", Value: nonZero(o.Limit)},
	}
}

// PollingOptions configures EventsObservableFromJournal
type PollingOptions struct {
	// Interval is a fixed wait between empty reads; zero follows Retry-After
	Interval time.Duration
	// StoreKey names the saved cursor when the client has a cursor store
	StoreKey string
}

// CloudEvent is a CloudEvents 1.0 envelope. Data must be JSON.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Time            *time.Time      `json:"time,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

func nonZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
