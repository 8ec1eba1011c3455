package events

import (
	"context"
	"net/http"
	"net/url"
)

// GetAllEventMetadataForProvider lists the event metadata of a provider
func (c *Client) GetAllEventMetadataForProvider(ctx context.Context, providerID string) (*EventMetadataList, error) {
	target := c.url("/events/providers/%s/eventmetadata", url.PathEscape(providerID))

	var out EventMetadataList
	if err := c.call(ctx, CodeGetAllEventMetadata, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEventMetadataForProvider fetches the metadata of one event code
func (c *Client) GetEventMetadataForProvider(ctx context.Context, providerID, eventCode string) (*EventMetadata, error) {
	target := c.url("/events/providers/%s/eventmetadata/%s", url.PathEscape(providerID), url.PathEscape(eventCode))

	var out EventMetadata
	if err := c.call(ctx, CodeGetEventMetadata, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) workspaceEventMetadataURL(consumerOrgID, projectID, workspaceID, providerID string) string {
	return c.url("/events/%s/%s/%s/providers/%s/eventmetadata",
		url.PathEscape(consumerOrgID), url.PathEscape(projectID), url.PathEscape(workspaceID), url.PathEscape(providerID))
}

// CreateEventMetadataForProvider adds an event code to a provider
func (c *Client) CreateEventMetadataForProvider(ctx context.Context, consumerOrgID, projectID, workspaceID, providerID string, body EventMetadataInput) (*EventMetadata, error) {
	target := c.workspaceEventMetadataURL(consumerOrgID, projectID, workspaceID, providerID)

	var out EventMetadata
	if err := c.call(ctx, CodeCreateEventMetadata, http.MethodPost, target, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEventMetadataForProvider replaces the metadata of one event code
func (c *Client) UpdateEventMetadataForProvider(ctx context.Context, consumerOrgID, projectID, workspaceID, providerID, eventCode string, body EventMetadataInput) (*EventMetadata, error) {
	target := c.workspaceEventMetadataURL(consumerOrgID, projectID, workspaceID, providerID) + "/" + url.PathEscape(eventCode)

	var out EventMetadata
	if err := c.call(ctx, CodeUpdateEventMetadata, http.MethodPut, target, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEventMetadata removes one event code from a provider
func (c *Client) DeleteEventMetadata(ctx context.Context, consumerOrgID, projectID, workspaceID, providerID, eventCode string) error {
	target := c.workspaceEventMetadataURL(consumerOrgID, projectID, workspaceID, providerID) + "/" + url.PathEscape(eventCode)
	return c.call(ctx, CodeDeleteEventMetadata, http.MethodDelete, target, nil, nil)
}

// DeleteAllEventMetadata removes every event code from a provider
func (c *Client) DeleteAllEventMetadata(ctx context.Context, consumerOrgID, projectID, workspaceID, providerID string) error {
	target := c.workspaceEventMetadataURL(consumerOrgID, projectID, workspaceID, providerID)
	return c.call(ctx, CodeDeleteAllEventMetadata, http.MethodDelete, target, nil, nil)
}
