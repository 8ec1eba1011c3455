package events

import (
	"context"
	"net/http"
	"net/url"

	"github.com/platinummonkey/ioevents/pkg/httpclient"
)

func (c *Client) registrationsURL(consumerOrgID, projectID, workspaceID string) string {
	return c.url("/events/%s/%s/%s/registrations",
		url.PathEscape(consumerOrgID), url.PathEscape(projectID), url.PathEscape(workspaceID))
}

// CreateRegistration creates a webhook or journal registration
func (c *Client) CreateRegistration(ctx context.Context, consumerOrgID, projectID, workspaceID string, body RegistrationCreate) (*Registration, error) {
	var out Registration
	target := c.registrationsURL(consumerOrgID, projectID, workspaceID)
	if err := c.call(ctx, CodeCreateRegistration, http.MethodPost, target, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRegistration replaces a registration's details
func (c *Client) UpdateRegistration(ctx context.Context, consumerOrgID, projectID, workspaceID, registrationID string, body RegistrationUpdate) (*Registration, error) {
	var out Registration
	target := c.registrationsURL(consumerOrgID, projectID, workspaceID) + "/" + url.PathEscape(registrationID)
	if err := c.call(ctx, CodeUpdateRegistration, http.MethodPut, target, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRegistration fetches one registration
func (c *Client) GetRegistration(ctx context.Context, consumerOrgID, projectID, workspaceID, registrationID string) (*Registration, error) {
	var out Registration
	target := c.registrationsURL(consumerOrgID, projectID, workspaceID) + "/" + url.PathEscape(registrationID)
	if err := c.call(ctx, CodeGetRegistration, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAllRegistrationsForWorkspace lists the registrations of a workspace
func (c *Client) GetAllRegistrationsForWorkspace(ctx context.Context, consumerOrgID, projectID, workspaceID string) (*RegistrationList, error) {
	var out RegistrationList
	target := c.registrationsURL(consumerOrgID, projectID, workspaceID)
	if err := c.call(ctx, CodeGetAllRegistration, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAllRegistrationsForOrg lists one page of the registrations of an org
func (c *Client) GetAllRegistrationsForOrg(ctx context.Context, consumerOrgID string, page Page) (*RegistrationList, error) {
	var out RegistrationList
	target := c.url("/events/%s/registrations", url.PathEscape(consumerOrgID))
	target = httpclient.AppendQueryParams(target, page.params()...)
	if err := c.call(ctx, CodeGetAllRegistrationsForOrg, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRegistration deletes a registration
func (c *Client) DeleteRegistration(ctx context.Context, consumerOrgID, projectID, workspaceID, registrationID string) error {
	target := c.registrationsURL(consumerOrgID, projectID, workspaceID) + "/" + url.PathEscape(registrationID)
	return c.call(ctx, CodeDeleteRegistration, http.MethodDelete, target, nil, nil)
}
