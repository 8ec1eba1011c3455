package events

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/platinummonkey/ioevents/pkg/httpclient"
)

func eventMetadataParam(fetch bool) httpclient.QueryParam {
	if fetch {
		return httpclient.QueryParam{Key: "eventmetadata", Value: "true"}
	}
	return httpclient.QueryParam{Key: "eventmetadata"}
}

// GetAllProviders lists the providers of a consumer org
func (c *Client) GetAllProviders(ctx context.Context, consumerOrgID string, fetchEventMetadata bool, opts ProviderOptions) (*ProviderList, error) {
	if opts.ProviderMetadataID != "" && len(opts.ProviderMetadataIDs) > 0 {
		return nil, newSDKError(CodeGetAllProviders, nil,
			errors.New("only one of providerMetadataIds or providerMetadataId can be set"))
	}

	target := c.url("/events/%s/providers", url.PathEscape(consumerOrgID))
	target = httpclient.AppendQueryParams(target, opts.params()...)
	target = httpclient.AppendQueryParams(target, eventMetadataParam(fetchEventMetadata))

	var out ProviderList
	if err := c.call(ctx, CodeGetAllProviders, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProvider fetches one provider, optionally with its event metadata embedded
func (c *Client) GetProvider(ctx context.Context, providerID string, fetchEventMetadata bool) (*Provider, error) {
	target := c.url("/events/providers/%s", url.PathEscape(providerID))
	target = httpclient.AppendQueryParams(target, eventMetadataParam(fetchEventMetadata))

	var out Provider
	if err := c.call(ctx, CodeGetProvider, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProvider creates a provider in a workspace
func (c *Client) CreateProvider(ctx context.Context, consumerOrgID, projectID, workspaceID string, body ProviderInput) (*Provider, error) {
	target := c.url("/events/%s/%s/%s/providers",
		url.PathEscape(consumerOrgID), url.PathEscape(projectID), url.PathEscape(workspaceID))

	var out Provider
	if err := c.call(ctx, CodeCreateProvider, http.MethodPost, target, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProvider replaces a provider's details
func (c *Client) UpdateProvider(ctx context.Context, consumerOrgID, projectID, workspaceID, providerID string, body ProviderInput) (*Provider, error) {
	target := c.url("/events/%s/%s/%s/providers/%s",
		url.PathEscape(consumerOrgID), url.PathEscape(projectID), url.PathEscape(workspaceID), url.PathEscape(providerID))

	var out Provider
	if err := c.call(ctx, CodeUpdateProvider, http.MethodPut, target, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProvider deletes a provider
func (c *Client) DeleteProvider(ctx context.Context, consumerOrgID, projectID, workspaceID, providerID string) error {
	target := c.url("/events/%s/%s/%s/providers/%s",
		url.PathEscape(consumerOrgID), url.PathEscape(projectID), url.PathEscape(workspaceID), url.PathEscape(providerID))
	return c.call(ctx, CodeDeleteProvider, http.MethodDelete, target, nil, nil)
}

// GetProviderMetadata lists the provider metadata the org is entitled to
func (c *Client) GetProviderMetadata(ctx context.Context) (*ProviderMetadataList, error) {
	var out ProviderMetadataList
	if err := c.call(ctx, CodeGetAllProviderMetadata, http.MethodGet, c.url("/events/providermetadata"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
