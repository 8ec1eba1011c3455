package events

import (
	"context"
	"net/http"

	"github.com/platinummonkey/ioevents/pkg/signature"
)

// VerifyDigitalSignatureForEvent authenticates a webhook delivery.
// A body that cannot be decoded returns a 400 *signature.ResponseError and a
// payload addressed to another client returns a 401 one, without any key
// being fetched. Otherwise the result of the signature check is returned.
func (c *Client) VerifyDigitalSignatureForEvent(ctx context.Context, rawEvent, recipientClientID string, opts signature.SignatureOptions) (bool, error) {
	payload, err := signature.DecodePayload(rawEvent)
	if err != nil {
		return false, err
	}

	if !signature.IsTargetRecipient(payload, recipientClientID) {
		return false, signature.NewResponseError(http.StatusUnauthorized, signature.MsgNotRecipient)
	}

	return c.verifier.Verify(ctx, opts, recipientClientID, payload), nil
}
