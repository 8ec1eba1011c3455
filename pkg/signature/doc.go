// Package signature authenticates webhook deliveries from the events service.
//
// A delivery carries two base64 RSA-SHA256 signatures and two public key
// locators. The verifier resolves each locator against the security domain,
// fetches the PEM keys through a keycache.Cache, and accepts the payload if
// either signature verifies. Signature 1 is tried first.
//
// # Usage
//
//	fetcher := signature.NewKeyFetcher(httpClient, cache, logger, metrics)
//	verifier, err := signature.NewVerifier(fetcher, signature.VerifierOptions{})
//	if err != nil {
//		return err
//	}
//
//	payload, err := signature.DecodePayload(body)
//	if err != nil {
//		return err // *ResponseError with status 400
//	}
//	if !signature.IsTargetRecipient(payload, clientID) {
//		return signature.NewResponseError(http.StatusUnauthorized, signature.MsgNotRecipient)
//	}
//	ok := verifier.Verify(ctx, opts, clientID, payload)
//
// Key locators that are not https, or point outside the security domain and
// the configured trusted hosts, are never fetched.
package signature
