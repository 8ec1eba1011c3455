package signature

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// PayloadDetector reports whether a raw webhook body is base64 encoded
type PayloadDetector func(raw string) bool

// IsBase64Encoded treats raw as base64 when decoding and re-encoding it gives
// back the same text. Plain JSON that happens to be valid base64 is
// misclassified; callers that know the encoding should pass their own
// PayloadDetector to DecodePayloadWith.
func IsBase64Encoded(raw string) bool {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(decoded) == raw
}

// PlainJSON is a PayloadDetector for bodies known to be JSON text
func PlainJSON(string) bool { return false }

// Payload is a decoded webhook body
type Payload struct {
	// Raw is the JSON text after any base64 decoding
	Raw    []byte
	Fields map[string]interface{}
}

// RecipientClientID returns the recipient_client_id field when it is a string
func (p *Payload) RecipientClientID() (string, bool) {
	if p == nil {
		return "", false
	}
	id, ok := p.Fields["recipient_client_id"].(string)
	return id, ok
}

// Canonical returns the bytes the events service signed: the JSON text with
// insignificant whitespace removed and key order preserved. Tokens are kept
// as sent, so a \u00e9 escape stays escaped and 1.0 stays 1.0 rather than
// being re-serialized as é and 1.
func (p *Payload) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, p.Raw); err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePayload decodes a webhook body using IsBase64Encoded.
// Failures are returned as a 400 *ResponseError.
func DecodePayload(raw string) (*Payload, error) {
	return DecodePayloadWith(raw, IsBase64Encoded)
}

// DecodePayloadWith decodes a webhook body, asking detect whether it is base64
func DecodePayloadWith(raw string, detect PayloadDetector) (*Payload, error) {
	if detect == nil {
		detect = IsBase64Encoded
	}

	text := []byte(raw)
	if detect(raw) {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, NewResponseError(http.StatusBadRequest, MsgBadPayload)
		}
		text = decoded
	}

	decoder := json.NewDecoder(bytes.NewReader(text))
	decoder.UseNumber()

	var fields map[string]interface{}
	if err := decoder.Decode(&fields); err != nil || fields == nil {
		return nil, NewResponseError(http.StatusBadRequest, MsgBadPayload)
	}
	if decoder.More() {
		return nil, NewResponseError(http.StatusBadRequest, MsgBadPayload)
	}

	return &Payload{Raw: text, Fields: fields}, nil
}

// IsTargetRecipient reports whether the payload is addressed to recipientClientID.
// A missing or non-string recipient_client_id never matches.
func IsTargetRecipient(payload *Payload, recipientClientID string) bool {
	id, ok := payload.RecipientClientID()
	return ok && id == recipientClientID
}
