package signature

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{"event_id":"52ba6b9d","recipient_client_id":"client-1","event":{"hello":"world","n":1}}`

func TestIsBase64Encoded(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bool
	}{
		{"plain json", samplePayload, false},
		{"encoded json", base64.StdEncoding.EncodeToString([]byte(samplePayload)), true},
		{"json with padding chars", `{"a":"=="}`, false},
		{"not canonical base64", "YQ", false},
		// The heuristic cannot tell these apart from base64
		{"plain word that is valid base64", "abcd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsBase64Encoded(tt.raw))
		})
	}
}

func TestDecodePayload_Base64MatchesPlain(t *testing.T) {
	payloads := []string{
		samplePayload,
		`{}`,
		`{"recipient_client_id":"x","list":[1,2,3],"nested":{"a":null,"b":true}}`,
		`{"unicode":"héllo ✓"}`,
	}

	for _, raw := range payloads {
		plain, err := DecodePayload(raw)
		require.NoError(t, err)

		encoded, err := DecodePayload(base64.StdEncoding.EncodeToString([]byte(raw)))
		require.NoError(t, err)

		assert.Equal(t, plain.Fields, encoded.Fields)
		assert.Equal(t, plain.Raw, encoded.Raw)
	}
}

func TestDecodePayload_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"not json",
		"[1,2,3]",
		"null",
		`{"a":1} {"b":2}`,
		base64.StdEncoding.EncodeToString([]byte("not json either")),
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			payload, err := DecodePayload(raw)
			assert.Nil(t, payload)

			var respErr *ResponseError
			require.True(t, errors.As(err, &respErr))
			assert.Equal(t, http.StatusBadRequest, respErr.StatusCode)
			assert.Equal(t, MsgBadPayload, respErr.Body)
			assert.Equal(t, "application/json", respErr.Headers["Content-Type"])
		})
	}
}

func TestDecodePayloadWith_CustomDetector(t *testing.T) {
	// "e30=" is base64 for {} and also not JSON, so forcing plain fails
	_, err := DecodePayloadWith("e30=", PlainJSON)
	assert.Error(t, err)

	payload, err := DecodePayloadWith("e30=", nil)
	require.NoError(t, err)
	assert.Empty(t, payload.Fields)
}

func TestPayload_Canonical(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"whitespace and key order", "{\n  \"b\": 1,\n  \"a\": [1, 2]\n}", `{"b":1,"a":[1,2]}`},
		{"unicode escape kept", `{ "name": "caf\u00e9" }`, `{"name":"caf\u00e9"}`},
		{"non-ascii kept", `{"name": "café"}`, `{"name":"café"}`},
		{"number form kept", `{"v": 1.0, "w": 1e3}`, `{"v":1.0,"w":1e3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodePayloadWith(tt.raw, PlainJSON)
			require.NoError(t, err)

			canonical, err := payload.Canonical()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(canonical))
		})
	}
}

func TestIsTargetRecipient(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		recipient string
		expected  bool
	}{
		{"match", `{"recipient_client_id":"client-1"}`, "client-1", true},
		{"mismatch", `{"recipient_client_id":"client-2"}`, "client-1", false},
		{"missing", `{"event":{}}`, "client-1", false},
		{"null", `{"recipient_client_id":null}`, "client-1", false},
		{"not a string", `{"recipient_client_id":42}`, "42", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodePayload(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, IsTargetRecipient(payload, tt.recipient))
		})
	}

	assert.False(t, IsTargetRecipient(nil, "client-1"))
}

func TestResponseError_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponseError(http.StatusUnauthorized, MsgNotRecipient).Write(rec)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"`+MsgNotRecipient+`"}`, rec.Body.String())
	assert.Equal(t, "401 Unauthorized: "+MsgNotRecipient, NewResponseError(http.StatusUnauthorized, MsgNotRecipient).Error())
}
