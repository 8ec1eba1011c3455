package keycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntry(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		value   string
		wantErr bool
	}{
		{"envelope", `{"value":"PEM","stored_at":"2024-01-02T03:04:05Z"}`, "PEM", false},
		{"envelope without timestamp", `{"value":"PEM"}`, "PEM", false},
		{"raw string", `-----BEGIN PUBLIC KEY-----`, "", true},
		{"json string", `"PEM"`, "", true},
		{"missing value", `{"stored_at":"2024-01-02T03:04:05Z"}`, "", true},
		{"empty value", `{"value":""}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := DecodeEntry([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, entry.Value)
		})
	}
}

func TestEntry_EncodeRoundTrip(t *testing.T) {
	entry := NewEntry("PEM TEXT")
	data, err := entry.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":"PEM TEXT"`)

	decoded, err := DecodeEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry.Value, decoded.Value)
	assert.True(t, entry.StoredAt.Equal(decoded.StoredAt))
}
