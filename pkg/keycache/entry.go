package keycache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entry is the envelope every cache stores. Serialized stores write it as
// {"value": "<pem>", "stored_at": "<rfc3339>"} and only accept that shape back.
type Entry struct {
	Value    string    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// NewEntry wraps value with the current time
func NewEntry(value string) Entry {
	return Entry{Value: value, StoredAt: time.Now().UTC()}
}

// Encode serializes the envelope
func (e Entry) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEntry parses an envelope. Raw strings and envelopes without a value
// are rejected so callers treat them as corrupt.
func DecodeEntry(data []byte) (Entry, error) {
	var raw struct {
		Value    *string   `json:"value"`
		StoredAt time.Time `json:"stored_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if raw.Value == nil || *raw.Value == "" {
		return Entry{}, errors.New("decode cache entry: missing value")
	}
	return Entry{Value: *raw.Value, StoredAt: raw.StoredAt}, nil
}
