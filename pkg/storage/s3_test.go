package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves path-style object requests from memory
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
		return
	}

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Store(t *testing.T) (*S3CursorStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(server.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("test", "test", ""),
		RetryMaxAttempts:           1,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})

	store, err := NewS3CursorStore(client, "cursors-bucket", "journal/")
	require.NoError(t, err)
	return store, fake
}

func TestS3CursorStore(t *testing.T) {
	store, fake := newFakeS3Store(t)
	exerciseStore(t, store)
	assert.NoError(t, store.Close())

	t.Run("object layout", func(t *testing.T) {
		require.NoError(t, store.Save(context.Background(), "reg-9", "https://events.example.com/j"))

		fake.mu.Lock()
		raw, ok := fake.objects["/cursors-bucket/journal/reg-9.json"]
		fake.mu.Unlock()
		require.True(t, ok)

		var record cursorRecord
		require.NoError(t, json.Unmarshal(raw, &record))
		assert.Equal(t, "https://events.example.com/j", record.NextURL)
		assert.False(t, record.UpdatedAt.IsZero())
	})
}

func TestS3CursorStore_Errors(t *testing.T) {
	store, fake := newFakeS3Store(t)
	ctx := context.Background()

	fake.mu.Lock()
	fake.fail = true
	fake.mu.Unlock()

	_, err := store.Load(ctx, "reg-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCursorNotFound))

	assert.Error(t, store.Save(ctx, "reg-1", "https://events.example.com/j"))
	assert.Error(t, store.Delete(ctx, "reg-1"))

	t.Run("corrupt object", func(t *testing.T) {
		fake.mu.Lock()
		fake.fail = false
		fake.objects["/cursors-bucket/journal/bad.json"] = []byte("{not json")
		fake.mu.Unlock()

		_, err := store.Load(ctx, "bad")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "unmarshal"))
	})
}

func TestNewS3CursorStore_RequiresBucket(t *testing.T) {
	_, err := NewS3CursorStore(nil, "", "")
	assert.Error(t, err)
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"not found", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFoundError(tt.err))
		})
	}
}
