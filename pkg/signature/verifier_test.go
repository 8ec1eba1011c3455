package signature

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ioevents/pkg/keycache"
	"github.com/platinummonkey/ioevents/pkg/observability"
)

const (
	keyPath1 = "/prod/keys/pub-key-1.pem"
	keyPath2 = "/prod/keys/pub-key-2.pem"
)

type verifierFixture struct {
	verifier *Verifier
	server   *keyServer
	metrics  *observability.Metrics
}

func newVerifierFixture(t *testing.T, keys map[string]string) verifierFixture {
	t.Helper()
	ks := newKeyServer(t, keys)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	fetcher := NewKeyFetcher(ks.Client(), keycache.NewMemoryCache(10, time.Hour), quietLogger(), metrics)
	verifier, err := NewVerifier(fetcher, VerifierOptions{
		SecurityDomain: ks.URL,
		Logger:         quietLogger(),
		Metrics:        metrics,
	})
	require.NoError(t, err)

	return verifierFixture{verifier: verifier, server: ks, metrics: metrics}
}

func decode(t *testing.T, raw string) *Payload {
	t.Helper()
	payload, err := DecodePayload(raw)
	require.NoError(t, err)
	return payload
}

func TestNewVerifier(t *testing.T) {
	fetcher := NewKeyFetcher(nil, nil, nil, nil)

	_, err := NewVerifier(nil, VerifierOptions{})
	assert.Error(t, err)

	_, err = NewVerifier(fetcher, VerifierOptions{SecurityDomain: "http://static.adobeioevents.com"})
	assert.Error(t, err, "plain http domain rejected")

	v, err := NewVerifier(fetcher, VerifierOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSecurityDomain, v.domain.String())
}

func TestVerifier_ResolveKeyURL(t *testing.T) {
	v, err := NewVerifier(NewKeyFetcher(nil, nil, nil, nil), VerifierOptions{
		TrustedKeyHosts: []string{"keys.example.com"},
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		locator  string
		expected string
		wantErr  bool
	}{
		{"relative path", "/prod/keys/pub-key-1.pem", "https://static.adobeioevents.com/prod/keys/pub-key-1.pem", false},
		{"path without slash", "prod/keys/pub-key-1.pem", "https://static.adobeioevents.com/prod/keys/pub-key-1.pem", false},
		{"absolute on domain", "https://static.adobeioevents.com/k.pem", "https://static.adobeioevents.com/k.pem", false},
		{"absolute trusted host", "https://keys.example.com/k.pem", "https://keys.example.com/k.pem", false},
		{"empty", "", "", true},
		{"untrusted host", "https://evil.example.com/k.pem", "", true},
		{"plain http", "http://static.adobeioevents.com/k.pem", "", true},
		{"userinfo", "https://user@static.adobeioevents.com/k.pem", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ResolveKeyURL(tt.locator)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUntrustedKeyLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	key1, key2 := testKeys(t)
	pem1, pem2 := publicPEM(t, key1), publicPEM(t, key2)
	ctx := context.Background()

	t.Run("signature 1 valid", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1, keyPath2: pem2})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			DigiSignature2: "garbage",
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: keyPath2,
		}
		assert.True(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SignatureVerificationsTotal.WithLabelValues("valid")))
	})

	t.Run("signature 2 valid after rotation", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1, keyPath2: pem2})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key2, samplePayload),
			DigiSignature2: sign(t, key2, samplePayload),
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: keyPath2,
		}
		assert.True(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
	})

	t.Run("short circuit with invalid second key", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1, keyPath2: "not a pem"})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			DigiSignature2: sign(t, key2, samplePayload),
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: keyPath2,
		}
		assert.True(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
	})

	t.Run("short circuit with unreachable second key", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: "/prod/keys/missing.pem",
		}
		assert.True(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
	})

	t.Run("short circuit with untrusted second locator", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: "https://evil.example.com/k.pem",
		}
		assert.True(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
	})

	t.Run("signed over a different payload", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1, keyPath2: pem2})
		other := strings.Replace(samplePayload, "world", "mars", 1)
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, other),
			DigiSignature2: sign(t, key2, other),
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: keyPath2,
		}
		assert.False(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SignatureVerificationsTotal.WithLabelValues("invalid")))
	})

	t.Run("two malformed keys", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: "-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n", keyPath2: "junk"})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			DigiSignature2: "!!not base64!!",
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: keyPath2,
		}
		assert.NotPanics(t, func() {
			assert.False(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
		})
	})

	t.Run("untrusted locators make no requests", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			PublicKeyPath1: "http://" + strings.TrimPrefix(f.server.URL, "https://") + keyPath1,
			PublicKeyPath2: "https://evil.example.com/k.pem",
		}
		assert.False(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
		assert.Zero(t, f.server.total.Load())
	})

	t.Run("whitespace in delivered json does not matter", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1, keyPath2: pem2})
		pretty := "{\n  \"event_id\": \"52ba6b9d\",\n  \"recipient_client_id\": \"client-1\",\n  \"event\": {\"hello\": \"world\", \"n\": 1}\n}"
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: keyPath2,
		}
		assert.True(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, pretty)))
	})

	t.Run("keys are cached between calls", func(t *testing.T) {
		f := newVerifierFixture(t, map[string]string{keyPath1: pem1, keyPath2: pem2})
		opts := SignatureOptions{
			DigiSignature1: sign(t, key1, samplePayload),
			PublicKeyPath1: keyPath1,
			PublicKeyPath2: keyPath2,
		}
		for i := 0; i < 3; i++ {
			assert.True(t, f.verifier.Verify(ctx, opts, "client-1", decode(t, samplePayload)))
		}
		assert.Equal(t, 1, f.server.hitsFor(keyPath1))
		assert.Equal(t, 1, f.server.hitsFor(keyPath2))
	})

	t.Run("nil payload", func(t *testing.T) {
		f := newVerifierFixture(t, nil)
		assert.False(t, f.verifier.Verify(ctx, SignatureOptions{}, "client-1", nil))
	})
}

func TestVerifySignature(t *testing.T) {
	key1, key2 := testKeys(t)
	message := []byte(samplePayload)
	sig := sign(t, key1, samplePayload)

	assert.True(t, VerifySignature(publicPEM(t, key1), sig, message))
	assert.False(t, VerifySignature(publicPEM(t, key2), sig, message))
	assert.False(t, VerifySignature("", sig, message))
	assert.False(t, VerifySignature(publicPEM(t, key1), "", message))
	assert.False(t, VerifySignature(publicPEM(t, key1), sig, []byte("tampered")))
}

func TestResponseErrorIsError(t *testing.T) {
	_, err := DecodePayload("nope")
	var respErr *ResponseError
	assert.True(t, errors.As(err, &respErr))
}
