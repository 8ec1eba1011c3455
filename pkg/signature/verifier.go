package signature

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/ioevents/pkg/observability"
)

// DefaultSecurityDomain hosts the events service public keys
const DefaultSecurityDomain = "https://static.adobeioevents.com"

// Webhook request headers carrying the signature material
const (
	HeaderSignature1 = "x-adobe-digital-signature-1"
	HeaderSignature2 = "x-adobe-digital-signature-2"
	HeaderKeyPath1   = "x-adobe-public-key1-path"
	HeaderKeyPath2   = "x-adobe-public-key2-path"
)

// SignatureOptions carries the two signatures and their key locators.
// A locator is a path on the security domain or an absolute https URL.
type SignatureOptions struct {
	DigiSignature1 string `json:"digiSignature1"`
	DigiSignature2 string `json:"digiSignature2"`
	PublicKeyPath1 string `json:"publicKeyPath1"`
	PublicKeyPath2 string `json:"publicKeyPath2"`
}

// VerifierOptions configures a Verifier
type VerifierOptions struct {
	// SecurityDomain defaults to DefaultSecurityDomain
	SecurityDomain string
	// TrustedKeyHosts lists extra hosts absolute key URLs may point at
	TrustedKeyHosts []string
	Logger          *logrus.Logger
	Metrics         *observability.Metrics
}

// Verifier checks RSA-SHA256 webhook signatures
type Verifier struct {
	fetcher *KeyFetcher
	domain  *url.URL
	trusted map[string]bool
	logger  *logrus.Logger
	metrics *observability.Metrics
}

// NewVerifier creates a verifier. The security domain must be an https URL.
func NewVerifier(fetcher *KeyFetcher, opts VerifierOptions) (*Verifier, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("key fetcher is required")
	}
	if opts.SecurityDomain == "" {
		opts.SecurityDomain = DefaultSecurityDomain
	}

	domain, err := url.Parse(strings.TrimRight(opts.SecurityDomain, "/"))
	if err != nil || domain.Scheme != "https" || domain.Host == "" {
		return nil, fmt.Errorf("security domain must be an https URL: %q", opts.SecurityDomain)
	}

	trusted := map[string]bool{strings.ToLower(domain.Host): true}
	for _, host := range opts.TrustedKeyHosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			trusted[host] = true
		}
	}

	return &Verifier{
		fetcher: fetcher,
		domain:  domain,
		trusted: trusted,
		logger:  observability.OrDefault(opts.Logger),
		metrics: opts.Metrics,
	}, nil
}

// ResolveKeyURL turns a key locator into an absolute https URL on a trusted host
func (v *Verifier) ResolveKeyURL(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("%w: empty locator", ErrUntrustedKeyLocation)
	}

	raw := locator
	if !strings.Contains(locator, "://") {
		if !strings.HasPrefix(locator, "/") {
			raw = "/" + locator
		}
		raw = v.domain.String() + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUntrustedKeyLocation, err)
	}
	if u.Scheme != "https" || u.Host == "" || u.User != nil {
		return "", fmt.Errorf("%w: %s is not an https URL", ErrUntrustedKeyLocation, locator)
	}
	if !v.trusted[strings.ToLower(u.Host)] {
		return "", fmt.Errorf("%w: host %s", ErrUntrustedKeyLocation, u.Host)
	}
	return u.String(), nil
}

type keySlot struct {
	pem string
	err error
}

// Verify reports whether either signature verifies over the payload.
// Signature 1 is checked against key 1 first and a match returns without
// looking at slot 2. Every failure, including unreachable or malformed keys,
// yields false.
func (v *Verifier) Verify(ctx context.Context, opts SignatureOptions, recipientClientID string, payload *Payload) (valid bool) {
	ctx, span := observability.Tracer().Start(ctx, "signature.verify")
	defer func() {
		span.SetAttributes(attribute.Bool("signature.valid", valid))
		if !valid {
			span.SetStatus(codes.Error, "signature not verified")
		}
		span.End()
		v.metrics.ObserveVerification(valid)
	}()

	log := observability.EntryFromContext(ctx, v.logger).WithField("recipient_client_id", recipientClientID)

	if payload == nil {
		log.Error("No payload to verify")
		return false
	}

	locators := [2]string{opts.PublicKeyPath1, opts.PublicKeyPath2}
	signatures := [2]string{opts.DigiSignature1, opts.DigiSignature2}

	message, err := payload.Canonical()
	if err != nil {
		log.WithError(err).Error("Payload cannot be canonicalized")
		return false
	}

	// A slot with an untrusted locator is never fetched
	var slots [2]keySlot
	var g errgroup.Group
	for i, locator := range locators {
		keyURL, err := v.ResolveKeyURL(locator)
		if err != nil {
			slots[i].err = err
			continue
		}
		i := i
		g.Go(func() error {
			pemText, err := v.fetcher.Resolve(ctx, keyURL)
			slots[i] = keySlot{pem: pemText, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, slot := range slots {
		if slot.err != nil {
			log.WithError(slot.err).WithField("slot", i+1).Error("Public key unavailable")
			continue
		}
		if VerifySignature(slot.pem, signatures[i], message) {
			log.WithField("slot", i+1).Debug("Digital signature verified")
			return true
		}
	}

	log.Error("Digital signature verification failed")
	return false
}

// VerifySignature checks a base64 RSA PKCS#1 v1.5 SHA-256 signature against a
// PEM encoded SPKI public key. Malformed input returns false.
func VerifySignature(pemText, signatureB64 string, message []byte) bool {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return false
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureB64))
	if err != nil || len(sig) == 0 {
		return false
	}

	digest := sha256.Sum256(message)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil
}
