// Package auth verifies bearer tokens against an identity provider's
// published key set and resolves request identities.
//
// The identity provider publishes rotating RSA public keys at
// <issuer>/.well-known/jwks.json. KeySetCache caches that set with a bounded
// staleness tolerance, Verifier validates tokens against it, and Resolver
// turns an Authorization header into an explicit tri-state Resolution.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

// WellKnownPath is the key set location relative to the issuer URL.
const WellKnownPath = "/.well-known/jwks.json"

const (
	defaultKeySetTTL    = time.Hour
	defaultFetchTimeout = 10 * time.Second
)

// JWK is a JSON Web Key as published in the provider's key set (RFC 7517).
// Only RSA signature keys are used; other key types are skipped.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS is the wire shape of the key set endpoint response.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// SigningKey is a verification key ready for use. Keys are immutable once
// fetched; a refresh replaces the whole set.
type SigningKey struct {
	Kid string
	Alg string
	Key *rsa.PublicKey
}

// PublicKey converts a JWK to an RSA public key.
func (k JWK) PublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type: %s", k.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// KeySetCacheConfig holds configuration for a KeySetCache.
type KeySetCacheConfig struct {
	// IssuerURL is the identity provider base URL; the key set is fetched
	// from IssuerURL + WellKnownPath.
	IssuerURL string
	// TTL is the maximum age a cached set is served without attempting a
	// refresh (default: 1 hour).
	TTL time.Duration
	// FetchTimeout bounds each key set fetch (default: 10s).
	FetchTimeout time.Duration
	// HTTPClient overrides the client used for fetches. Optional.
	HTTPClient *http.Client
}

// KeySetCache fetches and caches the identity provider's public signing
// keys. The cache is lazily populated on first use and refreshed in place
// when it exceeds its TTL. At most one fetch is in flight at a time;
// concurrent callers wait for its result. When a refresh fails and a
// previously fetched set exists, the stale set is served at most once per
// failure streak before callers start failing with ErrFetch.
type KeySetCache struct {
	url          string
	ttl          time.Duration
	fetchTimeout time.Duration
	client       *http.Client

	mu          sync.RWMutex
	keys        map[string]SigningKey
	fetchedAt   time.Time
	staleServed bool

	// refreshMu serializes refreshes so concurrent callers never trigger
	// duplicate network fetches.
	refreshMu sync.Mutex
}

// NewKeySetCache creates a key set cache for the given issuer.
func NewKeySetCache(cfg KeySetCacheConfig) *KeySetCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultKeySetTTL
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	return &KeySetCache{
		url:          strings.TrimSuffix(cfg.IssuerURL, "/") + WellKnownPath,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		client:       client,
	}
}

// Keys returns the current key set keyed by kid, refreshing it first when
// the cached set is missing or older than the TTL.
func (c *KeySetCache) Keys(ctx context.Context) (map[string]SigningKey, error) {
	if keys, fresh := c.snapshot(); fresh {
		return keys, nil
	}
	return c.refresh(ctx, false)
}

// Refresh forces a fetch regardless of the cached set's age. Used by the
// verifier to handle key rotation: a token signed with a newly published key
// succeeds after exactly one forced refresh.
func (c *KeySetCache) Refresh(ctx context.Context) (map[string]SigningKey, error) {
	return c.refresh(ctx, true)
}

// Key looks up kid in the current set, forcing one refresh when absent.
// Returns ErrUnknownKey if the provider does not publish the key at all.
func (c *KeySetCache) Key(ctx context.Context, kid string) (SigningKey, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return SigningKey{}, err
	}

	if key, ok := keys[kid]; ok {
		return key, nil
	}

	keys, err = c.Refresh(ctx)
	if err != nil {
		return SigningKey{}, err
	}

	if key, ok := keys[kid]; ok {
		return key, nil
	}

	return SigningKey{}, fmt.Errorf("kid %q: %w", kid, ErrUnknownKey)
}

func (c *KeySetCache) snapshot() (map[string]SigningKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys, c.keys != nil && time.Since(c.fetchedAt) < c.ttl
}

func (c *KeySetCache) refresh(ctx context.Context, force bool) (map[string]SigningKey, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have completed a refresh while we waited.
	if keys, fresh := c.snapshot(); fresh && !force {
		return keys, nil
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.keys != nil && !c.staleServed {
			c.staleServed = true
			slog.Warn("key set refresh failed, serving stale set", "url", c.url, "age", time.Since(c.fetchedAt), "err", err)
			return c.keys, nil
		}

		return nil, fmt.Errorf("refresh key set: %w: %v", ErrFetch, err)
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.staleServed = false
	c.mu.Unlock()

	return keys, nil
}

func (c *KeySetCache) fetch(ctx context.Context) (map[string]SigningKey, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", c.url, resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]SigningKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kid == "" || jwk.Kty != "RSA" {
			continue
		}
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}

		pub, err := jwk.PublicKey()
		if err != nil {
			slog.Warn("skipping unusable key in key set", "kid", jwk.Kid, "err", err)
			continue
		}

		keys[jwk.Kid] = SigningKey{Kid: jwk.Kid, Alg: jwk.Alg, Key: pub}
	}

	if len(keys) == 0 {
		return nil, errors.New("key set contains no usable keys")
	}

	return keys, nil
}
