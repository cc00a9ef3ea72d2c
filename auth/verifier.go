package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PinnedAlgorithm is the only token algorithm the verifier honors.
// Attacker-supplied "none" or symmetric algorithms are rejected before any
// key lookup happens.
const PinnedAlgorithm = "RS256"

const defaultLeeway = 30 * time.Second

// IdentityClaim is the verified result of a token. It is produced only by a
// successful verification, never persisted, and consumed immediately by the
// caller.
type IdentityClaim struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// KeySource supplies verification keys by kid. Implemented by KeySetCache.
type KeySource interface {
	Key(ctx context.Context, kid string) (SigningKey, error)
}

// VerifierConfig holds configuration for a Verifier.
type VerifierConfig struct {
	// Issuer is the exact issuer claim value accepted.
	Issuer string
	// Leeway is the clock-skew tolerance applied to time claims
	// (default: 30s).
	Leeway time.Duration
}

// Verifier validates bearer tokens: pinned algorithm, signing key located by
// kid in the key source, exact issuer match, and unexpired claims.
type Verifier struct {
	keys   KeySource
	issuer string
	parser *jwt.Parser
}

// NewVerifier creates a Verifier backed by the given key source.
func NewVerifier(keys KeySource, cfg VerifierConfig) *Verifier {
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}

	parser := jwt.NewParser(
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
	)

	return &Verifier{
		keys:   keys,
		issuer: cfg.Issuer,
		parser: parser,
	}
}

// Verify validates token and returns its identity claim. Failures are one of
// ErrMalformedToken, ErrUnsupportedAlgorithm, ErrUnknownKey, ErrFetch,
// ErrSignature, ErrIssuerMismatch, or ErrExpiredToken; all are recoverable
// and mean "treat the caller as unauthenticated".
func (v *Verifier) Verify(ctx context.Context, token string) (IdentityClaim, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		// The header is untrusted input: pin the algorithm before
		// touching the key set.
		if t.Method.Alg() != PinnedAlgorithm {
			return nil, fmt.Errorf("alg %q: %w", t.Method.Alg(), ErrUnsupportedAlgorithm)
		}

		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing kid header: %w", ErrMalformedToken)
		}

		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}

		return key.Key, nil
	})
	if err != nil {
		return IdentityClaim{}, fmt.Errorf("verify token: %w", mapTokenError(err))
	}

	if claims.Subject == "" {
		return IdentityClaim{}, fmt.Errorf("verify token: missing subject: %w", ErrMalformedToken)
	}

	claim := IdentityClaim{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		claim.ExpiresAt = claims.ExpiresAt.Time
	}

	return claim, nil
}

// mapTokenError flattens golang-jwt's error chain onto the package's
// sentinel errors. Errors already carrying one of our sentinels (from the
// keyfunc) pass through unchanged.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedAlgorithm),
		errors.Is(err, ErrUnknownKey),
		errors.Is(err, ErrFetch),
		errors.Is(err, ErrMalformedToken):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%v: %w", err, ErrMalformedToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%v: %w", err, ErrSignature)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%v: %w", err, ErrIssuerMismatch)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%v: %w", err, ErrExpiredToken)
	default:
		return fmt.Errorf("%v: %w", err, ErrMalformedToken)
	}
}
