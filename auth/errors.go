package auth

import "errors"

// Verification failures are distinguished internally so tests and logs can
// tell them apart, but every one of them resolves to "unauthenticated" at the
// HTTP boundary. None of them are fatal to the process.
var (
	// ErrFetch is returned when the key set endpoint is unreachable and no
	// previously fetched set can be served.
	ErrFetch = errors.New("key set fetch failed")
	// ErrMalformedToken is returned when a token cannot be parsed or lacks
	// required parts (kid header, subject claim).
	ErrMalformedToken = errors.New("malformed token")
	// ErrUnsupportedAlgorithm is returned when the token header declares
	// any algorithm other than the pinned one.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrUnknownKey is returned when the token's kid is absent from the
	// provider's key set even after a forced refresh.
	ErrUnknownKey = errors.New("unknown signing key")
	// ErrSignature is returned when the cryptographic signature does not
	// verify against the located key.
	ErrSignature = errors.New("invalid signature")
	// ErrIssuerMismatch is returned when the issuer claim does not match
	// the configured issuer exactly.
	ErrIssuerMismatch = errors.New("issuer mismatch")
	// ErrExpiredToken is returned when the expiry claim has passed beyond
	// the clock-skew tolerance.
	ErrExpiredToken = errors.New("token expired")
)
