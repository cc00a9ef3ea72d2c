package auth

import (
	"context"
	"log/slog"
	"strings"
)

// AnonymousSubject is the owner id recorded for callers without a verified
// identity.
const AnonymousSubject = "anon"

const bearerPrefix = "Bearer "

// ResolutionKind classifies how a request's identity was resolved.
type ResolutionKind string

const (
	// ResolutionAnonymous means no bearer credential was presented. This
	// is a valid, expected outcome, not an error.
	ResolutionAnonymous ResolutionKind = "anonymous"
	// ResolutionAuthenticated means a bearer token verified successfully.
	ResolutionAuthenticated ResolutionKind = "authenticated"
	// ResolutionInvalid means a bearer token was presented but failed
	// verification. Flows that tolerate anonymous callers treat this as
	// anonymous; flows that require a known identity must reject it.
	ResolutionInvalid ResolutionKind = "invalid"
)

// Resolution is the outcome of resolving a request's identity. The kind is
// an explicit tri-state so callers can pick the correct response for an
// invalid token instead of silently treating it as anonymous.
type Resolution struct {
	Kind    ResolutionKind `json:"kind"`
	Subject string         `json:"subject,omitempty"`
}

// Anonymous returns the resolution for a request without credentials.
func Anonymous() Resolution {
	return Resolution{Kind: ResolutionAnonymous}
}

// Authenticated returns the resolution for a verified subject.
func Authenticated(subject string) Resolution {
	return Resolution{Kind: ResolutionAuthenticated, Subject: subject}
}

// Invalid returns the resolution for a credential that failed verification.
func Invalid() Resolution {
	return Resolution{Kind: ResolutionInvalid}
}

// IsAuthenticated reports whether the resolution carries a verified subject.
func (r Resolution) IsAuthenticated() bool {
	return r.Kind == ResolutionAuthenticated
}

// OwnerID returns the owner id to record for resources created under this
// resolution: the verified subject, or the anonymous sentinel for both
// anonymous and invalid resolutions.
func (r Resolution) OwnerID() string {
	if r.IsAuthenticated() {
		return r.Subject
	}
	return AnonymousSubject
}

// TokenVerifier validates a bearer token. Implemented by Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (IdentityClaim, error)
}

// Resolver turns an Authorization header value into a Resolution. It is the
// single entry point resource operations use to learn who is calling;
// identity resolution always completes before any authorization decision.
type Resolver struct {
	verifier TokenVerifier
}

// NewResolver creates a Resolver backed by the given verifier.
func NewResolver(verifier TokenVerifier) *Resolver {
	return &Resolver{verifier: verifier}
}

// Resolve resolves the caller's identity from the Authorization header
// value. An absent header or one without the bearer scheme resolves to
// anonymous. A bearer token that fails verification for any reason resolves
// to invalid; the failure is logged, never surfaced to the caller.
func (r *Resolver) Resolve(ctx context.Context, authorization string) Resolution {
	if authorization == "" || !strings.HasPrefix(authorization, bearerPrefix) {
		return Anonymous()
	}

	token := strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" {
		return Invalid()
	}

	claim, err := r.verifier.Verify(ctx, token)
	if err != nil {
		slog.Debug("bearer token rejected", "err", err)
		return Invalid()
	}

	return Authenticated(claim.Subject)
}
