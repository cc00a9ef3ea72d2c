package hashdrop

import "errors"

var (
	// ErrNotFound is returned when a resource is not found. Expired
	// resources are reported as ErrNotFound everywhere except the read
	// path, which maps them to ErrGone.
	ErrNotFound = errors.New("not found")
	// ErrGone is returned by the read path when a resource exists but its
	// expiration time has passed.
	ErrGone = errors.New("gone")
	// ErrForbidden is returned when the requester is not allowed to
	// perform the operation on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned when an operation requires a verified
	// identity and the caller did not present a valid one.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal is returned when an internal error occurs.
	ErrInternal = errors.New("internal error")
	// ErrCollision is returned by a MappingRepo insert when the generated
	// hash already exists.
	ErrCollision = errors.New("hash collision")
	// ErrCollisionExhausted is returned when hash generation kept
	// colliding after all retries.
	ErrCollisionExhausted = errors.New("hash collision retries exhausted")
	// ErrPartialDelete is returned when the mapping record was deleted but
	// releasing the backing payload failed, leaving an orphaned object.
	ErrPartialDelete = errors.New("partial delete")
)
