package hashdrop

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sagarc03/hashdrop/auth"
)

// DefaultDescription is recorded when a create request carries no
// description.
const DefaultDescription = "No description provided"

// MappingRepo defines the interface for the persisted hash-to-resource
// mapping. Implementations must handle concurrent access safely.
//
// All methods accept a context for cancellation and timeout control.
type MappingRepo interface {
	// Insert persists a new resource. Returns ErrCollision when a row
	// with the same hash already exists.
	Insert(ctx context.Context, res Resource) error

	// Get retrieves a resource by hash regardless of expiration.
	// Returns ErrNotFound when no row exists.
	Get(ctx context.Context, hash string) (Resource, error)

	// Delete removes a resource row by hash. Returns ErrNotFound when no
	// row exists.
	Delete(ctx context.Context, hash string) error

	// ListByOwner retrieves one page of an owner's resources ordered by
	// creation time descending, along with the owner's total row count.
	ListByOwner(ctx context.Context, q ListQuery) ([]Resource, int, error)

	// ListExpired retrieves up to limit resources whose expiration time
	// is before the given instant, oldest first.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]Resource, error)
}

// PutResult reports the outcome of a payload store write.
type PutResult struct {
	BytesWritten int64
	Digest       string
}

// PayloadStore defines the interface for file payload storage.
// Implementations can use the local filesystem, S3, or any other backend.
type PayloadStore interface {
	// Put stores content under the given key, overwriting any existing
	// object.
	Put(ctx context.Context, key string, content io.Reader) (PutResult, error)

	// Get opens the object at key for streamed reading. Returns
	// ErrNotFound when no object exists. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadSeekCloser, error)

	// Delete releases the object at key. Returns ErrNotFound when no
	// object exists.
	Delete(ctx context.Context, key string) error
}

// CreateFile describes a file create request.
type CreateFile struct {
	Name        string
	ContentType string
	Description string
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	TTL TTLPolicy
	// MaxHashRetries bounds collision retries during create (default: 5).
	MaxHashRetries int
	// CleanupTimeout bounds best-effort cleanup after a failed create
	// (default: 30s).
	CleanupTimeout time.Duration
	// Now overrides the clock. Tests use this to pin creation times.
	Now func() time.Time
}

// Service owns the resource lifecycle: hash generation, ownership and TTL
// assignment at creation, and the authorization rules governing read and
// delete access.
type Service struct {
	repo           MappingRepo
	store          PayloadStore
	ttl            TTLPolicy
	maxRetries     int
	cleanupTimeout time.Duration
	now            func() time.Time
}

// NewService creates a Service over the given mapping repo and payload
// store.
func NewService(repo MappingRepo, store PayloadStore, cfg ServiceConfig) (*Service, error) {
	ttl := cfg.TTL
	if ttl == (TTLPolicy{}) {
		ttl = DefaultTTLPolicy()
	}
	if err := ttl.Validate(); err != nil {
		return nil, fmt.Errorf("new service: %w", err)
	}

	maxRetries := cfg.MaxHashRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:           repo,
		store:          store,
		ttl:            ttl,
		maxRetries:     maxRetries,
		cleanupTimeout: cleanupTimeout,
		now:            now,
	}, nil
}

// CreateURL shortens rawURL for the requester. The expiration window is
// decided by the requester's authentication state at creation time and never
// changes afterwards.
func (s *Service) CreateURL(ctx context.Context, rawURL, description string, requester auth.Resolution) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, fmt.Errorf("create url: %w", err)
	}

	if err := validateURL(rawURL); err != nil {
		return Resource{}, fmt.Errorf("create url: %w", err)
	}

	res, err := s.insertWithRetry(ctx, func(createdAt time.Time) Resource {
		return Resource{
			Hash:        ContentHash(createdAt, []byte(rawURL)),
			Kind:        KindURL,
			OwnerID:     requester.OwnerID(),
			PayloadRef:  rawURL,
			Description: normalizeDescription(description),
			CreatedAt:   createdAt.UTC(),
			ExpiresAt:   createdAt.Add(s.ttl.TTL(KindURL, requester.IsAuthenticated())).UTC(),
		}
	})
	if err != nil {
		return Resource{}, fmt.Errorf("create url: %w", err)
	}

	return res, nil
}

// CreateFileResource stores a file payload and registers its mapping. The
// mapping row is inserted first; if the payload write fails afterwards, the
// row is removed again on a best-effort basis using a background context.
func (s *Service) CreateFileResource(ctx context.Context, in CreateFile, content io.Reader, requester auth.Resolution) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, fmt.Errorf("create file: %w", err)
	}

	if err := validateFilename(in.Name); err != nil {
		return Resource{}, fmt.Errorf("create file: %w", err)
	}

	if in.ContentType == "" {
		return Resource{}, fmt.Errorf("create file: %w: content type cannot be empty", ErrInvalidInput)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return Resource{}, fmt.Errorf("create file %s: read payload: %w", in.Name, err)
	}
	if len(data) == 0 {
		return Resource{}, fmt.Errorf("create file %s: %w: empty payload", in.Name, ErrInvalidInput)
	}

	// The hash covers the payload through its digest so collision retries
	// don't rehash the full content.
	digest := sha256.Sum256(data)
	owner := requester.OwnerID()

	res, err := s.insertWithRetry(ctx, func(createdAt time.Time) Resource {
		hash := ContentHash(createdAt, digest[:])
		return Resource{
			Hash:        hash,
			Kind:        KindFile,
			OwnerID:     owner,
			PayloadRef:  path.Join(owner, hash, in.Name),
			Description: normalizeDescription(in.Description),
			ContentType: in.ContentType,
			CreatedAt:   createdAt.UTC(),
			ExpiresAt:   createdAt.Add(s.ttl.TTL(KindFile, requester.IsAuthenticated())).UTC(),
		}
	})
	if err != nil {
		return Resource{}, fmt.Errorf("create file %s: %w", in.Name, err)
	}

	if _, putErr := s.store.Put(ctx, res.PayloadRef, bytes.NewReader(data)); putErr != nil {
		// Use a background context for cleanup since the original
		// context may be cancelled.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.repo.Delete(cleanupCtx, res.Hash); delErr != nil {
			return Resource{}, fmt.Errorf("create file %s: payload write failed (%w) and mapping cleanup failed: %w", in.Name, putErr, delErr)
		}
		return Resource{}, fmt.Errorf("create file %s: payload write failed: %w", in.Name, putErr)
	}

	return res, nil
}

// GetURL resolves a shortened URL by hash. The second return value reports
// whether the requester is the verified owner. Expired rows return ErrGone.
func (s *Service) GetURL(ctx context.Context, hash string, requester auth.Resolution) (Resource, bool, error) {
	res, err := s.read(ctx, hash, KindURL)
	if err != nil {
		return Resource{}, false, fmt.Errorf("get url: %w", err)
	}
	return res, isOwner(res, requester), nil
}

// GetFile resolves a stored file by hash and opens its payload for
// streaming. The caller closes the reader. Expired rows return ErrGone.
func (s *Service) GetFile(ctx context.Context, hash string, requester auth.Resolution) (Resource, io.ReadSeekCloser, bool, error) {
	res, err := s.read(ctx, hash, KindFile)
	if err != nil {
		return Resource{}, nil, false, fmt.Errorf("get file: %w", err)
	}

	content, err := s.store.Get(ctx, res.PayloadRef)
	if err != nil {
		return Resource{}, nil, false, fmt.Errorf("get file: %w", err)
	}

	return res, content, isOwner(res, requester), nil
}

// Stat reports the kind of a live resource without opening its payload,
// so callers can tell a shortened URL from a stored file before deciding
// which retrieval endpoint to hit. Expired rows read as absent.
func (s *Service) Stat(ctx context.Context, hash string) (ResourceKind, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}

	if !IsValidHash(hash) {
		return "", fmt.Errorf("stat: %w: malformed hash", ErrInvalidInput)
	}

	res, err := s.repo.Get(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}

	if res.Expired(s.now()) {
		return "", fmt.Errorf("stat: %w", ErrNotFound)
	}

	return res.Kind, nil
}

// Delete removes a resource. Allowed when the requester is the verified
// owner, or when the resource is anonymous-owned (anonymous rows are
// deletable by anyone presenting the hash). The mapping row is removed
// first, then the file payload; a failed payload release after the row
// delete is reported as ErrPartialDelete, never swallowed.
func (s *Service) Delete(ctx context.Context, hash string, requester auth.Resolution) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if !IsValidHash(hash) {
		return fmt.Errorf("delete: %w: malformed hash", ErrInvalidInput)
	}

	res, err := s.repo.Get(ctx, hash)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	// Expired rows are indistinguishable from absent ones everywhere
	// below the reaper.
	if res.Expired(s.now()) {
		return fmt.Errorf("delete: %w", ErrNotFound)
	}

	if err := authorizeDelete(res, requester); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := s.repo.Delete(ctx, hash); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if res.Kind == KindFile {
		if err := s.store.Delete(ctx, res.PayloadRef); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete %s: release payload %s: %v: %w", hash, res.PayloadRef, err, ErrPartialDelete)
		}
	}

	return nil
}

// List returns one page of the requester's own resources, newest first.
// It requires a verified identity: anonymous or invalid requesters get
// ErrUnauthorized instead of silently falling back to the anonymous owner.
func (s *Service) List(ctx context.Context, page, pageSize int, requester auth.Resolution) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list: %w", err)
	}

	if !requester.IsAuthenticated() {
		return ListResult{}, fmt.Errorf("list: %w", ErrUnauthorized)
	}

	q := ListQuery{OwnerID: requester.Subject, Page: page, PageSize: pageSize}
	if err := q.Validate(); err != nil {
		return ListResult{}, fmt.Errorf("list: %w", err)
	}

	items, total, err := s.repo.ListByOwner(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list: %w", err)
	}

	return ListResult{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
	}, nil
}

// Reap permanently removes expired resources and releases their file
// payloads, paginating until none remain. Returns the number of resources
// removed. A payload already gone from the store is not an error; a previous
// reap may have released it before failing on the row delete.
func (s *Service) Reap(ctx context.Context, batchSize int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("reap: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 100
	}

	reaped := 0
	for {
		if err := ctx.Err(); err != nil {
			return reaped, fmt.Errorf("reap: %w", err)
		}

		expired, err := s.repo.ListExpired(ctx, s.now(), batchSize)
		if err != nil {
			return reaped, fmt.Errorf("reap: %w", err)
		}

		if len(expired) == 0 {
			return reaped, nil
		}

		for _, res := range expired {
			if res.Kind == KindFile {
				if err := s.store.Delete(ctx, res.PayloadRef); err != nil && !errors.Is(err, ErrNotFound) {
					return reaped, fmt.Errorf("reap %s: release payload: %w", res.Hash, err)
				}
			}

			if err := s.repo.Delete(ctx, res.Hash); err != nil && !errors.Is(err, ErrNotFound) {
				return reaped, fmt.Errorf("reap %s: %w", res.Hash, err)
			}

			reaped++
		}
	}
}

// read is the shared read path: hash validation, kind filtering, and the
// expired-to-gone mapping.
func (s *Service) read(ctx context.Context, hash string, kind ResourceKind) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, err
	}

	if !IsValidHash(hash) {
		return Resource{}, fmt.Errorf("%w: malformed hash", ErrInvalidInput)
	}

	res, err := s.repo.Get(ctx, hash)
	if err != nil {
		return Resource{}, err
	}

	if res.Kind != kind {
		return Resource{}, ErrNotFound
	}

	if res.Expired(s.now()) {
		return Resource{}, ErrGone
	}

	return res, nil
}

// insertWithRetry builds and inserts a resource, regenerating the hash with
// a fresh timestamp on each collision.
func (s *Service) insertWithRetry(ctx context.Context, build func(createdAt time.Time) Resource) (Resource, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		res := build(s.now())

		err := s.repo.Insert(ctx, res)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrCollision) {
			return Resource{}, err
		}

		slog.Warn("hash collision, retrying with fresh timestamp", "hash", res.Hash, "attempt", attempt+1)
	}

	return Resource{}, ErrCollisionExhausted
}

func authorizeDelete(res Resource, requester auth.Resolution) error {
	if res.OwnerID == AnonymousOwner {
		return nil
	}
	if requester.IsAuthenticated() && requester.Subject == res.OwnerID {
		return nil
	}
	return ErrForbidden
}

func isOwner(res Resource, requester auth.Resolution) bool {
	return requester.IsAuthenticated() && requester.Subject == res.OwnerID
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url cannot be empty", ErrInvalidInput)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be absolute http(s)", ErrInvalidInput)
	}

	return nil
}

func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: file name cannot be empty", ErrInvalidInput)
	}

	if name != path.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, "\\\x00") {
		return fmt.Errorf("%w: invalid file name", ErrInvalidInput)
	}

	return nil
}

func normalizeDescription(description string) string {
	if strings.TrimSpace(description) == "" {
		return DefaultDescription
	}
	return description
}
