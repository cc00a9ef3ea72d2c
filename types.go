package hashdrop

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// AnonymousOwner is the sentinel owner id recorded for resources created
// without a verified identity. Resources owned by it are deletable by anyone
// presenting the hash.
const AnonymousOwner = "anon"

// ResourceKind distinguishes stored files from shortened URLs.
type ResourceKind string

const (
	KindFile ResourceKind = "file"
	KindURL  ResourceKind = "url"
)

func (k ResourceKind) IsValid() bool {
	switch k {
	case KindFile, KindURL:
		return true
	default:
		return false
	}
}

func ParseResourceKind(s string) (ResourceKind, error) {
	kind := ResourceKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid resource kind: %s (valid kinds: file, url)", s)
	}
	return kind, nil
}

// Resource is a stored file or shortened URL addressed by its hash.
//
// PayloadRef is the payload store key for files and the literal target URL
// for shortened URLs. ExpiresAt is derived from the owner's authentication
// state at creation time and never changes afterwards.
type Resource struct {
	Hash        string       `json:"hash"`
	Kind        ResourceKind `json:"kind"`
	OwnerID     string       `json:"owner_id"`
	PayloadRef  string       `json:"payload_ref"`
	Description string       `json:"description"`
	ContentType string       `json:"content_type,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Expired reports whether the resource's expiration time has passed at now.
func (r Resource) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

var validHashRegex = regexp.MustCompile(`^[0-9a-f]{8}$`)

// IsValidHash checks that a hash is exactly 8 lowercase hex characters.
func IsValidHash(h string) bool {
	return validHashRegex.MatchString(h)
}

// ListQuery describes a paginated listing of one owner's resources.
// Page and PageSize are 1-based.
type ListQuery struct {
	OwnerID  string
	Page     int
	PageSize int
}

// Validate checks pagination bounds.
func (q ListQuery) Validate() error {
	if q.Page < 1 || q.PageSize < 1 {
		return fmt.Errorf("page and pageSize must be >= 1: %w", ErrInvalidInput)
	}
	return nil
}

// ListResult is one page of an owner's resources, newest first.
type ListResult struct {
	Items      []Resource `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

// TTLPolicy holds the expiration windows applied at creation time.
// Anonymous creators get the shorter windows.
type TTLPolicy struct {
	AnonFile time.Duration `mapstructure:"anon_file"`
	AnonURL  time.Duration `mapstructure:"anon_url"`
	AuthFile time.Duration `mapstructure:"auth_file"`
	AuthURL  time.Duration `mapstructure:"auth_url"`
}

// DefaultTTLPolicy returns the stock policy: 1 day / 7 days for anonymous
// files and URLs, 7 days / 30 days for authenticated ones.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		AnonFile: 24 * time.Hour,
		AnonURL:  7 * 24 * time.Hour,
		AuthFile: 7 * 24 * time.Hour,
		AuthURL:  30 * 24 * time.Hour,
	}
}

// Validate checks that every window is positive.
func (p TTLPolicy) Validate() error {
	if p.AnonFile <= 0 || p.AnonURL <= 0 || p.AuthFile <= 0 || p.AuthURL <= 0 {
		return errors.New("validate ttl policy: all windows must be positive")
	}
	return nil
}

// TTL returns the window for a resource kind and authentication state.
func (p TTLPolicy) TTL(kind ResourceKind, authenticated bool) time.Duration {
	switch kind {
	case KindFile:
		if authenticated {
			return p.AuthFile
		}
		return p.AnonFile
	default:
		if authenticated {
			return p.AuthURL
		}
		return p.AnonURL
	}
}

// Tables holds configurable table names for mapping storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Mappings string `mapstructure:"mappings"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Mappings == "" {
		return errors.New("validate tables: mappings table name cannot be empty")
	}

	if !IsValidTableName(t.Mappings) {
		return fmt.Errorf("validate tables: invalid mappings table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Mappings)
	}

	return nil
}
