package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrConfigRequired = errors.New("config is required")
	ErrTokenRequired  = errors.New("bearer token is required")
)

// Errors for input validation.
var (
	ErrNoHashes  = errors.New("no hashes provided")
	ErrEmptyHash = errors.New("hash is required")
	ErrEmptyURL  = errors.New("url is required")
	ErrEmptyPath = errors.New("path is required")
)
