package clientcli

import "time"

// ShortenOptions configures a URL shortening operation.
type ShortenOptions struct {
	URL         string
	Description string
}

// ShortenResult represents the result of shortening a URL.
type ShortenResult struct {
	Hash        string    `json:"hash"`
	ShareURL    string    `json:"share_url"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ResolveResult represents a resolved shortened URL.
type ResolveResult struct {
	Hash        string `json:"hash"`
	URL         string `json:"url"`
	Description string `json:"description"`
	IsOwner     bool   `json:"is_owner"`
}

// UploadOptions configures a file upload operation.
type UploadOptions struct {
	LocalPath   string
	ContentType string // optional, auto-detect if empty
	Description string
}

// UploadResult represents the result of uploading a file.
type UploadResult struct {
	LocalPath   string    `json:"local_path"`
	Hash        string    `json:"hash"`
	ShareURL    string    `json:"share_url"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DownloadOptions configures a file download operation.
type DownloadOptions struct {
	Hash      string
	LocalPath string // empty = derive from response, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	Hash        string `json:"hash"`
	LocalPath   string `json:"local_path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
	IsOwner     bool   `json:"is_owner"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Hashes []string
}

// DeleteResult represents the result of deleting a single resource.
type DeleteResult struct {
	Hash    string `json:"hash"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListOptions configures a list operation.
type ListOptions struct {
	Page     int
	PageSize int
	All      bool // auto-paginate through all pages
}

// ResourceInfo represents one of the caller's resources.
type ResourceInfo struct {
	Hash        string    `json:"hash"`
	Kind        string    `json:"kind"`
	PayloadRef  string    `json:"payload_ref"`
	Description string    `json:"description"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ListResult contains paginated list results.
type ListResult struct {
	Items      []ResourceInfo `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// serverCreated mirrors the JSON response from the server's create endpoints.
type serverCreated struct {
	Hash        string    `json:"hash"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// serverURL mirrors the JSON response from the server's URL resolve endpoint.
type serverURL struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	IsOwner     bool   `json:"is_owner"`
}

// serverError mirrors the server's JSON error shape.
type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
