package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client performs operations against a hashdrop server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply defaults
	cfg = cfg.WithDefaults()

	// Normalize endpoint URL (remove trailing slash)
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")

	c := &Client{
		config: &Config{
			Endpoint: endpoint,
			Token:    cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// newRequest builds a request against the configured endpoint, attaching the
// bearer token when one is configured.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	return req, nil
}

// Shorten registers a shortened URL on the server.
func (c *Client) Shorten(ctx context.Context, opts ShortenOptions) (*ShortenResult, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("shorten: %w", ErrEmptyURL)
	}

	payload, err := json.Marshal(map[string]string{
		"url":         opts.URL,
		"description": opts.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/url", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var created serverCreated
	if err := c.doJSON(req, &created); err != nil {
		return nil, err
	}

	return &ShortenResult{
		Hash:        created.Hash,
		ShareURL:    c.config.Endpoint + "/url/" + created.Hash,
		Description: created.Description,
		ExpiresAt:   created.ExpiresAt,
	}, nil
}

// Resolve looks up a shortened URL by hash.
func (c *Client) Resolve(ctx context.Context, hash string) (*ResolveResult, error) {
	if hash == "" {
		return nil, fmt.Errorf("resolve: %w", ErrEmptyHash)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/url/"+url.PathEscape(hash), http.NoBody)
	if err != nil {
		return nil, err
	}

	var resolved serverURL
	if err := c.doJSON(req, &resolved); err != nil {
		return nil, err
	}

	return &ResolveResult{
		Hash:        hash,
		URL:         resolved.URL,
		Description: resolved.Description,
		IsOwner:     resolved.IsOwner,
	}, nil
}

// Upload uploads a file to the server.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (*UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	file, err := os.Open(opts.LocalPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(opts.LocalPath)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(opts.LocalPath)))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy file contents: %w", err)
	}

	if opts.Description != "" {
		if err := w.WriteField("description", opts.Description); err != nil {
			return nil, fmt.Errorf("write description field: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/file", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var created serverCreated
	if err := c.doJSON(req, &created); err != nil {
		return nil, err
	}

	return &UploadResult{
		LocalPath:   opts.LocalPath,
		Hash:        created.Hash,
		ShareURL:    c.config.Endpoint + "/file/" + created.Hash,
		Description: created.Description,
		ExpiresAt:   created.ExpiresAt,
	}, nil
}

// Download downloads a file from the server.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.Hash == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyHash)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/file/"+url.PathEscape(opts.Hash), http.NoBody)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		Hash:        opts.Hash,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		IsOwner:     resp.Header.Get("X-Is-Owner") == "true",
	}

	// If stdout requested, return the body for the caller to handle
	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	// Determine local path, preferring the server's filename
	localPath := opts.LocalPath
	if localPath == "" {
		localPath = filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	}
	if localPath == "" {
		localPath = opts.Hash
	}
	result.LocalPath = localPath

	// Create parent directories if needed
	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Delete deletes one or more resources from the server.
// Continues on error, collecting results for all hashes.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Hashes) == 0 {
		return nil, ErrNoHashes
	}

	results := make([]DeleteResult, 0, len(opts.Hashes))

	for _, hash := range opts.Hashes {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, c.deleteSingle(ctx, hash))
	}

	return results, nil
}

// deleteSingle deletes a single resource from the server.
func (c *Client) deleteSingle(ctx context.Context, hash string) DeleteResult {
	req, err := c.newRequest(ctx, http.MethodDelete, "/"+url.PathEscape(hash), http.NoBody)
	if err != nil {
		return DeleteResult{Hash: hash, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeleteResult{Hash: hash, Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	// 204 No Content is success
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return DeleteResult{Hash: hash, Deleted: true}
	}

	body, _ := io.ReadAll(resp.Body)
	return DeleteResult{Hash: hash, Err: parseServerError(resp.StatusCode, body)}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// List lists the caller's resources. Requires a configured bearer token.
// If opts.All is true, paginates through all pages.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	if opts.All {
		return c.listAll(ctx, opts)
	}
	return c.listPage(ctx, opts)
}

// listPage fetches a single page of results.
func (c *Client) listPage(ctx context.Context, opts ListOptions) (*ListResult, error) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	req, err := c.newRequest(ctx, http.MethodGet, "/me?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}

	var result ListResult
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// listAll fetches all pages of results.
func (c *Client) listAll(ctx context.Context, opts ListOptions) (*ListResult, error) {
	var allItems []ResourceInfo
	page := 1
	total := 0

	for {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageOpts := ListOptions{
			Page:     page,
			PageSize: opts.PageSize,
			All:      false, // Prevent recursion
		}

		result, err := c.listPage(ctx, pageOpts)
		if err != nil {
			return nil, err
		}

		allItems = append(allItems, result.Items...)
		total = result.Total

		if page >= result.TotalPages || len(result.Items) == 0 {
			break
		}
		page++
	}

	return &ListResult{
		Items:      allItems,
		Total:      total,
		Page:       1,
		PageSize:   len(allItems),
		TotalPages: 1,
	}, nil
}

// doJSON executes a request expecting a 200 JSON response.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseServerError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	return nil
}

// filenameFromDisposition extracts the filename from a Content-Disposition
// header, or returns "" when none is present.
func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return filepath.Base(params["filename"])
}

// detectContentType returns the MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError extracts the error details from a server response.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}

	var se serverError
	if err := json.Unmarshal(body, &se); err == nil && se.Error != "" {
		apiErr.Code = se.Error
		apiErr.Message = se.Message
	}

	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + " - " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested resource does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrGone is returned when the requested resource has expired (410).
	ErrGone = &APIError{StatusCode: http.StatusGone}

	// ErrUnauthorized is returned when authentication fails (401).
	// This typically means an invalid or missing bearer token.
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when the request is not permitted (403).
	// This typically means the token is valid but the caller does not own
	// the resource.
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}
)
