package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sagarc03/hashdrop"
	"github.com/sagarc03/hashdrop/auth"
)

// defaultMaxUploadBytes bounds multipart uploads when no limit is configured.
const defaultMaxUploadBytes = 64 << 20

const defaultPageSize = 20

// Service defines the resource operations the HTTP surface exposes.
// Implemented by hashdrop.Service.
type Service interface {
	CreateURL(ctx context.Context, rawURL, description string, requester auth.Resolution) (hashdrop.Resource, error)
	CreateFileResource(ctx context.Context, in hashdrop.CreateFile, content io.Reader, requester auth.Resolution) (hashdrop.Resource, error)
	GetURL(ctx context.Context, hash string, requester auth.Resolution) (hashdrop.Resource, bool, error)
	GetFile(ctx context.Context, hash string, requester auth.Resolution) (hashdrop.Resource, io.ReadSeekCloser, bool, error)
	Stat(ctx context.Context, hash string) (hashdrop.ResourceKind, error)
	Delete(ctx context.Context, hash string, requester auth.Resolution) error
	List(ctx context.Context, page, pageSize int, requester auth.Resolution) (hashdrop.ListResult, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	Resolver IdentityResolver
	CORS     CORSConfig
	// MaxUploadBytes bounds the size of multipart uploads (default: 64 MiB).
	MaxUploadBytes int64
}

// Handler provides HTTP handlers for resource operations.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	cfg := *config
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		config:  cfg,
		service: service,
	}
}

// Router returns an http.Handler with all routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware(h.config.Resolver))

		r.Post("/url", h.handleCreateURL)
		r.Get("/url/{hash}", h.handleGetURL)
		r.Post("/file", h.handleCreateFile)
		r.Get("/file/{hash}", h.handleGetFile)
		r.Head("/{hash}", h.handleStat)
		r.Delete("/{hash}", h.handleDelete)
		r.Get("/me", h.handleList)
	})

	return r
}

type createURLRequest struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type createdResponse struct {
	Hash        string    `json:"hash"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handler) handleCreateURL(w http.ResponseWriter, r *http.Request) {
	var req createURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Malformed JSON body")
		return
	}

	res, err := h.service.CreateURL(r.Context(), req.URL, req.Description, RequestIdentity(r))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, createdResponse{
		Hash:        res.Hash,
		Description: res.Description,
		ExpiresAt:   res.ExpiresAt,
	})
}

type urlResponse struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	IsOwner     bool   `json:"is_owner"`
}

func (h *Handler) handleGetURL(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	res, owner, err := h.service.GetURL(r.Context(), hash, RequestIdentity(r))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, urlResponse{
		URL:         res.PayloadRef,
		Description: res.Description,
		IsOwner:     owner,
	})
}

func (h *Handler) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Missing or unreadable file part")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	in := hashdrop.CreateFile{
		Name:        path.Base(header.Filename),
		ContentType: contentType,
		Description: r.FormValue("description"),
	}

	res, err := h.service.CreateFileResource(r.Context(), in, file, RequestIdentity(r))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, createdResponse{
		Hash:        res.Hash,
		Description: res.Description,
		ExpiresAt:   res.ExpiresAt,
	})
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	res, content, owner, err := h.service.GetFile(r.Context(), hash, RequestIdentity(r))
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	filename := path.Base(res.PayloadRef)
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("X-Is-Owner", strconv.FormatBool(owner))

	http.ServeContent(w, r, filename, res.CreatedAt, content)
}

// handleStat answers HEAD requests for a hash: the resource kind comes back
// in the X-Resource-Kind header so clients can pick the retrieval endpoint
// without transferring a payload.
func (h *Handler) handleStat(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	kind, err := h.service.Stat(r.Context(), hash)
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("X-Resource-Kind", string(kind))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	if err := h.service.Delete(r.Context(), hash, RequestIdentity(r)); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	pageSize, err := queryInt(r, "pageSize", defaultPageSize)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	result, err := h.service.List(r.Context(), page, pageSize, RequestIdentity(r))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return parsed, nil
}
