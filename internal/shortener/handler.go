package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shortlyhq/shortly/internal/errx"
	"github.com/shortlyhq/shortly/internal/httpx"
)

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL         string     `json:"url"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// LinkResponse represents the JSON form of a link.
type LinkResponse struct {
	ID          string `json:"id"`
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url"`
	ClickCount  int64  `json:"click_count"`
	CreatedAt   string `json:"created_at"`
	ExpiresAt   string `json:"expires_at"`
}

// ListLinksResponse represents one page of the owner's links.
type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
	Page  int32          `json:"page"`
	Size  int32          `json:"size"`
}

// StatsResponse represents the JSON response for owner statistics.
type StatsResponse struct {
	ActiveCount int64          `json:"active_count"`
	TotalClicks int64          `json:"total_clicks"`
	TopByClicks []LinkResponse `json:"top_by_clicks"`
}

// Handler provides HTTP handlers for the URL shortener service.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // Base URL for constructing short URLs (e.g., "https://short.ly")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: cfg.BaseURL,
	}
}

func (h *Handler) linkResponse(link Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID.String(),
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		ShortURL:    fmt.Sprintf("%s/%s", h.baseURL, link.ShortCode),
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt.Format(time.RFC3339),
		ExpiresAt:   link.ExpiresAt.Format(time.RFC3339),
	}
}

// CreateLink handles POST requests to create a new short link.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	owner, ok := httpx.OwnerFromContext(ctx)
	if !ok {
		logger.WarnContext(ctx, "missing owner identity")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if req.URL == "" {
		logger.WarnContext(ctx, "request validation failed",
			"custom_alias", req.CustomAlias,
		)
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "url is required", nil)
		return
	}

	link, err := h.service.Create(ctx, CreateLinkRequest{
		OriginalURL: req.URL,
		OwnerID:     owner.ID,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.handleCreateError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link created successfully",
		"link_id", link.ID.String(),
		"short_code", link.ShortCode,
		"custom_alias", req.CustomAlias != "",
	)

	httpx.WriteJSON(w, http.StatusCreated, h.linkResponse(link))
}

// ResolveLink handles GET requests to resolve a short code and redirect to
// the original URL. The click is recorded in the background.
func (h *Handler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	code := chi.URLParam(r, "code")
	if err := validateCodeFormat(code); err != nil {
		logger.WarnContext(ctx, "invalid code format",
			"code", code,
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", err.Error(), nil)
		return
	}

	originalURL, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.handleResolveError(ctx, w, err, code)
		return
	}

	logger.InfoContext(ctx, "code resolved successfully",
		"code", code,
		"original_url", originalURL,
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	http.Redirect(w, r, originalURL, http.StatusFound)
}

// ListLinks handles GET requests listing the caller's active links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	owner, ok := httpx.OwnerFromContext(ctx)
	if !ok {
		logger.WarnContext(ctx, "missing owner identity")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	page := queryInt32(r, "page", 0)
	size := queryInt32(r, "size", DefaultPageSize)

	links, err := h.service.ListByOwner(ctx, owner.ID, page, size)
	if err != nil {
		h.handleOwnerError(ctx, w, err)
		return
	}

	resp := ListLinksResponse{
		Links: make([]LinkResponse, 0, len(links)),
		Page:  page,
		Size:  size,
	}
	for _, link := range links {
		resp.Links = append(resp.Links, h.linkResponse(link))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Stats handles GET requests for the caller's link statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	owner, ok := httpx.OwnerFromContext(ctx)
	if !ok {
		logger.WarnContext(ctx, "missing owner identity")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	stats, err := h.service.StatsByOwner(ctx, owner.ID)
	if err != nil {
		h.handleOwnerError(ctx, w, err)
		return
	}

	resp := StatsResponse{
		ActiveCount: stats.ActiveCount,
		TotalClicks: stats.TotalClicks,
		TopByClicks: make([]LinkResponse, 0, len(stats.TopByClicks)),
	}
	for _, link := range stats.TopByClicks {
		resp.TopByClicks = append(resp.TopByClicks, h.linkResponse(link))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// DeleteLink handles DELETE requests deactivating one of the caller's links.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	owner, ok := httpx.OwnerFromContext(ctx)
	if !ok {
		logger.WarnContext(ctx, "missing owner identity")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	code := chi.URLParam(r, "code")
	if err := validateCodeFormat(code); err != nil {
		logger.WarnContext(ctx, "invalid code format",
			"code", code,
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", err.Error(), nil)
		return
	}

	if err := h.service.Delete(ctx, code, owner.ID); err != nil {
		h.handleDeleteError(ctx, w, err, code)
		return
	}

	logger.InfoContext(ctx, "link deactivated",
		"code", code,
		"owner_id", owner.ID.String(),
	)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// handleCreateError handles errors from the Create service method.
func (h *Handler) handleCreateError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Conflict:
		h.logger.WarnContext(ctx, "alias conflict", logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"This alias is already taken",
			map[string]string{
				"hint": "Try a different custom alias or let us generate one for you",
			})

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, "service unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to create short link at this time. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error creating link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to create short link at this time. Please try again.", nil)
	}
}

// handleResolveError handles errors from the Resolve service method.
func (h *Handler) handleResolveError(ctx context.Context, w http.ResponseWriter, err error, code string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"code", code,
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "code not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"short link doesn't exist", nil)

	case errx.Expired:
		h.logger.WarnContext(ctx, "link expired", logAttrs...)
		httpx.WriteError(w, http.StatusGone, "expired",
			"short link has expired", nil)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid code", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", err.Error(), nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error resolving link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to resolve this link at this time", nil)
	}
}

// handleDeleteError handles errors from the Delete service method.
func (h *Handler) handleDeleteError(ctx context.Context, w http.ResponseWriter, err error, code string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"code", code,
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "code not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"short link doesn't exist", nil)

	case errx.Forbidden:
		h.logger.WarnContext(ctx, "owner mismatch", logAttrs...)
		httpx.WriteError(w, http.StatusForbidden, "forbidden",
			"you do not own this link", nil)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid code", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", err.Error(), nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error deleting link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to delete this link at this time", nil)
	}
}

// handleOwnerError handles errors from owner-scoped read operations.
func (h *Handler) handleOwnerError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error reading links", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to read links at this time", nil)
	}
}

// validateCodeFormat performs basic code format validation for the HTTP layer.
// This is a lightweight check before calling the service layer.
func validateCodeFormat(code string) error {
	if code == "" {
		return errors.New("invalid link")
	}

	if len(code) > MaxAliasLength {
		return errors.New("invalid link")
	}
	return nil
}

func queryInt32(r *http.Request, key string, fallback int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(v)
}
