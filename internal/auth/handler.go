package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shortlyhq/shortly/internal/errx"
	"github.com/shortlyhq/shortly/internal/httpx"
)

// HTTPRegisterRequest represents the JSON request body for registration.
type HTTPRegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HTTPLoginRequest represents the JSON request body for login.
type HTTPLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HTTPRefreshRequest represents the JSON request body for token refresh.
type HTTPRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents the JSON response carrying a token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Username     string `json:"username"`
}

// ValidateResponse represents the JSON response for token validation.
type ValidateResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
}

// Handler provides HTTP handlers for authentication.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
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
	}
}

// Register handles POST requests creating a new account. The new account
// is signed in immediately, so the response carries a token pair.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPRegisterRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	pair, err := h.service.Register(ctx, RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleAuthError(ctx, w, err, "registration failed")
		return
	}

	logger.InfoContext(ctx, "account registered",
		"user_id", pair.UserID.String(),
		"username", pair.Username,
	)

	httpx.WriteJSON(w, http.StatusCreated, tokenResponse(pair))
}

// Login handles POST requests exchanging credentials for a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPLoginRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	pair, err := h.service.Login(ctx, LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.handleAuthError(ctx, w, err, "login failed")
		return
	}

	logger.InfoContext(ctx, "login succeeded",
		"user_id", pair.UserID.String(),
		"username", pair.Username,
	)

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// Refresh handles POST requests exchanging a refresh token for a new
// access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPRefreshRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	pair, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.handleAuthError(ctx, w, err, "refresh failed")
		return
	}

	logger.InfoContext(ctx, "access token refreshed",
		"user_id", pair.UserID.String(),
	)

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// Logout handles POST requests revoking the caller's refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.requestLogger(r)

	owner, ok := httpx.OwnerFromContext(ctx)
	if !ok {
		logger.WarnContext(ctx, "missing owner identity")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	if err := h.service.Logout(ctx, owner.ID, owner.Username); err != nil {
		h.handleAuthError(ctx, w, err, "logout failed")
		return
	}

	logger.InfoContext(ctx, "logged out",
		"user_id", owner.ID.String(),
	)

	w.WriteHeader(http.StatusNoContent)
}

// Validate handles GET requests reporting whether the bearer token is valid.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accessToken := bearerToken(r)
	user, err := h.service.Validate(ctx, accessToken)
	if err != nil {
		if errx.KindOf(err) == errx.Unauthorized {
			httpx.WriteJSON(w, http.StatusOK, ValidateResponse{Valid: false})
			return
		}
		h.handleAuthError(ctx, w, err, "validation failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ValidateResponse{
		Valid:    true,
		Username: user.Username,
	})
}

func tokenResponse(pair TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		Username:     pair.Username,
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// handleAuthError maps service errors to HTTP responses.
func (h *Handler) handleAuthError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Invalid:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.Unauthorized:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
			"invalid credentials or token", nil)

	case errx.Expired:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusGone, "expired",
			"token has expired, log in again", nil)

	case errx.Conflict:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"username or email already registered", nil)

	case errx.NotFound:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"account not found", nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to process the request at this time. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to process the request at this time. Please try again.", nil)
	}
}
