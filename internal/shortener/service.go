package shortener

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shortlyhq/shortly/codegen"
	"github.com/shortlyhq/shortly/internal/errx"
)

const (
	DefaultCodeLength = 6
	MaxAliasLength    = 64
	MinAliasLength    = 3
	MaxURLLength      = 2048
	DefaultLinkTTL    = 365 * 24 * time.Hour

	DefaultPageSize = 20
	MaxPageSize     = 100

	clickTrackTimeout = 5 * time.Second
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	OriginalURL string
	OwnerID     uuid.UUID
	CustomAlias string     // Optional: if empty, a code will be generated
	ExpiresAt   *time.Time // Optional: if nil, the default link TTL applies
}

// Service defines the business logic operations for URL shortening.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (Link, error)
	Resolve(ctx context.Context, code string) (string, error)
	Delete(ctx context.Context, code string, ownerID uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page, size int32) ([]Link, error)
	StatsByOwner(ctx context.Context, ownerID uuid.UUID) (OwnerStats, error)
}

// service implements the Service interface.
type service struct {
	repo       Repository
	codeGen    codegen.Generator
	codeLength int
	linkTTL    time.Duration
	logger     *slog.Logger
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator codegen.Generator
	CodeLength    int
	LinkTTL       time.Duration // lifetime applied when a request carries no expiry
	Logger        *slog.Logger
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	codeGen := config.CodeGenerator
	if codeGen == nil {
		codeGen = codegen.NewBase62()
	}

	codeLength := config.CodeLength
	if codeLength < MinAliasLength || codeLength > MaxAliasLength {
		codeLength = DefaultCodeLength
	}

	linkTTL := config.LinkTTL
	if linkTTL <= 0 {
		linkTTL = DefaultLinkTTL
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		repo:       repo,
		codeGen:    codeGen,
		codeLength: codeLength,
		linkTTL:    linkTTL,
		logger:     logger,
	}
}

// Create creates a new short link with an optional custom alias.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (Link, error) {
	const op = "shortener.service.Create"

	if err := validateURL(req.OriginalURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if req.OwnerID == uuid.Nil {
		return Link{}, errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}

	expiresAt := time.Now().Add(s.linkTTL)
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(time.Now()) {
			return Link{}, errx.E(op, errx.Invalid, errors.New("expiry must be in the future"))
		}
		expiresAt = *req.ExpiresAt
	}

	// Custom alias path: check availability, then create once
	if req.CustomAlias != "" {
		if err := validateAlias(req.CustomAlias); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}

		// An alias is taken by any link ever created with it, active or not.
		taken, err := s.repo.CodeExists(ctx, req.CustomAlias)
		if err != nil {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
		if taken {
			return Link{}, errx.E(op, errx.Conflict, errors.New("alias already in use"))
		}

		created, err := s.repo.Create(ctx, Link{
			OriginalURL: req.OriginalURL,
			ShortCode:   req.CustomAlias,
			OwnerID:     req.OwnerID,
			ExpiresAt:   expiresAt,
		})
		if err != nil {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
		return created, nil
	}

	// Generated code path: insert first, regenerate on collision. The keyspace
	// (62^6) dwarfs any realistic table size, so the loop terminates quickly;
	// cancellation still bounds it.
	for {
		if err := ctx.Err(); err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}

		code, err := s.codeGen.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.repo.Create(ctx, Link{
			OriginalURL: req.OriginalURL,
			ShortCode:   code,
			OwnerID:     req.OwnerID,
			ExpiresAt:   expiresAt,
		})
		if err == nil {
			return created, nil
		}

		// Retry on collision, fail on other errors
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}
}

// Resolve returns the original URL for an active, unexpired code and records
// the click in the background.
func (s *service) Resolve(ctx context.Context, code string) (string, error) {
	const op = "shortener.service.Resolve"

	if code == "" {
		return "", errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	link, err := s.repo.GetActiveByCode(ctx, code)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}

	if time.Now().After(link.ExpiresAt) {
		return "", errx.E(op, errx.Expired, errors.New("link has expired"))
	}

	// Click tracking must never delay or fail the redirect.
	go s.trackClick(context.WithoutCancel(ctx), code)

	return link.OriginalURL, nil
}

func (s *service) trackClick(ctx context.Context, code string) {
	ctx, cancel := context.WithTimeout(ctx, clickTrackTimeout)
	defer cancel()

	if err := s.repo.IncrementClicks(ctx, code); err != nil {
		s.logger.Warn("click tracking failed", "code", code, "error", err)
	}
}

// Delete deactivates a link owned by the given owner.
func (s *service) Delete(ctx context.Context, code string, ownerID uuid.UUID) error {
	const op = "shortener.service.Delete"

	if code == "" {
		return errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	link, err := s.repo.GetActiveByCode(ctx, code)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if link.OwnerID != ownerID {
		return errx.E(op, errx.Forbidden, errors.New("link belongs to another owner"))
	}

	if err := s.repo.Deactivate(ctx, code); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

// ListByOwner returns one page of the owner's active links, newest first.
// Pages are zero-based.
func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID, page, size int32) ([]Link, error) {
	const op = "shortener.service.ListByOwner"

	if ownerID == uuid.Nil {
		return nil, errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}

	// Offset arithmetic in int64 so a huge page value cannot wrap negative.
	links, err := s.repo.ListByOwner(ctx, ownerID, size, int64(page)*int64(size))
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *service) StatsByOwner(ctx context.Context, ownerID uuid.UUID) (OwnerStats, error) {
	const op = "shortener.service.StatsByOwner"

	if ownerID == uuid.Nil {
		return OwnerStats{}, errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}

	stats, err := s.repo.StatsByOwner(ctx, ownerID)
	if err != nil {
		return OwnerStats{}, errx.E(op, errx.KindOf(err), err)
	}
	return stats, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}

func validateAlias(alias string) error {
	if len(alias) < MinAliasLength {
		return errors.New("alias too short (minimum 3 characters)")
	}
	if len(alias) > MaxAliasLength {
		return errors.New("alias too long (maximum 64 characters)")
	}

	if strings.HasPrefix(alias, "-") || strings.HasPrefix(alias, "_") ||
		strings.HasSuffix(alias, "-") || strings.HasSuffix(alias, "_") {
		return errors.New("alias cannot start or end with dash or underscore")
	}

	for _, char := range alias {
		if !isValidAliasChar(char) {
			return errors.New("alias contains invalid characters (only alphanumeric, dash, and underscore allowed)")
		}
	}
	return nil
}

func isValidAliasChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
