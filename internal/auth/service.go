package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shortlyhq/shortly/internal/errx"
	"github.com/shortlyhq/shortly/internal/idgen"
	"github.com/shortlyhq/shortly/internal/password"
	"github.com/shortlyhq/shortly/internal/validcache"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 64

	replaceAttempts = 2
)

// RegisterRequest represents the parameters for creating an account.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// LoginRequest represents the credentials for a login attempt.
type LoginRequest struct {
	Username string
	Password string
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	UserID       uuid.UUID
	Username     string
}

// AccessTokenSigner issues signed access tokens for a username.
type AccessTokenSigner interface {
	Sign(username string) (string, error)
}

// TokenValidator checks access tokens, consulting a cache before the
// underlying verifier.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (validcache.Result, error)
	EvictOwner(ctx context.Context, ownerKey string) error
}

// Service defines the authentication operations.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (TokenPair, error)
	Login(ctx context.Context, req LoginRequest) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	Logout(ctx context.Context, ownerID uuid.UUID, username string) error
	Validate(ctx context.Context, accessToken string) (User, error)
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// service implements the Service interface.
type service struct {
	users       UserRepository
	tokens      RefreshTokenRepository
	hasher      password.Hasher
	signer      AccessTokenSigner
	validator   TokenValidator
	tokenValues idgen.Generator
	refreshTTL  time.Duration
	logger      *slog.Logger
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	Users       UserRepository
	Tokens      RefreshTokenRepository
	Hasher      password.Hasher
	Signer      AccessTokenSigner
	Validator   TokenValidator
	TokenValues idgen.Generator // generator for refresh token values (default: UUID v4)
	RefreshTTL  time.Duration
	Logger      *slog.Logger
}

// NewService creates a new service instance.
func NewService(cfg ServiceConfig) Service {
	tokenValues := cfg.TokenValues
	if tokenValues == nil {
		tokenValues = idgen.NewV4()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		users:       cfg.Users,
		tokens:      cfg.Tokens,
		hasher:      cfg.Hasher,
		signer:      cfg.Signer,
		validator:   cfg.Validator,
		tokenValues: tokenValues,
		refreshTTL:  cfg.RefreshTTL,
		logger:      logger,
	}
}

// Register creates a new account with a hashed password and signs the
// account in, issuing the same token pair a login would.
func (s *service) Register(ctx context.Context, req RegisterRequest) (TokenPair, error) {
	const op = "auth.service.Register"

	if err := validateRegistration(req); err != nil {
		return TokenPair{}, errx.E(op, errx.Invalid, err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.Internal, err)
	}

	user, err := s.users.Create(ctx, User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	access, err := s.signer.Sign(user.Username)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.Internal, err)
	}

	refresh, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		UserID:       user.ID,
		Username:     user.Username,
	}, nil
}

// Login checks credentials and issues a fresh access and refresh token pair.
// Any existing refresh token for the account is replaced.
func (s *service) Login(ctx context.Context, req LoginRequest) (TokenPair, error) {
	const op = "auth.service.Login"

	if req.Username == "" || req.Password == "" {
		return TokenPair{}, errx.E(op, errx.Invalid, errors.New("username and password are required"))
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		// A missing account reads the same as a bad password.
		if errx.KindOf(err) == errx.NotFound {
			return TokenPair{}, errx.E(op, errx.Unauthorized, errors.New("invalid credentials"))
		}
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.Internal, err)
	}
	if !ok {
		return TokenPair{}, errx.E(op, errx.Unauthorized, errors.New("invalid credentials"))
	}

	access, err := s.signer.Sign(user.Username)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.Internal, err)
	}

	refresh, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		UserID:       user.ID,
		Username:     user.Username,
	}, nil
}

// issueRefreshToken stores a new token for the owner, replacing any existing
// one. A unique-key collision, whether on the token value or from a concurrent
// replacement for the same owner, is retried once with a freshly generated
// value; the retry's delete sees the row the losing transaction missed.
func (s *service) issueRefreshToken(ctx context.Context, ownerID uuid.UUID) (RefreshToken, error) {
	const op = "auth.service.IssueRefreshToken"

	var lastErr error
	for attempt := 0; attempt < replaceAttempts; attempt++ {
		value, err := s.tokenValues.Generate()
		if err != nil {
			return RefreshToken{}, errx.E(op, errx.Unavailable, err)
		}

		stored, err := s.tokens.Replace(ctx, RefreshToken{
			Token:      value.String(),
			OwnerID:    ownerID,
			ExpiryDate: time.Now().Add(s.refreshTTL),
		})
		if err == nil {
			return stored, nil
		}

		if errx.KindOf(err) != errx.Conflict {
			return RefreshToken{}, errx.E(op, errx.KindOf(err), err)
		}
		lastErr = err
	}

	return RefreshToken{}, errx.E(op, errx.Unavailable,
		fmt.Errorf("could not store refresh token: %w", lastErr))
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is kept until it expires or the owner logs out.
func (s *service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	const op = "auth.service.Refresh"

	if refreshToken == "" {
		return TokenPair{}, errx.E(op, errx.Invalid, errors.New("refresh token is required"))
	}

	stored, err := s.tokens.Find(ctx, refreshToken)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return TokenPair{}, errx.E(op, errx.Unauthorized, errors.New("refresh token not recognized"))
		}
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	if time.Now().After(stored.ExpiryDate) {
		// Expired rows are removed on discovery so a later attempt reads
		// as unrecognized rather than expired.
		if delErr := s.tokens.Delete(ctx, refreshToken); delErr != nil {
			s.logger.Warn("failed to delete expired refresh token", "error", delErr)
		}
		return TokenPair{}, errx.E(op, errx.Expired, errors.New("refresh token has expired"))
	}

	user, err := s.users.GetByID(ctx, stored.OwnerID)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	access, err := s.signer.Sign(user.Username)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.Internal, err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: stored.Token,
		UserID:       user.ID,
		Username:     user.Username,
	}, nil
}

// Logout removes the owner's refresh token and evicts the owner's entry
// from the validation cache.
func (s *service) Logout(ctx context.Context, ownerID uuid.UUID, username string) error {
	const op = "auth.service.Logout"

	if err := s.tokens.DeleteByOwner(ctx, ownerID); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if err := s.validator.EvictOwner(ctx, username); err != nil {
		s.logger.Warn("validation cache eviction failed", "username", username, "error", err)
	}
	return nil
}

// Validate checks an access token and resolves the account it belongs to.
func (s *service) Validate(ctx context.Context, accessToken string) (User, error) {
	const op = "auth.service.Validate"

	if accessToken == "" {
		return User{}, errx.E(op, errx.Unauthorized, errors.New("access token is required"))
	}

	res, err := s.validator.Validate(ctx, accessToken)
	if err != nil {
		return User{}, errx.E(op, errx.KindOf(err), err)
	}
	if !res.Valid {
		return User{}, errx.E(op, errx.Unauthorized, errors.New("invalid access token"))
	}

	user, err := s.users.GetByUsername(ctx, res.Username)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return User{}, errx.E(op, errx.Unauthorized, errors.New("account no longer exists"))
		}
		return User{}, errx.E(op, errx.KindOf(err), err)
	}
	return user, nil
}

// PurgeExpiredTokens removes refresh tokens whose expiry has passed.
func (s *service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	const op = "auth.service.PurgeExpiredTokens"

	removed, err := s.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, errx.E(op, errx.KindOf(err), err)
	}
	return removed, nil
}

func validateRegistration(req RegisterRequest) error {
	if len(req.Username) < MinUsernameLength {
		return fmt.Errorf("username too short (minimum %d characters)", MinUsernameLength)
	}
	if len(req.Username) > MaxUsernameLength {
		return fmt.Errorf("username too long (maximum %d characters)", MaxUsernameLength)
	}
	if strings.ContainsAny(req.Username, " \t\n") {
		return errors.New("username cannot contain whitespace")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(req.Password) < password.MinPasswordLength {
		return fmt.Errorf("password too short (minimum %d characters)", password.MinPasswordLength)
	}
	return nil
}
