package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shortlyhq/shortly/internal/errx"
	"github.com/shortlyhq/shortly/internal/idgen"
)

// db is an internal interface that abstracts *pgxpool.Pool.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

/***************
 * Users
 ***************/

type userRepo struct {
	db  db
	ids idgen.Generator
}

// UserRepositoryConfig holds configuration for the user repository.
type UserRepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewUserRepository creates a UserRepository backed by PostgreSQL.
func NewUserRepository(d db, config *UserRepositoryConfig) UserRepository {
	if config == nil {
		config = &UserRepositoryConfig{}
	}
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &userRepo{
		db:  d,
		ids: config.IDGenerator,
	}
}

const userColumns = "id, username, email, password_hash, created_at"

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, user User) (User, error) {
	const op = "auth.repo.CreateUser"

	if user.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return User{}, errx.E(op, errx.Unavailable, err)
		}
		user.ID = id
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		user.ID, user.Username, user.Email, user.PasswordHash,
	)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, "users_username_unique") || isUniqueViolation(err, "users_email_unique") {
			return User{}, errx.E(op, errx.Conflict, err)
		}
		return User{}, errx.E(op, errx.Unavailable, err)
	}
	return created, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	const op = "auth.repo.GetUserByID"

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errx.E(op, errx.NotFound, err)
		}
		return User{}, errx.E(op, errx.Unavailable, err)
	}
	return user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	const op = "auth.repo.GetUserByUsername"

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errx.E(op, errx.NotFound, err)
		}
		return User{}, errx.E(op, errx.Unavailable, err)
	}
	return user, nil
}

/***************
 * Refresh tokens
 ***************/

type refreshTokenRepo struct {
	db  db
	ids idgen.Generator
}

// RefreshTokenRepositoryConfig holds configuration for the refresh token repository.
type RefreshTokenRepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRefreshTokenRepository creates a RefreshTokenRepository backed by PostgreSQL.
func NewRefreshTokenRepository(d db, config *RefreshTokenRepositoryConfig) RefreshTokenRepository {
	if config == nil {
		config = &RefreshTokenRepositoryConfig{}
	}
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &refreshTokenRepo{
		db:  d,
		ids: config.IDGenerator,
	}
}

const tokenColumns = "id, token, owner_id, expiry_date"

func scanToken(row pgx.Row) (RefreshToken, error) {
	var t RefreshToken
	err := row.Scan(
		&t.ID,
		&t.Token,
		&t.OwnerID,
		&t.ExpiryDate,
	)
	return t, err
}

// Replace runs the delete and insert in one transaction so a crash cannot
// leave the owner with zero or two tokens.
func (r *refreshTokenRepo) Replace(ctx context.Context, token RefreshToken) (RefreshToken, error) {
	const op = "auth.repo.ReplaceToken"

	if token.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return RefreshToken{}, errx.E(op, errx.Unavailable, err)
		}
		token.ID = id
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return RefreshToken{}, errx.E(op, errx.Unavailable, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE owner_id = $1`,
		token.OwnerID,
	); err != nil {
		return RefreshToken{}, errx.E(op, errx.Unavailable, err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO refresh_tokens (id, token, owner_id, expiry_date)
		VALUES ($1, $2, $3, $4)
		RETURNING `+tokenColumns,
		token.ID, token.Token, token.OwnerID, token.ExpiryDate,
	)

	created, err := scanToken(row)
	if err != nil {
		// The owner constraint trips when a concurrent Replace committed a row
		// this transaction's delete could not see. The caller retries, and the
		// next delete runs against a fresh snapshot that includes that row.
		if isUniqueViolation(err, "refresh_tokens_token_unique") ||
			isUniqueViolation(err, "refresh_tokens_owner_unique") {
			return RefreshToken{}, errx.E(op, errx.Conflict, err)
		}
		return RefreshToken{}, errx.E(op, errx.Unavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return RefreshToken{}, errx.E(op, errx.Unavailable, err)
	}
	return created, nil
}

func (r *refreshTokenRepo) Find(ctx context.Context, token string) (RefreshToken, error) {
	const op = "auth.repo.FindToken"

	row := r.db.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token = $1`,
		token,
	)

	stored, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshToken{}, errx.E(op, errx.NotFound, err)
		}
		return RefreshToken{}, errx.E(op, errx.Unavailable, err)
	}
	return stored, nil
}

func (r *refreshTokenRepo) Delete(ctx context.Context, token string) error {
	const op = "auth.repo.DeleteToken"

	if _, err := r.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1`,
		token,
	); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (r *refreshTokenRepo) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	const op = "auth.repo.DeleteTokensByOwner"

	if _, err := r.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE owner_id = $1`,
		ownerID,
	); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (r *refreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const op = "auth.repo.DeleteExpiredTokens"

	tag, err := r.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expiry_date < $1`,
		before,
	)
	if err != nil {
		return 0, errx.E(op, errx.Unavailable, err)
	}
	return tag.RowsAffected(), nil
}
