package shortener

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shortlyhq/shortly/internal/errx"
	"github.com/shortlyhq/shortly/internal/idgen"
)

// querier is an internal interface that abstracts *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repo struct {
	q   querier
	ids idgen.Generator
}

// RepositoryConfig holds configuration for the repository.
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository creates a new Repository implementation backed by PostgreSQL.
func NewRepository(q querier, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	// Default: UUID v7 (good for DB locality). Retry once by default inside idgen.NewV7.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{
		q:   q,
		ids: config.IDGenerator,
	}
}

const linkColumns = "id, original_url, short_code, owner_id, created_at, expires_at, click_count, is_active"

func scanLink(row pgx.Row) (Link, error) {
	var l Link
	err := row.Scan(
		&l.ID,
		&l.OriginalURL,
		&l.ShortCode,
		&l.OwnerID,
		&l.CreatedAt,
		&l.ExpiresAt,
		&l.ClickCount,
		&l.IsActive,
	)
	return l, err
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (r *repo) Create(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.Create"

	// Generate ID if not provided
	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO links (id, original_url, short_code, owner_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+linkColumns,
		link.ID, link.OriginalURL, link.ShortCode, link.OwnerID, link.ExpiresAt,
	)

	created, err := scanLink(row)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) CodeExists(ctx context.Context, code string) (bool, error) {
	const op = "shortener.repo.CodeExists"

	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, errx.E(op, errx.Unavailable, err)
	}
	return exists, nil
}

func (r *repo) GetActiveByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.repo.GetActiveByCode"

	row := r.q.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE short_code = $1 AND is_active`,
		code,
	)

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) IncrementClicks(ctx context.Context, code string) error {
	const op = "shortener.repo.IncrementClicks"

	// Single atomic update so concurrent redirects never lose increments.
	tag, err := r.q.Exec(ctx,
		`UPDATE links SET click_count = click_count + 1 WHERE short_code = $1 AND is_active`,
		code,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, fmt.Errorf("no active link with code %q", code))
	}
	return nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int32, offset int64) ([]Link, error) {
	const op = "shortener.repo.ListByOwner"

	rows, err := r.q.Query(ctx,
		`SELECT `+linkColumns+`
		 FROM links
		 WHERE owner_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	defer rows.Close()

	links := make([]Link, 0, limit)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, errx.E(op, errx.Unavailable, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	return links, nil
}

func (r *repo) StatsByOwner(ctx context.Context, ownerID uuid.UUID) (OwnerStats, error) {
	const op = "shortener.repo.StatsByOwner"

	var stats OwnerStats
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(click_count), 0)
		 FROM links
		 WHERE owner_id = $1 AND is_active`,
		ownerID,
	).Scan(&stats.ActiveCount, &stats.TotalClicks)
	if err != nil {
		return OwnerStats{}, errx.E(op, errx.Unavailable, err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+linkColumns+`
		 FROM links
		 WHERE owner_id = $1 AND is_active
		 ORDER BY click_count DESC
		 LIMIT 5`,
		ownerID,
	)
	if err != nil {
		return OwnerStats{}, errx.E(op, errx.Unavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return OwnerStats{}, errx.E(op, errx.Unavailable, err)
		}
		stats.TopByClicks = append(stats.TopByClicks, link)
	}
	if err := rows.Err(); err != nil {
		return OwnerStats{}, errx.E(op, errx.Unavailable, err)
	}
	return stats, nil
}

func (r *repo) Deactivate(ctx context.Context, code string) error {
	const op = "shortener.repo.Deactivate"

	tag, err := r.q.Exec(ctx,
		`UPDATE links SET is_active = FALSE WHERE short_code = $1 AND is_active`,
		code,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, fmt.Errorf("no active link with code %q", code))
	}
	return nil
}
