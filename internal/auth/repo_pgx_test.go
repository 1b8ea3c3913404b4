package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shortlyhq/shortly/internal/errx"
)

// mockRow implements pgx.Row.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error { return m.scanFunc(dest...) }

// mockTx embeds pgx.Tx so only the methods Replace touches need bodies.
type mockTx struct {
	pgx.Tx
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	committed    bool
	rolledBack   bool
}

func (m *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFunc(ctx, sql, args...)
}

func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	return nil
}

// mockDB implements the db interface.
type mockDB struct {
	beginFunc func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.beginFunc(ctx)
}

func TestRefreshTokenRepoReplace(t *testing.T) {
	uniqueErr := func(constraint string) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
	}

	t.Run("maps unique violations to Conflict", func(t *testing.T) {
		tests := []struct {
			name      string
			insertErr error
			wantKind  errx.Kind
		}{
			{"token value collision", uniqueErr("refresh_tokens_token_unique"), errx.Conflict},
			{"concurrent replacement for the owner", uniqueErr("refresh_tokens_owner_unique"), errx.Conflict},
			{"unrelated failure", errors.New("connection reset"), errx.Unavailable},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tx := &mockTx{
					queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
						return &mockRow{scanFunc: func(dest ...any) error { return tt.insertErr }}
					},
				}
				repo := NewRefreshTokenRepository(&mockDB{
					beginFunc: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
				}, nil)

				_, err := repo.Replace(context.Background(), RefreshToken{
					Token:   uuid.NewString(),
					OwnerID: uuid.New(),
				})
				if err == nil {
					t.Fatal("Replace() expected error, got nil")
				}
				if errx.KindOf(err) != tt.wantKind {
					t.Errorf("error kind = %v, want %v", errx.KindOf(err), tt.wantKind)
				}
				if tx.committed {
					t.Error("transaction was committed")
				}
				if !tx.rolledBack {
					t.Error("transaction was not rolled back")
				}
			})
		}
	})

	t.Run("deletes the owner's rows before inserting and commits", func(t *testing.T) {
		ownerID := uuid.New()
		expiry := time.Now().Add(24 * time.Hour)

		var deleted bool
		tx := &mockTx{
			execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				deleted = true
				if len(args) != 1 || args[0] != ownerID {
					t.Errorf("delete args = %v, want [%v]", args, ownerID)
				}
				return pgconn.CommandTag{}, nil
			},
		}
		tx.queryRowFunc = func(ctx context.Context, sql string, args ...any) pgx.Row {
			if !deleted {
				t.Error("insert executed before delete")
			}
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = args[0].(uuid.UUID)
				*dest[1].(*string) = args[1].(string)
				*dest[2].(*uuid.UUID) = args[2].(uuid.UUID)
				*dest[3].(*time.Time) = args[3].(time.Time)
				return nil
			}}
		}

		repo := NewRefreshTokenRepository(&mockDB{
			beginFunc: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
		}, nil)

		stored, err := repo.Replace(context.Background(), RefreshToken{
			Token:      "fresh-value",
			OwnerID:    ownerID,
			ExpiryDate: expiry,
		})
		if err != nil {
			t.Fatalf("Replace() unexpected error: %v", err)
		}
		if !tx.committed {
			t.Error("transaction was not committed")
		}
		if stored.Token != "fresh-value" || stored.OwnerID != ownerID {
			t.Errorf("stored = %+v, want token fresh-value for owner %v", stored, ownerID)
		}
		if stored.ID == uuid.Nil {
			t.Error("stored ID is nil")
		}
	})
}
