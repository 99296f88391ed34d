package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/session/entity"
)

// ErrNotFound is returned when a refresh session is unknown or revoked.
var ErrNotFound = errors.New("refresh session not found")

type RefreshRepo struct {
	db *sqlx.DB
}

func NewRefreshRepo(db *sqlx.DB) *RefreshRepo {
	return &RefreshRepo{db: db}
}

// EnsureTable creates refresh_sessions if it does not exist. Rows go away
// with their user.
func (r *RefreshRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS refresh_sessions (
  token_id TEXT PRIMARY KEY,
  user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_sessions_user ON refresh_sessions(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *RefreshRepo) Save(ctx context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_sessions (token_id, user_id, expires_at) VALUES ($1, $2, $3)`,
		tokenID, userID, expiresAt)
	return err
}

// Get returns the live session for tokenID. Expired rows count as missing.
func (r *RefreshRepo) Get(ctx context.Context, tokenID string) (*entity.RefreshSession, error) {
	var s entity.RefreshSession
	err := r.db.GetContext(ctx, &s,
		`SELECT token_id, user_id, expires_at, created_at FROM refresh_sessions
		 WHERE token_id = $1 AND expires_at > NOW()`, tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *RefreshRepo) Delete(ctx context.Context, tokenID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE token_id = $1`, tokenID)
	return err
}

// DeleteByUser revokes every refresh session of userID.
func (r *RefreshRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions past expiry and reports how many went.
func (r *RefreshRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
