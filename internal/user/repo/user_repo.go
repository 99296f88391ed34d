package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/entity"
)

// ErrNotFound is returned when no row matches a lookup.
var ErrNotFound = errors.New("user not found")

const userColumns = `id, username, email, id_no, first_name, middle_name, last_name,
	security_question, security_answer, role, hashed_password, is_active, account_status,
	otp, otp_expiry_time, failed_login_attempts, last_failed_login, created_at, updated_at`

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id UUID PRIMARY KEY,
  username TEXT NOT NULL,
  email CITEXT NOT NULL UNIQUE,
  id_no TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  middle_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  security_question TEXT NOT NULL DEFAULT '',
  security_answer TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'customer',
  hashed_password TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT false,
  account_status TEXT NOT NULL DEFAULT 'pending',
  otp TEXT NOT NULL DEFAULT '',
  otp_expiry_time TIMESTAMPTZ,
  failed_login_attempts INT NOT NULL DEFAULT 0,
  last_failed_login TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_account_status ON users(account_status);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row and reads back server defaults.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	q := `INSERT INTO users (id,username,email,id_no,first_name,middle_name,last_name,
		security_question,security_answer,role,hashed_password,is_active,account_status)
		VALUES (:id,:username,:email,:id_no,:first_name,:middle_name,:last_name,
		:security_question,:security_answer,:role,:hashed_password,:is_active,:account_status)
		RETURNING ` + userColumns
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.StructScan(u)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return errors.New("no row returned")
}

// Save writes every mutable column and refreshes u from the committed row.
func (r *UserRepo) Save(ctx context.Context, u *entity.User) error {
	q := `UPDATE users SET username=:username, email=:email, first_name=:first_name,
		middle_name=:middle_name, last_name=:last_name, role=:role,
		hashed_password=:hashed_password, is_active=:is_active, account_status=:account_status,
		otp=:otp, otp_expiry_time=:otp_expiry_time, failed_login_attempts=:failed_login_attempts,
		last_failed_login=:last_failed_login, updated_at=NOW()
		WHERE id=:id RETURNING ` + userColumns
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.StructScan(u)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return ErrNotFound
}

// FindByEmail returns a user matched by email (case-insensitive due to citext).
// Inactive accounts are skipped unless includeInactive is set.
func (r *UserRepo) FindByEmail(ctx context.Context, email string, includeInactive bool) (*entity.User, error) {
	return r.findOne(ctx, "email=$1", email, includeInactive)
}

// FindByID fetches a full user row.
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID, includeInactive bool) (*entity.User, error) {
	return r.findOne(ctx, "id=$1", id, includeInactive)
}

// FindByIDNo fetches by national identity number.
func (r *UserRepo) FindByIDNo(ctx context.Context, idNo string, includeInactive bool) (*entity.User, error) {
	return r.findOne(ctx, "id_no=$1", idNo, includeInactive)
}

func (r *UserRepo) findOne(ctx context.Context, where string, arg any, includeInactive bool) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if !includeInactive {
		q += ` AND is_active`
	}
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
