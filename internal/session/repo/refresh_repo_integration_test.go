//go:build integration
// +build integration

package repo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/repo"
)

func newIntegrationRepos(t *testing.T) (*RefreshRepo, *userrepo.UserRepo) {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := userrepo.NewUserRepo(db)
	if err := users.EnsureTable(context.Background()); err != nil {
		t.Fatalf("users EnsureTable: %v", err)
	}
	r := NewRefreshRepo(db)
	if err := r.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	return r, users
}

func TestRefreshRepoLifecycle(t *testing.T) {
	r, users := newIntegrationRepos(t)
	ctx := context.Background()

	id := uuid.New()
	u := &entity.User{
		ID: id, Username: "NGB-SESS", Email: id.String() + "@example.com", IDNo: id.String(),
		Role: entity.RoleCustomer, HashedPassword: "$argon2id$placeholder", AccountStatus: entity.StatusActive, IsActive: true,
	}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create user: %v", err)
	}

	live, stale := uuid.NewString(), uuid.NewString()
	if err := r.Save(ctx, live, id, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Save(ctx, stale, id, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := r.Get(ctx, live)
	if err != nil || got.UserID != id {
		t.Fatalf("Get: %v %+v", err, got)
	}
	if _, err := r.Get(ctx, stale); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session must be hidden, got %v", err)
	}
	if n, err := r.DeleteExpired(ctx); err != nil || n < 1 {
		t.Fatalf("DeleteExpired: %d %v", n, err)
	}

	if err := r.Delete(ctx, live); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, live); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted session still returned: %v", err)
	}

	_ = r.Save(ctx, uuid.NewString(), id, time.Now().Add(time.Hour))
	_ = r.Save(ctx, uuid.NewString(), id, time.Now().Add(time.Hour))
	if n, err := r.DeleteByUser(ctx, id); err != nil || n != 2 {
		t.Fatalf("DeleteByUser: %d %v", n, err)
	}
}
