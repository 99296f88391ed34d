package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/auth"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/repo"
)

// Finder is the read side of the account store.
type Finder interface {
	FindByID(ctx context.Context, id uuid.UUID, includeInactive bool) (*entity.User, error)
}

// StatusGuard rejects accounts that may not use a session.
type StatusGuard interface {
	ValidateAccountStatus(u *entity.User) error
}

// Service resolves the account behind an access token.
type Service struct {
	users  Finder
	tokens *auth.TokenIssuer
	guard  StatusGuard
}

func NewService(users Finder, tokens *auth.TokenIssuer, guard StatusGuard) *Service {
	return &Service{users: users, tokens: tokens, guard: guard}
}

// Current returns the account an access token was issued for. The account
// must still pass the status guard.
func (s *Service) Current(ctx context.Context, accessToken string) (*entity.User, error) {
	if accessToken == "" {
		return nil, auth.ErrInvalidCredentials
	}
	sub, err := s.tokens.Redeem(accessToken, auth.TokenAccess)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	u, err := s.users.FindByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.guard.ValidateAccountStatus(u); err != nil {
		return nil, err
	}
	return u, nil
}
