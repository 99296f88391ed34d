package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession is an issued refresh token that has not been revoked.
// TokenID is the token's jti claim.
type RefreshSession struct {
	TokenID   string    `db:"token_id"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
