package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-bank-auth/pkg/utilities"
)

// TokenType tags what a signed token may be redeemed for.
type TokenType string

const (
	TokenActivation    TokenType = "activation"
	TokenAccess        TokenType = "access"
	TokenRefresh       TokenType = "refresh"
	TokenPasswordReset TokenType = "password_reset"
)

// TokenConfig carries the signing secret and one TTL per token type.
type TokenConfig struct {
	Secret           []byte
	Algorithm        string // HS256, HS384 or HS512
	ActivationTTL    time.Duration
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	PasswordResetTTL time.Duration
}

// Claims is the payload of every issued token.
type Claims struct {
	ID   string    `json:"id"`
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and redeems typed, time-limited tokens.
type TokenIssuer struct {
	cfg    TokenConfig
	method jwt.SigningMethod
	clock  clockwork.Clock
}

func NewTokenIssuer(cfg TokenConfig, clock clockwork.Clock) (*TokenIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	for typ, ttl := range map[TokenType]time.Duration{
		TokenActivation: cfg.ActivationTTL, TokenAccess: cfg.AccessTTL,
		TokenRefresh: cfg.RefreshTTL, TokenPasswordReset: cfg.PasswordResetTTL,
	} {
		if ttl <= 0 {
			return nil, fmt.Errorf("invalid %s token TTL", typ)
		}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenIssuer{cfg: cfg, method: method, clock: clock}, nil
}

// TTL returns the configured lifetime for typ.
func (t *TokenIssuer) TTL(typ TokenType) time.Duration {
	switch typ {
	case TokenActivation:
		return t.cfg.ActivationTTL
	case TokenAccess:
		return t.cfg.AccessTTL
	case TokenRefresh:
		return t.cfg.RefreshTTL
	case TokenPasswordReset:
		return t.cfg.PasswordResetTTL
	}
	return 0
}

// Issue signs a token for subject using the configured TTL of typ.
func (t *TokenIssuer) Issue(subject string, typ TokenType) (string, error) {
	return t.IssueWithTTL(subject, typ, t.TTL(typ))
}

// IssueWithTTL signs a token for subject that expires after ttl.
func (t *TokenIssuer) IssueWithTTL(subject string, typ TokenType, ttl time.Duration) (string, error) {
	token, _, err := t.sign(subject, typ, ttl)
	return token, err
}

// IssueClaims is Issue that also returns the signed claims, for callers
// that track token ids.
func (t *TokenIssuer) IssueClaims(subject string, typ TokenType) (string, *Claims, error) {
	return t.sign(subject, typ, t.TTL(typ))
}

func (t *TokenIssuer) sign(subject string, typ TokenType, ttl time.Duration) (string, *Claims, error) {
	now := t.clock.Now()
	claims := &Claims{
		ID:   subject,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        utilities.NewKSUID(),
		},
	}
	token, err := jwt.NewWithClaims(t.method, claims).SignedString(t.cfg.Secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Redeem verifies signature, expiry and type and returns the subject id.
// It fails with ErrExpiredToken past expiry and ErrInvalidToken otherwise.
func (t *TokenIssuer) Redeem(token string, expected TokenType) (string, error) {
	claims, err := t.Parse(token, expected)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// Parse is Redeem returning the full claims.
func (t *TokenIssuer) Parse(token string, expected TokenType) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken.wrap(err)
		}
		return nil, ErrInvalidToken.wrap(err)
	}
	if claims.Type != expected || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
