package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	sessionentity "github.com/ovaphlow/pitchfork/service-bank-auth/internal/session/entity"
	sessionrepo "github.com/ovaphlow/pitchfork/service-bank-auth/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/repo"
)

// AccountStore is the transactional user store. Lookups return
// repo.ErrNotFound when nothing matches; Save refreshes u from the committed row.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string, includeInactive bool) (*entity.User, error)
	FindByID(ctx context.Context, id uuid.UUID, includeInactive bool) (*entity.User, error)
	FindByIDNo(ctx context.Context, idNo string, includeInactive bool) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	Save(ctx context.Context, u *entity.User) error
}

// Notifier delivers account emails. Every method may fail.
type Notifier interface {
	SendActivation(ctx context.Context, email, token string) error
	SendLoginOTP(ctx context.Context, email, otp string) error
	SendLockoutNotice(ctx context.Context, email string, at time.Time) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// SessionStore tracks issued refresh tokens by id so they can be revoked.
// Get returns sessionrepo.ErrNotFound for unknown or revoked ids.
type SessionStore interface {
	Save(ctx context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error
	Get(ctx context.Context, tokenID string) (*sessionentity.RefreshSession, error)
	Delete(ctx context.Context, tokenID string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Config holds the OTP and lockout rules.
type Config struct {
	SiteName        string
	OTPLength       int
	OTPTTL          time.Duration
	LoginAttempts   int
	LockoutDuration time.Duration
}

// Deps are the collaborators of Service. Sessions, Locker, Clock and
// Logger are optional; without Sessions refresh tokens cannot be revoked.
type Deps struct {
	Store    AccountStore
	Sessions SessionStore
	Hasher   PasswordHasher
	Tokens   *TokenIssuer
	Notifier Notifier
	Locker   AccountLocker
	Clock    clockwork.Clock
	Logger   *zap.SugaredLogger
}

// Service orchestrates registration, activation, login, OTP and lockout flows.
type Service struct {
	store    AccountStore
	sessions SessionStore
	hasher   PasswordHasher
	tokens   *TokenIssuer
	notifier Notifier
	locker   AccountLocker
	clock    clockwork.Clock
	logger   *zap.SugaredLogger
	cfg      Config

	// Retry governs login OTP delivery.
	Retry RetryPolicy
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Email            string
	IDNo             string
	FirstName        string
	MiddleName       string
	LastName         string
	Password         string
	SecurityQuestion string
	SecurityAnswer   string
	Role             entity.Role
}

// SessionTokens are the bearer tokens handed to the cookie layer.
// RefreshToken is empty when only the access token was renewed.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
}

func NewService(cfg Config, d Deps) (*Service, error) {
	if d.Store == nil || d.Hasher == nil || d.Tokens == nil || d.Notifier == nil {
		return nil, errors.New("auth: store, hasher, tokens and notifier are required")
	}
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = 6
	}
	if cfg.LoginAttempts <= 0 {
		cfg.LoginAttempts = 3
	}
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	return &Service{
		store:    d.Store,
		sessions: d.Sessions,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		notifier: d.Notifier,
		locker:   d.Locker,
		clock:    d.Clock,
		logger:   d.Logger,
		cfg:      cfg,
		Retry:    RetryPolicy{MaxAttempts: 3, Backoff: ExponentialBackoff, Sleep: d.Clock.Sleep},
	}, nil
}

// Register creates a pending account and emails its activation token. When
// delivery fails the account is kept and returned together with the error.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	idNo := strings.TrimSpace(in.IDNo)

	if _, err := s.store.FindByEmail(ctx, email, true); err == nil {
		return nil, ErrDuplicateAccount.withMessage("user with this email already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.store.FindByIDNo(ctx, idNo, true); err == nil {
		return nil, ErrDuplicateAccount.withMessage("user with this ID number already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup id number: %w", err)
	}

	username, err := GenerateUsername(s.cfg.SiteName)
	if err != nil {
		return nil, fmt.Errorf("generate username: %w", err)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := in.Role
	if role == "" {
		role = entity.RoleCustomer
	}
	u := &entity.User{
		ID:               uuid.New(),
		Username:         username,
		Email:            email,
		IDNo:             idNo,
		FirstName:        in.FirstName,
		MiddleName:       in.MiddleName,
		LastName:         in.LastName,
		SecurityQuestion: in.SecurityQuestion,
		SecurityAnswer:   in.SecurityAnswer,
		Role:             role,
		HashedPassword:   hash,
		IsActive:         false,
		AccountStatus:    entity.StatusPending,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(u.ID.String(), TokenActivation)
	if err != nil {
		return u, fmt.Errorf("issue activation token: %w", err)
	}
	if err := s.notifier.SendActivation(ctx, u.Email, token); err != nil {
		s.logger.Errorw("failed to send activation email", "email", u.Email, "err", err)
		return u, ErrNotificationFailure.withMessage("failed to send activation email").wrap(err)
	}
	s.logger.Infow("activation email sent", "email", u.Email, "user_id", u.ID)
	return u, nil
}

// Activate redeems an activation token and marks the account active.
func (s *Service) Activate(ctx context.Context, token string) (*entity.User, error) {
	sub, err := s.tokens.Redeem(token, TokenActivation)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, ErrExpiredToken.withMessage("activation token expired")
		}
		return nil, ErrInvalidToken.withMessage("invalid activation token")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken.withMessage("invalid activation token")
	}

	var u *entity.User
	err = s.withLock(ctx, id, func() error {
		var err error
		if u, err = s.store.FindByID(ctx, id, true); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		if u.IsActive {
			return ErrAlreadyActive
		}
		if err := s.ResetSecurityState(ctx, u, true); err != nil {
			return err
		}
		u.IsActive = true
		u.AccountStatus = entity.StatusActive
		if err := s.store.Save(ctx, u); err != nil {
			return fmt.Errorf("save activation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("account activated", "email", u.Email, "user_id", u.ID)
	return u, nil
}

// Login checks the password of an active account. On success the security
// state is reset and the caller continues with RequestLoginOTP.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, error) {
	var (
		u        *entity.User
		lockedAt *time.Time
	)
	err := s.withActiveAccount(ctx, email, func(acc *entity.User) error {
		u = acc
		if err := s.CheckLockout(ctx, u); err != nil {
			return err
		}
		if err := s.ValidateAccountStatus(u); err != nil {
			return err
		}
		if !s.hasher.Verify(password, u.HashedPassword) {
			var err error
			if lockedAt, err = s.recordFailedAttempt(ctx, u); err != nil {
				return err
			}
			return ErrInvalidCredentials
		}
		if err := s.ResetSecurityState(ctx, u, true); err != nil {
			return err
		}
		s.upgradeHash(ctx, u, password)
		return nil
	})
	// the notice goes out after the account lock is released
	if lockedAt != nil {
		s.sendLockoutNotice(ctx, u.Email, *lockedAt)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) upgradeHash(ctx context.Context, u *entity.User, password string) {
	if !s.hasher.NeedsRehash(u.HashedPassword) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warnw("password rehash failed", "user_id", u.ID, "err", err)
		return
	}
	u.HashedPassword = hash
	if err := s.store.Save(ctx, u); err != nil {
		s.logger.Warnw("password rehash save failed", "user_id", u.ID, "err", err)
		return
	}
	s.logger.Infow("password hash upgraded", "user_id", u.ID)
}

// RequestLoginOTP stores a fresh OTP on u and emails it with retries.
// sent is false when every delivery attempt failed; the OTP is then
// cleared again. Persistence errors clear the OTP and are returned.
func (s *Service) RequestLoginOTP(ctx context.Context, u *entity.User) (sent bool, otp string, err error) {
	otp, err = GenerateOTP(s.cfg.OTPLength)
	if err != nil {
		s.logger.Errorw("failed to generate OTP", "email", u.Email, "err", err)
		s.clearOTP(ctx, u, "")
		return false, "", fmt.Errorf("generate otp: %w", err)
	}
	expiry := s.clock.Now().Add(s.cfg.OTPTTL)
	err = s.withLock(ctx, u.ID, func() error {
		fresh, err := s.store.FindByID(ctx, u.ID, true)
		if err != nil {
			return err
		}
		fresh.OTP = otp
		fresh.OTPExpiryTime = &expiry
		if err := s.store.Save(ctx, fresh); err != nil {
			return err
		}
		*u = *fresh
		return nil
	})
	if err != nil {
		s.logger.Errorw("failed to save OTP", "email", u.Email, "err", err)
		s.clearOTP(ctx, u, otp)
		return false, "", fmt.Errorf("save otp: %w", err)
	}

	// delivery ignores request cancellation once started
	sendCtx := context.WithoutCancel(ctx)
	err = s.Retry.Do(func() error {
		return s.notifier.SendLoginOTP(sendCtx, u.Email, otp)
	}, func(attempt int, err error) {
		s.logger.Errorw("failed to send OTP email", "email", u.Email, "attempt", attempt+1, "err", err)
	})
	if err != nil {
		if cerr := s.clearOTP(ctx, u, otp); cerr != nil {
			return false, "", cerr
		}
		return false, "", nil
	}
	s.logger.Infow("OTP sent", "email", u.Email)
	return true, otp, nil
}

// clearOTP removes otp from the stored account. A non-empty otp is only
// cleared while it is still the stored one, so a newer request survives.
func (s *Service) clearOTP(ctx context.Context, u *entity.User, otp string) error {
	ctx = context.WithoutCancel(ctx)
	err := s.withLock(ctx, u.ID, func() error {
		fresh, err := s.store.FindByID(ctx, u.ID, true)
		if err != nil {
			return err
		}
		if otp != "" && fresh.OTP != otp {
			*u = *fresh
			return nil
		}
		fresh.OTP = ""
		fresh.OTPExpiryTime = nil
		if err := s.store.Save(ctx, fresh); err != nil {
			return err
		}
		*u = *fresh
		return nil
	})
	if err != nil {
		s.logger.Errorw("failed to clear OTP", "email", u.Email, "err", err)
		return fmt.Errorf("clear otp: %w", err)
	}
	return nil
}

// VerifyLoginOTP checks the submitted OTP of an active account. A wrong OTP
// counts as a failed login; an expired one does not. The stored OTP is kept
// on success; CompleteLogin consumes it.
func (s *Service) VerifyLoginOTP(ctx context.Context, email, otp string) (*entity.User, error) {
	var (
		u        *entity.User
		lockedAt *time.Time
	)
	err := s.withActiveAccount(ctx, email, func(acc *entity.User) error {
		u = acc
		if err := s.CheckLockout(ctx, u); err != nil {
			return err
		}
		if err := s.ValidateAccountStatus(u); err != nil {
			return err
		}
		if u.OTP == "" || subtle.ConstantTimeCompare([]byte(u.OTP), []byte(otp)) != 1 {
			var err error
			if lockedAt, err = s.recordFailedAttempt(ctx, u); err != nil {
				return err
			}
			return ErrInvalidOTP
		}
		if u.OTPExpiryTime == nil || u.OTPExpiryTime.Before(s.clock.Now()) {
			return ErrOTPExpired
		}
		return s.ResetSecurityState(ctx, u, false)
	})
	if lockedAt != nil {
		s.sendLockoutNotice(ctx, u.Email, *lockedAt)
	}
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			s.logger.Errorw("error during OTP verification", "email", email, "err", err)
		}
		return nil, err
	}
	return u, nil
}

// CompleteLogin consumes the OTP that VerifyLoginOTP accepted and issues a
// session. Only the request that removes the stored code gets a session; a
// replay of the same code fails with ErrInvalidOTP.
func (s *Service) CompleteLogin(ctx context.Context, u *entity.User, otp string) (*SessionTokens, error) {
	if err := s.consumeOTP(ctx, u, otp); err != nil {
		return nil, err
	}
	return s.IssueSession(ctx, u)
}

func (s *Service) consumeOTP(ctx context.Context, u *entity.User, otp string) error {
	return s.withLock(ctx, u.ID, func() error {
		fresh, err := s.store.FindByID(ctx, u.ID, false)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("reload user: %w", err)
		}
		if otp == "" || fresh.OTP == "" || subtle.ConstantTimeCompare([]byte(fresh.OTP), []byte(otp)) != 1 {
			return ErrInvalidOTP
		}
		fresh.OTP = ""
		fresh.OTPExpiryTime = nil
		if err := s.store.Save(ctx, fresh); err != nil {
			return fmt.Errorf("consume otp: %w", err)
		}
		*u = *fresh
		return nil
	})
}

// IssueSession signs an access and a refresh token for u and records the
// refresh token when a SessionStore is configured.
func (s *Service) IssueSession(ctx context.Context, u *entity.User) (*SessionTokens, error) {
	access, err := s.tokens.Issue(u.ID.String(), TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, claims, err := s.tokens.IssueClaims(u.ID.String(), TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, claims.RegisteredClaims.ID, u.ID, claims.ExpiresAt.Time); err != nil {
			return nil, fmt.Errorf("save refresh session: %w", err)
		}
	}
	return &SessionTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenRefresh)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, ErrExpiredToken.withMessage("refresh token expired")
		}
		return nil, ErrInvalidToken.withMessage("invalid refresh token")
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken.withMessage("invalid refresh token")
	}
	if s.sessions != nil {
		sess, err := s.sessions.Get(ctx, claims.RegisteredClaims.ID)
		if err != nil {
			if errors.Is(err, sessionrepo.ErrNotFound) {
				return nil, ErrInvalidToken.withMessage("refresh token revoked")
			}
			return nil, fmt.Errorf("load refresh session: %w", err)
		}
		if sess.UserID != id {
			return nil, ErrInvalidToken.withMessage("invalid refresh token")
		}
	}
	u, err := s.store.FindByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.ValidateAccountStatus(u); err != nil {
		return nil, err
	}
	access, err := s.tokens.Issue(u.ID.String(), TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &SessionTokens{AccessToken: access}, nil
}

// Logout revokes the refresh token when it can be identified. It never
// fails; problems are logged so the cookies are still cleared.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if s.sessions == nil || refreshToken == "" {
		return
	}
	claims, err := s.tokens.Parse(refreshToken, TokenRefresh)
	if err != nil {
		s.logger.Debugw("logout with unusable refresh token", "err", err)
		return
	}
	if err := s.sessions.Delete(context.WithoutCancel(ctx), claims.RegisteredClaims.ID); err != nil {
		s.logger.Errorw("failed to revoke refresh session", "user_id", claims.ID, "err", err)
		return
	}
	s.logger.Infow("refresh session revoked", "user_id", claims.ID)
}

// RequestPasswordReset emails a reset token to an active account. Unknown
// emails succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Infow("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("lookup email: %w", err)
	}
	token, err := s.tokens.Issue(u.ID.String(), TokenPasswordReset)
	if err != nil {
		return fmt.Errorf("issue password reset token: %w", err)
	}
	if err := s.notifier.SendPasswordReset(ctx, u.Email, token); err != nil {
		s.logger.Errorw("failed to send password reset email", "email", u.Email, "err", err)
		return ErrNotificationFailure.withMessage("failed to send password reset email").wrap(err)
	}
	s.logger.Infow("password reset email sent", "email", u.Email)
	return nil
}

// ResetPassword redeems a reset token, stores the new password and unlocks the account.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	sub, err := s.tokens.Redeem(token, TokenPasswordReset)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return ErrExpiredToken.withMessage("password reset token expired")
		}
		return ErrInvalidToken.withMessage("invalid password reset token")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return ErrInvalidToken.withMessage("invalid password reset token")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.withLock(ctx, id, func() error {
		u, err := s.store.FindByID(ctx, id, false)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		u.HashedPassword = hash
		if err := s.ResetSecurityState(ctx, u, true); err != nil {
			return err
		}
		s.logger.Infow("password reset", "email", u.Email)
		if s.sessions != nil {
			// existing sessions must not outlive the old password
			if n, err := s.sessions.DeleteByUser(ctx, u.ID); err != nil {
				s.logger.Errorw("failed to revoke sessions after password reset", "user_id", u.ID, "err", err)
			} else if n > 0 {
				s.logger.Infow("sessions revoked after password reset", "user_id", u.ID, "count", n)
			}
		}
		return nil
	})
}

// ValidateAccountStatus rejects accounts that are not activated, locked or inactive.
func (s *Service) ValidateAccountStatus(u *entity.User) error {
	switch {
	case !u.IsActive:
		return ErrAccountNotActivated
	case u.AccountStatus == entity.StatusLocked:
		return ErrAccountLocked
	case u.AccountStatus == entity.StatusInactive:
		return ErrAccountInactive
	}
	return nil
}

// CheckLockout fails with ErrAccountTempLocked while the lockout window
// is running and unlocks the account once it has elapsed.
func (s *Service) CheckLockout(ctx context.Context, u *entity.User) error {
	if u.AccountStatus != entity.StatusLocked || u.LastFailedLogin == nil {
		return nil
	}
	unlockAt := u.LastFailedLogin.Add(s.cfg.LockoutDuration)
	now := s.clock.Now()
	if !now.Before(unlockAt) {
		if err := s.ResetSecurityState(ctx, u, false); err != nil {
			return err
		}
		s.logger.Infow("lockout period ended", "email", u.Email)
		return nil
	}
	// rounded up so a still-locked account never reports zero minutes
	remaining := int(math.Ceil(unlockAt.Sub(now).Minutes()))
	s.logger.Warnw("attempted login to locked account", "email", u.Email, "remaining_minutes", remaining)
	return temporarilyLocked(remaining)
}

// IncrementFailedLoginAttempts records a failure and locks the account at
// the configured threshold. The lockout notice is best-effort.
func (s *Service) IncrementFailedLoginAttempts(ctx context.Context, u *entity.User) error {
	lockedAt, err := s.recordFailedAttempt(ctx, u)
	if err != nil {
		return err
	}
	if lockedAt != nil {
		s.sendLockoutNotice(ctx, u.Email, *lockedAt)
	}
	return nil
}

// recordFailedAttempt persists one failure and returns the lock time when
// this failure locked the account. Nothing slow happens here so callers may
// hold the account lock.
func (s *Service) recordFailedAttempt(ctx context.Context, u *entity.User) (*time.Time, error) {
	now := s.clock.Now()
	u.FailedLoginAttempts++
	u.LastFailedLogin = &now
	locked := false
	if u.FailedLoginAttempts >= s.cfg.LoginAttempts && u.AccountStatus != entity.StatusLocked {
		u.AccountStatus = entity.StatusLocked
		locked = true
	}
	if err := s.store.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save failed login attempt: %w", err)
	}
	if !locked {
		return nil, nil
	}
	s.logger.Warnw("account locked after too many failed login attempts",
		"email", u.Email, "attempts", u.FailedLoginAttempts)
	return &now, nil
}

func (s *Service) sendLockoutNotice(ctx context.Context, email string, at time.Time) {
	if err := s.notifier.SendLockoutNotice(context.WithoutCancel(ctx), email, at); err != nil {
		s.logger.Errorw("failed to send account lockout email", "email", email, "err", err)
		return
	}
	s.logger.Infow("account lockout notification sent", "email", email)
}

// ResetSecurityState zeroes failure counters, optionally clears the OTP and
// unlocks a locked account, then persists.
func (s *Service) ResetSecurityState(ctx context.Context, u *entity.User, clearOTP bool) error {
	prev := u.AccountStatus
	u.FailedLoginAttempts = 0
	u.LastFailedLogin = nil
	if clearOTP {
		u.OTP = ""
		u.OTPExpiryTime = nil
	}
	if u.AccountStatus == entity.StatusLocked {
		u.AccountStatus = entity.StatusActive
	}
	if err := s.store.Save(ctx, u); err != nil {
		return fmt.Errorf("save security state: %w", err)
	}
	if prev != u.AccountStatus {
		s.logger.Infow("account state reset", "email", u.Email, "from", prev, "to", u.AccountStatus)
	}
	return nil
}

// withActiveAccount resolves an active account by email, then runs fn on a
// copy re-read under the account lock. Missing accounts surface as
// ErrInvalidCredentials, the same as a wrong password.
func (s *Service) withActiveAccount(ctx context.Context, email string, fn func(u *entity.User) error) error {
	email = strings.ToLower(strings.TrimSpace(email))
	found, err := s.store.FindByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup email: %w", err)
	}
	return s.withLock(ctx, found.ID, func() error {
		u, err := s.store.FindByID(ctx, found.ID, false)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("reload user: %w", err)
		}
		return fn(u)
	})
}

func (s *Service) withLock(ctx context.Context, id uuid.UUID, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	defer unlock()
	return fn()
}
