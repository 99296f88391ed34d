package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	sessionentity "github.com/ovaphlow/pitchfork/service-bank-auth/internal/session/entity"
	sessionrepo "github.com/ovaphlow/pitchfork/service-bank-auth/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/repo"
)

// memStore is an AccountStore that hands out copies, like a real database.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]entity.User
	saves int
	// failSave makes Save fail after that many successful saves (0 = never).
	failSaveAfter int
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uuid.UUID]entity.User)}
}

func (m *memStore) find(match func(entity.User) bool, includeInactive bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) && (includeInactive || u.IsActive) {
			c := u
			return &c, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memStore) FindByEmail(_ context.Context, email string, includeInactive bool) (*entity.User, error) {
	return m.find(func(u entity.User) bool { return u.Email == email }, includeInactive)
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID, includeInactive bool) (*entity.User, error) {
	return m.find(func(u entity.User) bool { return u.ID == id }, includeInactive)
}

func (m *memStore) FindByIDNo(_ context.Context, idNo string, includeInactive bool) (*entity.User, error) {
	return m.find(func(u entity.User) bool { return u.IDNo == idNo }, includeInactive)
}

func (m *memStore) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

var errStoreDown = errors.New("store down")

func (m *memStore) Save(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	if m.failSaveAfter > 0 && m.saves >= m.failSaveAfter {
		return errStoreDown
	}
	m.saves++
	u.UpdatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) get(t *testing.T, id uuid.UUID) entity.User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		t.Fatalf("user %s not stored", id)
	}
	return u
}

// fakeNotifier records deliveries; the err fields make a channel fail.
type fakeNotifier struct {
	mu            sync.Mutex
	activations   map[string]string
	otps          []string
	lockouts      []time.Time
	resets        map[string]string
	otpCalls      int
	activationErr error
	otpErr        error
	// otpFailures fails that many OTP sends before succeeding.
	otpFailures int
	lockoutErr  error
	resetErr    error
	// onLockout runs before a lockout notice is recorded.
	onLockout func(email string)
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{activations: map[string]string{}, resets: map[string]string{}}
}

func (f *fakeNotifier) SendActivation(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activationErr != nil {
		return f.activationErr
	}
	f.activations[email] = token
	return nil
}

func (f *fakeNotifier) SendLoginOTP(_ context.Context, _ string, otp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otpCalls++
	if f.otpErr != nil {
		return f.otpErr
	}
	if f.otpFailures > 0 {
		f.otpFailures--
		return errors.New("mail temporarily unavailable")
	}
	f.otps = append(f.otps, otp)
	return nil
}

func (f *fakeNotifier) SendLockoutNotice(_ context.Context, email string, at time.Time) error {
	if f.onLockout != nil {
		f.onLockout(email)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockouts = append(f.lockouts, at)
	return f.lockoutErr
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resets[email] = token
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]sessionentity.RefreshSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]sessionentity.RefreshSession{}}
}

func (m *memSessions) Save(_ context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tokenID] = sessionentity.RefreshSession{TokenID: tokenID, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (m *memSessions) Get(_ context.Context, tokenID string) (*sessionentity.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenID]
	if !ok {
		return nil, sessionrepo.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenID)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// cheap argon2 parameters keep the tests fast
var testHasherConfig = HasherConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1}

func newTestHasher(t *testing.T) *Argon2Hasher {
	t.Helper()
	h, err := NewArgon2Hasher(testHasherConfig)
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	return h
}

func newTestIssuer(t *testing.T, clock clockwork.Clock) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer(TokenConfig{
		Secret:           []byte("test-secret"),
		Algorithm:        "HS256",
		ActivationTTL:    30 * time.Minute,
		AccessTTL:        30 * time.Minute,
		RefreshTTL:       24 * time.Hour,
		PasswordResetTTL: 30 * time.Minute,
	}, clock)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return ti
}

type testEnv struct {
	svc      *Service
	store    *memStore
	notifier *fakeNotifier
	sessions *memSessions
	clock    *clockwork.FakeClock
	tokens   *TokenIssuer
	sleeps   []time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newMemStore(),
		notifier: newFakeNotifier(),
		sessions: newMemSessions(),
		clock:    clockwork.NewFakeClockAt(testStart),
	}
	env.tokens = newTestIssuer(t, env.clock)
	svc, err := NewService(Config{
		SiteName:        "Next Gen Bank",
		OTPLength:       6,
		OTPTTL:          5 * time.Minute,
		LoginAttempts:   3,
		LockoutDuration: 15 * time.Minute,
	}, Deps{
		Store:    env.store,
		Sessions: env.sessions,
		Hasher:   newTestHasher(t),
		Tokens:   env.tokens,
		Notifier: env.notifier,
		Clock:    env.clock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	// record backoff instead of waiting on the fake clock
	svc.Retry.Sleep = func(d time.Duration) { env.sleeps = append(env.sleeps, d) }
	env.svc = svc
	return env
}

const testPassword = "Sup3r-secret!"

func testRegisterInput(email, idNo string) RegisterInput {
	return RegisterInput{
		Email:            email,
		IDNo:             idNo,
		FirstName:        "Lan",
		LastName:         "Nguyen",
		Password:         testPassword,
		SecurityQuestion: "maiden_name",
		SecurityAnswer:   "Tran",
	}
}

// activeUser registers and activates an account.
func (e *testEnv) activeUser(t *testing.T, email string) *entity.User {
	t.Helper()
	ctx := context.Background()
	u, err := e.svc.Register(ctx, testRegisterInput(email, "0"+uuid.NewString()[:8]))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	u, err = e.svc.Activate(ctx, e.notifier.activations[u.Email])
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return u
}

func assertKind(t *testing.T, err error, want *Error) *Error {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s error, got %v", want.Kind, err)
	}
	var de *Error
	errors.As(err, &de)
	return de
}

type errFake string

func (e errFake) Error() string { return string(e) }

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }
