package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/auth"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/config"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/notify"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/router"
	sessionrepo "github.com/ovaphlow/pitchfork/service-bank-auth/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-bank-auth/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bank-auth/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}
	sugar.Infow("starting bank auth service", "site", cfg.Server.SiteName, "addr", cfg.Server.Addr)

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := userrepo.NewUserRepo(db)
	sessions := sessionrepo.NewRefreshRepo(db)

	var registry database.Registry
	registry.Register("users", users)
	registry.Register("refresh_sessions", sessions)
	if err := registry.EnsureAll(ctx); err != nil {
		sugar.Fatalf("ensure tables: %v", err)
	}
	sugar.Infow("tables ready", "entities", registry.Names())

	clock := clockwork.NewRealClock()

	hasher, err := auth.NewArgon2Hasher(auth.HasherConfig{
		Memory:      cfg.Password.MemoryKB,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
	})
	if err != nil {
		sugar.Fatalf("password hasher: %v", err)
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:           []byte(cfg.JWT.SecretKey),
		Algorithm:        cfg.JWT.Algorithm,
		ActivationTTL:    cfg.JWT.ActivationTTL,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		PasswordResetTTL: cfg.JWT.PasswordResetTTL,
	}, clock)
	if err != nil {
		sugar.Fatalf("token issuer: %v", err)
	}

	notifier := notify.NewEmailNotifier(notify.Config{
		SiteName:         cfg.Server.SiteName,
		SupportEmail:     cfg.Mail.SupportEmail,
		APIBaseURL:       cfg.Server.APIBaseURL,
		APIV1Prefix:      cfg.Server.APIV1Prefix,
		PasswordResetURL: cfg.Server.PasswordResetURL,
		ActivationTTL:    cfg.JWT.ActivationTTL,
		OTPTTL:           cfg.Auth.OTPTTL,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		PasswordResetTTL: cfg.JWT.PasswordResetTTL,
	}, newSender(cfg.Mail, sugar), sugar)

	locker, closeLocker := newLocker(ctx, cfg.Redis, sugar)
	defer closeLocker()

	authSvc, err := auth.NewService(auth.Config{
		SiteName:        cfg.Server.SiteName,
		OTPLength:       cfg.Auth.OTPLength,
		OTPTTL:          cfg.Auth.OTPTTL,
		LoginAttempts:   cfg.Auth.LoginAttempts,
		LockoutDuration: cfg.Auth.LockoutDuration,
	}, auth.Deps{
		Store:    users,
		Sessions: sessions,
		Hasher:   hasher,
		Tokens:   tokens,
		Notifier: notifier,
		Locker:   locker,
		Clock:    clock,
		Logger:   sugar.Named("auth"),
	})
	if err != nil {
		sugar.Fatalf("auth service: %v", err)
	}

	cookies := auth.NewCookieManager(auth.CookieConfig{
		AccessName:   cfg.Cookie.AccessName,
		RefreshName:  cfg.Cookie.RefreshName,
		LoggedInName: cfg.Cookie.LoggedInName,
		Path:         cfg.Cookie.Path,
		Secure:       cfg.Cookie.Secure,
		HTTPOnly:     cfg.Cookie.HTTPOnly,
		SameSite:     cfg.Cookie.SameSite,
		AccessTTL:    cfg.JWT.AccessTTL,
		RefreshTTL:   cfg.JWT.RefreshTTL,
	})

	handler := router.RegisterRoutes(sugar, cfg.Server.APIV1Prefix,
		auth.NewHandler(authSvc, cookies, sugar.Named("http")),
		user.NewHandler(user.NewService(users, tokens, authSvc), cookies, sugar.Named("http")),
	)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go pruneSessions(ctx, sessions, sugar)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}

func newSender(cfg config.MailConfig, logger *zap.SugaredLogger) notify.Sender {
	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set; emails are only logged")
		return notify.NewLogSender(logger.Named("mail"))
	}
	s, err := notify.NewResendSender(cfg.ResendAPIKey, cfg.From, cfg.FromName, logger.Named("mail"))
	if err != nil {
		logger.Fatalf("mail sender: %v", err)
	}
	return s
}

// newLocker uses Redis when REDIS_URL is set so replicas share account locks.
func newLocker(ctx context.Context, cfg config.RedisConfig, logger *zap.SugaredLogger) (auth.AccountLocker, func()) {
	if cfg.URL == "" {
		logger.Info("REDIS_URL not set; using in-process account locks")
		return auth.NewLocalLocker(), func() {}
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Fatalf("parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatalf("redis ping: %v", err)
	}
	return auth.NewRedisLocker(client, cfg.LockTTL, 0), func() { _ = client.Close() }
}

func pruneSessions(ctx context.Context, sessions *sessionrepo.RefreshRepo, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Warnw("prune refresh sessions failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Infow("pruned expired refresh sessions", "count", n)
			}
		}
	}
}
