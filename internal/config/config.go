package config

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config groups every setting the service reads from the environment.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Auth     AuthConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Mail     MailConfig
}

// ServerConfig holds listener and link settings. PasswordResetURL is the
// frontend page that finishes a password reset.
type ServerConfig struct {
	Addr             string
	SiteName         string
	APIBaseURL       string
	APIV1Prefix      string
	PasswordResetURL string
}

type RedisConfig struct {
	// URL empty means the in-process account locker is used.
	URL     string
	LockTTL time.Duration
}

// AuthConfig holds OTP and lockout knobs.
type AuthConfig struct {
	OTPLength       int
	OTPTTL          time.Duration
	LoginAttempts   int
	LockoutDuration time.Duration
}

type JWTConfig struct {
	SecretKey        string
	Algorithm        string
	ActivationTTL    time.Duration
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	PasswordResetTTL time.Duration
}

type CookieConfig struct {
	Path         string
	Secure       bool
	HTTPOnly     bool
	SameSite     http.SameSite
	AccessName   string
	RefreshName  string
	LoggedInName string
}

// PasswordConfig carries argon2id cost parameters.
type PasswordConfig struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
}

type MailConfig struct {
	ResendAPIKey string
	From         string
	FromName     string
	SupportEmail string
}

// ErrMissingSecret is returned by Load when JWT_SECRET_KEY is empty.
var ErrMissingSecret = errors.New("JWT_SECRET_KEY is required")

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:             getEnv("HTTP_ADDR", "0.0.0.0:8431"),
			SiteName:         getEnv("SITE_NAME", "Next Gen Bank"),
			APIBaseURL:       strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8431"), "/"),
			APIV1Prefix:      "/" + strings.Trim(getEnv("API_V1_STR", "/api/v1"), "/"),
			PasswordResetURL: os.Getenv("PASSWORD_RESET_URL"),
		},
		Redis: RedisConfig{
			URL:     os.Getenv("REDIS_URL"),
			LockTTL: getDurationEnv("REDIS_LOCK_TTL", 15*time.Second),
		},
		Auth: AuthConfig{
			OTPLength:       getIntEnv("OTP_LENGTH", 6),
			OTPTTL:          time.Duration(getIntEnv("OTP_EXPIRATION_MINUTES", 5)) * time.Minute,
			LoginAttempts:   getIntEnv("LOGIN_ATTEMPTS", 3),
			LockoutDuration: time.Duration(getIntEnv("LOCKOUT_DURATION_MINUTES", 15)) * time.Minute,
		},
		JWT: JWTConfig{
			SecretKey:        os.Getenv("JWT_SECRET_KEY"),
			Algorithm:        strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
			ActivationTTL:    time.Duration(getIntEnv("ACTIVATION_TOKEN_EXPIRATION_MINUTES", 30)) * time.Minute,
			AccessTTL:        time.Duration(getIntEnv("JWT_ACCESS_TOKEN_EXPIRATION_MINUTES", 30)) * time.Minute,
			RefreshTTL:       time.Duration(getIntEnv("JWT_REFRESH_TOKEN_EXPIRATION_DAYS", 1)) * 24 * time.Hour,
			PasswordResetTTL: time.Duration(getIntEnv("PASSWORD_RESET_TOKEN_EXPIRATION_MINUTES", 30)) * time.Minute,
		},
		Cookie: CookieConfig{
			Path:         getEnv("COOKIE_PATH", "/"),
			Secure:       getBoolEnv("COOKIE_SECURE", true),
			HTTPOnly:     getBoolEnv("COOKIE_HTTP_ONLY", true),
			SameSite:     parseSameSite(getEnv("COOKIE_SAMESITE", "lax")),
			AccessName:   getEnv("COOKIE_ACCESS_NAME", "access_token"),
			RefreshName:  getEnv("COOKIE_REFRESH_NAME", "refresh_token"),
			LoggedInName: getEnv("COOKIE_LOGGED_IN_NAME", "logged_in"),
		},
		Password: PasswordConfig{
			MemoryKB:    uint32(getIntEnv("PASSWORD_HASH_MEMORY_KB", 64*1024)),
			Time:        uint32(getIntEnv("PASSWORD_HASH_TIME", 3)),
			Parallelism: uint8(getIntEnv("PASSWORD_HASH_PARALLELISM", 2)),
		},
		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         getEnv("MAIL_FROM", "noreply@example.com"),
			FromName:     getEnv("MAIL_FROM_NAME", "Next Gen Bank"),
			SupportEmail: getEnv("MAIL_SUPPORT", "support@example.com"),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getBoolEnv(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
