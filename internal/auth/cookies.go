package auth

import (
	"net/http"
	"time"
)

// CookieConfig fixes the cookie names and attributes for a deployment.
type CookieConfig struct {
	AccessName   string
	RefreshName  string
	LoggedInName string
	Path         string
	Secure       bool
	HTTPOnly     bool
	SameSite     http.SameSite
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// CookieManager writes session tokens as cookies.
type CookieManager struct {
	cfg CookieConfig
}

func NewCookieManager(cfg CookieConfig) *CookieManager {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.AccessName == "" {
		cfg.AccessName = "access_token"
	}
	if cfg.RefreshName == "" {
		cfg.RefreshName = "refresh_token"
	}
	if cfg.LoggedInName == "" {
		cfg.LoggedInName = "logged_in"
	}
	return &CookieManager{cfg: cfg}
}

// SetAuthCookies sets the access cookie, the refresh cookie when one was
// issued, and the logged-in marker. The marker is readable by scripts.
func (m *CookieManager) SetAuthCookies(w http.ResponseWriter, t *SessionTokens) {
	accessAge := int(m.cfg.AccessTTL / time.Second)
	http.SetCookie(w, m.cookie(m.cfg.AccessName, t.AccessToken, accessAge, m.cfg.HTTPOnly))
	if t.RefreshToken != "" {
		http.SetCookie(w, m.cookie(m.cfg.RefreshName, t.RefreshToken, int(m.cfg.RefreshTTL/time.Second), m.cfg.HTTPOnly))
	}
	http.SetCookie(w, m.cookie(m.cfg.LoggedInName, "true", accessAge, false))
}

// DeleteAuthCookies expires all three cookies, set or not.
func (m *CookieManager) DeleteAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{m.cfg.AccessName, m.cfg.RefreshName, m.cfg.LoggedInName} {
		c := m.cookie(name, "", -1, name != m.cfg.LoggedInName && m.cfg.HTTPOnly)
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// AccessToken reads the access cookie from r.
func (m *CookieManager) AccessToken(r *http.Request) string {
	c, err := r.Cookie(m.cfg.AccessName)
	if err != nil {
		return ""
	}
	return c.Value
}

// RefreshToken reads the refresh cookie from r.
func (m *CookieManager) RefreshToken(r *http.Request) string {
	c, err := r.Cookie(m.cfg.RefreshName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (m *CookieManager) cookie(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.cfg.Path,
		MaxAge:   maxAge,
		Secure:   m.cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: m.cfg.SameSite,
	}
}
