package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config feeds links and durations into the email templates.
// PasswordResetURL is the page that collects the new password; the token is
// appended as ?token=. Without it the email carries the token as a code.
type Config struct {
	SiteName         string
	SupportEmail     string
	APIBaseURL       string
	APIV1Prefix      string
	PasswordResetURL string
	ActivationTTL    time.Duration
	OTPTTL           time.Duration
	LockoutDuration  time.Duration
	PasswordResetTTL time.Duration
}

// EmailNotifier renders account emails and hands them to a Sender.
type EmailNotifier struct {
	cfg    Config
	sender Sender
	logger *zap.SugaredLogger
}

func NewEmailNotifier(cfg Config, sender Sender, logger *zap.SugaredLogger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EmailNotifier{cfg: cfg, sender: sender, logger: logger}
}

type templateData struct {
	SiteName       string
	SupportEmail   string
	Link           string
	Token          string
	OTP            string
	ExpiryMinutes  int
	LockoutMinutes int
	LockedAt       string
	UnlockAt       string
}

func (n *EmailNotifier) data() templateData {
	return templateData{SiteName: n.cfg.SiteName, SupportEmail: n.cfg.SupportEmail}
}

// SendActivation mails the activation link for token.
func (n *EmailNotifier) SendActivation(ctx context.Context, email, token string) error {
	d := n.data()
	d.Link = n.link("/auth/activate/", token)
	d.ExpiryMinutes = minutes(n.cfg.ActivationTTL)
	return n.send(ctx, activationTemplate, email, d)
}

func (n *EmailNotifier) SendLoginOTP(ctx context.Context, email, otp string) error {
	d := n.data()
	d.OTP = otp
	d.ExpiryMinutes = minutes(n.cfg.OTPTTL)
	return n.send(ctx, otpTemplate, email, d)
}

// SendLockoutNotice tells the owner when the account was locked and when it reopens.
func (n *EmailNotifier) SendLockoutNotice(ctx context.Context, email string, at time.Time) error {
	d := n.data()
	d.LockoutMinutes = minutes(n.cfg.LockoutDuration)
	d.LockedAt = at.UTC().Format("2006-01-02 15:04 MST")
	d.UnlockAt = at.Add(n.cfg.LockoutDuration).UTC().Format("2006-01-02 15:04 MST")
	return n.send(ctx, lockoutTemplate, email, d)
}

func (n *EmailNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	d := n.data()
	d.Token = token
	if n.cfg.PasswordResetURL != "" {
		d.Link = withQuery(n.cfg.PasswordResetURL, "token", token)
	}
	d.ExpiryMinutes = minutes(n.cfg.PasswordResetTTL)
	return n.send(ctx, passwordResetTemplate, email, d)
}

func (n *EmailNotifier) send(ctx context.Context, t template, to string, d templateData) error {
	m, err := t.render(to, d)
	if err != nil {
		return fmt.Errorf("render %s: %w", t.subject, err)
	}
	if err := n.sender.Send(ctx, m); err != nil {
		return err
	}
	n.logger.Debugw("email sent", "to", to, "subject", m.Subject)
	return nil
}

func (n *EmailNotifier) link(path, token string) string {
	return strings.TrimRight(n.cfg.APIBaseURL, "/") + n.cfg.APIV1Prefix + path + url.PathEscape(token)
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + key + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}
