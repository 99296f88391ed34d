package notify

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

type template struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func newTemplate(name, subject, html, text string) template {
	return template{
		subject: subject,
		html:    htmltemplate.Must(htmltemplate.New(name).Parse(layoutHTML(html))),
		text:    texttemplate.Must(texttemplate.New(name).Parse(text)),
	}
}

func (t template) render(to string, data any) (Message, error) {
	var h, p strings.Builder
	if err := t.html.Execute(&h, data); err != nil {
		return Message{}, err
	}
	if err := t.text.Execute(&p, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: t.subject, HTML: h.String(), Text: p.String()}, nil
}

func layoutHTML(body string) string {
	return `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 40px 0;">
<table role="presentation" align="center" style="width: 600px; background-color: #ffffff; border-radius: 8px;">
<tr><td style="padding: 30px; text-align: center; background-color: #1E3A8A; color: #ffffff; border-radius: 8px 8px 0 0;"><h1 style="margin: 0;">{{.SiteName}}</h1></td></tr>
<tr><td style="padding: 30px; font-size: 16px; line-height: 24px; color: #333333;">` + body + `</td></tr>
<tr><td style="padding: 20px 30px; font-size: 12px; color: #888888;">Questions? Contact {{.SupportEmail}}</td></tr>
</table>
</body>
</html>`
}

var (
	activationTemplate = newTemplate("activation", "Activate your account",
		`<p>Thank you for registering with {{.SiteName}}.</p>
<p>Please activate your account by clicking the link below. The link expires in {{.ExpiryMinutes}} minutes.</p>
<p><a href="{{.Link}}" style="display: inline-block; padding: 12px 32px; background-color: #1E3A8A; color: #ffffff; text-decoration: none; border-radius: 6px;">Activate account</a></p>`,
		`Thank you for registering with {{.SiteName}}.

Activate your account within {{.ExpiryMinutes}} minutes:
{{.Link}}

Questions? Contact {{.SupportEmail}}
`)

	otpTemplate = newTemplate("login_otp", "Your login OTP",
		`<p>Your one-time login code is:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.OTP}}</p>
<p>The code expires in {{.ExpiryMinutes}} minutes. If you did not try to sign in, change your password.</p>`,
		`Your {{.SiteName}} login code is {{.OTP}}.
It expires in {{.ExpiryMinutes}} minutes. If you did not try to sign in, change your password.

Questions? Contact {{.SupportEmail}}
`)

	lockoutTemplate = newTemplate("account_lockout", "Account locked",
		`<p>Your account was locked at {{.LockedAt}} after too many failed login attempts.</p>
<p>You can try again after {{.UnlockAt}} ({{.LockoutMinutes}} minutes).</p>
<p>If this was not you, contact support immediately.</p>`,
		`Your {{.SiteName}} account was locked at {{.LockedAt}} after too many failed login attempts.
You can try again after {{.UnlockAt}} ({{.LockoutMinutes}} minutes).
If this was not you, contact {{.SupportEmail}} immediately.
`)

	passwordResetTemplate = newTemplate("password_reset", "Reset your password",
		`<p>We received a request to reset your password.</p>
{{if .Link}}<p>Use the link below within {{.ExpiryMinutes}} minutes. If you did not ask for this, ignore this email.</p>
<p><a href="{{.Link}}" style="display: inline-block; padding: 12px 32px; background-color: #1E3A8A; color: #ffffff; text-decoration: none; border-radius: 6px;">Reset password</a></p>{{else}}<p>Enter this reset code within {{.ExpiryMinutes}} minutes. If you did not ask for this, ignore this email.</p>
<p style="font-family: monospace; word-break: break-all;">{{.Token}}</p>{{end}}`,
		`We received a request to reset your {{.SiteName}} password.
{{if .Link}}
Use this link within {{.ExpiryMinutes}} minutes:
{{.Link}}
{{else}}
Enter this reset code within {{.ExpiryMinutes}} minutes:
{{.Token}}
{{end}}
If you did not ask for this, ignore this email.
`)
)
