package auth

import "fmt"

// Kind is the stable machine-readable category of a domain error.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindAlreadyActive          Kind = "already_active"
	KindDuplicateAccount       Kind = "duplicate_account"
	KindInvalidCredentials     Kind = "invalid_credentials"
	KindInvalidOTP             Kind = "invalid_otp"
	KindOTPExpired             Kind = "otp_expired"
	KindAccountTemporaryLocked Kind = "account_temporarily_locked"
	KindAccountLocked          Kind = "account_locked"
	KindAccountNotActivated    Kind = "account_not_activated"
	KindAccountInactive        Kind = "account_inactive"
	KindExpiredToken           Kind = "expired_token"
	KindInvalidToken           Kind = "invalid_token"
	KindNotificationFailure    Kind = "notification_failure"
)

// Error is a domain error safe to surface to the caller.
type Error struct {
	Kind    Kind
	Message string
	Action  string
	// RemainingMinutes is set for KindAccountTemporaryLocked.
	RemainingMinutes int
	Err              error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) withMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

func (e *Error) wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrAlreadyActive       = &Error{Kind: KindAlreadyActive, Message: "user already activated"}
	ErrDuplicateAccount    = &Error{Kind: KindDuplicateAccount, Message: "user already exists", Action: "Please sign in or use a different email and ID number"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrInvalidOTP          = &Error{Kind: KindInvalidOTP, Message: "invalid OTP", Action: "Please check your OTP and try again"}
	ErrOTPExpired          = &Error{Kind: KindOTPExpired, Message: "OTP has expired", Action: "Please request a new OTP"}
	ErrAccountTempLocked   = &Error{Kind: KindAccountTemporaryLocked, Message: "your account is temporarily locked"}
	ErrAccountLocked       = &Error{Kind: KindAccountLocked, Message: "your account is locked", Action: "Please contact support"}
	ErrAccountNotActivated = &Error{Kind: KindAccountNotActivated, Message: "your account is not activated", Action: "Please activate your account first"}
	ErrAccountInactive     = &Error{Kind: KindAccountInactive, Message: "your account is inactive", Action: "Please activate your account"}
	ErrExpiredToken        = &Error{Kind: KindExpiredToken, Message: "token expired"}
	ErrInvalidToken        = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrNotificationFailure = &Error{Kind: KindNotificationFailure, Message: "failed to send notification", Action: "Please try again later"}
)

func temporarilyLocked(remaining int) *Error {
	e := *ErrAccountTempLocked
	e.RemainingMinutes = remaining
	e.Action = fmt.Sprintf("Please try again after %d minutes", remaining)
	return &e
}
