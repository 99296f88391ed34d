package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/user/entity"
)

// Handler exposes HTTP endpoints for the authentication flows.
type Handler struct {
	svc      *Service
	cookies  *CookieManager
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, cookies *CookieManager, logger *zap.SugaredLogger) *Handler {
	v := validator.New()
	// report JSON names in validation messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, cookies: cookies, validate: v, logger: logger}
}

// Routes mounts the auth endpoints under prefix (e.g. /api/v1).
func (h *Handler) Routes(mux *http.ServeMux, prefix string) {
	p := strings.TrimRight(prefix, "/") + "/auth"
	mux.HandleFunc("POST "+p+"/register", h.Register)
	mux.HandleFunc("GET "+p+"/activate/{token}", h.Activate)
	mux.HandleFunc("POST "+p+"/login/request-otp", h.RequestOTP)
	mux.HandleFunc("POST "+p+"/login/verify-otp", h.VerifyOTP)
	mux.HandleFunc("POST "+p+"/refresh", h.Refresh)
	mux.HandleFunc("POST "+p+"/logout", h.Logout)
	mux.HandleFunc("POST "+p+"/password-reset/request", h.RequestPasswordReset)
	mux.HandleFunc("POST "+p+"/password-reset/confirm/{token}", h.ConfirmPasswordReset)
}

// RegisterRequest request body for signup endpoint.
type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email,max=255"`
	IDNo             string `json:"id_no" validate:"required,numeric,min=9,max=12"`
	FirstName        string `json:"first_name" validate:"required,max=30"`
	MiddleName       string `json:"middle_name" validate:"omitempty,max=30"`
	LastName         string `json:"last_name" validate:"required,max=30"`
	Password         string `json:"password" validate:"required,min=8,max=40"`
	ConfirmPassword  string `json:"confirm_password" validate:"required,eqfield=Password"`
	SecurityQuestion string `json:"security_question" validate:"required,max=100"`
	SecurityAnswer   string `json:"security_answer" validate:"required,max=30"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=40"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// UserResponse is the public projection of an account.
type UserResponse struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	Username      string               `json:"username"`
	FullName      string               `json:"full_name"`
	IsActive      bool                 `json:"is_active"`
	AccountStatus entity.AccountStatus `json:"account_status"`
}

// NewUserResponse projects u for API responses.
func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		Username:      u.Username,
		FullName:      u.FullName(),
		IsActive:      u.IsActive,
		AccountStatus: u.AccountStatus,
	}
}

type messageResponse struct {
	Message string        `json:"message"`
	Email   string        `json:"email,omitempty"`
	User    *UserResponse `json:"user,omitempty"`
}

type errorResponse struct {
	Status           string `json:"status"`
	Kind             Kind   `json:"kind,omitempty"`
	Message          string `json:"message"`
	Action           string `json:"action,omitempty"`
	LockoutRemaining *int   `json:"lockout_remaining_minutes,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), RegisterInput{
		Email:            req.Email,
		IDNo:             req.IDNo,
		FirstName:        req.FirstName,
		MiddleName:       req.MiddleName,
		LastName:         req.LastName,
		Password:         req.Password,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := NewUserResponse(u)
	h.writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Thanks for signing up. Please check your email to activate your account",
		Email:   u.Email,
		User:    &resp,
	})
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Activate(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := NewUserResponse(u)
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Account activated successfully", User: &resp})
}

// RequestOTP checks the password, then emails a login OTP.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	sent, _, err := h.svc.RequestLoginOTP(r.Context(), u)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !sent {
		h.writeError(w, ErrNotificationFailure.withMessage("failed to send login OTP"))
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "OTP sent to your email", Email: u.Email})
}

// VerifyOTP completes login and sets the session cookies.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.VerifyLoginOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.writeError(w, err)
		return
	}
	tokens, err := h.svc.CompleteLogin(r.Context(), u, req.OTP)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.cookies.SetAuthCookies(w, tokens)
	resp := NewUserResponse(u)
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful", User: &resp})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.cookies.RefreshToken(r)
	if token == "" {
		h.writeError(w, ErrInvalidToken.withMessage("refresh token missing"))
		return
	}
	tokens, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.cookies.SetAuthCookies(w, tokens)
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Access token refreshed"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context(), h.cookies.RefreshToken(r))
	h.cookies.DeleteAuthCookies(w)
	h.logger.Infow("user logged out", "remote", r.RemoteAddr)
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{
		Message: "If an account with that email exists, a password reset link has been sent",
	})
}

func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), r.PathValue("token"), req.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset successfully"})
}

// decode parses and validates the JSON body, writing the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid payload"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Status: "error", Message: formatValidationErrors(verrs)})
			return false
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: err.Error()})
		return false
	}
	return true
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		case "eqfield":
			msgs = append(msgs, fmt.Sprintf("%s does not match", field))
		case "numeric":
			msgs = append(msgs, fmt.Sprintf("%s must contain digits only", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation for %s", field, e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func statusFor(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindDuplicateAccount:
		return http.StatusConflict
	case KindNotificationFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	WriteError(w, h.logger, err)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, v)
}

// WriteError renders err as the JSON error envelope. Domain errors keep
// their kind and message; anything else is logged and reported as a 500.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	var de *Error
	if !errors.As(err, &de) {
		logger.Errorw("request failed", "err", err)
		WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Status: "error", Message: "internal server error", Action: "Please try again later",
		})
		return
	}
	resp := errorResponse{Status: "error", Kind: de.Kind, Message: de.Message, Action: de.Action}
	if de.Kind == KindAccountTemporaryLocked {
		n := de.RemainingMinutes
		resp.LockoutRemaining = &n
	}
	WriteJSON(w, statusFor(de.Kind), resp)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
