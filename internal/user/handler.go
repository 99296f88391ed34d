package user

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bank-auth/internal/auth"
)

// Handler exposes the signed-in user's own record.
type Handler struct {
	svc     *Service
	cookies *auth.CookieManager
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, cookies *auth.CookieManager, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, cookies: cookies, logger: logger}
}

func (h *Handler) Routes(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+strings.TrimRight(prefix, "/")+"/users/me", h.Me)
}

// Me returns the account behind the access cookie or a Bearer header.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	token := h.cookies.AccessToken(r)
	if token == "" {
		token = bearerToken(r)
	}
	u, err := h.svc.Current(r.Context(), token)
	if err != nil {
		auth.WriteError(w, h.logger, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, auth.NewUserResponse(u))
}

func bearerToken(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
