package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/whisperbox/webapp/internal/auth"
	"github.com/whisperbox/webapp/internal/services"
	"github.com/whisperbox/webapp/internal/view"
)

const formFieldPass = "pass"

// AuthHandler provides the admin login and logout endpoints.
type AuthHandler struct {
	adminService *services.AdminService
	sessions     *auth.SessionManager
	pages        pageWriter
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(adminService *services.AdminService, sessions *auth.SessionManager, renderer *view.Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		adminService: adminService,
		sessions:     sessions,
		pages:        pageWriter{renderer: renderer, logger: logger},
	}
}

// Login checks the submitted secret and starts an admin session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.adminService.Authenticate(r.FormValue(formFieldPass)) {
		h.pages.logger.InfoContext(r.Context(), "admin login rejected", "remote_addr", r.RemoteAddr)
		redirect(w, r, "/admin?error=wrongpass")
		return
	}

	if _, err := h.sessions.CreateAdmin(w, r); err != nil {
		h.pages.internalError(w, r, err)
		return
	}
	redirect(w, r, "/admin")
}

// Logout destroys the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	redirect(w, r, "/admin")
}

// AdminChecker reports whether a request belongs to an authenticated admin.
type AdminChecker interface {
	IsAdmin(r *http.Request) bool
}

// RequireAdmin rejects requests without an admin session with the
// access-denied page. The wrapped handler never runs for them.
func RequireAdmin(checker AdminChecker, renderer *view.Renderer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker.IsAdmin(r) {
				next.ServeHTTP(w, r)
				return
			}

			out, err := renderer.Render(r.Context(), view.PageAccessDenied, nil)
			if err != nil {
				logger.ErrorContext(r.Context(), "render access denied failed", "error", err)
				http.Error(w, "access denied", http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, out)
		})
	}
}
