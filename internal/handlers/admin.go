package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/whisperbox/webapp/internal/auth"
	"github.com/whisperbox/webapp/internal/services"
	"github.com/whisperbox/webapp/internal/store"
	"github.com/whisperbox/webapp/internal/view"
)

const (
	wrongPassText  = "Wrong password."
	noUsersText    = "No users yet"
	noMessagesText = "No messages"
)

// AdminHandler serves the administrator views.
type AdminHandler struct {
	adminService *services.AdminService
	sessions     *auth.SessionManager
	pages        pageWriter
}

// NewAdminHandler constructs an AdminHandler with the provided dependencies.
func NewAdminHandler(adminService *services.AdminService, sessions *auth.SessionManager, renderer *view.Renderer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		sessions:     sessions,
		pages:        pageWriter{renderer: renderer, logger: logger},
	}
}

// AdminRouter registers the admin and admin-auth routes on the given router.
func AdminRouter(r chi.Router, adminService *services.AdminService, sessions *auth.SessionManager, renderer *view.Renderer, logger *slog.Logger) {
	handler := NewAdminHandler(adminService, sessions, renderer, logger)
	authHandler := NewAuthHandler(adminService, sessions, renderer, logger)

	r.Get("/admin", handler.Home)
	r.Post("/admin-login", authHandler.Login)
	r.Get("/admin-logout", authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin(sessions, renderer, logger))
		r.Get("/admin-user/{username}", handler.User)
		r.Get("/delete-message/{username}/{messageID}", handler.DeleteMessage)
		r.Get("/delete-user/{username}", handler.DeleteUser)
	})
}

// Home shows the dashboard to admins and the login form to everyone else.
func (h *AdminHandler) Home(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.IsAdmin(r) {
		page := view.AdminLoginPage{}
		if r.URL.Query().Get("error") == "wrongpass" {
			page.Error = wrongPassText
		}
		h.pages.render(w, r, http.StatusOK, view.PageAdminLogin, page)
		return
	}
	h.dashboard(w, r)
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overview, err := h.adminService.Overview(ctx)
	if err != nil {
		h.pages.internalError(w, r, err)
		return
	}

	var list view.HTML
	for _, user := range overview.Users {
		row, err := h.pages.renderer.Fragment(ctx, view.FragmentAdminUserRow, view.AdminUserRow{
			Username:     user.Username,
			UsernamePath: url.PathEscape(user.Username),
			MessageCount: user.MessageCount(),
			CreatedAt:    user.CreatedAt,
		})
		if err != nil {
			h.pages.internalError(w, r, err)
			return
		}
		list += row
	}
	if len(overview.Users) == 0 {
		list, err = h.pages.renderer.Fragment(ctx, view.FragmentEmptyRow, view.EmptyRow{Text: noUsersText})
		if err != nil {
			h.pages.internalError(w, r, err)
			return
		}
	}

	h.pages.render(w, r, http.StatusOK, view.PageAdmin, view.AdminPage{
		TotalUsers:    overview.TotalUsers,
		TotalMessages: overview.TotalMessages,
		UsersList:     list,
	})
}

func (h *AdminHandler) User(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := pathParam(r, "username")

	user, err := h.adminService.User(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirect(w, r, "/admin")
			return
		}
		h.pages.internalError(w, r, err)
		return
	}

	var list view.HTML
	for _, msg := range user.Messages {
		row, err := h.pages.renderer.Fragment(ctx, view.FragmentAdminMessageRow, view.AdminMessageRow{
			UsernamePath: url.PathEscape(user.Username),
			MessageID:    msg.ID,
			Text:         msg.Text,
			ReceivedAt:   msg.ReceivedAt,
			Reaction:     msg.Reaction,
		})
		if err != nil {
			h.pages.internalError(w, r, err)
			return
		}
		list += row
	}
	if len(user.Messages) == 0 {
		list, err = h.pages.renderer.Fragment(ctx, view.FragmentEmptyRow, view.EmptyRow{Text: noMessagesText})
		if err != nil {
			h.pages.internalError(w, r, err)
			return
		}
	}

	h.pages.render(w, r, http.StatusOK, view.PageAdminUser, view.AdminUserPage{
		Username:     user.Username,
		MessageCount: user.MessageCount(),
		MessagesList: list,
	})
}

// DeleteMessage removes one message. Unknown users, ids or malformed ids
// are ignored.
func (h *AdminHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	username := pathParam(r, "username")
	if id, ok := parseMessageID(r); ok {
		if err := h.adminService.DeleteMessage(r.Context(), username, id); err != nil {
			h.pages.internalError(w, r, err)
			return
		}
		h.pages.logger.InfoContext(r.Context(), "admin deleted message", "username", username, "message_id", id)
	}
	redirect(w, r, "/admin-user/"+url.PathEscape(username))
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := pathParam(r, "username")
	if err := h.adminService.DeleteUser(r.Context(), username); err != nil {
		h.pages.internalError(w, r, err)
		return
	}
	h.pages.logger.InfoContext(r.Context(), "admin deleted user", "username", username)
	redirect(w, r, "/admin")
}
