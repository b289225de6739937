package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/whisperbox/webapp/internal/services"
	"github.com/whisperbox/webapp/internal/store"
	"github.com/whisperbox/webapp/internal/view"
	"github.com/whisperbox/webapp/types"
)

const (
	formFieldUsername = "username"
	formFieldMessage  = "message"
	formFieldReaction = "reaction"
	shareTextPrefix   = "Hey! Send me an anonymous message: "
	invalidHandleText = "Handles are 3 to 20 characters: letters, digits, _ or -."
)

// PublicHandler serves handle owners and anonymous senders.
type PublicHandler struct {
	userService *services.UserService
	pages       pageWriter
	trustProxy  bool
}

// NewPublicHandler constructs a handler with the provided dependencies.
// trustProxy lets X-Forwarded-Proto choose the scheme of share links.
func NewPublicHandler(userService *services.UserService, renderer *view.Renderer, logger *slog.Logger, trustProxy bool) *PublicHandler {
	return &PublicHandler{
		userService: userService,
		pages:       pageWriter{renderer: renderer, logger: logger},
		trustProxy:  trustProxy,
	}
}

// PublicRouter registers the public routes on the given router.
func PublicRouter(r chi.Router, userService *services.UserService, renderer *view.Renderer, logger *slog.Logger, trustProxy bool) {
	handler := NewPublicHandler(userService, renderer, logger, trustProxy)

	r.Get("/", handler.Home)
	r.Post("/create-user", handler.CreateUser)
	r.Get("/dashboard/{username}", handler.Dashboard)
	r.Get("/messages/{username}", handler.Inbox)
	r.Get("/messages/{username}/list", handler.InboxList)
	r.Get("/u/{username}", handler.SendForm)
	r.Post("/send/{username}", handler.Send)
	r.Route("/message/{username}/{messageID}", func(r chi.Router) {
		r.Get("/", handler.Message)
		r.Post("/reaction", handler.React)
	})
}

func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	page := view.IndexPage{}
	if r.URL.Query().Get("error") == "invalid" {
		page.Error = invalidHandleText
	}
	h.pages.render(w, r, http.StatusOK, view.PageIndex, page)
}

func (h *PublicHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Create(r.Context(), r.FormValue(formFieldUsername))
	if err != nil {
		if errors.Is(err, services.ErrInvalidUsername) {
			redirect(w, r, "/?error=invalid")
			return
		}
		h.pages.internalError(w, r, err)
		return
	}
	redirect(w, r, "/dashboard/"+url.PathEscape(user.Username))
}

func (h *PublicHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Open(r.Context(), pathParam(r, "username"))
	if err != nil {
		h.pages.internalError(w, r, err)
		return
	}

	link := requestScheme(r, h.trustProxy) + "://" + r.Host + "/u/" + url.PathEscape(user.Username)
	h.pages.render(w, r, http.StatusOK, view.PageDashboard, view.DashboardPage{
		Username:     user.Username,
		UsernamePath: url.PathEscape(user.Username),
		Initial:      initial(user.Username),
		MessageCount: user.MessageCount(),
		UserLink:     link,
		ShareMessage: url.QueryEscape(shareTextPrefix + link),
	})
}

func (h *PublicHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), pathParam(r, "username"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirect(w, r, "/")
			return
		}
		h.pages.internalError(w, r, err)
		return
	}

	h.pages.render(w, r, http.StatusOK, view.PageInbox, view.InboxPage{
		Username:     user.Username,
		UsernamePath: url.PathEscape(user.Username),
		MessageCount: user.MessageCount(),
	})
}

// InboxList returns the inbox as JSON for the inbox page. Unknown handles
// yield an empty list.
func (h *PublicHandler) InboxList(w http.ResponseWriter, r *http.Request) {
	resp := InboxListResponse{Messages: []MessageResponse{}}

	user, err := h.userService.Get(r.Context(), pathParam(r, "username"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	for _, msg := range user.Messages {
		resp.Messages = append(resp.Messages, newMessageResponse(msg))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PublicHandler) SendForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Open(r.Context(), pathParam(r, "username"))
	if err != nil {
		h.pages.internalError(w, r, err)
		return
	}

	h.pages.render(w, r, http.StatusOK, view.PageSend, view.SendPage{
		Username:     user.Username,
		UsernamePath: url.PathEscape(user.Username),
		Initial:      initial(user.Username),
		MessageCount: user.MessageCount(),
	})
}

// Send accepts a message. Empty or over-long messages are dropped without
// telling the sender; the confirmation page is shown either way.
func (h *PublicHandler) Send(w http.ResponseWriter, r *http.Request) {
	username := services.NormalizeUsername(pathParam(r, "username"))

	_, err := h.userService.Send(r.Context(), username, r.FormValue(formFieldMessage))
	if err != nil && !errors.Is(err, services.ErrInvalidMessage) {
		h.pages.internalError(w, r, err)
		return
	}

	h.pages.render(w, r, http.StatusOK, view.PageSent, view.SentPage{
		Username:     username,
		UsernamePath: url.PathEscape(username),
	})
}

func (h *PublicHandler) Message(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := services.NormalizeUsername(pathParam(r, "username"))
	inbox := "/messages/" + url.PathEscape(username)

	if _, err := h.userService.Get(ctx, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirect(w, r, "/")
			return
		}
		h.pages.internalError(w, r, err)
		return
	}

	id, ok := parseMessageID(r)
	if !ok {
		redirect(w, r, inbox)
		return
	}

	msg, total, err := h.userService.Message(ctx, username, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirect(w, r, inbox)
			return
		}
		h.pages.internalError(w, r, err)
		return
	}

	h.pages.render(w, r, http.StatusOK, view.PageMessage, view.MessagePage{
		Username:      username,
		UsernamePath:  url.PathEscape(username),
		MessageID:     msg.ID,
		Text:          msg.Text,
		ReceivedAt:    msg.ReceivedAt,
		Reaction:      msg.Reaction,
		TotalMessages: total,
	})
}

// React records a reaction. The acknowledgment does not reveal whether the
// message exists.
func (h *PublicHandler) React(w http.ResponseWriter, r *http.Request) {
	if id, ok := parseMessageID(r); ok {
		username := pathParam(r, "username")
		if _, err := h.userService.React(r.Context(), username, id, reactionFromRequest(r)); err != nil {
			h.pages.logger.WarnContext(r.Context(), "record reaction failed", "username", username, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, ReactionResponse{Success: true})
}

// reactionFromRequest accepts JSON and form-encoded bodies.
func reactionFromRequest(r *http.Request) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req ReactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return ""
		}
		return req.Reaction
	}
	return r.FormValue(formFieldReaction)
}

type ReactionRequest struct {
	Reaction string `json:"reaction"`
}

type ReactionResponse struct {
	Success bool `json:"success"`
}

type MessageResponse struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Reaction  string `json:"reaction,omitempty"`
	ReadAt    string `json:"readAt,omitempty"`
}

type InboxListResponse struct {
	Messages []MessageResponse `json:"messages"`
}

func newMessageResponse(msg types.Message) MessageResponse {
	resp := MessageResponse{
		ID:        msg.ID,
		Text:      msg.Text,
		Timestamp: msg.ReceivedAt.Format(types.DisplayTimeLayout),
		Reaction:  msg.Reaction,
	}
	if msg.ReadAt != nil {
		resp.ReadAt = msg.ReadAt.Format(types.DisplayTimeLayout)
	}
	return resp
}
