package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whisperbox/webapp/internal/auth"
	"github.com/whisperbox/webapp/internal/services"
	"github.com/whisperbox/webapp/internal/store"
	"github.com/whisperbox/webapp/internal/view"
	"github.com/whisperbox/webapp/web"
)

const testAdminSecret = "admin123"

type plainVerifier string

func (v plainVerifier) Verify(secret string) bool {
	return secret != "" && secret == string(v)
}

type testApp struct {
	router   *chi.Mux
	repo     *store.UserRepository
	sessions *auth.SessionManager
	logs     *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithProxy(t, false)
}

func newTestAppWithProxy(t *testing.T, trustProxy bool) *testApp {
	t.Helper()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	repo := store.NewUserRepository()
	renderer := view.NewRenderer(view.NewFSSource(web.Templates()))
	sessions := auth.NewSessionManager("test-secret", time.Hour, false)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	PublicRouter(router, services.NewUserService(repo, nil, logger), renderer, logger, trustProxy)
	AdminRouter(router, services.NewAdminService(repo, plainVerifier(testAdminSecret)), sessions, renderer, logger)

	return &testApp{router: router, repo: repo, sessions: sessions, logs: &logs}
}

func (a *testApp) do(method, target string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(http.MethodGet, target, nil, "", cookies...)
}

func (a *testApp) postForm(target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", cookies...)
}

func (a *testApp) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := a.postForm("/admin-login", url.Values{"pass": {testAdminSecret}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func (a *testApp) messageCount(t *testing.T, username string) int {
	t.Helper()
	user, err := a.repo.GetUser(context.Background(), username)
	require.NoError(t, err)
	return user.MessageCount()
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHome(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), invalidHandleText)

	rec = app.get("/?error=invalid")
	assert.Contains(t, rec.Body.String(), invalidHandleText)
}

func TestCreateUser(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/create-user", url.Values{"username": {"  Alice "}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/alice", rec.Header().Get("Location"))
	assert.Equal(t, 0, app.messageCount(t, "alice"))

	for _, bad := range []string{"", "ab", "no spaces", strings.Repeat("x", 21)} {
		rec = app.postForm("/create-user", url.Values{"username": {bad}})
		assert.Equal(t, http.StatusFound, rec.Code, bad)
		assert.Equal(t, "/?error=invalid", rec.Header().Get("Location"), bad)
	}

	users, err := app.repo.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestDashboard(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/dashboard/Bob")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "@bob")
	assert.Contains(t, body, `value="http://example.com/u/bob"`)
	assert.Contains(t, body, `<div class="avatar">B</div>`)
	assert.Contains(t, body, "https://wa.me/?text="+url.QueryEscape(shareTextPrefix+"http://example.com/u/bob"))
	assert.Equal(t, 0, app.messageCount(t, "bob"))
}

func TestDashboard_ForwardedProto(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		want       string
	}{
		{name: "ignored without trusted proxy", trustProxy: false, want: `value="http://example.com/u/bob"`},
		{name: "honored behind trusted proxy", trustProxy: true, want: `value="https://example.com/u/bob"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestAppWithProxy(t, tt.trustProxy)
			req := httptest.NewRequest(http.MethodGet, "/dashboard/bob", nil)
			req.Header.Set("X-Forwarded-Proto", "https")
			rec := httptest.NewRecorder()

			app.router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestSendForm_CreatesUser(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/u/carol")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/send/carol"`)
	assert.Contains(t, rec.Body.String(), "(0 received)")
	assert.Equal(t, 0, app.messageCount(t, "carol"))
}

func TestInbox_UnknownUserRedirects(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/messages/nobody")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	_, err := app.repo.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSend(t *testing.T) {
	app := newTestApp(t)
	app.get("/u/alice")

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: "   \n\t", want: 0},
		{name: "too long", text: strings.Repeat("a", services.MaxMessageLength+1), want: 0},
		{name: "valid", text: "  hi there  ", want: 1},
		{name: "exactly max runes", text: strings.Repeat("é", services.MaxMessageLength), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.postForm("/send/alice", url.Values{"message": {tt.text}})

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "Sent!")
			assert.Contains(t, rec.Body.String(), "@alice")
			assert.Equal(t, tt.want, app.messageCount(t, "alice"))
		})
	}

	msg, _, err := app.repo.GetMessage(context.Background(), "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, "hi there", msg.Text)
}

func TestInboxAndList(t *testing.T) {
	app := newTestApp(t)
	app.postForm("/send/alice", url.Values{"message": {"first"}})
	app.postForm("/send/alice", url.Values{"message": {"<script>x</script>"}})

	rec := app.get("/messages/Alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-list="/messages/alice/list"`)
	assert.Contains(t, rec.Body.String(), `<span id="count">2</span>`)

	rec = app.get("/messages/alice/list")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp InboxListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, int64(1), resp.Messages[0].ID)
	assert.Equal(t, "first", resp.Messages[0].Text)
	assert.Equal(t, "<script>x</script>", resp.Messages[1].Text)
	assert.NotEmpty(t, resp.Messages[1].Timestamp)

	rec = app.get("/messages/ghost/list")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestMessageDetail(t *testing.T) {
	app := newTestApp(t)
	app.postForm("/send/alice", url.Values{"message": {`<b>"hi"</b> & 'bye'`}})

	rec := app.get("/message/alice/1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "&lt;b&gt;&quot;hi&quot;&lt;/b&gt; &amp; &#039;bye&#039;")
	assert.NotContains(t, body, "<b>")
	assert.Contains(t, body, "Message 1 of 1")

	tests := []struct {
		target   string
		location string
	}{
		{target: "/message/ghost/1", location: "/"},
		{target: "/message/alice/2", location: "/messages/alice"},
		{target: "/message/alice/0", location: "/messages/alice"},
		{target: "/message/alice/abc", location: "/messages/alice"},
	}
	for _, tt := range tests {
		rec := app.get(tt.target)
		assert.Equal(t, http.StatusFound, rec.Code, tt.target)
		assert.Equal(t, tt.location, rec.Header().Get("Location"), tt.target)
	}
}

func TestReact(t *testing.T) {
	app := newTestApp(t)
	app.postForm("/send/alice", url.Values{"message": {"hello"}})

	rec := app.do(http.MethodPost, "/message/alice/1/reaction", strings.NewReader(`{"reaction":"love"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	msg, _, err := app.repo.GetMessage(context.Background(), "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, "love", msg.Reaction)

	rec = app.postForm("/message/alice/1/reaction", url.Values{"reaction": {"wow"}})
	require.Equal(t, http.StatusOK, rec.Code)
	msg, _, err = app.repo.GetMessage(context.Background(), "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, "wow", msg.Reaction)

	for _, target := range []string{"/message/alice/99/reaction", "/message/ghost/1/reaction", "/message/alice/x/reaction"} {
		rec = app.do(http.MethodPost, target, strings.NewReader(`{"reaction":"sad"}`), "application/json")
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String(), target)
	}

	_, err = app.repo.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdminLogin(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/admin-login"`)
	assert.NotContains(t, rec.Body.String(), wrongPassText)

	rec = app.postForm("/admin-login", url.Values{"pass": {"nope"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin?error=wrongpass", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 0, app.sessions.Len())

	rec = app.get("/admin?error=wrongpass")
	assert.Contains(t, rec.Body.String(), wrongPassText)

	cookies := app.login(t)
	assert.Equal(t, 1, app.sessions.Len())

	rec = app.get("/admin", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin dashboard")
	assert.Contains(t, rec.Body.String(), noUsersText)

	rec = app.get("/admin-logout", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	assert.Equal(t, 0, app.sessions.Len())

	rec = app.get("/admin", cookies...)
	assert.Contains(t, rec.Body.String(), `action="/admin-login"`)
}

func TestRequireAdmin_DeniesWithoutSideEffects(t *testing.T) {
	app := newTestApp(t)
	app.postForm("/send/alice", url.Values{"message": {"keep me"}})

	for _, target := range []string{"/admin-user/alice", "/delete-message/alice/1", "/delete-user/alice"} {
		rec := app.get(target)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Access denied", target)
	}

	forged := &http.Cookie{Name: auth.CookieName, Value: "not-a-token"}
	rec := app.get("/delete-user/alice", forged)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, 1, app.messageCount(t, "alice"))
}

func TestAdminViews(t *testing.T) {
	app := newTestApp(t)
	app.postForm("/send/alice", url.Values{"message": {"<i>hi</i>"}})
	app.get("/u/bob")
	cookies := app.login(t)

	rec := app.get("/admin", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<b>2</b>users")
	assert.Contains(t, body, "<b>1</b>messages")
	assert.Contains(t, body, `href="/admin-user/alice"`)
	assert.Contains(t, body, `href="/delete-user/bob"`)

	rec = app.get("/admin-user/alice", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "&lt;i&gt;hi&lt;/i&gt;")
	assert.Contains(t, rec.Body.String(), `href="/delete-message/alice/1"`)

	rec = app.get("/admin-user/bob", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), noMessagesText)

	rec = app.get("/admin-user/ghost", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestAdminDeletes(t *testing.T) {
	app := newTestApp(t)
	app.postForm("/send/alice", url.Values{"message": {"one"}})
	app.postForm("/send/alice", url.Values{"message": {"two"}})
	cookies := app.login(t)

	rec := app.get("/delete-message/alice/1", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin-user/alice", rec.Header().Get("Location"))
	assert.Equal(t, 1, app.messageCount(t, "alice"))
	assert.Contains(t, app.logs.String(), "admin deleted message")

	for _, target := range []string{"/delete-message/alice/1", "/delete-message/alice/abc", "/delete-message/ghost/1"} {
		rec = app.get(target, cookies...)
		assert.Equal(t, http.StatusFound, rec.Code, target)
	}
	assert.Equal(t, 1, app.messageCount(t, "alice"))

	app.postForm("/send/alice", url.Values{"message": {"three"}})
	msg, _, err := app.repo.GetMessage(context.Background(), "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, "three", msg.Text)

	rec = app.get("/delete-user/alice", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	_, err = app.repo.GetUser(context.Background(), "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = app.get("/delete-user/alice", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestAdmin_PercentHandleRoundTrip(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/u/x%252541")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, app.messageCount(t, "x%2541"))

	app.postForm("/send/x%252541", url.Values{"message": {"hello"}})
	assert.Equal(t, 1, app.messageCount(t, "x%2541"))

	cookies := app.login(t)
	rec = app.get("/admin", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/admin-user/x%252541"`)

	rec = app.get("/admin-user/x%252541", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "@x%2541")
	assert.Contains(t, rec.Body.String(), `href="/delete-message/x%252541/1"`)

	rec = app.get("/delete-message/x%252541/1", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin-user/x%252541", rec.Header().Get("Location"))
	assert.Equal(t, 0, app.messageCount(t, "x%2541"))

	rec = app.get("/delete-user/x%252541", cookies...)
	assert.Equal(t, http.StatusFound, rec.Code)
	_, err := app.repo.GetUser(context.Background(), "x%2541")
	assert.ErrorIs(t, err, store.ErrNotFound)

	users, err := app.repo.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestPathParam_EscapedSlash(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/u/a%2Fbc")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, app.messageCount(t, "a/bc"))
}
