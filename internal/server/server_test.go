package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mridungeorge/portfolio/internal/auth"
	"github.com/mridungeorge/portfolio/internal/config"
	"github.com/mridungeorge/portfolio/internal/contact"
	"github.com/mridungeorge/portfolio/internal/content"
	"github.com/mridungeorge/portfolio/internal/store"
	"github.com/mridungeorge/portfolio/internal/tracking"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	os.Exit(m.Run())
}

type harness struct {
	srv     *Server
	store   store.Store
	cookies map[string]*http.Cookie
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	site, err := content.Default()
	require.NoError(t, err)

	opts := Options{
		Site:      site,
		Store:     st,
		Auth:      auth.NewService(st, auth.WithLogger(quiet)),
		Contact:   contact.NewService(contact.WithStore(st), contact.WithLogger(quiet)),
		ResumeURL: "https://example.com/resume.pdf",
		Logger:    quiet,
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)
	return &harness{srv: srv, store: st, cookies: make(map[string]*http.Cookie)}
}

// do sends a request carrying the cookies collected so far.
func (h *harness) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c
	}
	return w
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Mridun George")
	assert.Contains(t, body, `data-reveal-threshold="0.2"`)
	assert.Contains(t, body, `id="terminal"`)
	assert.Contains(t, body, `id="contact-form"`)
	assert.Contains(t, body, `href="/auth"`)
	assert.Contains(t, h.cookies, visitorCookie)
	assert.Contains(t, h.cookies, terminalCookie)
}

func TestProjectsFilter(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/projects?tag=typescript", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "API-Driven Analytics Platform")
	assert.NotContains(t, w.Body.String(), "TailorWise")

	w = h.do(http.MethodGet, "/projects?tag=all", nil)
	assert.Contains(t, w.Body.String(), "TailorWise")
	assert.Contains(t, w.Body.String(), "PyExi")

	w = h.do(http.MethodGet, "/projects?tag=cobol", nil)
	assert.Contains(t, w.Body.String(), "No projects match this filter.")
}

func TestTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w := h.do(http.MethodPost, "/terminal", url.Values{"command": {"  WhoAmI "}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mridun George - ")

	w = h.do(http.MethodPost, "/terminal", url.Values{"command": {"skills"}})
	body := w.Body.String()
	assert.Contains(t, body, "Technical Skills:")
	assert.Contains(t, body, "Mridun George - ", "history persists across requests")

	w = h.do(http.MethodPost, "/terminal", url.Values{"command": {"sudo rm"}})
	assert.Contains(t, w.Body.String(), "Command not found.")

	w = h.do(http.MethodPost, "/terminal", url.Values{"command": {"clear"}})
	assert.NotContains(t, w.Body.String(), "Technical Skills:")

	counts, err := h.store.CommandCounts(ctx, 10)
	require.NoError(t, err)
	got := make(map[string]int64)
	for _, c := range counts {
		got[c.Command] = c.Count
	}
	assert.Equal(t, map[string]int64{"whoami": 1, "skills": 1, "clear": 1}, got)

	n, err := h.store.CountInteractions(ctx, store.InteractionTerminal, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "one terminal session")
}

func TestContactSuccess(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"ada@example.com"},
		"message": {"Hello there"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Message sent!")
	assert.Equal(t, 1, strings.Count(body, "data-toast"))
	assert.Contains(t, body, `name="name" value=""`)

	subs, err := h.store.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Hello there", subs[0].Message)

	n, err := h.store.CountInteractions(context.Background(), store.InteractionContact, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestContactSimulatedRecordsInteraction(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Contact = contact.NewService(contact.WithDelay(time.Millisecond), contact.WithLogger(quiet))
	})
	w := h.do(http.MethodPost, "/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"ada@example.com"},
		"message": {"Hello there"},
	})
	require.Contains(t, w.Body.String(), "Message sent!")

	subs, err := h.store.ListContacts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs, "simulated submissions are not stored")

	n, err := h.store.CountInteractions(context.Background(), store.InteractionContact, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestContactInvalidKeepsValues(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"not-an-email"},
		"message": {"Hello"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Please check the form")
	assert.Contains(t, body, "toast-destructive")
	assert.Contains(t, body, `value="Ada"`)

	subs, err := h.store.ListContacts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestReveal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/reveal/about", nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/reveal/about", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/reveal/footer", nil).Code)

	n, err := h.store.CountInteractions(ctx, store.SectionView("about"), time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// A reload remounts every section hidden, so it can reveal once more.
	body := h.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, `id="about" class="reveal"`)
	assert.NotContains(t, body, "is-visible")

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/reveal/about", nil).Code)
	n, err = h.store.CountInteractions(ctx, store.SectionView("about"), time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestReloadResetsTerminal(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/", nil)

	w := h.do(http.MethodPost, "/terminal", url.Values{"command": {"help"}})
	require.Contains(t, w.Body.String(), "Available commands:")

	body := h.do(http.MethodGet, "/", nil).Body.String()
	assert.NotContains(t, body, "Available commands:")
	assert.Contains(t, body, "mridun_george - DevOps Engineer")
	assert.Equal(t, 1, strings.Count(body, `class="prompt"`), "only the greeting remains")

	w = h.do(http.MethodPost, "/terminal", url.Values{"command": {"skills"}})
	assert.NotContains(t, w.Body.String(), "Available commands:")

	n, err := h.store.CountInteractions(context.Background(), store.InteractionTerminal, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "one terminal session per page load")
}

func TestResumeRedirect(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/resume", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/resume.pdf", w.Header().Get("Location"))

	n, err := h.store.CountInteractions(context.Background(), store.InteractionResume, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestResumeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Mridun_George_Resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	h := newHarness(t, func(o *Options) { o.ResumePath = path })

	w := h.do(http.MethodGet, "/resume", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Mridun_George_Resume.pdf")
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}

func TestResumeDefaultConfig(t *testing.T) {
	cfg := config.Default()
	h := newHarness(t, func(o *Options) {
		o.ResumePath = cfg.Resume.Path
		o.ResumeURL = cfg.Resume.URL
	})

	w := h.do(http.MethodGet, "/resume", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Resume not available", w.Body.String())

	n, err := h.store.CountInteractions(context.Background(), store.InteractionResume, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "no download happened")
}

func TestResumeMissing(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.ResumeURL = "" })
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/resume", nil).Code)
}

func TestPrivacyAndHealth(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/privacy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "12 months")

	w = h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDashboardRequiresSignIn(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/dashboard/api/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func signUp(t *testing.T, h *harness) {
	t.Helper()
	w := h.do(http.MethodPost, "/auth", url.Values{
		"mode":      {modeSignUp},
		"email":     {"owner@example.com"},
		"password":  {"hunter22"},
		"username":  {"mridun"},
		"full_name": {"Mridun George"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
	require.Contains(t, h.cookies, sessionCookie)
}

func TestSignUpAndDashboard(t *testing.T) {
	h := newHarness(t)
	signUp(t, h)

	w := h.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Mridun George")
	assert.Contains(t, body, "MR")
	assert.Contains(t, body, "Total Page Views")

	w = h.do(http.MethodGet, "/dashboard?tab=contacts", nil)
	assert.Contains(t, w.Body.String(), "No contact requests yet")

	require.NoError(t, h.store.InsertContact(context.Background(), &store.ContactSubmission{
		Name: "Grace", Email: "grace@example.com", Message: "Hi",
	}))
	w = h.do(http.MethodGet, "/dashboard?tab=contacts", nil)
	body = w.Body.String()
	assert.NotContains(t, body, "No contact requests yet")
	assert.Equal(t, 1, strings.Count(body, "mailto:grace@example.com"))

	w = h.do(http.MethodGet, "/auth", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestDashboardStatsAndExport(t *testing.T) {
	h := newHarness(t)
	signUp(t, h)

	w := h.do(http.MethodGet, "/dashboard/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got, "cards")
	assert.Contains(t, got, "page_views")
	assert.Contains(t, got, "visitors")
	assert.NotContains(t, got, "problems")

	w = h.do(http.MethodGet, "/dashboard/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=portfolio-stats.json", w.Header().Get("Content-Disposition"))
}

func TestSignInFailure(t *testing.T) {
	h := newHarness(t)
	signUp(t, h)
	h.do(http.MethodPost, "/auth/signout", nil)

	w := h.do(http.MethodPost, "/auth", url.Values{
		"email":    {"owner@example.com"},
		"password": {"wrong-password"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid login credentials")
	assert.Contains(t, w.Body.String(), `value="owner@example.com"`)
	assert.NotContains(t, h.cookies, sessionCookie)
}

func TestSignOut(t *testing.T) {
	h := newHarness(t)
	signUp(t, h)

	w := h.do(http.MethodPost, "/auth/signout", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.NotContains(t, h.cookies, sessionCookie)
	assert.Equal(t, http.StatusFound, h.do(http.MethodGet, "/dashboard", nil).Code)
}

func TestSignUpDisabled(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Auth = auth.NewService(o.Store, auth.WithSignUp(false), auth.WithLogger(quiet))
	})

	w := h.do(http.MethodGet, "/auth?mode=signup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Create Account")

	// A forced signup falls back to sign-in and fails on the unknown account.
	w = h.do(http.MethodPost, "/auth", url.Values{
		"mode":     {modeSignUp},
		"email":    {"someone@example.com"},
		"password": {"hunter22"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrackingMiddleware(t *testing.T) {
	var tr *tracking.Tracker
	h := newHarness(t, func(o *Options) {
		tr = tracking.New(o.Store, "salt", quiet)
		o.Tracker = tr
	})

	h.do(http.MethodGet, "/", nil)
	h.do(http.MethodGet, "/privacy", nil)
	tr.Wait()

	visits, err := h.store.RecentVisits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "/", visits[0].Path)
}

func TestRetentionText(t *testing.T) {
	assert.Equal(t, "12 months", retentionText(365*24*time.Hour))
	assert.Equal(t, "1 month", retentionText(31*24*time.Hour))
	assert.Equal(t, "7 days", retentionText(7*24*time.Hour))
	assert.Equal(t, "1 day", retentionText(24*time.Hour))
}

type failingInserts struct {
	store.Store
}

func (failingInserts) InsertContact(context.Context, *store.ContactSubmission) error {
	return errors.New("database is locked")
}

func TestContactStoreFailure(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Contact = contact.NewService(contact.WithStore(failingInserts{o.Store}), contact.WithLogger(quiet))
	})
	w := h.do(http.MethodPost, "/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"ada@example.com"},
		"message": {"Hello there"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Failed to send message")
	assert.Contains(t, body, "database is locked")
	assert.Contains(t, body, "Hello there</textarea>")
}
