// Package server is the HTTP surface of the portfolio: the public site,
// account pages and the analytics dashboard.
package server

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mridungeorge/portfolio/internal/auth"
	"github.com/mridungeorge/portfolio/internal/contact"
	"github.com/mridungeorge/portfolio/internal/content"
	"github.com/mridungeorge/portfolio/internal/dashboard"
	"github.com/mridungeorge/portfolio/internal/reveal"
	"github.com/mridungeorge/portfolio/internal/store"
	"github.com/mridungeorge/portfolio/internal/terminal"
	"github.com/mridungeorge/portfolio/internal/tracking"
	"github.com/mridungeorge/portfolio/web"
)

const (
	sessionCookie  = "portfolio_session"
	visitorCookie  = "portfolio_visitor"
	terminalCookie = "portfolio_terminal"

	visitorTTL     = 30 * time.Minute
	sweepInterval  = time.Minute
	visitorMaxAge  = 60 * 60 * 24 * 30
	terminalMaxAge = 0
)

// Options wires the server to its collaborators. Site, Store, Auth and
// Contact are required; a nil Tracker disables page-view tracking.
type Options struct {
	Site          *content.Site
	Store         store.Store
	Auth          *auth.Service
	Contact       *contact.Service
	Tracker       *tracking.Tracker
	ResumePath    string
	ResumeURL     string
	Retention     time.Duration
	TerminalTTL   time.Duration
	SecureCookies bool
	Logger        *slog.Logger
}

type Server struct {
	opts      Options
	engine    *gin.Engine
	terminal  *terminal.Sessions
	reveal    *reveal.Tracker
	dashboard *dashboard.Loader
	logger    *slog.Logger
	now       func() time.Time
}

func New(opts Options) (*Server, error) {
	if opts.Site == nil || opts.Store == nil || opts.Auth == nil || opts.Contact == nil {
		return nil, errors.New("server requires site content, a store, auth and contact services")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TerminalTTL <= 0 {
		opts.TerminalTTL = visitorTTL
	}
	if opts.Retention <= 0 {
		opts.Retention = tracking.DefaultRetention
	}

	s := &Server{
		opts:      opts,
		terminal:  terminal.NewSessions(terminal.NewCommands(opts.Site), opts.TerminalTTL, terminal.GreetingEntry(opts.Site)),
		reveal:    reveal.NewTracker(visitorTTL),
		dashboard: dashboard.NewLoader(opts.Store),
		logger:    opts.Logger,
		now:       time.Now,
	}

	tmpl, err := web.Templates(s.funcs())
	if err != nil {
		return nil, err
	}

	r := gin.Default()
	r.SetHTMLTemplate(tmpl)
	if opts.Tracker != nil {
		r.Use(opts.Tracker.Middleware())
	}
	s.routes(r)
	s.engine = r
	return s, nil
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"threshold": reveal.Threshold,
		"title": func(str string) string {
			return cases.Title(language.English).String(str)
		},
		"barHeight": func(v, top int64) int64 {
			if top <= 0 {
				return 0
			}
			return v * 100 / top
		},
	}
}

func (s *Server) routes(r *gin.Engine) {
	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/", s.index)
	r.GET("/projects", s.projects)
	r.POST("/terminal", s.runCommand)
	r.POST("/contact", s.submitContact)
	r.POST("/reveal/:section", s.revealSection)
	r.GET("/resume", s.resume)
	r.GET("/privacy", s.privacy)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/auth", s.authPage)
	r.POST("/auth", s.authSubmit)
	r.POST("/auth/signout", s.signOut)

	dash := r.Group("/dashboard")
	dash.Use(s.requireUser())
	dash.GET("", s.dashboardPage)
	dash.GET("/api/stats", s.dashboardStats)
	dash.GET("/export", s.dashboardExport)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", slog.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if s.opts.Tracker != nil {
		s.opts.Tracker.Wait()
	}
	return errors.Wrap(err, "graceful shutdown failed")
}

// sweep expires idle in-memory state and stale auth sessions.
func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			terminals := s.terminal.Sweep()
			visitors := s.reveal.Sweep()
			sessions, err := s.opts.Auth.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn("failed to purge expired sessions", slog.Any("error", err))
			}
			if terminals+visitors > 0 || sessions > 0 {
				s.logger.Debug("swept idle state",
					slog.Int("terminals", terminals),
					slog.Int("visitors", visitors),
					slog.Int64("sessions", sessions))
			}
		}
	}
}

func (s *Server) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.opts.SecureCookies, true)
}

// visitorID returns the anonymous visitor id, issuing one if needed.
func (s *Server) visitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	s.setCookie(c, visitorCookie, id, visitorMaxAge)
	return id
}

func (s *Server) record(ctx context.Context, kind string) {
	if err := s.opts.Store.RecordInteraction(ctx, kind, s.now()); err != nil {
		s.logger.Warn("failed to record interaction", slog.String("kind", kind), slog.Any("error", err))
	}
}
