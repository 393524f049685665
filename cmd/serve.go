package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mridungeorge/portfolio/internal/auth"
	"github.com/mridungeorge/portfolio/internal/contact"
	"github.com/mridungeorge/portfolio/internal/server"
	"github.com/mridungeorge/portfolio/internal/tracking"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveSimulated bool

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `Run the portfolio web server until interrupted.

On startup the database is migrated, the admin account from ADMIN_EMAIL and
ADMIN_PASSWORD is created if missing, and visitor records older than the
retention window are removed.

Example:
  portfolio serve
  PORT=3000 portfolio serve --config portfolio.yaml
  portfolio serve --simulate-contact`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveSimulated, "simulate-contact", false, "Accept contact messages without storing them")
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	authSvc := auth.NewService(a.store,
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithSignUp(cfg.Auth.AllowSignUp),
		auth.WithLogger(a.logger))
	err = authSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return err
	}

	contactSvc := contact.NewService(a.contactOptions(serveSimulated)...)
	if contactSvc.Simulated() {
		a.logger.Warn("contact form is simulated; submissions are not stored")
	}

	var tracker *tracking.Tracker
	if cfg.Tracking.Enabled {
		tracker = tracking.New(a.store, cfg.Tracking.Salt, a.logger)
		a.logger.Info("visitor tracking enabled with hashed IP addresses")
		if removed, cerr := tracking.Cleanup(ctx, a.store, cfg.Tracking.Retention, time.Now()); cerr != nil {
			a.logger.Error("privacy cleanup failed", slog.Any("error", cerr))
		} else if removed > 0 {
			a.logger.Info("privacy cleanup removed old visitor records", slog.Int64("rows", removed))
		}
	}

	srv, err := server.New(server.Options{
		Site:          a.site,
		Store:         a.store,
		Auth:          authSvc,
		Contact:       contactSvc,
		Tracker:       tracker,
		ResumePath:    cfg.Resume.Path,
		ResumeURL:     cfg.Resume.URL,
		Retention:     cfg.Tracking.Retention,
		TerminalTTL:   cfg.TerminalTTL,
		SecureCookies: cfg.Auth.SecureCookies,
		Logger:        a.logger,
	})
	if err != nil {
		return errors.Wrap(err, "failed to build server")
	}

	return srv.Run(ctx, cfg.Addr(), cfg.ShutdownTimeout)
}

// contactOptions wires storage and the configured notifiers.
func (a *app) contactOptions(simulated bool) []contact.Option {
	cfg := a.cfg
	opts := []contact.Option{
		contact.WithDelay(cfg.ContactDelay),
		contact.WithLogger(a.logger),
	}
	if !simulated {
		opts = append(opts, contact.WithStore(a.store))
	}

	smtpCfg := cfg.SMTP
	if smtpCfg.To == "" {
		smtpCfg.To = a.site.Contact.Email
	}
	if smtpCfg.Configured() {
		opts = append(opts, contact.WithNotifier(contact.NewEmailNotifier(smtpCfg)))
	} else {
		a.logger.Debug("SMTP credentials not configured; email notifications off")
	}

	if cfg.Telegram.Token != "" {
		tg, err := contact.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			a.logger.Error("telegram notifications off", slog.Any("error", err))
		} else {
			opts = append(opts, contact.WithNotifier(tg))
		}
	}
	return opts
}
