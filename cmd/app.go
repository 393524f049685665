package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mridungeorge/portfolio/internal/config"
	"github.com/mridungeorge/portfolio/internal/content"
	"github.com/mridungeorge/portfolio/internal/store"
)

// app bundles what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	site   *content.Site
	store  store.Store
}

func loadSite(path string) (*content.Site, error) {
	if path == "" {
		return content.Default()
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open site content")
	}
	defer f.Close()
	return content.Load(f)
}

// newApp loads configuration and content. The store is opened only when
// withStore is set.
func newApp(ctx context.Context, withStore bool) (a *app, err error) {
	a = &app{logger: newLogger()}

	a.cfg, err = config.Load(configFile)
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return nil, err
	}

	a.site, err = loadSite(a.cfg.ContentPath)
	if err != nil {
		return nil, err
	}

	if withStore {
		a.store, err = store.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("store ready", slog.String("driver", a.cfg.Database.Driver))
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", slog.Any("error", err))
		}
	}
}
