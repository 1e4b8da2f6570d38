package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/bhava/internal/app"
	"github.com/ayusman/bhava/internal/config"
	"github.com/ayusman/bhava/internal/server"
	"github.com/ayusman/bhava/internal/store"
)

func serve(cfg config.Config, log *logrus.Logger) error {
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := app.New(app.FromSettings(cfg, st, log))
	if err != nil {
		return err
	}
	defer a.Close()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		log.WithField("dir", staticDir).Info("Serving static files")
	}

	srv := server.New(server.Config{
		StaticDir:      staticDir,
		Store:          st,
		ModelsDir:      cfg.ModelDirectory(),
		App:            a,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		RateLimit:      cfg.RateLimit,
		Log:            log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.BindAddress)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
