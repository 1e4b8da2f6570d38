// Package server provides the HTTP server for the emotion analysis service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/bhava/internal/app"
	"github.com/ayusman/bhava/internal/server/api"
	"github.com/ayusman/bhava/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir      string
	Store          *store.Store
	ModelsDir      string // root for models registered over HTTP, empty disables registration
	App            *app.App
	MaxUploadBytes int64
	RateLimit      int // analysis requests per minute per client, 0 disables
	Log            logrus.FieldLogger
}

// Server represents the HTTP server for the emotion analysis service.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = chain(s.mux, requestID, accessLog(config.Log), allowCORS())
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register analysis endpoints if an engine is loaded
	if s.config.App != nil {
		engine := s.config.App.Engine()
		limited := rateLimit(s.config.RateLimit)

		emotions := limited(api.NewEmotionsHandler(engine, s.config.MaxUploadBytes, s.config.Log))
		s.mux.Handle("/detect_emotion", emotions)
		s.mux.Handle("/api/emotions", emotions)
		s.mux.Handle("/api/ws", limited(NewStreamHandler(engine, s.config.MaxUploadBytes, s.config.Log)))
	}

	// Register model registry API if Store is configured
	if s.config.Store != nil {
		models := api.NewModelHandler(s.config.Store, s.config.ModelsDir)
		s.mux.Handle("/api/models", models)
		s.mux.Handle("/api/models/", models)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)
	response := map[string]interface{}{"status": "ok"}
	if s.config.App != nil {
		info := s.config.App.Info()
		response["device"] = info.Device
		response["model"] = info.Model
		uptime = s.config.App.Uptime()
	}
	response["uptime"] = uptime.String()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address and blocks until
// ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.config.Log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.config.Log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
