// Package app builds the engine handle shared by the server and the CLI.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/bhava/internal/classifier"
	"github.com/ayusman/bhava/internal/config"
	"github.com/ayusman/bhava/internal/detector"
	"github.com/ayusman/bhava/internal/inference"
	"github.com/ayusman/bhava/internal/logging"
	"github.com/ayusman/bhava/internal/store"
)

// ErrNoModel is returned when neither a model path nor an active registry model is available.
var ErrNoModel = errors.New("no emotion model configured")

// Config holds configuration options for the application.
type Config struct {
	Detector   detector.Config
	ModelPath  string // overrides the active model in Store
	Device     string
	BatchFaces bool
	Store      *store.Store
	Log        logrus.FieldLogger
}

// FromSettings maps loaded settings onto an app Config.
func FromSettings(c config.Config, s *store.Store, log logrus.FieldLogger) Config {
	return Config{
		Detector: detector.Config{
			CascadePath:  c.CascadePath,
			ScaleFactor:  c.ScaleFactor,
			MinNeighbors: c.MinNeighbors,
			MinSize:      c.MinFaceSize,
		},
		ModelPath:  c.ModelPath,
		Device:     c.Device,
		BatchFaces: c.BatchFaces,
		Store:      s,
		Log:        log,
	}
}

// Info describes the loaded engine.
type Info struct {
	Device    string `json:"device"`
	Model     string `json:"model"`
	ModelPath string `json:"model_path"`
	Cascade   string `json:"cascade,omitempty"`
}

// App owns the engine and the metadata reported by the health endpoint.
type App struct {
	engine  *inference.Engine
	info    Info
	started time.Time
}

// New resolves the model, picks the inference device and loads the detector.
// It runs once at startup; the returned App is read-only afterwards.
func New(config Config) (*App, error) {
	log := config.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	name, path, err := ResolveModel(config.ModelPath, config.Store)
	if err != nil {
		return nil, err
	}

	det, err := detector.NewCascadeDetector(config.Detector)
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}
	log.WithField("cascade", det.Path()).Info("Loaded face cascade")

	cls, err := classifier.Open(path, config.Device, log.WithField(logging.ModelKey, name))
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("emotion model: %w", err)
	}
	fields := logrus.Fields{
		logging.ModelKey:  name,
		logging.DeviceKey: cls.Device(),
		"path":            path,
		"batch":           config.BatchFaces,
	}
	if mc := cls.Config(); mc != nil {
		fields["architecture"] = mc.Architecture
	}
	log.WithFields(fields).Info("Loaded emotion model")

	engine := inference.New(det, cls, inference.Options{BatchFaces: config.BatchFaces})
	return NewWithEngine(engine, Info{
		Device:    string(cls.Device()),
		Model:     name,
		ModelPath: path,
		Cascade:   det.Path(),
	}), nil
}

// NewWithEngine wraps an already built engine.
func NewWithEngine(engine *inference.Engine, info Info) *App {
	return &App{engine: engine, info: info, started: time.Now()}
}

// ResolveModel returns the display name and file of the model to load. An
// explicit path wins; otherwise the active registry model is used after its
// checksum is verified.
func ResolveModel(path string, s *store.Store) (name, file string, err error) {
	if path != "" {
		return path, path, nil
	}
	if s == nil {
		return "", "", ErrNoModel
	}

	m, err := s.ActiveModel()
	if errors.Is(err, store.ErrNotFound) {
		return "", "", ErrNoModel
	}
	if err != nil {
		return "", "", fmt.Errorf("active model: %w", err)
	}
	if err := m.Verify(); err != nil {
		return "", "", fmt.Errorf("model %q: %w", m.Name, err)
	}
	return m.Name, m.Path, nil
}

// Engine returns the shared inference engine.
func (a *App) Engine() *inference.Engine {
	return a.engine
}

// Info returns what was loaded at startup.
func (a *App) Info() Info {
	return a.info
}

// Uptime returns the time since the app was created.
func (a *App) Uptime() time.Duration {
	return time.Since(a.started)
}

// Close releases the engine.
func (a *App) Close() error {
	return a.engine.Close()
}
