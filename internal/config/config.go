// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "BHAVA_"

// Config holds every setting of the service and the CLI.
type Config struct {
	BindAddress string `validate:"required"`
	DataDir     string `validate:"required"`
	DBPath      string
	StaticDir   string
	CascadePath string
	ModelPath   string
	ModelsDir   string // models registered over HTTP must live here
	Device      string `validate:"oneof=auto cpu cuda cuda-fp16 openvino vulkan"`

	ScaleFactor  float64 `validate:"gt=1"`
	MinNeighbors int     `validate:"gte=0"`
	MinFaceSize  int     `validate:"gte=1"`
	BatchFaces   bool

	MaxUploadMB int `validate:"gte=1,lte=1024"`
	RateLimit   int `validate:"gte=0"` // requests per minute per client, 0 disables

	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile  string
}

// Default returns the built-in settings.
func Default() Config {
	dataDir := ".bhava"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".bhava")
	}
	return Config{
		BindAddress:  ":8080",
		DataDir:      dataDir,
		Device:       "auto",
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinFaceSize:  24,
		MaxUploadMB:  10,
		RateLimit:    60,
		LogLevel:     "info",
	}
}

// Load reads the given .env files (".env" when none are named; missing files
// are skipped), applies BHAVA_* variables over the defaults, and validates
// the result. Variables already set in the environment win over .env files.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := Default()
	if err := c.readEnv(); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) readEnv() error {
	var errs []error
	readEnvString("BIND_ADDRESS", &c.BindAddress)
	readEnvString("DATA_DIR", &c.DataDir)
	readEnvString("DB_PATH", &c.DBPath)
	readEnvString("STATIC_DIR", &c.StaticDir)
	readEnvString("CASCADE_PATH", &c.CascadePath)
	readEnvString("MODEL_PATH", &c.ModelPath)
	readEnvString("MODELS_DIR", &c.ModelsDir)
	readEnvString("DEVICE", &c.Device)
	readEnvString("LOG_LEVEL", &c.LogLevel)
	readEnvString("LOG_FILE", &c.LogFile)
	errs = append(errs,
		readEnvFloat("SCALE_FACTOR", &c.ScaleFactor),
		readEnvInt("MIN_NEIGHBORS", &c.MinNeighbors),
		readEnvInt("MIN_FACE_SIZE", &c.MinFaceSize),
		readEnvBool("BATCH_FACES", &c.BatchFaces),
		readEnvInt("MAX_UPLOAD_MB", &c.MaxUploadMB),
		readEnvInt("RATE_LIMIT", &c.RateLimit),
	)
	c.Device = strings.ToLower(c.Device)
	c.LogLevel = strings.ToLower(c.LogLevel)
	return errors.Join(errs...)
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabasePath returns DBPath, or bhava.db inside DataDir.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "bhava.db")
}

// ModelDirectory returns ModelsDir, or models inside DataDir.
func (c Config) ModelDirectory() string {
	if c.ModelsDir != "" {
		return c.ModelsDir
	}
	return filepath.Join(c.DataDir, "models")
}

// MaxUploadBytes returns the request body limit for image uploads.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func readEnvString(name string, value *string) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) error {
	v := strings.ToLower(os.Getenv(EnvPrefix + name))
	switch v {
	case "":
	case "true", "1", "yes", "on":
		*value = true
	case "false", "0", "no", "off":
		*value = false
	default:
		return fmt.Errorf("%s%s: invalid boolean %q", EnvPrefix, name, v)
	}
	return nil
}

func readEnvFloat(name string, value *float64) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*value = f
	return nil
}

func readEnvInt(name string, value *int) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*value = i
	return nil
}
