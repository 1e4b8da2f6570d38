package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/bhava/internal/emotion"
)

// ErrModelConfig is returned when a model sidecar file contradicts the network contract.
var ErrModelConfig = errors.New("model config mismatch")

// ModelConfig is saved in a JSON file next to the network weights.
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "emotion-cnn"
	Width        int      `json:"width"`        // 64
	Height       int      `json:"height"`       // 64
	Classes      []string `json:"classes"`      // happy, surprise, ...
}

// ModelConfigPath returns the sidecar path for a model file: model.onnx -> model.json.
func ModelConfigPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".json"
}

// LoadModelConfig reads a sidecar file. A missing file yields (nil, nil).
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the model takes 64x64 input and emits the fixed label order.
func (c *ModelConfig) Validate() error {
	if (c.Width != 0 && c.Width != emotion.Width) || (c.Height != 0 && c.Height != emotion.Height) {
		return fmt.Errorf("%w: input %dx%d, want %dx%d",
			ErrModelConfig, c.Width, c.Height, emotion.Width, emotion.Height)
	}
	if len(c.Classes) != 0 && !emotion.SameLabels(c.Classes) {
		return fmt.Errorf("%w: classes %v, want %v", ErrModelConfig, c.Classes, emotion.Labels())
	}
	return nil
}
