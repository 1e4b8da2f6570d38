package classifier

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/bhava/internal/emotion"
)

// ErrModelNotFound is returned when the model file does not exist.
var ErrModelNotFound = errors.New("model file not found")

// NetClassifier runs an ONNX export of the emotion network with OpenCV dnn.
// The weights are loaded once and never modified.
type NetClassifier struct {
	path   string
	device Device
	config *ModelConfig

	mu     sync.Mutex // guards net: a dnn.Net keeps per-call state
	net    gocv.Net
	closed bool
}

// Load reads the model at path and binds it to device.
func Load(path string, device Device) (*NetClassifier, error) {
	if device == DeviceAuto || device == "" {
		device = DeviceCPU
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotFound, err)
	}

	config, err := LoadModelConfig(ModelConfigPath(path))
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("read model %s: empty network", path)
	}

	backend, target := device.backend()
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend for %s: %w", device, err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target for %s: %w", device, err)
	}

	return &NetClassifier{
		path:   path,
		device: device,
		config: config,
		net:    net,
	}, nil
}

// Open loads the model on the first device for pref that can run a warm-up pass.
func Open(path, pref string, log logrus.FieldLogger) (*NetClassifier, error) {
	var loaded *NetClassifier
	probe := func(d Device) error {
		c, err := Load(path, d)
		if err != nil {
			return err
		}
		if _, err := c.Classify(emotion.NewFaceTensor()); err != nil {
			c.Close()
			return fmt.Errorf("warm-up: %w", err)
		}
		loaded = c
		return nil
	}

	if _, err := ResolveDevice(pref, Available, probe, log); err != nil {
		return nil, err
	}
	return loaded, nil
}

// Path returns the model file.
func (c *NetClassifier) Path() string {
	return c.path
}

// Device returns the device the model is bound to.
func (c *NetClassifier) Device() Device {
	return c.device
}

// Config returns the model sidecar, or nil when the model has none.
func (c *NetClassifier) Config() *ModelConfig {
	return c.config
}

// Classify runs one forward pass for a single face.
func (c *NetClassifier) Classify(t emotion.FaceTensor) ([]float32, error) {
	out, err := c.ClassifyBatch([]emotion.FaceTensor{t})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ClassifyBatch runs one forward pass over all tensors stacked along the batch axis.
func (c *NetClassifier) ClassifyBatch(ts []emotion.FaceTensor) ([][]float32, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	for i, t := range ts {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: tensor %d has %d values", ErrBadInput, i, len(t.Data))
		}
	}

	n := len(ts)
	blob, err := gocv.NewMatWithSizesFromBytes(
		[]int{n, emotion.Channels, emotion.Height, emotion.Width},
		gocv.MatTypeCV32F,
		emotion.BatchBytes(ts),
	)
	if err != nil {
		return nil, fmt.Errorf("build input blob: %w", err)
	}
	defer blob.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	if out.Empty() || out.Total() != n*emotion.NumLabels {
		return nil, fmt.Errorf("%w: got %d values for %d faces", ErrBadOutput, out.Total(), n)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}

	scores := make([][]float32, n)
	for i := range scores {
		row := make([]float32, emotion.NumLabels)
		copy(row, data[i*emotion.NumLabels:(i+1)*emotion.NumLabels])
		scores[i] = row
	}
	return scores, nil
}

// Close releases the network.
func (c *NetClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}
