package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/bhava/internal/emotion"
	"github.com/ayusman/bhava/testdata"
)

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in   string
		want Device
	}{
		{"", DeviceAuto},
		{"auto", DeviceAuto},
		{"CPU", DeviceCPU},
		{" cuda ", DeviceCUDA},
		{"cuda-fp16", DeviceCUDAFP16},
		{"openvino", DeviceOpenVINO},
		{"vulkan", DeviceVulkan},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDevice(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDevice("mps")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []Device{DeviceCUDA, DeviceOpenVINO, DeviceCPU}, Candidates(DeviceAuto))
	assert.Equal(t, []Device{DeviceCPU}, Candidates(DeviceCPU))
	assert.Equal(t, []Device{DeviceVulkan, DeviceCPU}, Candidates(DeviceVulkan))

	// The auto order must not be mutated through the returned slice.
	c := Candidates(DeviceAuto)
	c[0] = DeviceVulkan
	assert.Equal(t, DeviceCUDA, Candidates(DeviceAuto)[0])
}

// allDevices treats every device as present so probes decide.
func allDevices(Device) bool { return true }

func TestResolveDevice(t *testing.T) {
	t.Run("auto falls back to cpu", func(t *testing.T) {
		log, hook := test.NewNullLogger()
		var tried []Device
		probe := func(d Device) error {
			tried = append(tried, d)
			if d == DeviceCPU {
				return nil
			}
			return errors.New("not built with " + string(d))
		}

		d, err := ResolveDevice("auto", allDevices, probe, log)
		require.NoError(t, err)
		assert.Equal(t, DeviceCPU, d)
		assert.Equal(t, []Device{DeviceCUDA, DeviceOpenVINO, DeviceCPU}, tried)

		entries := hook.AllEntries()
		require.Len(t, entries, 3)
		assert.Equal(t, logrus.WarnLevel, entries[0].Level)
		assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
		assert.Equal(t, DeviceCPU, hook.LastEntry().Data["device"])
	})

	t.Run("first working accelerator wins", func(t *testing.T) {
		log, _ := test.NewNullLogger()
		d, err := ResolveDevice("", allDevices, func(Device) error { return nil }, log)
		require.NoError(t, err)
		assert.Equal(t, DeviceCUDA, d)
	})

	t.Run("nothing works", func(t *testing.T) {
		log, _ := test.NewNullLogger()
		boom := errors.New("boom")
		_, err := ResolveDevice("openvino", allDevices, func(Device) error { return boom }, log)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("absent devices are not probed", func(t *testing.T) {
		log, hook := test.NewNullLogger()
		log.SetLevel(logrus.DebugLevel)
		noCUDA := func(d Device) bool { return d != DeviceCUDA }
		var tried []Device
		probe := func(d Device) error {
			tried = append(tried, d)
			return nil
		}

		d, err := ResolveDevice("auto", noCUDA, probe, log)
		require.NoError(t, err)
		assert.Equal(t, DeviceOpenVINO, d)
		assert.Equal(t, []Device{DeviceOpenVINO}, tried)
		assert.Equal(t, DeviceCUDA, hook.AllEntries()[0].Data["device"])
		assert.Equal(t, logrus.DebugLevel, hook.AllEntries()[0].Level)
	})

	t.Run("explicit absent device falls back to cpu", func(t *testing.T) {
		log, _ := test.NewNullLogger()
		onlyCPU := func(d Device) bool { return d == DeviceCPU }
		d, err := ResolveDevice("cuda-fp16", onlyCPU, func(Device) error { return nil }, log)
		require.NoError(t, err)
		assert.Equal(t, DeviceCPU, d)

		_, err = ResolveDevice("cuda-fp16", func(Device) bool { return false }, func(Device) error { return nil }, log)
		assert.ErrorIs(t, err, ErrDeviceUnavailable)
	})

	t.Run("unknown name", func(t *testing.T) {
		log, _ := test.NewNullLogger()
		called := false
		_, err := ResolveDevice("tpu", allDevices, func(Device) error { called = true; return nil }, log)
		assert.ErrorIs(t, err, ErrUnknownDevice)
		assert.False(t, called)
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestModelConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("sidecar path", func(t *testing.T) {
		assert.Equal(t, "/m/emotion.json", ModelConfigPath("/m/emotion.onnx"))
		assert.Equal(t, "model.json", ModelConfigPath("model"))
	})

	t.Run("missing sidecar is fine", func(t *testing.T) {
		c, err := LoadModelConfig(filepath.Join(dir, "none.json"))
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("valid", func(t *testing.T) {
		p := filepath.Join(dir, "ok.json")
		writeFile(t, p, `{"architecture":"emotion-cnn","width":64,"height":64,
			"classes":["happy","surprise","sad","anger","disgust","fear","neutral"]}`)
		c, err := LoadModelConfig(p)
		require.NoError(t, err)
		assert.Equal(t, "emotion-cnn", c.Architecture)
		assert.Len(t, c.Classes, emotion.NumLabels)
	})

	t.Run("wrong class order", func(t *testing.T) {
		p := filepath.Join(dir, "order.json")
		writeFile(t, p, `{"classes":["neutral","surprise","sad","anger","disgust","fear","happy"]}`)
		_, err := LoadModelConfig(p)
		assert.ErrorIs(t, err, ErrModelConfig)
	})

	t.Run("wrong size", func(t *testing.T) {
		p := filepath.Join(dir, "size.json")
		writeFile(t, p, `{"width":48,"height":48}`)
		_, err := LoadModelConfig(p)
		assert.ErrorIs(t, err, ErrModelConfig)
	})

	t.Run("malformed", func(t *testing.T) {
		p := filepath.Join(dir, "bad.json")
		writeFile(t, p, `{"width":`)
		_, err := LoadModelConfig(p)
		assert.Error(t, err)
	})
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.onnx"), DeviceCPU)
	assert.ErrorIs(t, err, ErrModelNotFound)

	model := filepath.Join(dir, "emotion.onnx")
	writeFile(t, model, "not a network")
	writeFile(t, ModelConfigPath(model), `{"classes":["happy"]}`)
	_, err = Load(model, DeviceCPU)
	assert.ErrorIs(t, err, ErrModelConfig)
}

func TestMockClassifier(t *testing.T) {
	t.Run("derived scores are deterministic", func(t *testing.T) {
		m := NewMockClassifier()
		ft := emotion.NewFaceTensor()
		for i := range ft.Data {
			ft.Data[i] = 0.5
		}
		a, err := m.Classify(ft)
		require.NoError(t, err)
		b, err := m.Classify(ft)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, emotion.NumLabels)
		assert.InDelta(t, 3.5, a[6], 1e-5)
	})

	t.Run("preset scores", func(t *testing.T) {
		m := NewMockClassifier()
		m.SetScores([]float32{1, 2, 3, 4, 5, 6, 7})
		got, err := m.Classify(emotion.NewFaceTensor())
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7}, got)
	})

	t.Run("error at face", func(t *testing.T) {
		m := NewMockClassifier()
		boom := errors.New("boom")
		m.SetErrorAt(1, boom)
		_, err := m.ClassifyBatch([]emotion.FaceTensor{emotion.NewFaceTensor(), emotion.NewFaceTensor()})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, m.BatchCalls())
		assert.Equal(t, 2, m.Calls())
	})

	t.Run("invalid tensor", func(t *testing.T) {
		m := NewMockClassifier()
		_, err := m.Classify(emotion.FaceTensor{})
		assert.ErrorIs(t, err, ErrBadInput)
	})

	t.Run("closed", func(t *testing.T) {
		m := NewMockClassifier()
		require.NoError(t, m.Close())
		assert.True(t, m.Closed())
		_, err := m.Classify(emotion.NewFaceTensor())
		assert.ErrorIs(t, err, ErrClosed)
	})
}

// channelTensor fills each channel plane of a face tensor with one value.
func channelTensor(v [emotion.Channels]float32) emotion.FaceTensor {
	ft := emotion.NewFaceTensor()
	for c := 0; c < emotion.Channels; c++ {
		for i := 0; i < emotion.PlaneSize; i++ {
			ft.Data[c*emotion.PlaneSize+i] = v[c]
		}
	}
	return ft
}

// linearScores is what linear7.onnx computes for a channel-constant tensor.
func linearScores(v [emotion.Channels]float32) []float32 {
	out := make([]float32, emotion.NumLabels)
	for j := range out {
		out[j] = testdata.LinearBias(j)
		for c := 0; c < emotion.Channels; c++ {
			out[j] += testdata.LinearWeight(j, c) * v[c]
		}
	}
	return out
}

func assertScores(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "score %d", i)
	}
}

func TestNetClassifier(t *testing.T) {
	path, err := testdata.LinearModelPath()
	require.NoError(t, err)
	log, _ := test.NewNullLogger()

	c, err := Open(path, "cpu", log)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, DeviceCPU, c.Device())
	assert.Equal(t, path, c.Path())
	require.NotNil(t, c.Config())
	assert.Equal(t, "linear7", c.Config().Architecture)

	t.Run("zero tensor yields the bias", func(t *testing.T) {
		got, err := c.Classify(emotion.NewFaceTensor())
		require.NoError(t, err)
		assertScores(t, linearScores([3]float32{}), got)
	})

	t.Run("channel means drive the scores", func(t *testing.T) {
		for _, v := range [][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {-2.1, 0.5, 2.6}} {
			got, err := c.Classify(channelTensor(v))
			require.NoError(t, err)
			assertScores(t, linearScores(v), got)
		}
	})

	t.Run("batch rows map back to their faces", func(t *testing.T) {
		a := [3]float32{1.5, -0.5, 0.25}
		b := [3]float32{-1, 2, -2}
		batch, err := c.ClassifyBatch([]emotion.FaceTensor{
			channelTensor(a), emotion.NewFaceTensor(), channelTensor(b),
		})
		require.NoError(t, err)
		require.Len(t, batch, 3)
		assertScores(t, linearScores(a), batch[0])
		assertScores(t, linearScores([3]float32{}), batch[1])
		assertScores(t, linearScores(b), batch[2])

		single, err := c.Classify(channelTensor(b))
		require.NoError(t, err)
		assertScores(t, single, batch[2])
	})

	t.Run("bad input", func(t *testing.T) {
		_, err := c.ClassifyBatch([]emotion.FaceTensor{emotion.NewFaceTensor(), {Data: []float32{1}}})
		assert.ErrorIs(t, err, ErrBadInput)
	})

	require.NoError(t, c.Close())
	_, err = c.Classify(emotion.NewFaceTensor())
	assert.ErrorIs(t, err, ErrClosed)
}
