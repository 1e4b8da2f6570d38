package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/bhava/internal/classifier"
	"github.com/ayusman/bhava/internal/detector"
	"github.com/ayusman/bhava/internal/inference"
	"github.com/ayusman/bhava/internal/store"
	"github.com/ayusman/bhava/testdata"
)

func writeImage(t *testing.T) string {
	t.Helper()
	img := testdata.Gradient(240, 320)
	defer img.Close()
	path := filepath.Join(t.TempDir(), "face.png")
	require.True(t, gocv.IMWrite(path, img))
	return path
}

func TestAnalyzeFile(t *testing.T) {
	t.Run("prints one block per face", func(t *testing.T) {
		d := detector.NewMockDetector()
		d.SetBoxes([]detector.Box{{X: 10, Y: 10, W: 60, H: 60}, {X: 100, Y: 50, W: 60, H: 60}})
		engine := inference.New(d, classifier.NewMockClassifier(), inference.Options{})

		var out bytes.Buffer
		err := analyzeFile(engine, analyzeOptions{Image: writeImage(t), Width: 800, Height: 600}, &out)
		require.NoError(t, err)

		text := out.String()
		assert.Equal(t, 2, strings.Count(text, "Emotion probabilities for detected face:"))
		assert.Contains(t, text, "  happy: ")
		assert.Contains(t, text, "  neutral: ")
	})

	t.Run("json output", func(t *testing.T) {
		d := detector.NewMockDetector()
		d.SetBoxes([]detector.Box{{X: 0, Y: 0, W: 32, H: 32}})
		engine := inference.New(d, classifier.NewMockClassifier(), inference.Options{})

		var out bytes.Buffer
		require.NoError(t, analyzeFile(engine, analyzeOptions{Image: writeImage(t), JSON: true}, &out))
		assert.Contains(t, out.String(), `"face_coordinates"`)
	})

	t.Run("annotated copy", func(t *testing.T) {
		d := detector.NewMockDetector()
		d.SetBoxes([]detector.Box{{X: 0, Y: 0, W: 32, H: 32}})
		engine := inference.New(d, classifier.NewMockClassifier(), inference.Options{})

		dst := filepath.Join(t.TempDir(), "annotated.jpg")
		var out bytes.Buffer
		require.NoError(t, analyzeFile(engine, analyzeOptions{Image: writeImage(t), Annotate: dst}, &out))
		_, err := os.Stat(dst)
		assert.NoError(t, err)
	})

	t.Run("no faces", func(t *testing.T) {
		engine := inference.New(detector.NewMockDetector(), classifier.NewMockClassifier(), inference.Options{})
		err := analyzeFile(engine, analyzeOptions{Image: writeImage(t)}, &bytes.Buffer{})
		assert.ErrorIs(t, err, errNoFaces)
	})

	t.Run("missing file", func(t *testing.T) {
		engine := inference.New(detector.NewMockDetector(), classifier.NewMockClassifier(), inference.Options{})
		err := analyzeFile(engine, analyzeOptions{Image: filepath.Join(t.TempDir(), "nope.png")}, &bytes.Buffer{})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, errNoFaces)
	})
}

func TestModelCommands(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "bhava.db"))
	require.NoError(t, err)
	defer s.Close()

	checkpoint := filepath.Join(t.TempDir(), "fer.onnx")
	require.NoError(t, os.WriteFile(checkpoint, []byte("weights"), 0o644))

	var out bytes.Buffer
	require.NoError(t, listModels(s, &out))
	assert.Contains(t, out.String(), "No models registered.")

	out.Reset()
	require.NoError(t, addModel(s, &out, "fer", "1.0", checkpoint, true))
	assert.Contains(t, out.String(), "Registered fer")
	assert.Contains(t, out.String(), "Active model is now fer")

	out.Reset()
	require.NoError(t, listModels(s, &out))
	assert.Contains(t, out.String(), "*")
	assert.Contains(t, out.String(), "fer")

	assert.Error(t, activateModel(s, &out, "missing"))

	out.Reset()
	require.NoError(t, removeModel(s, &out, "fer"))
	assert.Contains(t, out.String(), "Removed fer")
	_, err = s.ActiveModel()
	assert.Error(t, err)
}
