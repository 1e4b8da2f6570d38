package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/bhava/internal/inference"
	"github.com/ayusman/bhava/internal/logging"
)

// FormField is the multipart field holding the uploaded image.
const FormField = "image"

// Analyzer scores every face in an encoded image.
type Analyzer interface {
	AnalyzeBytes(data []byte) (*inference.Result, error)
}

// EmotionsHandler handles image uploads and returns per-face emotion scores.
type EmotionsHandler struct {
	analyzer Analyzer
	maxBytes int64
	log      logrus.FieldLogger
}

// NewEmotionsHandler creates a handler that accepts uploads up to maxBytes.
func NewEmotionsHandler(a Analyzer, maxBytes int64, log logrus.FieldLogger) *EmotionsHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EmotionsHandler{analyzer: a, maxBytes: maxBytes, log: log}
}

// ServeHTTP implements the http.Handler interface.
func (h *EmotionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}

	log := h.log.WithField(logging.RequestIDKey, r.Header.Get(RequestIDHeader))
	start := time.Now()

	data, err := h.readImage(w, r)
	if err == nil {
		var result *inference.Result
		result, err = h.analyzer.AnalyzeBytes(data)
		if err == nil {
			log.WithFields(logrus.Fields{
				"faces":      result.Len(),
				"latency_ms": time.Since(start).Milliseconds(),
			}).Info("Analyzed image")
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	status, msg := ErrorStatus(err)
	entry := log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Emotion analysis failed")
	} else {
		entry.Info("Emotion analysis rejected")
	}
	writeError(w, status, msg)
}

// readImage returns the bytes of the uploaded image file.
func (h *EmotionsHandler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	file, _, err := r.FormFile(FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: %v", errTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", inference.ErrMissingInput, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, inference.ErrInvalidImage
	}
	return data, nil
}
