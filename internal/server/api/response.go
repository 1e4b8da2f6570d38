// Package api provides the HTTP handlers of the emotion analysis service.
package api

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/bhava/internal/inference"
)

// RequestIDHeader carries the per-request id set by the server middleware.
const RequestIDHeader = "X-Request-ID"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client-facing error messages.
const (
	MsgNoImage          = "No image file provided."
	MsgInvalidImage     = "Invalid image file."
	MsgNoFaces          = "No faces detected."
	MsgPreprocessing    = "Failed to preprocess face."
	MsgModelFailed      = "Emotion model failed."
	MsgTooLarge         = "Image file too large."
	MsgInternal         = "Internal server error."
	MsgMethodNotAllowed = "Method not allowed"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errTooLarge marks uploads rejected by the body size limit.
var errTooLarge = errors.New("upload too large")

// ErrorStatus maps an analysis error to an HTTP status and client message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, MsgTooLarge
	case errors.Is(err, inference.ErrMissingInput):
		return http.StatusBadRequest, MsgNoImage
	case errors.Is(err, inference.ErrInvalidImage):
		return http.StatusBadRequest, MsgInvalidImage
	case errors.Is(err, inference.ErrNoFaceDetected):
		return http.StatusBadRequest, MsgNoFaces
	case errors.Is(err, inference.ErrPreprocessing):
		return http.StatusUnprocessableEntity, MsgPreprocessing
	case errors.Is(err, inference.ErrModelInvocation):
		return http.StatusInternalServerError, MsgModelFailed
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
