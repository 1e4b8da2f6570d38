package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/bhava/internal/store"
)

// ModelHandler handles HTTP requests for the model registry.
type ModelHandler struct {
	store     *store.Store
	modelsDir string // registration root; empty disables POST /api/models
}

// NewModelHandler creates a new ModelHandler with the given store. Models
// can only be registered from files inside modelsDir.
func NewModelHandler(s *store.Store, modelsDir string) *ModelHandler {
	return &ModelHandler{store: s, modelsDir: modelsDir}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ModelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/models, /api/models/{name}, /api/models/{name}/activate
	path := strings.TrimPrefix(r.URL.Path, "/api/models")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	name := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, name)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.delete(w, r, name)
	case len(parts) == 2 && parts[1] == "activate" && r.Method == http.MethodPost:
		h.activate(w, r, name)
	case len(parts) > 2 || (len(parts) == 2 && parts[1] != "activate"):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
	}
}

// Request and response types

type createModelRequest struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Path     string `json:"path"`
	Activate bool   `json:"activate"`
}

type modelResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Path      string `json:"path"`
	Checksum  string `json:"checksum"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type listModelsResponse struct {
	Models []modelResponse `json:"models"`
	Active string          `json:"active,omitempty"`
}

// toResponse converts a store.Model to a modelResponse.
func toResponse(m *store.Model, active string) modelResponse {
	return modelResponse{
		ID:        m.ID,
		Name:      m.Name,
		Version:   m.Version,
		Path:      m.Path,
		Checksum:  m.Checksum,
		Active:    m.Name == active,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

// activeName returns the active model name, or "" when none is set.
func (h *ModelHandler) activeName() string {
	name, err := h.store.Settings().Get(store.ActiveModelKey)
	if err != nil {
		return ""
	}
	return name
}

// list handles GET /api/models and returns all registered models.
func (h *ModelHandler) list(w http.ResponseWriter, r *http.Request) {
	models, err := h.store.Models().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}

	active := h.activeName()
	response := listModelsResponse{
		Models: make([]modelResponse, 0, len(models)),
		Active: active,
	}
	for _, m := range models {
		response.Models = append(response.Models, toResponse(m, active))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/models/{name}.
func (h *ModelHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	m, err := h.store.Models().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get model")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(m, h.activeName()))
}

// create handles POST /api/models and registers a checkpoint already placed
// in the models directory.
func (h *ModelHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.modelsDir == "" {
		writeError(w, http.StatusForbidden, "Model registration is disabled")
		return
	}

	var req createModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "Path is required")
		return
	}

	// Every path problem gets the same answer so the reply does not reveal
	// which files exist.
	path, err := store.ResolveModelPath(h.modelsDir, req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid model path")
		return
	}

	m, err := h.store.Models().Register(req.Name, req.Version, path)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "Model already exists")
		default:
			writeError(w, http.StatusBadRequest, "Failed to register model")
		}
		return
	}

	if req.Activate {
		if err := h.store.SetActiveModel(m.Name); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to activate model")
			return
		}
	}

	writeJSON(w, http.StatusCreated, toResponse(m, h.activeName()))
}

// activate handles POST /api/models/{name}/activate. The new model is loaded
// on the next start.
func (h *ModelHandler) activate(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.store.SetActiveModel(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate model")
		return
	}

	m, err := h.store.Models().GetByName(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get model")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(m, name))
}

// delete handles DELETE /api/models/{name}.
func (h *ModelHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	err := h.store.Models().Delete(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete model")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
