package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a model name is already registered.
	ErrDuplicate = errors.New("already exists")
	// ErrChecksumMismatch is returned when a model file changed since it was registered.
	ErrChecksumMismatch = errors.New("model checksum mismatch")
	// ErrNotONNX is returned when a registered path is not a regular .onnx file.
	ErrNotONNX = errors.New("model must be a regular " + ModelExt + " file")
	// ErrOutsideRoot is returned when a model path leaves the models directory.
	ErrOutsideRoot = errors.New("model path is outside the models directory")
)

// ModelExt is the file extension of a model checkpoint.
const ModelExt = ".onnx"

// Model is a registered emotion network checkpoint.
type Model struct {
	ID        string
	Name      string
	Version   string
	Path      string
	Checksum  string // hex SHA-256 of the file at registration time
	CreatedAt time.Time
}

// ModelRepository provides CRUD operations for models.
type ModelRepository struct {
	db *sql.DB
}

// Models returns the model repository for this store.
func (s *Store) Models() *ModelRepository {
	return &ModelRepository{db: s.db}
}

// Register checksums the file at path and inserts it under name.
func (r *ModelRepository) Register(name, version, path string) (*Model, error) {
	if name == "" {
		return nil, errors.New("model name is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := checkModelFile(abs); err != nil {
		return nil, err
	}
	sum, err := Checksum(abs)
	if err != nil {
		return nil, err
	}

	m := &Model{
		ID:       uuid.New().String(),
		Name:     name,
		Version:  version,
		Path:     abs,
		Checksum: sum,
	}
	if err := r.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a new model into the database.
func (r *ModelRepository) Create(m *Model) error {
	if _, err := r.GetByName(m.Name); err == nil {
		return fmt.Errorf("model %q: %w", m.Name, ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	m.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO models (id, name, version, path, checksum, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Version, m.Path, m.Checksum, m.CreatedAt,
	)
	return err
}

// GetByID retrieves a model by its ID.
func (r *ModelRepository) GetByID(id string) (*Model, error) {
	return r.getOne(`SELECT id, name, version, path, checksum, created_at FROM models WHERE id = ?`, id)
}

// GetByName retrieves a model by its name.
func (r *ModelRepository) GetByName(name string) (*Model, error) {
	return r.getOne(`SELECT id, name, version, path, checksum, created_at FROM models WHERE name = ?`, name)
}

func (r *ModelRepository) getOne(query string, arg any) (*Model, error) {
	m := &Model{}
	err := r.db.QueryRow(query, arg).Scan(&m.ID, &m.Name, &m.Version, &m.Path, &m.Checksum, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List retrieves all models, newest first.
func (r *ModelRepository) List() ([]*Model, error) {
	rows, err := r.db.Query(
		`SELECT id, name, version, path, checksum, created_at
		 FROM models ORDER BY created_at DESC, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m := &Model{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Version, &m.Path, &m.Checksum, &m.CreatedAt); err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return models, nil
}

// Delete removes a model by name. The active model setting is cleared if it
// pointed at this model.
func (r *ModelRepository) Delete(name string) error {
	result, err := r.db.Exec(`DELETE FROM models WHERE name = ?`, name)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	_, err = r.db.Exec(`DELETE FROM settings WHERE key = ? AND value = ?`, ActiveModelKey, name)
	return err
}

// Verify checks that the file still matches the registered checksum.
func (m *Model) Verify() error {
	sum, err := Checksum(m.Path)
	if err != nil {
		return err
	}
	if sum != m.Checksum {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, m.Path)
	}
	return nil
}

// Checksum returns the hex SHA-256 of a file.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// checkModelFile accepts only existing regular files with the model extension.
func checkModelFile(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ModelExt) {
		return fmt.Errorf("%w: %s", ErrNotONNX, filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotONNX, filepath.Base(path))
	}
	return nil
}

// ResolveModelPath maps a client supplied path onto root. Relative paths are
// taken from root; absolute ones must already lie inside it. Symlinks are
// followed before the check so a link cannot point out of root.
func ResolveModelPath(root, path string) (string, error) {
	if root == "" {
		return "", ErrOutsideRoot
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("models directory: %w", err)
	}
	realRoot, err = filepath.Abs(realRoot)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", ErrOutsideRoot
	}
	real, err = filepath.Abs(real)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(realRoot, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	if err := checkModelFile(real); err != nil {
		return "", err
	}
	return real, nil
}
