package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ActiveModelKey is the setting that names the model loaded at startup.
const ActiveModelKey = "active_model"

// SettingsRepository stores key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value for key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set inserts or replaces the value for key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// ActiveModel returns the model selected with SetActiveModel.
func (s *Store) ActiveModel() (*Model, error) {
	name, err := s.Settings().Get(ActiveModelKey)
	if err != nil {
		return nil, err
	}
	return s.Models().GetByName(name)
}

// SetActiveModel selects a registered model by name.
func (s *Store) SetActiveModel(name string) error {
	if _, err := s.Models().GetByName(name); err != nil {
		return fmt.Errorf("model %q: %w", name, err)
	}
	return s.Settings().Set(ActiveModelKey, name)
}
