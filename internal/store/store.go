// Package store persists server profiles in a YAML file. Credentials are not
// part of a profile and so never reach the file.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shineum/bulk-mailer/internal/registry"
)

type document struct {
	Active   int                      `yaml:"active"`
	Profiles []registry.ServerProfile `yaml:"profiles"`
}

// Store reads and writes one profiles file.
type Store struct {
	path string
}

// New creates a Store for the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load fills reg with the saved profiles, replacing its content. A missing
// file leaves reg empty.
func (s *Store) Load(reg *registry.ConnectionRegistry) error {
	reg.Clear()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no saved profiles", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read profiles file: %w", err)
	}

	doc := document{Active: registry.NoActive}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for i, p := range doc.Profiles {
		if err := reg.Append(p, i == doc.Active); err != nil {
			reg.Clear()
			return fmt.Errorf("profile %d in %s: %w", i+1, s.path, err)
		}
	}

	slog.Info("profiles loaded",
		"path", s.path,
		"count", reg.Len(),
		"active", reg.ActiveIndex(),
	)
	return nil
}

// Save writes reg to the file. The file is replaced atomically.
func (s *Store) Save(reg *registry.ConnectionRegistry) error {
	data, err := yaml.Marshal(document{
		Active:   reg.ActiveIndex(),
		Profiles: reg.All(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".profiles-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace profiles file: %w", err)
	}

	slog.Debug("profiles saved", "path", s.path, "count", reg.Len())
	return nil
}
