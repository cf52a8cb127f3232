// Package registry discovers local GGUF model files for the llama.cpp backend.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"inferd/internal/common/fsutil"
)

// Model is a GGUF file on disk. ID is the file name including extension.
type Model struct {
	ID   string
	Path string
}

var (
	// ErrNoModels is returned when a models directory holds no GGUF files.
	ErrNoModels = errors.New("no gguf models found")
	// ErrAmbiguous is returned when no model id is given and several exist.
	ErrAmbiguous = errors.New("several models found; set backend.model")
)

// LoadDir scans dir for *.gguf files, sorted by ID.
func LoadDir(dir string) ([]Model, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, Model{ID: name, Path: filepath.Join(abs, name)})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Resolve picks the model to load. id may be a path to a file, a file name in
// dir (with or without the .gguf suffix) or empty when dir holds exactly one
// model.
func Resolve(dir, id string) (Model, error) {
	if id != "" {
		if p, err := fsutil.AbsPath(id); err == nil && fsutil.IsFile(p) {
			return Model{ID: filepath.Base(p), Path: p}, nil
		}
	}
	if dir == "" {
		return Model{}, fmt.Errorf("model %q not found and no models dir set", id)
	}
	models, err := LoadDir(dir)
	if err != nil {
		return Model{}, err
	}
	if len(models) == 0 {
		return Model{}, fmt.Errorf("%s: %w", dir, ErrNoModels)
	}
	if id == "" {
		if len(models) == 1 {
			return models[0], nil
		}
		return Model{}, ErrAmbiguous
	}
	for _, m := range models {
		if m.ID == id || strings.TrimSuffix(m.ID, filepath.Ext(m.ID)) == id {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("model %q not found in %s", id, dir)
}
