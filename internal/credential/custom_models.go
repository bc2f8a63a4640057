package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/talkcody/modelgate/internal/catalog"
	"github.com/talkcody/modelgate/internal/json"
)

// CustomModelStore owns the user-edited custom model JSON document. Reads are
// tolerant (comments, trailing commas); writes go through an atomic
// temp-file rename so a crash never leaves a torn document.
type CustomModelStore struct {
	path string
	mu   sync.Mutex
}

// NewCustomModelStore returns a store over the document at path. The file may
// not exist yet; that reads as an empty model list.
func NewCustomModelStore(path string) *CustomModelStore {
	return &CustomModelStore{path: path}
}

// Path returns the document location, for file watching.
func (s *CustomModelStore) Path() string { return s.path }

// Load reads and decodes the document.
func (s *CustomModelStore) Load() ([]catalog.ModelDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *CustomModelStore) loadLocked() ([]catalog.ModelDescriptor, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("custom models: read %s: %w", s.path, err)
	}
	return catalog.ParseCustomModels(data)
}

// Add appends (or replaces, by key) one descriptor in the document.
func (s *CustomModelStore) Add(model catalog.ModelDescriptor) error {
	if model.Key == "" || len(model.Providers) == 0 {
		return fmt.Errorf("custom models: descriptor needs a key and at least one provider")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readRawLocked()
	encoded, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("custom models: encode descriptor: %w", err)
	}

	if idx := s.indexOfLocked(doc, model.Key); idx >= 0 {
		doc, err = sjson.SetRawBytes(doc, fmt.Sprintf("models.%d", idx), encoded)
	} else {
		doc, err = sjson.SetRawBytes(doc, "models.-1", encoded)
	}
	if err != nil {
		return fmt.Errorf("custom models: patch document: %w", err)
	}
	return s.writeLocked(doc)
}

// Remove drops the descriptor with the given key. Removing an absent key is a
// no-op, not an error.
func (s *CustomModelStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readRawLocked()
	idx := s.indexOfLocked(doc, key)
	if idx < 0 {
		return nil
	}
	doc, err := sjson.DeleteBytes(doc, fmt.Sprintf("models.%d", idx))
	if err != nil {
		return fmt.Errorf("custom models: patch document: %w", err)
	}
	return s.writeLocked(doc)
}

// readRawLocked returns the current document, normalized to strict JSON so
// gjson/sjson paths behave. A missing or unreadable file becomes an empty
// document.
func (s *CustomModelStore) readRawLocked() []byte {
	empty := []byte(`{"models":[]}`)
	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 {
		return empty
	}
	models, err := catalog.ParseCustomModels(data)
	if err != nil {
		return empty
	}
	doc, err := json.Marshal(map[string]any{"models": models})
	if err != nil {
		return empty
	}
	return doc
}

func (s *CustomModelStore) indexOfLocked(doc []byte, key string) int {
	idx := -1
	gjson.GetBytes(doc, "models").ForEach(func(i, value gjson.Result) bool {
		if value.Get("key").String() == key {
			idx = int(i.Int())
			return false
		}
		return true
	})
	return idx
}

func (s *CustomModelStore) writeLocked(doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("custom models: create directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o600); err != nil {
		return fmt.Errorf("custom models: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("custom models: rename into place: %w", err)
	}
	return nil
}
