package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/talkcody/modelgate/internal/catalog"
)

func TestCustomModelStoreAddRemove(t *testing.T) {
	store := NewCustomModelStore(filepath.Join(t.TempDir(), "custom-models.json"))

	model := catalog.ModelDescriptor{
		Key:       "my-model",
		Name:      "My Model",
		Providers: []string{"ollama"},
		Pricing:   catalog.Pricing{Input: 0, Output: 0},
	}
	if err := store.Add(model); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	models, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(models) != 1 || models[0].Key != "my-model" {
		t.Fatalf("unexpected document contents: %+v", models)
	}

	// Replacing by key must not grow the list.
	model.Name = "My Model v2"
	if err := store.Add(model); err != nil {
		t.Fatalf("Add (replace) failed: %v", err)
	}
	models, _ = store.Load()
	if len(models) != 1 || models[0].Name != "My Model v2" {
		t.Fatalf("replace by key failed: %+v", models)
	}

	if err := store.Remove("my-model"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	models, _ = store.Load()
	if len(models) != 0 {
		t.Errorf("stale entry survived removal: %+v", models)
	}

	// Removing an absent key is a no-op.
	if err := store.Remove("never-existed"); err != nil {
		t.Errorf("Remove(absent) = %v, want nil", err)
	}
}

func TestCustomModelStoreMissingFile(t *testing.T) {
	store := NewCustomModelStore(filepath.Join(t.TempDir(), "nope.json"))
	models, err := store.Load()
	if err != nil || models != nil {
		t.Errorf("missing file should read as empty: %v, %v", models, err)
	}
}

func TestCustomModelStoreRejectsInvalidDescriptor(t *testing.T) {
	store := NewCustomModelStore(filepath.Join(t.TempDir(), "custom-models.json"))
	if err := store.Add(catalog.ModelDescriptor{Key: "no-providers"}); err == nil {
		t.Error("expected error for descriptor without providers")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("rejected add should not create the document")
	}
}
