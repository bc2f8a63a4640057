package credential

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestSettings(t *testing.T) *SQLiteSettings {
	t.Helper()
	s, err := OpenSQLiteSettings(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteSettings failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSettingsRoundTrip(t *testing.T) {
	s := openTestSettings(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set(ctx, APIKeyKey("openai"), "sk-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, APIKeyKey("openai"), "sk-2"); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	v, ok, err := s.Get(ctx, APIKeyKey("openai"))
	if err != nil || !ok || v != "sk-2" {
		t.Fatalf("Get = %q ok=%v err=%v, want sk-2", v, ok, err)
	}

	if err := s.Delete(ctx, APIKeyKey("openai")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, APIKeyKey("openai")); ok {
		t.Error("key survived Delete")
	}
}

func TestSQLiteSettingsGetMany(t *testing.T) {
	s := openTestSettings(t)
	ctx := context.Background()

	for k, v := range map[string]string{
		APIKeyKey("openai"):    "sk-1",
		APIKeyKey("anthropic"): "sk-2",
		BaseURLKey("openai"):   "https://proxy/v1",
	} {
		if err := s.Set(ctx, k, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	got, err := s.GetMany(ctx, []string{
		APIKeyKey("openai"),
		APIKeyKey("anthropic"),
		APIKeyKey("google"), // absent
	})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(got) != 2 || got[APIKeyKey("openai")] != "sk-1" || got[APIKeyKey("anthropic")] != "sk-2" {
		t.Errorf("GetMany = %v", got)
	}

	empty, err := s.GetMany(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetMany(nil) = %v, %v", empty, err)
	}
}
