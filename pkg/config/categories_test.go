package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCategories(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "categories.yaml")

	yamlContent := `
categories:
  - key: Ancient
    name: "Ancient"
    emoji: "🏛️"
  - key: "volcanoes"
    name: "Volcanoes"
    emoji: "🌋"
avoid:
  - "Pompeii"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to create temp config: %v", err)
	}

	cfg, err := LoadCategories(configPath)
	if err != nil {
		t.Fatalf("LoadCategories failed: %v", err)
	}

	if len(cfg.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cfg.Categories))
	}
	if cfg.Categories[0].Key != "ancient" {
		t.Errorf("keys should be lowered, got %q", cfg.Categories[0].Key)
	}
	if _, ok := cfg.Lookup("VOLCANOES"); !ok {
		t.Error("Lookup should be case-insensitive")
	}
	if len(cfg.Avoid) != 1 || cfg.Avoid[0] != "Pompeii" {
		t.Errorf("unexpected avoid list %v", cfg.Avoid)
	}
}

func TestLoadCategories_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadCategories(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"ancient", "nature", "growth", "time"} {
		if _, ok := cfg.Lookup(key); !ok {
			t.Errorf("default category %q missing", key)
		}
	}
	if len(cfg.Avoid) == 0 {
		t.Error("default avoid list should not be empty")
	}
}

func TestLoadCategories_EmptyKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(configPath, []byte("categories:\n  - name: Broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCategories(configPath); err == nil {
		t.Error("expected error for category without key")
	}
}
