package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {

	cfg := Default()

	err := cfg.Validate()

	if err != nil {
		t.Fatalf("Default config should be valid, %v", err)
	}

	if len(cfg.Categories) != 3 || cfg.Categories[0].Name != "faces" || cfg.Categories[2].Directory != "Nature" {
		t.Fatalf("Unexpected default categories")
	}

	if cfg.Thumbnail.MaxWidth != 400 || cfg.Thumbnail.MaxHeight != 533 || cfg.Thumbnail.Quality != 85 {
		t.Fatalf("Unexpected thumbnail defaults %+v", cfg.Thumbnail)
	}

	if cfg.Full.MaxWidth != 2000 || cfg.Full.Quality != 90 {
		t.Fatalf("Unexpected full defaults %+v", cfg.Full)
	}
}

func TestLoad(t *testing.T) {

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")

	body := `{
  "source": "/Volumes/photos",
  "categories": [ { "name": "street", "directory": "Street" } ],
  "max_photos_per_category": 25,
  "thumbnail": { "max_width": 300 },
  "timeout": "30s"
}`

	err := os.WriteFile(path, []byte(body), 0644)

	if err != nil {
		t.Fatalf("Failed to write config, %v", err)
	}

	cfg, err := Load(ctx, path)

	if err != nil {
		t.Fatalf("Failed to load config, %v", err)
	}

	if cfg.Source != "/Volumes/photos" || cfg.MaxPhotosPerCategory != 25 {
		t.Fatalf("Unexpected config %+v", cfg)
	}

	if len(cfg.Categories) != 1 || cfg.Categories[0].Name != "street" {
		t.Fatalf("Categories should be replaced, got %d", len(cfg.Categories))
	}

	if cfg.Thumbnail.MaxWidth != 300 || cfg.Thumbnail.MaxHeight != 533 || cfg.Thumbnail.Suffix != "_thumb" {
		t.Fatalf("Unspecified variant options should keep their defaults, got %+v", cfg.Thumbnail)
	}

	if cfg.Manifest != "photos.json" {
		t.Fatalf("Unexpected manifest %s", cfg.Manifest)
	}

	d, err := cfg.ProcessTimeout()

	if err != nil || d != 30*time.Second {
		t.Fatalf("Unexpected timeout %v (%v)", d, err)
	}
}

func TestLoadCategories(t *testing.T) {

	ctx := context.Background()

	tests := []struct {
		name      string
		body      string
		expected  []*Category
		validates bool
	}{
		{"replaced", `{"categories": [ {"name": "portraits", "directory": "People"} ]}`, []*Category{{Name: "portraits", Directory: "People"}}, true},
		{"missing directory", `{"categories": [ {"name": "portraits"} ]}`, []*Category{{Name: "portraits"}}, false},
		{"omitted", `{"source": "/photos"}`, Default().Categories, true},
	}

	for _, tt := range tests {

		t.Run(tt.name, func(t *testing.T) {

			path := filepath.Join(t.TempDir(), "config.json")

			err := os.WriteFile(path, []byte(tt.body), 0644)

			if err != nil {
				t.Fatalf("Failed to write config, %v", err)
			}

			cfg, err := Load(ctx, path)

			if err != nil {
				t.Fatalf("Failed to load config, %v", err)
			}

			if len(cfg.Categories) != len(tt.expected) {
				t.Fatalf("Expected %d categories, got %d", len(tt.expected), len(cfg.Categories))
			}

			for i, c := range tt.expected {

				if *cfg.Categories[i] != *c {
					t.Fatalf("Category %d: expected %+v, got %+v", i, c, cfg.Categories[i])
				}
			}

			err = cfg.Validate()

			if tt.validates && err != nil {
				t.Fatalf("Expected config to validate, %v", err)
			}

			if !tt.validates && err == nil {
				t.Fatalf("Expected config not to validate")
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")

	os.WriteFile(path, []byte(`{"source": `), 0644)

	_, err := Load(ctx, path)

	if err == nil {
		t.Fatalf("Expected invalid JSON to fail")
	}

	_, err = Load(ctx, filepath.Join(t.TempDir(), "missing.json"))

	if err == nil {
		t.Fatalf("Expected a missing config to fail")
	}
}

func TestEnv(t *testing.T) {

	path := filepath.Join(t.TempDir(), ".env")

	err := os.WriteFile(path, []byte("PHOTOS_WORKERS=3\nPHOTOS_BASE_URL=https://example.com/photos\n"), 0644)

	if err != nil {
		t.Fatalf("Failed to write env file, %v", err)
	}

	t.Setenv("PHOTOS_WORKERS", "")
	os.Unsetenv("PHOTOS_WORKERS")

	t.Setenv("PHOTOS_BASE_URL", "")
	os.Unsetenv("PHOTOS_BASE_URL")

	t.Setenv("PHOTOS_MAX_PER_CATEGORY", "7")

	err = LoadEnv(path, filepath.Join(t.TempDir(), "missing.env"))

	if err != nil {
		t.Fatalf("Failed to load env, %v", err)
	}

	cfg := Default()

	err = cfg.ApplyEnv()

	if err != nil {
		t.Fatalf("Failed to apply env, %v", err)
	}

	if cfg.Workers != 3 || cfg.BaseURL != "https://example.com/photos" || cfg.MaxPhotosPerCategory != 7 {
		t.Fatalf("Unexpected config %+v", cfg)
	}

	t.Setenv("PHOTOS_WORKERS", "many")

	err = cfg.ApplyEnv()

	if err == nil {
		t.Fatalf("Expected invalid PHOTOS_WORKERS to fail")
	}
}

func TestValidate(t *testing.T) {

	tests := map[string]func(*Config){
		"no categories":  func(c *Config) { c.Categories = nil },
		"duplicate":      func(c *Config) { c.Categories = append(c.Categories, &Category{Name: "faces", Directory: "More"}) },
		"no directory":   func(c *Config) { c.Categories[1].Directory = "" },
		"zero envelope":  func(c *Config) { c.Full.MaxHeight = 0 },
		"quality":        func(c *Config) { c.Thumbnail.Quality = 101 },
		"timeout":        func(c *Config) { c.Timeout = "soon" },
		"max":            func(c *Config) { c.MaxPhotosPerCategory = 0 },
		"same files":     func(c *Config) { c.Thumbnail.Directory = "full"; c.Thumbnail.Suffix = "" },
		"missing source": func(c *Config) { c.Source = "" },
		"root directory": func(c *Config) { c.Full.Directory = "/" },
	}

	for label, fn := range tests {

		cfg := Default()
		fn(cfg)

		err := cfg.Validate()

		if err == nil {
			t.Fatalf("Expected '%s' to fail validation", label)
		}
	}
}
