// Package config defines the options for a photos-manifest run and how they are loaded
// from a JSON document and the environment.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sfomuseum/go-photos-manifest/common"
)

// Variant describes one output image variant: where it is written, how its file name is
// suffixed and the envelope it is resized to fit.
type Variant struct {
	Directory string `json:"directory"`
	Suffix    string `json:"suffix"`
	MaxWidth  int    `json:"max_width"`
	MaxHeight int    `json:"max_height"`
	Quality   int    `json:"quality"`
}

// Category maps a category name to the directory, relative to the source root, its photos are read from.
type Category struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
}

type Config struct {
	// The source root. A local path or a gocloud.dev/blob URI.
	Source string `json:"source"`
	// Categories in the order they are scanned.
	Categories []*Category `json:"categories"`
	// The asset root variants are written to. A local path or a gocloud.dev/blob URI.
	Assets string `json:"assets"`
	// The prefix for the thumbnail and full references in the manifest.
	BaseURL string `json:"base_url"`
	// The maximum number of photos, most recently modified first, kept per category.
	MaxPhotosPerCategory int `json:"max_photos_per_category"`
	// Accepted file extensions, matched case-insensitively.
	Extensions []string `json:"extensions"`
	Thumbnail  *Variant `json:"thumbnail"`
	Full       *Variant `json:"full"`
	// The path the manifest document is written to.
	Manifest string `json:"manifest"`
	Workers  int    `json:"workers"`
	// The per-file processing timeout, as a Go duration string.
	Timeout string `json:"timeout"`
	// Apply a public-read ACL to variants written to S3.
	PublicRead bool `json:"public_read"`
	// Remove existing variants from the asset root before processing.
	Clean bool `json:"clean"`
	// An optional path to write a Prometheus textfile of run metrics to.
	Metrics string `json:"metrics,omitempty"`
}

// DefaultPath returns ~/.photos-manifest/config.json.
func DefaultPath() (string, error) {

	home, err := os.UserHomeDir()

	if err != nil {
		return "", fmt.Errorf("Failed to determine home directory, %w", err)
	}

	return filepath.Join(home, ".photos-manifest", "config.json"), nil
}

func Default() *Config {

	cfg := &Config{
		Source: ".",
		Categories: []*Category{
			{Name: "faces", Directory: "Faces"},
			{Name: "street", Directory: "Street"},
			{Name: "nature", Directory: "Nature"},
		},
		Assets:               "photos",
		BaseURL:              "./photos",
		MaxPhotosPerCategory: 500,
		Extensions:           []string{".jpg", ".jpeg", ".png", ".webp"},
		Thumbnail: &Variant{
			Directory: "thumbnails",
			Suffix:    "_thumb",
			MaxWidth:  400,
			MaxHeight: 533,
			Quality:   85,
		},
		Full: &Variant{
			Directory: "full",
			Suffix:    "",
			MaxWidth:  2000,
			MaxHeight: 2000,
			Quality:   90,
		},
		Manifest: "photos.json",
		Workers:  runtime.NumCPU(),
		Timeout:  "2m",
		Clean:    true,
	}

	return cfg
}

// Load reads the JSON document at path over the default configuration. Options the
// document does not mention keep their defaults, except for categories which are
// replaced as a whole when present.
func Load(ctx context.Context, path string) (*Config, error) {

	r, key, err := common.NewReaderForPath(ctx, path)

	if err != nil {
		return nil, err
	}

	fh, err := r.Read(ctx, key)

	if err != nil {
		return nil, fmt.Errorf("Failed to read config %s, %w", path, err)
	}

	defer fh.Close()

	body, err := io.ReadAll(fh)

	if err != nil {
		return nil, fmt.Errorf("Failed to read config %s, %w", path, err)
	}

	cfg := Default()
	defaults := cfg.Categories

	// Categories are replaced as a whole. Decoding in to the default list would fill
	// categories the document leaves incomplete from the defaults at the same position.
	cfg.Categories = nil

	err = json.Unmarshal(body, cfg)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse config %s, %w", path, err)
	}

	if cfg.Categories == nil {
		cfg.Categories = defaults
	}

	return cfg, nil
}

// LoadDefault loads the document at DefaultPath, or the default configuration if there isn't one.
func LoadDefault(ctx context.Context) (*Config, error) {

	path, err := DefaultPath()

	if err != nil {
		return nil, err
	}

	_, err = os.Stat(path)

	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	return Load(ctx, path)
}

// LoadEnv loads environment variables from each of paths (".env" if none are given).
// Files that don't exist are ignored and variables already set are not overwritten.
func LoadEnv(paths ...string) error {

	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {

		err := godotenv.Load(path)

		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return fmt.Errorf("Failed to load environment from %s, %w", path, err)
		}
	}

	return nil
}

// ApplyEnv overrides options with any PHOTOS_* environment variables that are set.
func (cfg *Config) ApplyEnv() error {

	strings_env := map[string]*string{
		"PHOTOS_SOURCE":   &cfg.Source,
		"PHOTOS_ASSETS":   &cfg.Assets,
		"PHOTOS_MANIFEST": &cfg.Manifest,
		"PHOTOS_BASE_URL": &cfg.BaseURL,
		"PHOTOS_TIMEOUT":  &cfg.Timeout,
	}

	for k, ptr := range strings_env {

		v, ok := os.LookupEnv(k)

		if ok {
			*ptr = strings.TrimSpace(v)
		}
	}

	ints_env := map[string]*int{
		"PHOTOS_MAX_PER_CATEGORY": &cfg.MaxPhotosPerCategory,
		"PHOTOS_WORKERS":          &cfg.Workers,
	}

	for k, ptr := range ints_env {

		v, ok := os.LookupEnv(k)

		if !ok {
			continue
		}

		i, err := strconv.Atoi(strings.TrimSpace(v))

		if err != nil {
			return fmt.Errorf("Failed to parse %s, %w", k, err)
		}

		*ptr = i
	}

	return nil
}

// ProcessTimeout returns the parsed per-file timeout.
func (cfg *Config) ProcessTimeout() (time.Duration, error) {

	d, err := time.ParseDuration(cfg.Timeout)

	if err != nil {
		return 0, fmt.Errorf("Failed to parse timeout '%s', %w", cfg.Timeout, err)
	}

	return d, nil
}

func (cfg *Config) Validate() error {

	if cfg.Source == "" {
		return fmt.Errorf("Missing source")
	}

	if cfg.Assets == "" {
		return fmt.Errorf("Missing assets")
	}

	if cfg.Manifest == "" {
		return fmt.Errorf("Missing manifest")
	}

	if len(cfg.Categories) == 0 {
		return fmt.Errorf("No categories defined")
	}

	seen := make(map[string]bool)

	for i, c := range cfg.Categories {

		if c == nil || c.Name == "" {
			return fmt.Errorf("Category %d is missing a name", i)
		}

		if strings.Trim(c.Directory, "/") == "" {
			return fmt.Errorf("Category '%s' is missing a directory", c.Name)
		}

		if seen[c.Name] {
			return fmt.Errorf("Category '%s' is defined more than once", c.Name)
		}

		seen[c.Name] = true
	}

	if cfg.MaxPhotosPerCategory < 1 {
		return fmt.Errorf("Invalid max_photos_per_category %d", cfg.MaxPhotosPerCategory)
	}

	if len(cfg.Extensions) == 0 {
		return fmt.Errorf("No extensions defined")
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("Invalid workers %d", cfg.Workers)
	}

	variants := map[string]*Variant{
		"thumbnail": cfg.Thumbnail,
		"full":      cfg.Full,
	}

	for label, v := range variants {

		if v == nil {
			return fmt.Errorf("Missing %s variant", label)
		}

		if strings.Trim(v.Directory, "/") == "" {
			return fmt.Errorf("Missing %s directory", label)
		}

		if v.MaxWidth < 1 || v.MaxHeight < 1 {
			return fmt.Errorf("Invalid %s envelope %dx%d", label, v.MaxWidth, v.MaxHeight)
		}

		if v.Quality < 1 || v.Quality > 100 {
			return fmt.Errorf("Invalid %s quality %d", label, v.Quality)
		}
	}

	if cfg.Thumbnail.Directory == cfg.Full.Directory && cfg.Thumbnail.Suffix == cfg.Full.Suffix {
		return fmt.Errorf("Thumbnail and full variants would be written to the same files")
	}

	_, err := cfg.ProcessTimeout()

	if err != nil {
		return err
	}

	return nil
}
