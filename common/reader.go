package common

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/whosonfirst/go-reader/v2"
)

var readers = make(map[string]reader.Reader)
var readers_mu = new(sync.RWMutex)

// NewReader returns a whosonfirst/go-reader.Reader instance. Instances
// are cached in memory for repeat lookups.
func NewReader(ctx context.Context, uri string) (reader.Reader, error) {

	readers_mu.Lock()
	defer readers_mu.Unlock()

	r, ok := readers[uri]

	if ok {
		return r, nil
	}

	r, err := reader.NewReader(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create reader for '%s', %w", uri, err)
	}

	readers[uri] = r
	return r, nil
}

// NewReaderForPath returns a cached fs:// reader rooted at the directory containing path
// along with the key (the base name) to read path with.
func NewReaderForPath(ctx context.Context, path string) (reader.Reader, string, error) {

	root, key, err := splitPath(path)

	if err != nil {
		return nil, "", err
	}

	r, err := NewReader(ctx, "fs://"+root)

	if err != nil {
		return nil, "", err
	}

	return r, key, nil
}

func splitPath(path string) (string, string, error) {

	abs_path, err := filepath.Abs(path)

	if err != nil {
		return "", "", fmt.Errorf("Failed to derive absolute path for '%s', %w", path, err)
	}

	root := filepath.ToSlash(filepath.Dir(abs_path))
	key := filepath.Base(abs_path)

	return root, key, nil
}
