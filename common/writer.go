package common

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/whosonfirst/go-writer/v3"
)

var writers = make(map[string]writer.Writer)
var writers_mu = new(sync.RWMutex)

// NewWriter returns a whosonfirst/go-writer.Writer instance. Instances
// are cached in memory for repeat lookups.
func NewWriter(ctx context.Context, uri string) (writer.Writer, error) {

	writers_mu.Lock()
	defer writers_mu.Unlock()

	wr, ok := writers[uri]

	if ok {
		return wr, nil
	}

	wr, err := writer.NewWriter(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create writer for '%s', %w", uri, err)
	}

	writers[uri] = wr
	return wr, nil
}

// NewWriterForPath returns a cached fs:// writer rooted at the directory containing path,
// creating that directory if necessary, along with the key to write path with.
func NewWriterForPath(ctx context.Context, path string) (writer.Writer, string, error) {

	root, key, err := splitPath(path)

	if err != nil {
		return nil, "", err
	}

	err = os.MkdirAll(root, 0755)

	if err != nil {
		return nil, "", fmt.Errorf("Failed to create %s, %w", root, err)
	}

	wr, err := NewWriter(ctx, "fs://"+root)

	if err != nil {
		return nil, "", err
	}

	return wr, key, nil
}
