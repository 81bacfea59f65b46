package gather

// find the images in a category directory (and its immediate subdirectories), most recently modified first

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"gocloud.dev/blob"
)

// ErrSourceUnreachable is returned when the source root cannot be listed at all.
var ErrSourceUnreachable = errors.New("source unreachable")

// SourceAsset is a reference to a single source image.
type SourceAsset struct {
	// The key of the image in the source bucket.
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modtime"`
	Category string    `json:"category"`
}

// GatherAssetsOptions defines a single category scan.
type GatherAssetsOptions struct {
	// The category assets are assigned to.
	Category string
	// The directory, relative to the bucket root, to scan.
	Directory string
	// Accepted file extensions, matched case-insensitively. If empty every file is accepted.
	Extensions []string
	// The maximum number of assets to return. Zero means no limit.
	Max int
	// How many levels of subdirectories below Directory to descend in to.
	Depth int
}

// CheckSource ensures that bucket can be listed. Any failure is wrapped in ErrSourceUnreachable.
func CheckSource(ctx context.Context, bucket *blob.Bucket) error {

	iter := bucket.List(nil)
	_, err := iter.Next(ctx)

	if err != nil && err != io.EOF {
		return fmt.Errorf("%w, %w", ErrSourceUnreachable, err)
	}

	return nil
}

// GatherAssets returns the assets for a category scan, ordered by modification time (most recent
// first, ties in listing order) and truncated to opts.Max. A missing category directory yields no assets.
func GatherAssets(ctx context.Context, bucket *blob.Bucket, opts *GatherAssetsOptions) ([]*SourceAsset, error) {

	logger := slog.Default()
	logger = logger.With("category", opts.Category, "directory", opts.Directory)

	assets := make([]*SourceAsset, 0)

	cb := func(obj *blob.ListObject) error {

		if !acceptExtension(obj.Key, opts.Extensions) {
			return nil
		}

		a := &SourceAsset{
			Path:     obj.Key,
			Size:     obj.Size,
			ModTime:  obj.ModTime,
			Category: opts.Category,
		}

		assets = append(assets, a)
		return nil
	}

	err := CrawlAssets(ctx, bucket, dirPrefix(opts.Directory), opts.Depth, cb)

	if err != nil {
		return nil, fmt.Errorf("Failed to crawl '%s', %w", opts.Directory, err)
	}

	if len(assets) == 0 {
		logger.Warn("No assets found")
		return assets, nil
	}

	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].ModTime.After(assets[j].ModTime)
	})

	if opts.Max > 0 && len(assets) > opts.Max {
		logger.Debug("Truncate assets", "found", len(assets), "max", opts.Max)
		assets = assets[:opts.Max]
	}

	return assets, nil
}

// CrawlAssets lists every file below prefix, descending at most depth levels of subdirectories,
// and dispatches it to cb. Files are listed before the subdirectories that follow them.
func CrawlAssets(ctx context.Context, bucket *blob.Bucket, prefix string, depth int, cb func(*blob.ListObject) error) error {

	var list func(context.Context, string, int) error

	list = func(ctx context.Context, prefix string, level int) error {

		iter := bucket.List(&blob.ListOptions{
			Delimiter: "/",
			Prefix:    prefix,
		})

		subdirs := make([]string, 0)

		for {

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				// pass
			}

			obj, err := iter.Next(ctx)

			if err == io.EOF {
				break
			}

			if err != nil {
				return err
			}

			if obj.IsDir {

				if level < depth {
					subdirs = append(subdirs, obj.Key)
				}

				continue
			}

			err = cb(obj)

			if err != nil {
				return err
			}
		}

		for _, d := range subdirs {

			err := list(ctx, d, level+1)

			if err != nil {
				return err
			}
		}

		return nil
	}

	return list(ctx, prefix, 0)
}

func dirPrefix(dir string) string {

	dir = strings.Trim(path.Clean("/"+dir), "/")

	if dir == "" {
		return ""
	}

	return dir + "/"
}

func acceptExtension(key string, extensions []string) bool {

	if len(extensions) == 0 {
		return true
	}

	ext := path.Ext(key)

	for _, e := range extensions {

		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}

		if strings.EqualFold(ext, e) {
			return true
		}
	}

	return false
}
