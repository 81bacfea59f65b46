package remove

// remove stale image variants from an asset bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"gocloud.dev/blob"
)

type Removal struct {
	// The asset bucket to remove files from.
	Bucket *blob.Bucket
	// Log what would be removed without removing anything.
	Dryrun bool
}

func NewRemoval(bucket *blob.Bucket) *Removal {

	c := &Removal{
		Bucket: bucket,
		Dryrun: false,
	}

	return c
}

// RemovePrefixes removes every file below each of prefixes, concurrently, and returns the number
// of files removed. Prefixes are treated as directories.
func (c *Removal) RemovePrefixes(ctx context.Context, prefixes ...string) (int64, error) {

	done_ch := make(chan bool)
	err_ch := make(chan error)

	removed := new(atomic.Int64)

	for _, prefix := range prefixes {

		go func(prefix string) {

			defer func() {
				done_ch <- true
			}()

			n, err := c.removePrefix(ctx, prefix)
			removed.Add(n)

			if err != nil {
				err_ch <- fmt.Errorf("Failed to remove '%s', %w", prefix, err)
			}
		}(prefix)
	}

	remaining := len(prefixes)
	errs := make([]string, 0)

	for remaining > 0 {
		select {
		case <-done_ch:
			remaining -= 1
		case err := <-err_ch:
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return removed.Load(), fmt.Errorf("One or more removal errors: %s", strings.Join(errs, ";"))
	}

	return removed.Load(), nil
}

// RemoveKeys removes each of keys, ignoring keys that don't exist. A key that can't be removed
// does not stop the others from being removed.
func (c *Removal) RemoveKeys(ctx context.Context, keys ...string) error {

	errs := make([]error, 0)

	for _, k := range keys {

		err := c.remove(ctx, k)

		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (c *Removal) removePrefix(ctx context.Context, prefix string) (int64, error) {

	prefix = strings.Trim(prefix, "/")

	if prefix == "" {
		return 0, fmt.Errorf("Refusing to remove the bucket root")
	}

	list_opts := &blob.ListOptions{
		Prefix: prefix + "/",
	}

	iter := c.Bucket.List(list_opts)
	count := int64(0)

	for {

		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
			// pass
		}

		obj, err := iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return count, err
		}

		if obj.IsDir {
			continue
		}

		err = c.remove(ctx, obj.Key)

		if err != nil {
			return count, err
		}

		count += 1
	}

	return count, nil
}

func (c *Removal) remove(ctx context.Context, key string) error {

	logger := slog.Default()
	logger = logger.With("key", key)

	if c.Dryrun {
		logger.Info("[dryrun] delete key")
		return nil
	}

	exists, err := c.Bucket.Exists(ctx, key)

	if err != nil {
		return fmt.Errorf("Failed to determine if %s exists, %w", key, err)
	}

	if !exists {
		return nil
	}

	logger.Debug("Delete key")

	err = c.Bucket.Delete(ctx, key)

	if err != nil {
		return fmt.Errorf("Failed to delete %s, %w", key, err)
	}

	return nil
}
