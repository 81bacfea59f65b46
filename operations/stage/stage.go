package stage

// copy a source image to a local bucket where it can be processed, and get rid of it afterwards

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aaronland/go-string/random"
	"gocloud.dev/blob"
)

type StageOptions struct {
	// The bucket the image is read from.
	Source *blob.Bucket
	// The (local) bucket the image is copied to.
	Target *blob.Bucket
	// The key of the image in Source.
	Key string
}

// StagedAsset is a copy of a source image. It must be released once it has been processed.
type StagedAsset struct {
	// The key of the copy in the target bucket.
	Key    string
	Size   int64
	bucket *blob.Bucket
}

// Stage copies opts.Key from opts.Source to a unique key in opts.Target. Partial copies are removed.
func Stage(ctx context.Context, opts *StageOptions) (*StagedAsset, error) {

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// pass
	}

	str_opts := random.DefaultOptions()
	str_opts.AlphaNumeric = true
	str_opts.Length = 16

	prefix, err := random.String(str_opts)

	if err != nil {
		return nil, fmt.Errorf("Failed to generate staging key, %w", err)
	}

	target_key := fmt.Sprintf("%s_%s", prefix, path.Base(opts.Key))

	source_fh, err := opts.Source.NewReader(ctx, opts.Key, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to open %s, %w", opts.Key, err)
	}

	defer source_fh.Close()

	target_wr, err := opts.Target.NewWriter(ctx, target_key, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to create writer for %s, %w", target_key, err)
	}

	n, err := io.Copy(target_wr, source_fh)

	if err != nil {
		target_wr.Close()
		opts.Target.Delete(ctx, target_key)
		return nil, fmt.Errorf("Failed to copy %s, %w", opts.Key, err)
	}

	err = target_wr.Close()

	if err != nil {
		opts.Target.Delete(ctx, target_key)
		return nil, fmt.Errorf("Failed to close writer for %s, %w", target_key, err)
	}

	s := &StagedAsset{
		Key:    target_key,
		Size:   n,
		bucket: opts.Target,
	}

	return s, nil
}

func (s *StagedAsset) ReadAll(ctx context.Context) ([]byte, error) {

	body, err := s.bucket.ReadAll(ctx, s.Key)

	if err != nil {
		return nil, fmt.Errorf("Failed to read staged copy %s, %w", s.Key, err)
	}

	return body, nil
}

// Release removes the staged copy. It is safe to call more than once.
func (s *StagedAsset) Release(ctx context.Context) error {

	exists, err := s.bucket.Exists(ctx, s.Key)

	if err != nil {
		return fmt.Errorf("Failed to determine if %s exists, %w", s.Key, err)
	}

	if !exists {
		return nil
	}

	err = s.bucket.Delete(ctx, s.Key)

	if err != nil {
		return fmt.Errorf("Failed to remove staged copy %s, %w", s.Key, err)
	}

	return nil
}
