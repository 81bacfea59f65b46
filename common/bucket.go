package common

/*

Buckets are not pooled or cached the way readers and writers are. Code that
opens a bucket is expected to Close it and a shared instance would stop working
for everyone else the moment that happens, so open them as one-offs, as needed.

*/

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// IsLocal reports whether uri is a plain filesystem path (or a file:// URI) rather than a
// remote gocloud.dev/blob URI.
func IsLocal(uri string) bool {

	u, err := url.Parse(uri)

	if err != nil {
		return true
	}

	switch u.Scheme {
	case "", "file":
		return true
	default:
		return false
	}
}

// BucketURI turns uri in to something blob.OpenBucket understands. URIs with a scheme are
// returned as-is; anything else is treated as a local path. If create is true the local
// directory will be created on demand.
func BucketURI(uri string, create bool) (string, error) {

	if strings.Contains(uri, "://") {
		return uri, nil
	}

	abs_path, err := filepath.Abs(uri)

	if err != nil {
		return "", fmt.Errorf("Failed to derive absolute path for '%s', %w", uri, err)
	}

	q := url.Values{}
	q.Set("metadata", "skip")

	if create {
		q.Set("create_dir", "true")
	}

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs_path),
		RawQuery: q.Encode(),
	}

	return u.String(), nil
}

// OpenBucket opens the bucket for uri, which may be a local path. Callers are responsible for closing it.
func OpenBucket(ctx context.Context, uri string, create bool) (*blob.Bucket, error) {

	bucket_uri, err := BucketURI(uri, create)

	if err != nil {
		return nil, err
	}

	bucket, err := blob.OpenBucket(ctx, bucket_uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to open bucket for '%s', %w", uri, err)
	}

	return bucket, nil
}
