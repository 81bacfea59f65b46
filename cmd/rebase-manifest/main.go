// rebase-manifest rewrites the thumbnail and full references of an existing manifest so they
// point at a new base URL, for example a release download location.
package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/sfomuseum/go-photos-manifest/common"
	"github.com/sfomuseum/go-photos-manifest/manifest"
	"github.com/whosonfirst/go-ioutil"
)

func main() {

	var manifest_path string
	var output_path string
	var base_url string

	flag.StringVar(&manifest_path, "manifest", "photos.json", "The manifest document to rebase.")
	flag.StringVar(&output_path, "output", "", "Where to write the rebased manifest. Defaults to -manifest.")
	flag.StringVar(&base_url, "base-url", "", "The new base URL for thumbnail and full references.")

	flag.Parse()

	ctx := context.Background()
	logger := slog.Default()

	if base_url == "" {
		logger.Error("Missing -base-url")
		os.Exit(1)
	}

	if output_path == "" {
		output_path = manifest_path
	}

	r, key, err := common.NewReaderForPath(ctx, manifest_path)

	if err != nil {
		logger.Error("Failed to create reader", "error", err)
		os.Exit(1)
	}

	fh, err := r.Read(ctx, key)

	if err != nil {
		logger.Error("Failed to open manifest", "path", manifest_path, "error", err)
		os.Exit(1)
	}

	body, err := io.ReadAll(fh)
	fh.Close()

	if err != nil {
		logger.Error("Failed to read manifest", "path", manifest_path, "error", err)
		os.Exit(1)
	}

	body, err = manifest.Rebase(body, manifest.BaseURLTemplateFunc(base_url))

	if err != nil {
		logger.Error("Failed to rebase manifest", "error", err)
		os.Exit(1)
	}

	wr, key, err := common.NewWriterForPath(ctx, output_path)

	if err != nil {
		logger.Error("Failed to create writer", "error", err)
		os.Exit(1)
	}

	out, err := ioutil.NewReadSeekCloser(bytes.NewReader(body))

	if err != nil {
		logger.Error("Failed to create ReadSeekCloser", "error", err)
		os.Exit(1)
	}

	_, err = wr.Write(ctx, key, out)

	if err != nil {
		logger.Error("Failed to write manifest", "path", output_path, "error", err)
		os.Exit(1)
	}

	summary, err := manifest.SummarizeDocument(body)

	if err != nil {
		logger.Error("Failed to summarize manifest", "error", err)
		os.Exit(1)
	}

	logger.Info("Rebased manifest", "path", output_path, "records", summary.Total, "geolocated", summary.Geolocated)
}
