// Package media turns a source image, and what can be read from its embedded metadata, in to a manifest record.
package media

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/sfomuseum/go-photos-manifest/gps"
	"github.com/sfomuseum/go-photos-manifest/manifest"
	"github.com/sfomuseum/go-photos-manifest/naming"
	"github.com/sfomuseum/go-photos-manifest/tags"
)

// DateLayout is the layout of the manifest "date" property.
const DateLayout = "2006-01-02"

// Photo is everything known about a source image before it is assigned an id.
type Photo struct {
	// The path (or bucket key) of the source image.
	Path    string
	ModTime time.Time
	// Tags read from the image. Never nil, possibly empty.
	Tags *tags.TagSet
	// Coordinates derived from Tags, or nil.
	Coordinate *gps.Coordinate
}

// NewPhotoOptions is a struct containing the options for reading a source image.
type NewPhotoOptions struct {
	// The path (or bucket key) of the source image.
	Path    string
	Body    []byte
	ModTime time.Time
	// Optional logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewPhoto reads the embedded metadata of opts.Body. Unreadable metadata and malformed GPS tags are
// logged and otherwise ignored: the photo is still returned, with an empty tag set or no coordinate.
func NewPhoto(opts *NewPhotoOptions) *Photo {

	logger := opts.Logger

	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("path", opts.Path)

	ts, err := tags.Read(opts.Body)

	if err != nil {
		logger.Debug("Failed to read metadata, continuing without it", "error", err)
	}

	coord, err := gps.FromTagSet(ts)

	if err != nil {
		logger.Warn("Failed to derive coordinates, dropping them", "error", err)
		coord = nil
	}

	p := &Photo{
		Path:       opts.Path,
		ModTime:    opts.ModTime,
		Tags:       ts,
		Coordinate: coord,
	}

	return p
}

// Orientation returns the orientation code of the photo, 1 if it has none.
func (p *Photo) Orientation() int {

	o, ok := p.Tags.Orientation()

	if !ok {
		return 1
	}

	return o
}

// NewPhotoRecordOptions is a struct containing the run-specific options used to build a manifest record.
type NewPhotoRecordOptions struct {
	// The category the photo was scanned from.
	Category string
	// The directory (relative to the source root) of the category.
	CategoryDirectory string
	// The prefix for thumbnail and full references.
	BaseURL            string
	ThumbnailDirectory string
	ThumbnailSuffix    string
	FullDirectory      string
	FullSuffix         string
}

// NewPhotoRecord builds the manifest record for p using the identity in names.
func NewPhotoRecord(p *Photo, names *naming.Names, opts *NewPhotoRecordOptions) (*manifest.Record, error) {

	if names == nil {
		return nil, errors.New("Missing names")
	}

	if names.Category != opts.Category {
		return nil, fmt.Errorf("Names were assigned for '%s' not '%s'", names.Category, opts.Category)
	}

	thumb_fname := names.Filename(opts.ThumbnailSuffix)
	full_fname := names.Filename(opts.FullSuffix)

	original := path.Base(p.Path)

	r := &manifest.Record{
		Id:           names.Id,
		Title:        naming.Title(naming.Stem(original)),
		Category:     opts.Category,
		Thumbnail:    Reference(opts.BaseURL, opts.ThumbnailDirectory, thumb_fname),
		Full:         Reference(opts.BaseURL, opts.FullDirectory, full_fname),
		Location:     LocationLabel(p.Coordinate, p.Path, opts.Category, opts.CategoryDirectory),
		Date:         CaptureDate(p.Tags, p.ModTime),
		Filename:     full_fname,
		OriginalFile: original,
	}

	if p.Coordinate != nil {
		lat := p.Coordinate.Latitude
		lng := p.Coordinate.Longitude
		r.Latitude = &lat
		r.Longitude = &lng
	}

	return r, nil
}

// CaptureDate returns the capture date recorded in ts, or the date of modtime if there isn't one.
func CaptureDate(ts *tags.TagSet, modtime time.Time) string {

	t, ok := ts.CaptureTime()

	if ok {
		return t.Format(DateLayout)
	}

	return modtime.Format(DateLayout)
}

// LocationLabel returns the label for coord if present. Otherwise it is derived from the name of
// the directory containing source_path, unless that directory is the category directory itself,
// and failing that manifest.UnknownLocation.
func LocationLabel(coord *gps.Coordinate, source_path string, category string, category_dir string) string {

	if coord != nil {
		return coord.Label()
	}

	parent := path.Base(path.Dir(source_path))

	switch parent {
	case ".", "/", "":
		return manifest.UnknownLocation
	}

	if strings.EqualFold(parent, category) {
		return manifest.UnknownLocation
	}

	if category_dir != "" && strings.EqualFold(parent, path.Base(category_dir)) {
		return manifest.UnknownLocation
	}

	label := strings.NewReplacer("_", " ", "-", " ").Replace(parent)
	label = strings.TrimSpace(label)

	if label == "" {
		return manifest.UnknownLocation
	}

	return label
}

// Reference returns "{base_url}/{dir}/{fname}".
func Reference(base_url string, dir string, fname string) string {
	return strings.TrimRight(base_url, "/") + "/" + path.Join(dir, fname)
}
