package media

import (
	"bytes"
	"image/color"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sfomuseum/go-photos-manifest/gps"
	"github.com/sfomuseum/go-photos-manifest/manifest"
	"github.com/sfomuseum/go-photos-manifest/naming"
	"github.com/sfomuseum/go-photos-manifest/tags"
	"github.com/sfomuseum/go-photos-manifest/tags/exiftest"
)

func recordOptions(category string, dir string) *NewPhotoRecordOptions {

	opts := &NewPhotoRecordOptions{
		Category:           category,
		CategoryDirectory:  dir,
		BaseURL:            "./photos",
		ThumbnailDirectory: "thumbnails",
		ThumbnailSuffix:    "_thumb",
		FullDirectory:      "full",
	}

	return opts
}

func TestNewPhotoRecord(t *testing.T) {

	body, err := exiftest.JPEG(exiftest.Fixture{
		Width:            32,
		Height:           24,
		Fill:             color.White,
		Orientation:      6,
		DateTimeOriginal: "2023:07:04 18:30:00",
		GPS: &exiftest.GPS{
			Latitude:     exiftest.DMS(37, 46, 30.0),
			LatitudeRef:  "N",
			Longitude:    exiftest.DMS(122, 25, 6.0),
			LongitudeRef: "W",
		},
	})

	if err != nil {
		t.Fatalf("Failed to build fixture, %v", err)
	}

	modtime := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	p := NewPhoto(&NewPhotoOptions{Path: "Nature/golden-gate_at dusk.JPG", Body: body, ModTime: modtime})

	if p.Orientation() != 6 {
		t.Fatalf("Expected orientation 6, got %d", p.Orientation())
	}

	names := naming.Assign("nature", 4, p.Path)

	r, err := NewPhotoRecord(p, names, recordOptions("nature", "Nature"))

	if err != nil {
		t.Fatalf("Failed to build record, %v", err)
	}

	if r.Id != 4 || r.Category != "nature" {
		t.Fatalf("Unexpected record %+v", r)
	}

	if r.Title != "Golden Gate At Dusk" {
		t.Fatalf("Unexpected title '%s'", r.Title)
	}

	if r.Filename != "nature_004_golden-gate_at_dusk.jpg" {
		t.Fatalf("Unexpected filename '%s'", r.Filename)
	}

	if r.Thumbnail != "./photos/thumbnails/nature_004_golden-gate_at_dusk_thumb.jpg" {
		t.Fatalf("Unexpected thumbnail '%s'", r.Thumbnail)
	}

	if r.Full != "./photos/full/nature_004_golden-gate_at_dusk.jpg" {
		t.Fatalf("Unexpected full '%s'", r.Full)
	}

	if r.OriginalFile != "golden-gate_at dusk.JPG" {
		t.Fatalf("Unexpected original file '%s'", r.OriginalFile)
	}

	if r.Date != "2023-07-04" {
		t.Fatalf("Unexpected date '%s'", r.Date)
	}

	if !r.HasLocation() || r.Location != "37.7750, -122.4183" {
		t.Fatalf("Unexpected location '%s'", r.Location)
	}
}

func TestNewPhotoWithoutMetadata(t *testing.T) {

	body, err := exiftest.JPEG(exiftest.Fixture{Width: 8, Height: 8, Fill: color.Black})

	if err != nil {
		t.Fatalf("Failed to build fixture, %v", err)
	}

	modtime := time.Date(2022, 12, 31, 9, 0, 0, 0, time.UTC)
	p := NewPhoto(&NewPhotoOptions{Path: "Street/Mission_District/IMG_0001.jpg", Body: body, ModTime: modtime})

	if p.Tags == nil || p.Tags.Len() != 0 || p.Coordinate != nil {
		t.Fatalf("Expected an empty tag set and no coordinate")
	}

	if p.Orientation() != 1 {
		t.Fatalf("Expected default orientation, got %d", p.Orientation())
	}

	r, err := NewPhotoRecord(p, naming.Assign("street", 1, p.Path), recordOptions("street", "Street"))

	if err != nil {
		t.Fatalf("Failed to build record, %v", err)
	}

	if r.Date != "2022-12-31" {
		t.Fatalf("Expected modification date fallback, got '%s'", r.Date)
	}

	if r.Latitude != nil || r.Longitude != nil {
		t.Fatalf("Expected null coordinates")
	}

	if r.Location != "Mission District" {
		t.Fatalf("Unexpected location '%s'", r.Location)
	}

	_, err = NewPhotoRecord(p, naming.Assign("faces", 1, p.Path), recordOptions("street", "Street"))

	if err == nil {
		t.Fatalf("Expected mismatched category to fail")
	}
}

func TestNewPhotoMalformedGPS(t *testing.T) {

	body, err := exiftest.JPEG(exiftest.Fixture{
		Width:    8,
		Height:   8,
		Fill:     color.White,
		DateTime: "2021:05:06 07:08:09",
		GPS: &exiftest.GPS{
			Latitude:     []tags.Rational{{Num: 37, Denom: 0}, {Num: 0, Denom: 1}, {Num: 0, Denom: 1}},
			LatitudeRef:  "N",
			Longitude:    exiftest.DMS(122, 0, 0),
			LongitudeRef: "W",
		},
	})

	if err != nil {
		t.Fatalf("Failed to build fixture, %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil)).With("run", "abc123")

	p := NewPhoto(&NewPhotoOptions{
		Path:    "Faces/a.jpg",
		Body:    body,
		ModTime: time.Now(),
		Logger:  logger,
	})

	if p.Coordinate != nil {
		t.Fatalf("Expected malformed coordinates to be dropped")
	}

	logged := buf.String()

	if !strings.Contains(logged, "Failed to derive coordinates") || !strings.Contains(logged, "run=abc123") || !strings.Contains(logged, "path=Faces/a.jpg") {
		t.Fatalf("Expected a warning on the caller's logger, got '%s'", logged)
	}

	if CaptureDate(p.Tags, time.Now()) != "2021-05-06" {
		t.Fatalf("Expected DateTime fallback, got %s", CaptureDate(p.Tags, time.Now()))
	}
}

func TestLocationLabel(t *testing.T) {

	coord := &gps.Coordinate{Latitude: 1.23456, Longitude: -2.5}

	tests := []struct {
		coord    *gps.Coordinate
		path     string
		category string
		dir      string
		expected string
	}{
		{coord, "Street/x.jpg", "street", "Street", "1.2346, -2.5000"},
		{nil, "Street/x.jpg", "street", "Street", manifest.UnknownLocation},
		{nil, "Photos/Street/x.jpg", "street", "Photos/Street", manifest.UnknownLocation},
		{nil, "Landscapes/x.jpg", "nature", "Landscapes", manifest.UnknownLocation},
		{nil, "Nature/big-sur_coast/x.jpg", "nature", "Nature", "big sur coast"},
		{nil, "x.jpg", "nature", "", manifest.UnknownLocation},
	}

	for _, test := range tests {

		label := LocationLabel(test.coord, test.path, test.category, test.dir)

		if label != test.expected {
			t.Fatalf("Expected '%s' for %s, got '%s'", test.expected, test.path, label)
		}
	}
}

func TestReference(t *testing.T) {

	tests := map[string]string{
		"./photos":                    "./photos/full/a.jpg",
		"https://example.com/photos/": "https://example.com/photos/full/a.jpg",
	}

	for base, expected := range tests {

		v := Reference(base, "full", "a.jpg")

		if v != expected {
			t.Fatalf("Expected %s, got %s", expected, v)
		}
	}
}
