// Package manifest assembles photo records in to an ordered collection and serializes it as the
// JSON document consumed by presentation front ends.
package manifest

// Record is a single entry in a manifest document.
type Record struct {
	// The 1-based position of the photo in the manifest at the time it was appended.
	Id int `json:"id"`
	// Human-readable title derived from the original file name.
	Title string `json:"title"`
	// The category the photo was scanned from.
	Category string `json:"category"`
	// URL (or relative path) of the thumbnail variant.
	Thumbnail string `json:"thumbnail"`
	// URL (or relative path) of the full-size variant.
	Full string `json:"full"`
	// Decimal-degree latitude, or null. Always null when Longitude is null.
	Latitude *float64 `json:"lat"`
	// Decimal-degree longitude, or null. Always null when Latitude is null.
	Longitude *float64 `json:"lng"`
	// Coordinates to four decimal places, a label derived from the parent directory, or "Unknown".
	Location string `json:"location"`
	// Capture date (YYYY-MM-DD), falling back to the file modification date.
	Date string `json:"date"`
	// The file name of the full-size variant.
	Filename string `json:"filename"`
	// The file name of the source image.
	OriginalFile string `json:"original_file"`
}

// HasLocation reports whether the record carries coordinates.
func (r *Record) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}
