// Package photos normalizes a local (or bucket-backed) collection of photographs in to a set of
// web-ready JPEG variants and a JSON manifest describing them.
//
// Each photo's capture date and GPS position are read from its EXIF tags, the image is rotated
// according to its orientation tag and resized to a thumbnail and a full-size variant, and the
// photo is assigned an id and a web-safe file name. The work is split across:
//
//	tags               reading EXIF tags
//	gps                decimal-degree coordinates from GPS tags
//	naming             ids, file names and titles
//	media              manifest records for individual photos
//	manifest           assembling, sorting, writing and rebasing manifests
//	operations/gather  category scans
//	operations/encode  orientation-aware re-encoding
//	operations/process a complete run
package photos
