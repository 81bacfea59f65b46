// Package gps converts EXIF degree/minute/second GPS tags in to signed decimal-degree coordinates.
package gps

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sfomuseum/go-photos-manifest/tags"
)

// ErrMalformedGPS is returned when GPS tags are present but cannot be converted. Only the
// coordinate is dropped; the photo is still processed.
var ErrMalformedGPS = errors.New("malformed GPS")

// Coordinate is a decimal-degree latitude, longitude pair.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Label returns the coordinate formatted to four decimal places, for example "37.7750, -122.4183".
func (c *Coordinate) Label() string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}

// FromTagSet derives a Coordinate from the GPS tags in ts. It returns nil, nil when either
// latitude or longitude is absent.
func FromTagSet(ts *tags.TagSet) (*Coordinate, error) {

	lat, ok := ts.Rationals(tags.GPSLatitude)

	if !ok {
		return nil, nil
	}

	lng, ok := ts.Rationals(tags.GPSLongitude)

	if !ok {
		return nil, nil
	}

	lat_ref, _ := ts.String(tags.GPSLatitudeRef)
	lng_ref, _ := ts.String(tags.GPSLongitudeRef)

	return Normalize(lat, lat_ref, lng, lng_ref)
}

// Normalize converts two degree/minute/second triples and their hemisphere references in to
// a Coordinate. Latitude is negated for "S" and longitude for "W"; missing references count as
// north and east.
func Normalize(lat []tags.Rational, lat_ref string, lng []tags.Rational, lng_ref string) (*Coordinate, error) {

	if len(lat) == 0 || len(lng) == 0 {
		return nil, nil
	}

	lat_dd, err := decimalDegrees(lat)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to derive latitude, %v", ErrMalformedGPS, err)
	}

	lng_dd, err := decimalDegrees(lng)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to derive longitude, %v", ErrMalformedGPS, err)
	}

	if hemisphere(lat_ref) == "S" {
		lat_dd = -lat_dd
	}

	if hemisphere(lng_ref) == "W" {
		lng_dd = -lng_dd
	}

	if lat_dd < -90.0 || lat_dd > 90.0 {
		return nil, fmt.Errorf("%w, latitude %f out of range", ErrMalformedGPS, lat_dd)
	}

	if lng_dd < -180.0 || lng_dd > 180.0 {
		return nil, fmt.Errorf("%w, longitude %f out of range", ErrMalformedGPS, lng_dd)
	}

	c := &Coordinate{
		Latitude:  lat_dd,
		Longitude: lng_dd,
	}

	return c, nil
}

// decimalDegrees returns degrees + minutes/60 + seconds/3600.
func decimalDegrees(dms []tags.Rational) (float64, error) {

	if len(dms) != 3 {
		return 0, fmt.Errorf("Expected 3 components, got %d", len(dms))
	}

	parts := make([]float64, 3)

	for i, r := range dms {

		v, err := r.Float64()

		if err != nil {
			return 0, err
		}

		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("Invalid component %d/%d", r.Num, r.Denom)
		}

		parts[i] = v
	}

	return parts[0] + parts[1]/60.0 + parts[2]/3600.0, nil
}

func hemisphere(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}
