package gps

import (
	"errors"
	"math"
	"testing"

	"github.com/sfomuseum/go-photos-manifest/tags"
)

func dms(d, m, s int64, s_denom int64) []tags.Rational {
	return []tags.Rational{{Num: d, Denom: 1}, {Num: m, Denom: 1}, {Num: s, Denom: s_denom}}
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

func TestNormalize(t *testing.T) {

	c, err := Normalize(dms(37, 46, 300, 10), "N", dms(122, 25, 60, 10), "W")

	if err != nil {
		t.Fatalf("Failed to normalize, %v", err)
	}

	if round4(c.Latitude) != 37.7750 || round4(c.Longitude) != -122.4183 {
		t.Fatalf("Unexpected coordinate %f, %f", c.Latitude, c.Longitude)
	}

	if c.Label() != "37.7750, -122.4183" {
		t.Fatalf("Unexpected label '%s'", c.Label())
	}
}

func TestNormalizeSigns(t *testing.T) {

	tests := []struct {
		lat_ref string
		lng_ref string
		lat     float64
		lng     float64
	}{
		{"N", "E", 10.5, 20.25},
		{"S", "E", -10.5, 20.25},
		{"N", "W", 10.5, -20.25},
		{"S", "W", -10.5, -20.25},
		{"", "", 10.5, 20.25},
		{" s", "w ", -10.5, -20.25},
	}

	for _, tt := range tests {

		c, err := Normalize(dms(10, 30, 0, 1), tt.lat_ref, dms(20, 15, 0, 1), tt.lng_ref)

		if err != nil {
			t.Fatalf("Failed to normalize %s/%s, %v", tt.lat_ref, tt.lng_ref, err)
		}

		if c.Latitude != tt.lat || c.Longitude != tt.lng {
			t.Fatalf("Expected %f, %f for %s/%s, got %f, %f", tt.lat, tt.lng, tt.lat_ref, tt.lng_ref, c.Latitude, c.Longitude)
		}
	}
}

func TestNormalizeAbsent(t *testing.T) {

	c, err := Normalize(nil, "N", dms(1, 0, 0, 1), "E")

	if c != nil || err != nil {
		t.Fatalf("Expected an absent coordinate, got %v, %v", c, err)
	}

	ts := tags.NewTagSet()
	ts.Set(tags.GPSLatitude, tags.RationalValue(dms(1, 0, 0, 1)...))

	c, err = FromTagSet(ts)

	if c != nil || err != nil {
		t.Fatalf("Expected an absent coordinate from partial tags, got %v, %v", c, err)
	}
}

func TestNormalizeMalformed(t *testing.T) {

	tests := map[string][]tags.Rational{
		"zero denominator": dms(10, 0, 1, 0),
		"short triple":     dms(10, 0, 1, 1)[:2],
		"out of range":     dms(95, 0, 0, 1),
	}

	for label, lat := range tests {

		c, err := Normalize(lat, "N", dms(1, 0, 0, 1), "E")

		if !errors.Is(err, ErrMalformedGPS) {
			t.Fatalf("%s: expected ErrMalformedGPS, got %v", label, err)
		}

		if c != nil {
			t.Fatalf("%s: expected no coordinate", label)
		}
	}
}

func TestFromTagSet(t *testing.T) {

	ts := tags.NewTagSet()
	ts.Set(tags.GPSLatitude, tags.RationalValue(dms(33, 51, 540, 10)...))
	ts.Set(tags.GPSLatitudeRef, tags.StringValue("S"))
	ts.Set(tags.GPSLongitude, tags.RationalValue(dms(151, 12, 360, 10)...))
	ts.Set(tags.GPSLongitudeRef, tags.StringValue("E"))

	c, err := FromTagSet(ts)

	if err != nil {
		t.Fatalf("Failed to derive coordinate, %v", err)
	}

	if round4(c.Latitude) != -33.8650 || round4(c.Longitude) != 151.2100 {
		t.Fatalf("Unexpected coordinate %f, %f", c.Latitude, c.Longitude)
	}
}
