// Package tags reads the embedded EXIF segment of an image into a typed set of the tags
// used to build a photo manifest: capture timestamps, orientation and the four GPS sub-tags.
package tags

import (
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ExifTimeLayout is the fixed layout of EXIF timestamp strings.
const ExifTimeLayout = "2006:01:02 15:04:05"

// Kind identifies one of the metadata tags that are understood.
type Kind int

const (
	DateTimeOriginal Kind = iota
	DateTime
	Orientation
	GPSLatitude
	GPSLatitudeRef
	GPSLongitude
	GPSLongitudeRef
)

// Kinds lists every recognized tag, in the order they are read.
var Kinds = []Kind{
	DateTimeOriginal,
	DateTime,
	Orientation,
	GPSLatitude,
	GPSLatitudeRef,
	GPSLongitude,
	GPSLongitudeRef,
}

var field_names = map[Kind]exif.FieldName{
	DateTimeOriginal: exif.DateTimeOriginal,
	DateTime:         exif.DateTime,
	Orientation:      exif.Orientation,
	GPSLatitude:      exif.GPSLatitude,
	GPSLatitudeRef:   exif.GPSLatitudeRef,
	GPSLongitude:     exif.GPSLongitude,
	GPSLongitudeRef:  exif.GPSLongitudeRef,
}

// String returns the EXIF field name for k.
func (k Kind) String() string {

	name, ok := field_names[k]

	if !ok {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return string(name)
}

// Rational is an unreduced EXIF rational number.
type Rational struct {
	Num   int64
	Denom int64
}

// Float64 returns r as a float64, failing when the denominator is zero.
func (r Rational) Float64() (float64, error) {

	if r.Denom == 0 {
		return 0, fmt.Errorf("Invalid rational %d/%d", r.Num, r.Denom)
	}

	return float64(r.Num) / float64(r.Denom), nil
}

// Value is the raw decoded value of a single tag. Exactly one of its representations is populated.
type Value struct {
	str  *string
	ints []int
	rats []Rational
}

func StringValue(s string) Value {
	return Value{str: &s}
}

func IntValue(i ...int) Value {
	return Value{ints: i}
}

func RationalValue(r ...Rational) Value {
	return Value{rats: r}
}

// TagSet maps recognized tags to their raw values. Tags missing from the source are absent from the set.
type TagSet struct {
	values map[Kind]Value
}

func NewTagSet() *TagSet {

	ts := &TagSet{
		values: make(map[Kind]Value),
	}

	return ts
}

func (ts *TagSet) Set(k Kind, v Value) {
	ts.values[k] = v
}

func (ts *TagSet) Has(k Kind) bool {

	if ts == nil {
		return false
	}

	_, ok := ts.values[k]
	return ok
}

func (ts *TagSet) Len() int {

	if ts == nil {
		return 0
	}

	return len(ts.values)
}

// String returns the string value of k, if present and string-valued.
func (ts *TagSet) String(k Kind) (string, bool) {

	if ts == nil {
		return "", false
	}

	v, ok := ts.values[k]

	if !ok || v.str == nil {
		return "", false
	}

	return *v.str, true
}

// Ints returns the integer values of k, if present and integer-valued.
func (ts *TagSet) Ints(k Kind) ([]int, bool) {

	if ts == nil {
		return nil, false
	}

	v, ok := ts.values[k]

	if !ok || len(v.ints) == 0 {
		return nil, false
	}

	return v.ints, true
}

// Rationals returns the rational values of k, if present and rational-valued.
func (ts *TagSet) Rationals(k Kind) ([]Rational, bool) {

	if ts == nil {
		return nil, false
	}

	v, ok := ts.values[k]

	if !ok || len(v.rats) == 0 {
		return nil, false
	}

	return v.rats, true
}

// Orientation returns the EXIF orientation code, if present.
func (ts *TagSet) Orientation() (int, bool) {

	i, ok := ts.Ints(Orientation)

	if !ok {
		return 0, false
	}

	return i[0], true
}

// CaptureTime returns the capture timestamp, preferring DateTimeOriginal over DateTime. Values
// that do not match ExifTimeLayout exactly are treated as absent.
func (ts *TagSet) CaptureTime() (time.Time, bool) {

	for _, k := range []Kind{DateTimeOriginal, DateTime} {

		str_dt, ok := ts.String(k)

		if !ok {
			continue
		}

		t, err := time.Parse(ExifTimeLayout, strings.TrimSpace(str_dt))

		if err != nil {
			continue
		}

		return t, true
	}

	return time.Time{}, false
}
