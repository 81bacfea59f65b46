package tags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrUnreadableMetadata is returned when an image has no parseable EXIF segment. It is never
// fatal: callers continue with the empty TagSet that accompanies it.
var ErrUnreadableMetadata = errors.New("unreadable metadata")

// Read parses the EXIF segment of the image encoded in body. On failure it returns an empty,
// non-nil TagSet and an error wrapping ErrUnreadableMetadata.
func Read(body []byte) (*TagSet, error) {

	ts := NewTagSet()

	segment, err := exifSegment(body)

	if err != nil {
		return ts, fmt.Errorf("%w, %v", ErrUnreadableMetadata, err)
	}

	// Corrupt element counts are rejected here, they would otherwise be allocated in full while decoding.
	err = checkBounds(segment)

	if err != nil {
		return ts, fmt.Errorf("%w, %v", ErrUnreadableMetadata, err)
	}

	x, err := decode(segment)

	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return ts, fmt.Errorf("%w, %v", ErrUnreadableMetadata, err)
	}

	for _, k := range Kinds {

		tag, err := x.Get(field_names[k])

		if err != nil {
			continue
		}

		v, err := tagValue(tag)

		if err != nil {
			continue
		}

		ts.Set(k, v)
	}

	return ts, nil
}

func decode(segment []byte) (x *exif.Exif, err error) {

	defer func() {

		r := recover()

		if r != nil {
			x = nil
			err = fmt.Errorf("Failed to decode segment, %v", r)
		}
	}()

	return exif.Decode(bytes.NewReader(segment))
}

// ReadFrom reads the image from r and parses its EXIF segment, see Read.
func ReadFrom(r io.Reader) (*TagSet, error) {

	body, err := io.ReadAll(r)

	if err != nil {
		return NewTagSet(), fmt.Errorf("%w, %v", ErrUnreadableMetadata, err)
	}

	return Read(body)
}

func tagValue(tag *tiff.Tag) (Value, error) {

	switch tag.Format() {
	case tiff.StringVal:

		str, err := tag.StringVal()

		if err != nil {
			return Value{}, err
		}

		str = strings.TrimRight(str, "\x00 ")
		return StringValue(str), nil

	case tiff.IntVal:

		count := int(tag.Count)
		ints := make([]int, count)

		for i := 0; i < count; i++ {

			v, err := tag.Int(i)

			if err != nil {
				return Value{}, err
			}

			ints[i] = v
		}

		return IntValue(ints...), nil

	case tiff.RatVal:

		count := int(tag.Count)
		rats := make([]Rational, count)

		for i := 0; i < count; i++ {

			num, denom, err := tag.Rat2(i)

			if err != nil {
				return Value{}, err
			}

			rats[i] = Rational{
				Num:   num,
				Denom: denom,
			}
		}

		return RationalValue(rats...), nil

	default:
		return Value{}, fmt.Errorf("Unsupported tag format %v", tag.Format())
	}
}
