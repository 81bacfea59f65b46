// Package exiftest builds small JPEG images carrying an EXIF segment, for use in tests.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/sfomuseum/go-photos-manifest/tags"
)

const (
	typeASCII    uint16 = 2
	typeShort    uint16 = 3
	typeLong     uint16 = 4
	typeRational uint16 = 5
)

// OverflowingCount is a LONG entry whose element count, multiplied by the size of a LONG,
// wraps around 32 bits to a value that fits its segment.
var OverflowingCount = RawEntry{
	Tag:   0x0110,
	Type:  typeLong,
	Count: 0x40000002,
	Value: 8,
}

// GPS describes the four GPS sub-tags written to a fixture.
type GPS struct {
	Latitude     []tags.Rational
	LatitudeRef  string
	Longitude    []tags.Rational
	LongitudeRef string
}

// Fixture describes an image to build. Zero values omit the corresponding tag.
type Fixture struct {
	Width            int
	Height           int
	Orientation      int
	DateTimeOriginal string
	DateTime         string
	GPS              *GPS
	// Image, if set, is encoded instead of a uniformly filled Width x Height rectangle.
	Image image.Image
	Fill  color.Color
	// Raw entries are appended to the first directory exactly as given.
	Raw []RawEntry
}

// RawEntry is a directory entry written verbatim, whether or not its count and value agree.
// Value is stored in the entry's value field, which for large values is an offset.
type RawEntry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value uint32
}

// DMS is a convenience for degree/minute/second triples with whole degrees and minutes.
func DMS(deg int64, min int64, sec float64) []tags.Rational {

	return []tags.Rational{
		{Num: deg, Denom: 1},
		{Num: min, Denom: 1},
		{Num: int64(sec * 1000), Denom: 1000},
	}
}

// JPEG returns f encoded as a JPEG with an APP1 EXIF segment, unless f carries no tags in which
// case the plain JPEG is returned.
func JPEG(f Fixture) ([]byte, error) {

	im := f.Image

	if im == nil {
		im = Filled(f.Width, f.Height, f.Fill)
	}

	var buf bytes.Buffer

	err := jpeg.Encode(&buf, im, &jpeg.Options{Quality: 95})

	if err != nil {
		return nil, err
	}

	body := buf.Bytes()
	tiff := TIFF(f)

	if tiff == nil {
		return body, nil
	}

	payload := append([]byte("Exif\x00\x00"), tiff...)

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(body[2:])

	return out.Bytes(), nil
}

// Filled returns a w x h image filled with c (mid grey when c is nil).
func Filled(w int, h int, c color.Color) *image.RGBA {

	if c == nil {
		c = color.RGBA{128, 128, 128, 255}
	}

	im := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.Set(x, y, c)
		}
	}

	return im
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// TIFF returns the big-endian TIFF structure holding the tags in f, or nil if there are none.
func TIFF(f Fixture) []byte {

	exif_entries := make([]entry, 0)
	gps_entries := make([]entry, 0)

	if f.DateTimeOriginal != "" {
		exif_entries = append(exif_entries, asciiEntry(0x9003, f.DateTimeOriginal))
	}

	if f.GPS != nil {

		if f.GPS.LatitudeRef != "" {
			gps_entries = append(gps_entries, asciiEntry(0x0001, f.GPS.LatitudeRef))
		}

		if len(f.GPS.Latitude) > 0 {
			gps_entries = append(gps_entries, rationalEntry(0x0002, f.GPS.Latitude))
		}

		if f.GPS.LongitudeRef != "" {
			gps_entries = append(gps_entries, asciiEntry(0x0003, f.GPS.LongitudeRef))
		}

		if len(f.GPS.Longitude) > 0 {
			gps_entries = append(gps_entries, rationalEntry(0x0004, f.GPS.Longitude))
		}
	}

	ifd0 := func(exif_offset uint32, gps_offset uint32) []entry {

		entries := make([]entry, 0)

		if f.Orientation != 0 {
			entries = append(entries, shortEntry(0x0112, uint16(f.Orientation)))
		}

		if f.DateTime != "" {
			entries = append(entries, asciiEntry(0x0132, f.DateTime))
		}

		if len(exif_entries) > 0 {
			entries = append(entries, longEntry(0x8769, exif_offset))
		}

		if len(gps_entries) > 0 {
			entries = append(entries, longEntry(0x8825, gps_offset))
		}

		for _, raw := range f.Raw {

			data := make([]byte, 4)
			binary.BigEndian.PutUint32(data, raw.Value)

			entries = append(entries, entry{
				tag:   raw.Tag,
				typ:   raw.Type,
				count: raw.Count,
				data:  data,
			})
		}

		return entries
	}

	if len(ifd0(0, 0)) == 0 {
		return nil
	}

	const header_len = 8

	first := layout(ifd0(0, 0), header_len)
	exif_offset := uint32(header_len + len(first))

	exif_ifd := layout(exif_entries, exif_offset)
	gps_offset := exif_offset + uint32(len(exif_ifd))

	gps_ifd := layout(gps_entries, gps_offset)

	var buf bytes.Buffer
	buf.Write([]byte{'M', 'M', 0x00, 0x2A})
	binary.Write(&buf, binary.BigEndian, uint32(header_len))
	buf.Write(layout(ifd0(exif_offset, gps_offset), header_len))

	if len(exif_entries) > 0 {
		buf.Write(exif_ifd)
	}

	if len(gps_entries) > 0 {
		buf.Write(gps_ifd)
	}

	return buf.Bytes()
}

// layout serializes entries as an IFD starting at offset, followed by any out-of-line values.
func layout(entries []entry, offset uint32) []byte {

	if len(entries) == 0 {
		return nil
	}

	ifd_len := uint32(2 + 12*len(entries) + 4)
	extra_offset := offset + ifd_len

	var ifd bytes.Buffer
	var extra bytes.Buffer

	binary.Write(&ifd, binary.BigEndian, uint16(len(entries)))

	for _, e := range entries {

		binary.Write(&ifd, binary.BigEndian, e.tag)
		binary.Write(&ifd, binary.BigEndian, e.typ)
		binary.Write(&ifd, binary.BigEndian, e.count)

		if len(e.data) <= 4 {
			value := make([]byte, 4)
			copy(value, e.data)
			ifd.Write(value)
			continue
		}

		binary.Write(&ifd, binary.BigEndian, extra_offset+uint32(extra.Len()))
		extra.Write(e.data)

		if extra.Len()%2 != 0 {
			extra.WriteByte(0)
		}
	}

	binary.Write(&ifd, binary.BigEndian, uint32(0))

	return append(ifd.Bytes(), extra.Bytes()...)
}

func asciiEntry(tag uint16, s string) entry {

	data := append([]byte(s), 0)

	return entry{
		tag:   tag,
		typ:   typeASCII,
		count: uint32(len(data)),
		data:  data,
	}
}

func shortEntry(tag uint16, v uint16) entry {

	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, v)

	return entry{
		tag:   tag,
		typ:   typeShort,
		count: 1,
		data:  data,
	}
}

func longEntry(tag uint16, v uint32) entry {

	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, v)

	return entry{
		tag:   tag,
		typ:   typeLong,
		count: 1,
		data:  data,
	}
}

func rationalEntry(tag uint16, rats []tags.Rational) entry {

	data := make([]byte, 8*len(rats))

	for i, r := range rats {
		binary.BigEndian.PutUint32(data[i*8:], uint32(r.Num))
		binary.BigEndian.PutUint32(data[i*8+4:], uint32(r.Denom))
	}

	return entry{
		tag:   tag,
		typ:   typeRational,
		count: uint32(len(rats)),
		data:  data,
	}
}
