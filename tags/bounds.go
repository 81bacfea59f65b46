package tags

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// The most directories that will be walked in a single segment.
const maxDirectories = 32

// Sub-directory pointers that are followed when the segment is decoded.
var pointer_tags = map[uint16]bool{
	0x8769: true, // ExifIFDPointer
	0x8825: true, // GPSInfoIFDPointer
	0xA005: true, // InteroperabilityIFDPointer
}

// Value sizes, in bytes, of the TIFF field types.
var type_sizes = map[uint16]uint64{
	1:  1, // BYTE
	2:  1, // ASCII
	3:  2, // SHORT
	4:  4, // LONG
	5:  8, // RATIONAL
	6:  1, // SBYTE
	7:  1, // UNDEFINED
	8:  2, // SSHORT
	9:  4, // SLONG
	10: 8, // SRATIONAL
	11: 4, // FLOAT
	12: 8, // DOUBLE
}

var errNoSegment = errors.New("no EXIF segment")

// exifSegment returns the TIFF structure holding the EXIF tags of body: body itself for TIFF
// files, otherwise the payload of the first JPEG APP1 "Exif" segment.
func exifSegment(body []byte) ([]byte, error) {

	if isTIFF(body) {
		return body, nil
	}

	if len(body) < 4 || body[0] != 0xFF || body[1] != 0xD8 {
		return nil, errNoSegment
	}

	i := 2

	for i+4 <= len(body) {

		if body[i] != 0xFF {
			return nil, fmt.Errorf("Invalid JPEG marker at offset %d", i)
		}

		marker := body[i+1]

		switch {
		case marker == 0xFF:
			// fill byte
			i += 1
			continue
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			i += 2
			continue
		case marker == 0xD9 || marker == 0xDA:
			return nil, errNoSegment
		}

		length := int(binary.BigEndian.Uint16(body[i+2:]))

		if length < 2 || i+2+length > len(body) {
			return nil, fmt.Errorf("JPEG segment at offset %d overruns the image", i)
		}

		segment := body[i+4 : i+2+length]

		if marker == 0xE1 && bytes.HasPrefix(segment, []byte("Exif\x00\x00")) {
			return segment[6:], nil
		}

		i += 2 + length
	}

	return nil, errNoSegment
}

func isTIFF(body []byte) bool {
	return bytes.HasPrefix(body, []byte("II*\x00")) || bytes.HasPrefix(body, []byte("MM\x00*"))
}

// checkBounds walks every directory that will be decoded from the TIFF structure in data and
// fails if any of them, or any of their values, lies outside of data. Element counts are
// capped at len(data), so nothing decoded from a valid segment can outgrow the segment.
func checkBounds(data []byte) error {

	if len(data) < 8 || !isTIFF(data) {
		return errors.New("Invalid TIFF header")
	}

	var order binary.ByteOrder = binary.BigEndian

	if data[0] == 'I' {
		order = binary.LittleEndian
	}

	size := uint64(len(data))

	seen := make(map[uint32]bool)
	subdirs := make([]uint32, 0)

	walk := func(offset uint32) (uint32, error) {

		if seen[offset] {
			return 0, fmt.Errorf("Directory at offset %d is referenced more than once", offset)
		}

		if len(seen) >= maxDirectories {
			return 0, errors.New("Too many directories")
		}

		seen[offset] = true

		start := uint64(offset)

		if start+2 > size {
			return 0, fmt.Errorf("Directory at offset %d is outside the segment", offset)
		}

		count := uint64(order.Uint16(data[start:]))
		end := start + 2 + count*12

		if end > size {
			return 0, fmt.Errorf("Directory at offset %d overruns the segment", offset)
		}

		for i := uint64(0); i < count; i++ {

			e := data[start+2+i*12:]

			tag := order.Uint16(e[0:])
			typ := order.Uint16(e[2:])
			n := uint64(order.Uint32(e[4:]))

			if n > size {
				return 0, fmt.Errorf("Tag 0x%04x claims %d values", tag, n)
			}

			width, ok := type_sizes[typ]

			if !ok {
				return 0, fmt.Errorf("Tag 0x%04x has unknown type %d", tag, typ)
			}

			if width*n > 4 {

				value_offset := uint64(order.Uint32(e[8:]))

				if value_offset+width*n > size {
					return 0, fmt.Errorf("Value of tag 0x%04x is outside the segment", tag)
				}
			}

			if !pointer_tags[tag] {
				continue
			}

			switch typ {
			case 3:
				subdirs = append(subdirs, uint32(order.Uint16(e[8:])))
			case 4, 9:
				subdirs = append(subdirs, order.Uint32(e[8:]))
			}
		}

		if end+4 > size {
			return 0, nil
		}

		return order.Uint32(data[end:]), nil
	}

	next := order.Uint32(data[4:])

	for next != 0 {

		n, err := walk(next)

		if err != nil {
			return err
		}

		next = n
	}

	// Sub-directories are decoded on their own, their next pointers are not followed.
	for i := 0; i < len(subdirs); i++ {

		_, err := walk(subdirs[i])

		if err != nil {
			return err
		}
	}

	return nil
}
