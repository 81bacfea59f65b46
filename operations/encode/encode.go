package encode

// decode an image once, normalize its colour model and orientation, then produce one JPEG per envelope

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/aaronland/go-image-tools/imaging"
	"github.com/aaronland/go-image-tools/util"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/png"
)

// ErrImageProcessingFailed wraps every decode, convert or encode failure. A photo whose
// variants cannot all be produced is dropped.
var ErrImageProcessingFailed = errors.New("image processing failed")

// Format is the single output format for every variant.
const Format = "jpeg"

// MimeType is the mimetype of every encoded variant.
const MimeType = "image/jpeg"

// Envelope constrains the size and quality of one encoded variant.
type Envelope struct {
	Label     string
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Variant is an encoded image produced for an Envelope.
type Variant struct {
	Label  string
	Body   []byte
	Width  int
	Height int
}

// Reencode decodes body and returns one Variant per envelope, in envelope order. Either every
// variant is produced or an error wrapping ErrImageProcessingFailed is returned.
func Reencode(ctx context.Context, body []byte, orientation int, envelopes ...Envelope) ([]*Variant, error) {

	for _, env := range envelopes {

		err := env.validate()

		if err != nil {
			return nil, err
		}
	}

	im, _, err := Decode(bytes.NewReader(body))

	if err != nil {
		return nil, err
	}

	im = Orient(Normalize(im), orientation)

	variants := make([]*Variant, len(envelopes))

	for i, env := range envelopes {

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w, %v", ErrImageProcessingFailed, ctx.Err())
		default:
			// pass
		}

		fitted := Fit(im, env)

		var buf bytes.Buffer

		err := Encode(fitted, env.Quality, &buf)

		if err != nil {
			return nil, fmt.Errorf("Failed to encode '%s' variant, %w", env.Label, err)
		}

		bounds := fitted.Bounds()

		variants[i] = &Variant{
			Label:  env.Label,
			Body:   buf.Bytes(),
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		}
	}

	return variants, nil
}

// Decode decodes an image in any of the registered formats (JPEG, PNG, GIF, WebP).
func Decode(r io.Reader) (image.Image, string, error) {

	im, format, err := util.DecodeImageFromReader(r)

	if err != nil {
		return nil, "", fmt.Errorf("%w, failed to decode image, %v", ErrImageProcessingFailed, err)
	}

	return im, format, nil
}

// Normalize returns im in a standard opaque representation: YCbCr and 8-bit grayscale images
// are returned as-is, 16-bit grayscale is reduced to 8 bits and everything else (including
// anything with an alpha channel) is flattened on to a white background.
func Normalize(im image.Image) image.Image {

	bounds := im.Bounds()

	switch im.(type) {
	case *image.YCbCr, *image.Gray:
		return im
	case *image.Gray16:

		gray := image.NewGray(bounds)
		draw.Draw(gray, bounds, im, bounds.Min, draw.Src)
		return gray

	default:

		flat := image.NewRGBA(bounds)
		draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(flat, bounds, im, bounds.Min, draw.Over)
		return flat
	}
}

// Orient applies the EXIF orientation correction for codes 3, 6 and 8 (counter-clockwise
// rotations of 180, 270 and 90 degrees). All other codes, including the mirrored ones, leave
// the image untouched.
func Orient(im image.Image, orientation int) image.Image {

	var degrees float64

	switch orientation {
	case 3:
		degrees = 180
	case 6:
		degrees = 270
	case 8:
		degrees = 90
	default:
		return im
	}

	return imaging.Rotate(im, degrees, color.White)
}

// Fit downscales im to fit within env, preserving its aspect ratio. Images already inside the
// envelope are returned unchanged.
func Fit(im image.Image, env Envelope) image.Image {

	bounds := im.Bounds()

	if bounds.Dx() <= env.MaxWidth && bounds.Dy() <= env.MaxHeight {
		return im
	}

	return resize.Thumbnail(uint(env.MaxWidth), uint(env.MaxHeight), im, resize.Lanczos3)
}

// Encode writes im to wr as a JPEG at the given quality.
func Encode(im image.Image, quality int, wr io.Writer) error {

	opts := &jpeg.Options{
		Quality: quality,
	}

	err := jpeg.Encode(wr, im, opts)

	if err != nil {
		return fmt.Errorf("%w, %v", ErrImageProcessingFailed, err)
	}

	return nil
}

func (env Envelope) validate() error {

	if env.MaxWidth <= 0 || env.MaxHeight <= 0 {
		return fmt.Errorf("%w, invalid '%s' envelope %dx%d", ErrImageProcessingFailed, env.Label, env.MaxWidth, env.MaxHeight)
	}

	if env.Quality < 1 || env.Quality > 100 {
		return fmt.Errorf("%w, invalid '%s' quality %d", ErrImageProcessingFailed, env.Label, env.Quality)
	}

	return nil
}
