// Package imaging prepares complaint photos for storage and review: it fixes
// EXIF orientation, renders the measured area onto annotated copies and makes
// dashboard thumbnails.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	// Registered decoders for uploads that are not JPEG.
	_ "image/gif"
	_ "image/png"

	"github.com/apex/log"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	jpegQuality = 85
	bandPadding = 6
)

var (
	bandColor  = color.RGBA{R: 0, G: 0, B: 0, A: 200}
	labelColor = color.RGBA{R: 255, G: 214, B: 0, A: 255}
)

// Orientation reads the EXIF orientation tag, defaulting to 1 (upright).
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// Orient applies an EXIF orientation so the image is upright.
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Decode decodes an uploaded photo and turns it upright.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if o := Orientation(data); o != 1 {
		img = Orient(img, o)
		log.Debugf("applied orientation correction: %d", o)
	}
	return img, nil
}

// EncodeJPEG encodes img as a JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Label is the caption written on annotated images.
func Label(pixelArea int64) string {
	if pixelArea == 0 {
		return "no garbage detected"
	}
	return fmt.Sprintf("garbage area: %d px", pixelArea)
}

// Annotate returns a JPEG copy of the photo with a caption band stating the
// measured pixel area. It is used when the engine sends no annotated image.
func Annotate(data []byte, pixelArea int64) ([]byte, error) {
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}

	face := basicfont.Face7x13
	b := src.Bounds()
	bandHeight := face.Metrics().Height.Ceil() + 2*bandPadding

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+bandHeight))
	draw.Draw(dst, image.Rect(0, 0, b.Dx(), b.Dy()), src, b.Min, draw.Src)
	band := image.Rect(0, b.Dy(), b.Dx(), b.Dy()+bandHeight)
	draw.Draw(dst, band, image.NewUniform(bandColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(bandPadding, b.Dy()+bandPadding+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(Label(pixelArea))

	return EncodeJPEG(dst)
}

// Thumbnail returns a JPEG that fits in a maxSide square, upright.
// Images already small enough are only re-encoded.
func Thumbnail(data []byte, maxSide int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}
	return EncodeJPEG(img)
}
