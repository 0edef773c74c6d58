// Package imaging holds the in-memory image representation and the
// occlusion compositor used to build perturbed images.
package imaging

import (
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"

	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned when image or mask dimensions disagree.
var ErrShapeMismatch = errors.New("image shape mismatch")

// Image is a row-major H x W x C image of float samples. A grayscale image
// has one channel.
type Image struct {
	Height   int
	Width    int
	Channels int
	Pix      []float64
}

// New allocates a zeroed image.
func New(height, width, channels int) *Image {
	return &Image{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]float64, height*width*channels),
	}
}

// NewFilled allocates an image with every sample set to v.
func NewFilled(height, width, channels int, v float64) *Image {
	img := New(height, width, channels)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func (im *Image) offset(row, col, ch int) int {
	return (row*im.Width+col)*im.Channels + ch
}

// At returns the sample at (row, col, ch).
func (im *Image) At(row, col, ch int) float64 {
	return im.Pix[im.offset(row, col, ch)]
}

// Set stores v at (row, col, ch).
func (im *Image) Set(row, col, ch int, v float64) {
	im.Pix[im.offset(row, col, ch)] = v
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	out := &Image{Height: im.Height, Width: im.Width, Channels: im.Channels, Pix: make([]float64, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// Validate checks the dimensions are positive and match the sample count.
func (im *Image) Validate() error {
	if im == nil {
		return errors.Wrap(ErrShapeMismatch, "image is nil")
	}
	if im.Height <= 0 || im.Width <= 0 || im.Channels <= 0 {
		return errors.Wrapf(ErrShapeMismatch, "invalid dimensions %dx%dx%d", im.Height, im.Width, im.Channels)
	}
	if len(im.Pix) != im.Height*im.Width*im.Channels {
		return errors.Wrapf(ErrShapeMismatch, "%d samples for %dx%dx%d image",
			len(im.Pix), im.Height, im.Width, im.Channels)
	}
	return nil
}

// ChannelMeans returns the mean of each channel.
func (im *Image) ChannelMeans() []float64 {
	means := make([]float64, im.Channels)
	for i, v := range im.Pix {
		means[i%im.Channels] += v
	}

	n := float64(im.Height * im.Width)
	for ch := range means {
		means[ch] /= n
	}
	return means
}

// FromImage converts a standard library image to 8-bit RGB samples.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := New(b.Dy(), b.Dx(), 3)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			row, col := y-b.Min.Y, x-b.Min.X
			img.Set(row, col, 0, float64(r>>8))
			img.Set(row, col, 1, float64(g>>8))
			img.Set(row, col, 2, float64(bl>>8))
		}
	}

	return img
}

// Decode reads a PNG, JPEG or GIF image.
func Decode(r io.Reader) (*Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}

	img := FromImage(src)
	if err := img.Validate(); err != nil {
		return nil, errors.Wrapf(err, "decoded %s image", format)
	}

	return img, nil
}
