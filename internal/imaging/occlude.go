package imaging

import (
	"github.com/pkg/errors"

	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// OccludeImageBatch applies every mask in masks to img, blending each
// pixel as mask*pixel + (1-mask)*fill. Masks must match the image's
// spatial shape. One new image is returned per mask, in mask order.
func OccludeImageBatch(img *Image, masks *saliency.MaskSet, fill Fill) ([]*Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := masks.Validate(); err != nil {
		return nil, err
	}
	if masks.Height != img.Height || masks.Width != img.Width {
		return nil, errors.Wrapf(ErrShapeMismatch, "masks are %dx%d, image is %dx%d",
			masks.Height, masks.Width, img.Height, img.Width)
	}

	fillValues, err := fill.resolve(img)
	if err != nil {
		return nil, err
	}

	out := make([]*Image, masks.Count)
	for i := range masks.Count {
		occluded := New(img.Height, img.Width, img.Channels)
		for row := range img.Height {
			for col := range img.Width {
				m := masks.At(i, row, col)
				base := (row*img.Width + col) * img.Channels
				for ch := range img.Channels {
					occluded.Pix[base+ch] = m*img.Pix[base+ch] + (1-m)*fillValues[ch]
				}
			}
		}
		out[i] = occluded
	}

	return out, nil
}
