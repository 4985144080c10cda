package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImagingPreprocessor is the pure Go backend
type ImagingPreprocessor struct {
	opts Options
}

// NewImagingPreprocessor creates a preprocessor that needs no native libraries
func NewImagingPreprocessor(opts Options) *ImagingPreprocessor {
	if opts.SharpenSigma <= 0 {
		opts.SharpenSigma = 1
	}
	return &ImagingPreprocessor{opts: opts}
}

// Preprocess crops, desaturates, stretches contrast and sharpens imageData
func (p *ImagingPreprocessor) Preprocess(ctx context.Context, imageData []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Step 1: Crop to the amount area
	var out *image.NRGBA
	if p.opts.Crop.Enabled() {
		b := img.Bounds()
		if err := p.opts.Crop.Fits(b.Dx(), b.Dy()); err != nil {
			return nil, err
		}
		out = imaging.Crop(img, p.opts.Crop.Image().Add(b.Min))
	} else {
		out = imaging.Clone(img)
	}

	// Step 2: Greyscale
	out = imaging.Grayscale(out)

	// Step 3: Stretch contrast to the full range
	out = normalize(out)

	// Step 4: Sharpen edges
	out = imaging.Sharpen(out, p.opts.SharpenSigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// normalize linearly maps the darkest pixel to black and the brightest to white.
// img must already be greyscale.
func normalize(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo || (lo == 0 && hi == 255) {
		return img
	}

	span := float64(hi - lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8((float64(c.R-lo) * 255 / span) + 0.5)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}
