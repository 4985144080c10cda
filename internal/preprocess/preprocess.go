// Package preprocess prepares screenshots for OCR.
//
// The crop rectangle is tuned to a single screenshot layout (the card
// statement total area) and is not a general purpose text locator.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"
)

// Backend names accepted in configuration
const (
	BackendImagick = "imagick"
	BackendImaging = "imaging"
)

// ErrCropOutOfBounds is returned when the crop rectangle does not fit the image
var ErrCropOutOfBounds = errors.New("crop rectangle outside image bounds")

// Preprocessor turns an uploaded image into an OCR-ready PNG
type Preprocessor interface {
	Preprocess(ctx context.Context, imageData []byte) ([]byte, error)
}

// Rect is the crop rectangle in source pixels
type Rect struct {
	Left   int `mapstructure:"left" yaml:"left"`
	Top    int `mapstructure:"top" yaml:"top"`
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// DefaultCrop matches the statement screenshot the bot was tuned for
var DefaultCrop = Rect{Left: 500, Top: 300, Width: 280, Height: 200}

// Enabled reports whether cropping is configured
func (r Rect) Enabled() bool {
	return r.Width > 0 && r.Height > 0
}

// Image returns r as an image.Rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Validate rejects negative offsets and sizes
func (r Rect) Validate() error {
	if r.Left < 0 || r.Top < 0 || r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("crop rectangle must not be negative: %+v", r)
	}
	return nil
}

// Fits checks that r lies inside an image of the given size
func (r Rect) Fits(width, height int) error {
	if !r.Image().In(image.Rect(0, 0, width, height)) {
		return fmt.Errorf("%w: %+v in %dx%d", ErrCropOutOfBounds, r, width, height)
	}
	return nil
}

// Options configures a preprocessing backend
type Options struct {
	Crop         Rect
	SharpenSigma float64
}

// DebugWriter saves every processed image to a fixed path.
// Write failures are logged and otherwise ignored.
type DebugWriter struct {
	Next Preprocessor
	Path string
}

// Preprocess delegates to Next and writes the result to Path
func (d *DebugWriter) Preprocess(ctx context.Context, imageData []byte) ([]byte, error) {
	out, err := d.Next.Preprocess(ctx, imageData)
	if err != nil || d.Path == "" {
		return out, err
	}

	if werr := os.WriteFile(d.Path, out, 0o644); werr != nil {
		zerolog.Ctx(ctx).Warn().Err(werr).Str("path", d.Path).Msg("Failed to write debug image")
	}
	return out, nil
}
