package ocr

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/facturaIA/amount-extractor-bot/internal/preprocess"
	"gopkg.in/gographics/imagick.v3/imagick"
)

var (
	magickOnce  sync.Once
	magickReady atomic.Bool
)

// Terminate releases ImageMagick. Call once at shutdown.
func Terminate() {
	if magickReady.Load() {
		imagick.Terminate()
	}
}

// Preprocessor handles image preprocessing with ImageMagick
type Preprocessor struct {
	opts preprocess.Options
}

// NewPreprocessor creates a new ImageMagick preprocessor
func NewPreprocessor(opts preprocess.Options) *Preprocessor {
	magickOnce.Do(func() {
		imagick.Initialize()
		magickReady.Store(true)
	})
	if opts.SharpenSigma <= 0 {
		opts.SharpenSigma = 1
	}
	return &Preprocessor{
		opts: opts,
	}
}

// Preprocess crops the amount area and enhances it for OCR
func (p *Preprocessor) Preprocess(ctx context.Context, imageData []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	// Read image
	err := mw.ReadImageBlob(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	// Step 1: Crop to the configured rectangle
	if crop := p.opts.Crop; crop.Enabled() {
		width := int(mw.GetImageWidth())
		height := int(mw.GetImageHeight())
		if err := crop.Fits(width, height); err != nil {
			return nil, err
		}

		err = mw.CropImage(uint(crop.Width), uint(crop.Height), crop.Left, crop.Top)
		if err != nil {
			return nil, fmt.Errorf("crop failed: %w", err)
		}

		// Drop the virtual canvas offset left behind by the crop
		err = mw.SetImagePage(0, 0, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("page reset failed: %w", err)
		}
	}

	// Step 2: Convert to greyscale
	err = mw.TransformImageColorspace(imagick.COLORSPACE_GRAY)
	if err != nil {
		return nil, fmt.Errorf("greyscale conversion failed: %w", err)
	}

	// Step 3: Stretch contrast over the full range
	err = mw.NormalizeImage()
	if err != nil {
		return nil, fmt.Errorf("normalize failed: %w", err)
	}

	// Step 4: Sharpen edges
	// Radius: 0 (auto)
	err = mw.SharpenImage(0, p.opts.SharpenSigma)
	if err != nil {
		return nil, fmt.Errorf("sharpen failed: %w", err)
	}

	// Step 5: Lossless PNG output
	err = mw.SetImageFormat("PNG")
	if err != nil {
		return nil, fmt.Errorf("png conversion failed: %w", err)
	}
	err = mw.SetImageCompressionQuality(100)
	if err != nil {
		return nil, fmt.Errorf("set quality failed: %w", err)
	}

	blob := mw.GetImageBlob()
	if len(blob) == 0 {
		return nil, fmt.Errorf("processed image is empty")
	}

	return blob, nil
}
