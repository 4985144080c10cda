package preprocess

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// screenshot renders a low-contrast grey canvas with a darker block inside the default crop
func screenshot(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 180, G: 190, B: 200, A: 255})
	for y := 350; y < 400 && y < height; y++ {
		for x := 550; x < 700 && x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 90, G: 80, B: 70, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestImagingPreprocessor_CropsAndNormalizes(t *testing.T) {
	p := NewImagingPreprocessor(Options{Crop: DefaultCrop})

	out, err := p.Preprocess(context.Background(), screenshot(t, 1080, 720))
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.Equal(t, 280, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	lo, hi := uint32(0xffff), uint32(0)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			assert.Equal(t, r, g)
			assert.Equal(t, g, bl)
			if r < lo {
				lo = r
			}
			if r > hi {
				hi = r
			}
		}
	}
	assert.Equal(t, uint32(0), lo)
	assert.Equal(t, uint32(0xffff), hi)
}

func TestImagingPreprocessor_CropOutOfBounds(t *testing.T) {
	p := NewImagingPreprocessor(Options{Crop: DefaultCrop})

	_, err := p.Preprocess(context.Background(), screenshot(t, 640, 400))
	assert.ErrorIs(t, err, ErrCropOutOfBounds)
}

func TestImagingPreprocessor_NoCrop(t *testing.T) {
	p := NewImagingPreprocessor(Options{})

	out, err := p.Preprocess(context.Background(), screenshot(t, 320, 240))
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())
}

func TestImagingPreprocessor_InvalidImage(t *testing.T) {
	p := NewImagingPreprocessor(Options{Crop: DefaultCrop})

	_, err := p.Preprocess(context.Background(), []byte("not an image"))
	assert.Error(t, err)
}

func TestImagingPreprocessor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImagingPreprocessor(Options{}).Preprocess(ctx, screenshot(t, 10, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRect(t *testing.T) {
	assert.True(t, DefaultCrop.Enabled())
	assert.False(t, Rect{Left: 10, Top: 10}.Enabled())
	assert.NoError(t, DefaultCrop.Validate())
	assert.Error(t, Rect{Left: -1, Width: 10, Height: 10}.Validate())
	assert.NoError(t, DefaultCrop.Fits(780, 500))
	assert.ErrorIs(t, DefaultCrop.Fits(779, 500), ErrCropOutOfBounds)
}

type staticPreprocessor struct {
	out []byte
	err error
}

func (s staticPreprocessor) Preprocess(context.Context, []byte) ([]byte, error) {
	return s.out, s.err
}

func TestDebugWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trimmed_output.png")
	d := &DebugWriter{Next: staticPreprocessor{out: []byte("png-bytes")}, Path: path}

	out, err := d.Preprocess(context.Background(), []byte("in"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), out)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), written)
}

func TestDebugWriter_UnwritablePathIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.png")
	d := &DebugWriter{Next: staticPreprocessor{out: []byte("png-bytes")}, Path: path}

	out, err := d.Preprocess(context.Background(), []byte("in"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), out)
}

func TestDebugWriter_PropagatesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	d := &DebugWriter{Next: staticPreprocessor{err: ErrCropOutOfBounds}, Path: path}

	_, err := d.Preprocess(context.Background(), []byte("in"))
	assert.ErrorIs(t, err, ErrCropOutOfBounds)
	assert.NoFileExists(t, path)
}
