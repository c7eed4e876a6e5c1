// Package raster converts decoded pixel samples into the 8-bit grayscale
// rasters the feature extractor consumes. The normalizer handles the
// DICOM side (bit depth, signedness, rescale, windowing, photometric
// inversion); FromImage handles everything a platform image decoder
// produces.
package raster

import (
	"errors"
	"fmt"
	"image"
)

// Raster error kinds, matched with errors.Is.
var (
	// ErrMalformedRaster indicates a pixel buffer whose length does not
	// match the declared dimensions.
	ErrMalformedRaster = errors.New("raster: buffer length does not match dimensions")

	// ErrUnsupportedBitDepth indicates a stored sample layout outside
	// 8-bit or 16-bit single-channel grayscale.
	ErrUnsupportedBitDepth = errors.New("raster: unsupported sample layout")
)

// Gray is a flat 8-bit grayscale raster in row-major order. The invariant
// len(Pix) == Width*Height holds for every Gray built by this package.
type Gray struct {
	Width  int
	Height int
	Pix    []byte
}

// NewGray wraps a pixel buffer, enforcing the length invariant.
func NewGray(width, height int, pix []byte) (*Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrMalformedRaster, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrMalformedRaster, len(pix), width, height)
	}
	return &Gray{Width: width, Height: height, Pix: pix}, nil
}

// At returns the intensity at (x, y). Bounds are the caller's problem.
func (g *Gray) At(x, y int) byte {
	return g.Pix[y*g.Width+x]
}

// Image expands the raster to a stdlib grayscale image, the form the
// rendering boundary expects.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.Pix)
	return img
}
