package raster

import (
	"image"

	"github.com/disintegration/imaging"
)

// DefaultMaxDimension bounds the raster size fed to feature extraction.
// Features are ratios, so resizing changes cost but not meaning; the
// bound keeps extraction time independent of the source resolution.
const DefaultMaxDimension = 512

// FromImage converts a decoded platform image to an 8-bit grayscale
// raster, downscaling first so neither side exceeds maxDim. A maxDim of
// zero or less applies DefaultMaxDimension.
func FromImage(img image.Image, maxDim int) *Gray {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	gray := imaging.Grayscale(img)
	b = gray.Bounds()
	w, h := b.Dx(), b.Dy()

	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w*4]
		for x := 0; x < w; x++ {
			// NRGBA with R=G=B after Grayscale; any channel works.
			pix[y*w+x] = row[x*4]
		}
	}

	return &Gray{Width: w, Height: h, Pix: pix}
}

// Fit returns the raster itself when it already satisfies the bound, or
// a Lanczos-downscaled copy whose longest side is maxDim.
func (g *Gray) Fit(maxDim int) *Gray {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if g.Width <= maxDim && g.Height <= maxDim {
		return g
	}
	return FromImage(g.Image(), maxDim)
}
