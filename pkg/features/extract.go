// Package features computes the fixed statistical fingerprint the
// classifier consumes. The same extraction serves DICOM-derived and
// natural-image rasters; every feature is a ratio or a normalized
// statistic, so the fingerprint does not depend on raster resolution.
package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"modalityscan/pkg/raster"
)

// Count is the fingerprint length. The classifier indexes weights by
// position, so the order below is part of the contract.
const Count = 6

// Feature positions within a Vector.
const (
	IdxMean = iota
	IdxStdDev
	IdxEntropy
	IdxEdgeDensity
	IdxBackground
	IdxSymmetry
)

const (
	// histogramBins sets the entropy resolution; 32 bins separate the
	// air/tissue/bone peaks of a CT histogram without chasing noise.
	histogramBins = 32

	// edgeFactor scales the raster's standard deviation into the
	// gradient-magnitude threshold, so "edge" adapts to image contrast.
	edgeFactor = 0.5

	// backgroundCutoff is the intensity at or below which a pixel counts
	// as background air. The normalizer maps the window floor to 0, so
	// near-minimum means near-zero here.
	backgroundCutoff = 8
)

// Vector is an ordered fingerprint; see the Idx constants for positions.
type Vector [Count]float64

// Extract computes the fingerprint of a grayscale raster. It is total:
// every raster that satisfies the Gray invariant yields a finite vector.
func Extract(g *raster.Gray) Vector {
	vals := make([]float64, len(g.Pix))
	for i, p := range g.Pix {
		vals[i] = float64(p)
	}

	mean := stat.Mean(vals, nil)
	sigma := stat.PopStdDev(vals, nil)

	var v Vector
	v[IdxMean] = mean / 255
	v[IdxStdDev] = sigma / 255
	v[IdxEntropy] = entropy(g.Pix)
	v[IdxEdgeDensity] = edgeDensity(g, sigma)
	v[IdxBackground] = backgroundFraction(g.Pix)
	v[IdxSymmetry] = symmetry(g, vals)
	return v
}

// entropy is the Shannon entropy of the intensity histogram, normalized
// by the maximum log2(bins) so the feature lives in [0,1].
func entropy(pix []byte) float64 {
	hist := make([]float64, histogramBins)
	for _, p := range pix {
		hist[int(p)*histogramBins/256]++
	}

	n := float64(len(pix))
	h := 0.0
	for _, count := range hist {
		if count > 0 {
			p := count / n
			h -= p * math.Log2(p)
		}
	}
	return h / math.Log2(histogramBins)
}

// edgeDensity is the fraction of pixels whose forward-difference gradient
// magnitude exceeds edgeFactor times the raster's standard deviation. A
// flat raster has no spread to threshold against and scores zero.
func edgeDensity(g *raster.Gray, sigma float64) float64 {
	if sigma == 0 || g.Width < 2 || g.Height < 2 {
		return 0
	}
	threshold := edgeFactor * sigma

	edges := 0
	for y := 0; y < g.Height-1; y++ {
		for x := 0; x < g.Width-1; x++ {
			gx := float64(g.At(x+1, y)) - float64(g.At(x, y))
			gy := float64(g.At(x, y+1)) - float64(g.At(x, y))
			if math.Hypot(gx, gy) > threshold {
				edges++
			}
		}
	}
	return float64(edges) / float64((g.Width-1)*(g.Height-1))
}

// backgroundFraction is the proportion of near-minimum pixels, the
// uniform dark air surrounding the body on a typical CT slice.
func backgroundFraction(pix []byte) float64 {
	dark := 0
	for _, p := range pix {
		if p <= backgroundCutoff {
			dark++
		}
	}
	return float64(dark) / float64(len(pix))
}

// symmetry correlates the raster with its horizontal mirror, mapped from
// [-1,1] onto [0,1]. Cross-sections are bilaterally symmetric in either
// modality, which makes this a stabilizing rather than discriminating
// feature. A zero-variance raster is its own mirror and scores 1.
func symmetry(g *raster.Gray, vals []float64) float64 {
	mirror := make([]float64, len(vals))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			mirror[y*g.Width+x] = float64(g.At(g.Width-1-x, y))
		}
	}

	corr := stat.Correlation(vals, mirror, nil)
	if math.IsNaN(corr) {
		return 1
	}
	return (corr + 1) / 2
}
