package raster

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"modalityscan/pkg/dicom"
)

// Params configures a normalization pass. The zero value of the optional
// fields selects the documented defaults: an identity rescale (a slope
// of 0 is read as 1.0) and a display window derived from the rescaled
// value distribution.
type Params struct {
	Rows    int
	Columns int

	// BitsAllocated must be 8 or 16; Signed selects two's-complement
	// sample interpretation.
	BitsAllocated int
	Signed        bool

	RescaleSlope     float64
	RescaleIntercept float64

	// WindowCenter and WindowWidth are used only when both are set;
	// otherwise the window spans the rescaled minimum and maximum.
	WindowCenter *float64
	WindowWidth  *float64

	// Invert flips the output scale, the MONOCHROME1 convention where
	// higher stored values are darker.
	Invert bool
}

// Normalize maps raw pixel samples to an 8-bit grayscale raster: samples
// are reinterpreted at the declared width and signedness, linearly
// rescaled (the Hounsfield transform for CT), windowed, and clamp-mapped
// so that center-width/2 lands on 0 and center+width/2 on 255. The whole
// computation runs in float64, so the full 16-bit signed range cannot
// overflow.
func Normalize(pixelData []byte, p Params) (*Gray, error) {
	if p.Rows <= 0 || p.Columns <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrMalformedRaster, p.Columns, p.Rows)
	}

	samples, err := toSamples(pixelData, p)
	if err != nil {
		return nil, err
	}

	slope := p.RescaleSlope
	if slope == 0 {
		slope = 1
	}
	for i, s := range samples {
		samples[i] = s*slope + p.RescaleIntercept
	}

	center, width := window(samples, p)
	lo := center - width/2

	pix := make([]byte, len(samples))
	for i, v := range samples {
		t := math.Round((v - lo) / width * 255)
		if t < 0 {
			t = 0
		} else if t > 255 {
			t = 255
		}
		if p.Invert {
			t = 255 - t
		}
		pix[i] = byte(t)
	}

	return &Gray{Width: p.Columns, Height: p.Rows, Pix: pix}, nil
}

// NormalizeRecord normalizes the first frame of a decoded DICOM record.
// Multi-frame files contribute only that frame; the remaining frames are
// surfaced as metadata and never analyzed.
func NormalizeRecord(rec *dicom.Record) (*Gray, error) {
	if rec.SamplesPerPixel != 1 {
		return nil, fmt.Errorf("%w: %d samples per pixel", ErrUnsupportedBitDepth, rec.SamplesPerPixel)
	}
	frame := rec.PixelData
	if size := rec.FrameSize(); size > 0 && len(frame) > size {
		frame = frame[:size]
	}
	return Normalize(frame, Params{
		Rows:             int(rec.Rows),
		Columns:          int(rec.Columns),
		BitsAllocated:    int(rec.BitsAllocated),
		Signed:           rec.Signed(),
		RescaleSlope:     rec.RescaleSlope,
		RescaleIntercept: rec.RescaleIntercept,
		WindowCenter:     rec.WindowCenter,
		WindowWidth:      rec.WindowWidth,
		Invert:           rec.PhotometricInterpretation == dicom.Monochrome1,
	})
}

// toSamples reinterprets the pixel buffer as rows*columns float64 samples
// at the declared bit width and signedness.
func toSamples(pixelData []byte, p Params) ([]float64, error) {
	n := p.Rows * p.Columns
	samples := make([]float64, n)

	switch p.BitsAllocated {
	case 8:
		if len(pixelData) < n {
			return nil, fmt.Errorf("%w: %d bytes for %d samples", ErrMalformedRaster, len(pixelData), n)
		}
		if p.Signed {
			for i := 0; i < n; i++ {
				samples[i] = float64(int8(pixelData[i]))
			}
		} else {
			for i := 0; i < n; i++ {
				samples[i] = float64(pixelData[i])
			}
		}
	case 16:
		if len(pixelData) < 2*n {
			return nil, fmt.Errorf("%w: %d bytes for %d samples", ErrMalformedRaster, len(pixelData), n)
		}
		if p.Signed {
			for i := 0; i < n; i++ {
				samples[i] = float64(int16(binary.LittleEndian.Uint16(pixelData[2*i:])))
			}
		} else {
			for i := 0; i < n; i++ {
				samples[i] = float64(binary.LittleEndian.Uint16(pixelData[2*i:]))
			}
		}
	default:
		return nil, fmt.Errorf("%w: %d bits allocated", ErrUnsupportedBitDepth, p.BitsAllocated)
	}

	return samples, nil
}

// window picks the display window: the explicit center/width pair when
// the file carries one, otherwise the span of the rescaled values. The
// width is floored at 1 so a flat image cannot divide by zero.
func window(samples []float64, p Params) (center, width float64) {
	if p.WindowCenter != nil && p.WindowWidth != nil {
		center, width = *p.WindowCenter, *p.WindowWidth
	} else {
		min, _ := stats.Min(samples)
		max, _ := stats.Max(samples)
		center = (min + max) / 2
		width = max - min
	}
	if width < 1 {
		width = 1
	}
	return center, width
}
