// Package pipeline runs the full modality-detection flow over a single
// input buffer: DICOM decode and normalization or platform image
// decoding, bounded resize, feature extraction, and classification.
// Every stage is pure, so identical bytes always produce an identical
// report.
package pipeline

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"modalityscan/internal/models"
	"modalityscan/pkg/classify"
	"modalityscan/pkg/dicom"
	"modalityscan/pkg/features"
	"modalityscan/pkg/raster"
)

// Options tune the run without changing its contract. The zero value
// uses the default raster bound and the built-in weights.
type Options struct {
	// MaxDimension bounds the raster fed to feature extraction;
	// 0 applies raster.DefaultMaxDimension.
	MaxDimension int

	// Weights overrides the built-in classifier model when non-nil.
	Weights *classify.Weights
}

func (o Options) weights() classify.Weights {
	if o.Weights != nil {
		return *o.Weights
	}
	return classify.DefaultWeights()
}

// Run classifies a file given as raw bytes. The DICOM path is chosen by
// the magic-byte probe; everything else goes through the platform image
// decoder. Errors from any stage abort the run whole, with no partial
// report.
func Run(buf []byte, opts Options) (*models.Report, error) {
	if dicom.IsLikelyDicom(buf) {
		return runDicom(buf, opts)
	}

	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return RunImage(img, opts)
}

// RunImage classifies a pre-decoded platform image, the entry point for
// callers that own their own decoding.
func RunImage(img image.Image, opts Options) (*models.Report, error) {
	return RunRaster(raster.FromImage(img, opts.MaxDimension), opts)
}

// RunRaster classifies an 8-bit grayscale raster directly. The raster is
// downscaled to the configured bound first so fingerprints stay
// comparable across resolutions.
func RunRaster(g *raster.Gray, opts Options) (*models.Report, error) {
	g = g.Fit(opts.MaxDimension)

	vec := features.Extract(g)
	return &models.Report{
		Result:   classify.ClassifyWith(opts.weights(), vec),
		Features: vec,
	}, nil
}

func runDicom(buf []byte, opts Options) (*models.Report, error) {
	rec, err := dicom.Decode(buf)
	if err != nil {
		return nil, err
	}

	g, err := raster.NormalizeRecord(rec)
	if err != nil {
		return nil, err
	}

	report, err := RunRaster(g, opts)
	if err != nil {
		return nil, err
	}
	report.Study = studyInfo(rec)
	return report, nil
}

// studyInfo copies the display metadata out of a record so the record
// and the input buffer it aliases can be dropped.
func studyInfo(rec *dicom.Record) *models.StudyInfo {
	info := &models.StudyInfo{
		Modality:         rec.Modality,
		TransferSyntax:   rec.TransferSyntax,
		Rows:             int(rec.Rows),
		Columns:          int(rec.Columns),
		RescaleSlope:     rec.RescaleSlope,
		RescaleIntercept: rec.RescaleIntercept,
		Frames:           int(rec.NumberOfFrames),
	}
	if rec.WindowCenter != nil {
		c := *rec.WindowCenter
		info.WindowCenter = &c
	}
	if rec.WindowWidth != nil {
		w := *rec.WindowWidth
		info.WindowWidth = &w
	}
	return info
}
