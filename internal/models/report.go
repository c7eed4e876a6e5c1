package models

import (
	"modalityscan/pkg/classify"
	"modalityscan/pkg/features"
)

// StudyInfo is the metadata bag surfaced for display after a DICOM
// decode. The consumed field set is fixed, so it is a record with
// explicit optional fields rather than an open-ended map. None of these
// values feed the classifier.
type StudyInfo struct {
	Modality       string
	TransferSyntax string

	Rows    int
	Columns int

	// WindowCenter and WindowWidth are nil when the file carried no
	// explicit display window.
	WindowCenter *float64
	WindowWidth  *float64

	RescaleSlope     float64
	RescaleIntercept float64

	Frames int
}

// Report is the full pipeline output handed to the presentation layer.
type Report struct {
	Result   classify.Result
	Features features.Vector

	// Study is nil for non-DICOM inputs.
	Study *StudyInfo
}
