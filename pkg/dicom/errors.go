package dicom

import "errors"

// Decoding error kinds. Callers match them with errors.Is; every error
// returned by this package wraps exactly one of these sentinels together
// with a human-readable message.
var (
	// ErrNotDicom indicates the buffer lacks the "DICM" marker at byte
	// offset 128 and cannot be a DICOM Part 10 file.
	ErrNotDicom = errors.New("dicom: not a DICOM file")

	// ErrTruncatedStream indicates a tag, header, or declared element
	// length points past the end of the buffer.
	ErrTruncatedStream = errors.New("dicom: truncated element stream")

	// ErrUnsupportedEncoding indicates encapsulated or compressed pixel
	// data; only raw uncompressed sample storage is decodable.
	ErrUnsupportedEncoding = errors.New("dicom: unsupported pixel encoding")

	// ErrMissingPixelData indicates the pixel data element is absent or
	// smaller than the dimensions demand.
	ErrMissingPixelData = errors.New("dicom: missing or short pixel data")

	// ErrInvalidDimensions indicates Rows or Columns are absent or zero.
	ErrInvalidDimensions = errors.New("dicom: invalid image dimensions")
)
