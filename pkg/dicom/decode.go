package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Transfer syntax UIDs this decoder can scan. Anything else implies
// compressed or big-endian pixel storage, which is out of scope.
const (
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

// Photometric interpretations with dedicated handling; any other value
// passes through untouched and is treated like MONOCHROME2 downstream.
const (
	Monochrome1 = "MONOCHROME1"
	Monochrome2 = "MONOCHROME2"
)

const (
	preambleSize = 128
	magic        = "DICM"
)

// Tags the decoder dispatches on. Everything else is consumed and
// discarded, which keeps vendor-private groups from aborting a scan.
var (
	tagTransferSyntax = Tag{0x0002, 0x0010}
	tagModality       = Tag{0x0008, 0x0060}
	tagSamplesPerPix  = Tag{0x0028, 0x0002}
	tagPhotometric    = Tag{0x0028, 0x0004}
	tagNumberOfFrames = Tag{0x0028, 0x0008}
	tagRows           = Tag{0x0028, 0x0010}
	tagColumns        = Tag{0x0028, 0x0011}
	tagBitsAllocated  = Tag{0x0028, 0x0100}
	tagBitsStored     = Tag{0x0028, 0x0101}
	tagPixelRep       = Tag{0x0028, 0x0103}
	tagWindowCenter   = Tag{0x0028, 0x1050}
	tagWindowWidth    = Tag{0x0028, 0x1051}
	tagRescaleInt     = Tag{0x0028, 0x1052}
	tagRescaleSlope   = Tag{0x0028, 0x1053}
	tagPixelData      = Tag{0x7FE0, 0x0010}
)

// Record is the decoded result of a full element scan. It is constructed
// once by Decode and never mutated afterwards; PixelData aliases the
// input buffer, so the buffer must stay immutable for the record's
// lifetime.
type Record struct {
	Rows    uint16
	Columns uint16

	BitsAllocated       uint16
	BitsStored          uint16
	PixelRepresentation uint16
	SamplesPerPixel     uint16

	PhotometricInterpretation string

	// RescaleSlope and RescaleIntercept map stored samples to physical
	// intensities (Hounsfield units for CT). They default to the
	// identity transform when the tags are absent.
	RescaleSlope     float64
	RescaleIntercept float64

	// WindowCenter and WindowWidth are nil when the file carries no
	// display window; the normalizer then derives one from the data.
	WindowCenter *float64
	WindowWidth  *float64

	Modality       string
	TransferSyntax string
	NumberOfFrames uint32

	PixelData []byte
}

// Signed reports whether stored samples are two's-complement.
func (r *Record) Signed() bool {
	return r.PixelRepresentation == 1
}

// BytesPerSample returns the stored size of one sample.
func (r *Record) BytesPerSample() int {
	return int(math.Ceil(float64(r.BitsAllocated) / 8))
}

// FrameSize returns the byte length of a single frame.
func (r *Record) FrameSize() int {
	return int(r.Rows) * int(r.Columns) * int(r.SamplesPerPixel) * r.BytesPerSample()
}

// IsLikelyDicom reports whether the buffer carries the "DICM" marker at
// byte offset 128. It is the cheap probe callers use to pick the DICOM
// path over the generic image path before paying for a full decode.
func IsLikelyDicom(buf []byte) bool {
	if len(buf) < preambleSize+len(magic) {
		return false
	}
	return string(buf[preambleSize:preambleSize+len(magic)]) == magic
}

// Decode scans every element of a DICOM Part 10 buffer and assembles a
// Record. The scan is a single forward pass: unrecognized tags are
// skipped, recognized tags populate the record, and the first violated
// invariant aborts the whole decode with no partial result.
//
// The file meta group (0002) is always explicit VR little endian; the
// main dataset switches to implicit VR when the meta group says so. Any
// other transfer syntax means compressed or big-endian pixel storage and
// fails with ErrUnsupportedEncoding.
func Decode(buf []byte) (*Record, error) {
	if !IsLikelyDicom(buf) {
		return nil, fmt.Errorf("%w: no %q marker at offset %d", ErrNotDicom, magic, preambleSize)
	}

	rec := &Record{
		SamplesPerPixel: 1,
		RescaleSlope:    1,
		NumberOfFrames:  1,
	}

	// File meta group first; it carries the transfer syntax that decides
	// how the rest of the stream is framed.
	r := NewReader(buf, preambleSize+len(magic))
	for {
		start := r.Pos()
		el, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if el.Tag.Group != 0x0002 {
			// First dataset element; rewind so the dataset scan sees it.
			r = readerFor(rec.TransferSyntax, buf, start)
			break
		}
		if el.Tag == tagTransferSyntax {
			rec.TransferSyntax = trimPadding(el.Value)
		}
	}

	switch rec.TransferSyntax {
	case "", ExplicitVRLittleEndian, ImplicitVRLittleEndian:
	default:
		return nil, fmt.Errorf("%w: transfer syntax %q", ErrUnsupportedEncoding, rec.TransferSyntax)
	}

	for {
		el, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := rec.apply(el); err != nil {
			return nil, err
		}
	}

	return rec, rec.validate()
}

// readerFor picks the dataset framing implied by the transfer syntax.
func readerFor(transferSyntax string, buf []byte, offset int) *Reader {
	if transferSyntax == ImplicitVRLittleEndian {
		return NewImplicitReader(buf, offset)
	}
	return NewReader(buf, offset)
}

// apply dispatches one element onto the record. Unknown tags fall
// through: their bytes were already consumed by the reader.
func (rec *Record) apply(el *DataElement) error {
	switch el.Tag {
	case tagRows:
		rec.Rows = elementUint16(el)
	case tagColumns:
		rec.Columns = elementUint16(el)
	case tagBitsAllocated:
		rec.BitsAllocated = elementUint16(el)
	case tagBitsStored:
		rec.BitsStored = elementUint16(el)
	case tagPixelRep:
		rec.PixelRepresentation = elementUint16(el)
	case tagSamplesPerPix:
		rec.SamplesPerPixel = elementUint16(el)
	case tagPhotometric:
		rec.PhotometricInterpretation = trimPadding(el.Value)
	case tagModality:
		rec.Modality = trimPadding(el.Value)
	case tagNumberOfFrames:
		if n, ok := elementInt(el); ok && n > 0 {
			rec.NumberOfFrames = uint32(n)
		}
	case tagRescaleSlope:
		if v, ok := elementFloat(el); ok {
			rec.RescaleSlope = v
		}
	case tagRescaleInt:
		if v, ok := elementFloat(el); ok {
			rec.RescaleIntercept = v
		}
	case tagWindowCenter:
		if v, ok := elementFloat(el); ok {
			rec.WindowCenter = &v
		}
	case tagWindowWidth:
		if v, ok := elementFloat(el); ok {
			rec.WindowWidth = &v
		}
	case tagPixelData:
		if el.Length == undefinedLength {
			return fmt.Errorf("%w: encapsulated pixel data", ErrUnsupportedEncoding)
		}
		rec.PixelData = el.Value
	}
	return nil
}

// validate enforces the record invariants after the full scan.
func (rec *Record) validate() error {
	if rec.Rows == 0 || rec.Columns == 0 {
		return fmt.Errorf("%w: rows=%d columns=%d", ErrInvalidDimensions, rec.Rows, rec.Columns)
	}
	if rec.PixelData == nil {
		return fmt.Errorf("%w: no pixel data element", ErrMissingPixelData)
	}
	if need := rec.FrameSize(); len(rec.PixelData) < need {
		return fmt.Errorf("%w: have %d bytes, need %d for a %dx%d frame",
			ErrMissingPixelData, len(rec.PixelData), need, rec.Rows, rec.Columns)
	}
	return nil
}

// elementUint16 reads a binary US value; zero when the value is short.
func elementUint16(el *DataElement) uint16 {
	if len(el.Value) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(el.Value[:2])
}

// elementFloat parses a DS value. Multi-valued strings (such as the
// paired window presets some scanners write) take the first component.
func elementFloat(el *DataElement) (float64, bool) {
	s := trimPadding(el.Value)
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// elementInt parses an IS value.
func elementInt(el *DataElement) (int, bool) {
	s := trimPadding(el.Value)
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// trimPadding strips the NUL and space padding DICOM string values carry.
func trimPadding(b []byte) string {
	return strings.Trim(string(b), "\x00 ")
}
