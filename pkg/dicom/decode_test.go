package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// dicomFile assembles a Part 10 buffer: 128-byte preamble, "DICM", then
// the given element encodings in order.
func dicomFile(elements ...[]byte) []byte {
	var b bytes.Buffer
	b.Write(make([]byte, preambleSize))
	b.WriteString(magic)
	for _, el := range elements {
		b.Write(el)
	}
	return b.Bytes()
}

func us(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// minimalElements returns the element set for a 2x2 8-bit unsigned image
// with pixel samples [0, 85, 170, 255] and no rescale or window tags.
func minimalElements() [][]byte {
	return [][]byte{
		explicitElement(0x0028, 0x0010, "US", us(2)),
		explicitElement(0x0028, 0x0011, "US", us(2)),
		explicitElement(0x0028, 0x0100, "US", us(8)),
		explicitElement(0x0028, 0x0103, "US", us(0)),
		explicitElement(0x7FE0, 0x0010, "OB", []byte{0, 85, 170, 255}),
	}
}

func TestIsLikelyDicom(t *testing.T) {
	if !IsLikelyDicom(dicomFile()) {
		t.Errorf("Expected true for a buffer with the DICM marker")
	}

	cases := map[string][]byte{
		"empty":        nil,
		"short":        make([]byte, 131),
		"wrong magic":  make([]byte, 200),
		"magic at 0":   append([]byte(magic), make([]byte, 200)...),
		"marker-sized": make([]byte, 132),
	}
	for name, buf := range cases {
		if IsLikelyDicom(buf) {
			t.Errorf("Expected false for %s buffer", name)
		}
	}
}

func TestDecodeMinimal(t *testing.T) {
	rec, err := Decode(dicomFile(minimalElements()...))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if rec.Rows != 2 || rec.Columns != 2 {
		t.Errorf("Expected 2x2, got %dx%d", rec.Rows, rec.Columns)
	}
	if rec.BitsAllocated != 8 {
		t.Errorf("Expected 8 bits allocated, got %d", rec.BitsAllocated)
	}
	if rec.Signed() {
		t.Errorf("Expected unsigned pixel representation")
	}
	if len(rec.PixelData) < int(rec.Rows)*int(rec.Columns) {
		t.Errorf("Expected at least %d pixel bytes, got %d", rec.Rows*rec.Columns, len(rec.PixelData))
	}
	if !bytes.Equal(rec.PixelData, []byte{0, 85, 170, 255}) {
		t.Errorf("Expected pixel data [0 85 170 255], got %v", rec.PixelData)
	}

	// Documented defaults when the tags are absent.
	if rec.RescaleSlope != 1 || rec.RescaleIntercept != 0 {
		t.Errorf("Expected identity rescale, got slope=%g intercept=%g",
			rec.RescaleSlope, rec.RescaleIntercept)
	}
	if rec.WindowCenter != nil || rec.WindowWidth != nil {
		t.Errorf("Expected no explicit window")
	}
	if rec.SamplesPerPixel != 1 {
		t.Errorf("Expected 1 sample per pixel, got %d", rec.SamplesPerPixel)
	}
	if rec.NumberOfFrames != 1 {
		t.Errorf("Expected 1 frame, got %d", rec.NumberOfFrames)
	}
}

func TestDecodeSkipsUnknownTags(t *testing.T) {
	els := [][]byte{
		// Vendor-private creep before and between recognized tags.
		explicitElement(0x0009, 0x0010, "LO", []byte("ACME 1.0")),
		explicitElement(0x0028, 0x0010, "US", us(2)),
		explicitElement(0x0029, 0x1001, "UN", []byte{0xDE, 0xAD}),
		explicitElement(0x0028, 0x0011, "US", us(2)),
		explicitElement(0x0028, 0x0100, "US", us(8)),
		explicitElement(0x7FE0, 0x0010, "OB", []byte{1, 2, 3, 4}),
	}

	rec, err := Decode(dicomFile(els...))
	if err != nil {
		t.Fatalf("Decode failed on private tags: %v", err)
	}
	if rec.Rows != 2 || rec.Columns != 2 {
		t.Errorf("Expected 2x2, got %dx%d", rec.Rows, rec.Columns)
	}
}

func TestDecodeMetadataTags(t *testing.T) {
	els := [][]byte{
		explicitElement(0x0008, 0x0060, "CS", []byte("CT")),
		explicitElement(0x0028, 0x0008, "IS", []byte("3 ")),
		explicitElement(0x0028, 0x0010, "US", us(2)),
		explicitElement(0x0028, 0x0011, "US", us(2)),
		explicitElement(0x0028, 0x0100, "US", us(8)),
		explicitElement(0x0028, 0x1050, "DS", []byte("40\\400")),
		explicitElement(0x0028, 0x1051, "DS", []byte("80\\2000 ")),
		explicitElement(0x0028, 0x1052, "DS", []byte("-1024 ")),
		explicitElement(0x0028, 0x1053, "DS", []byte("1.0 ")),
		explicitElement(0x7FE0, 0x0010, "OB", make([]byte, 12)),
	}

	rec, err := Decode(dicomFile(els...))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if rec.Modality != "CT" {
		t.Errorf("Expected modality CT, got %q", rec.Modality)
	}
	if rec.NumberOfFrames != 3 {
		t.Errorf("Expected 3 frames, got %d", rec.NumberOfFrames)
	}
	if rec.WindowCenter == nil || *rec.WindowCenter != 40 {
		t.Errorf("Expected first window center 40, got %v", rec.WindowCenter)
	}
	if rec.WindowWidth == nil || *rec.WindowWidth != 80 {
		t.Errorf("Expected first window width 80, got %v", rec.WindowWidth)
	}
	if rec.RescaleIntercept != -1024 {
		t.Errorf("Expected intercept -1024, got %g", rec.RescaleIntercept)
	}
	if rec.RescaleSlope != 1 {
		t.Errorf("Expected slope 1, got %g", rec.RescaleSlope)
	}
}

func TestDecodeImplicitVR(t *testing.T) {
	els := [][]byte{
		explicitElement(0x0002, 0x0010, "UI", []byte(ImplicitVRLittleEndian + "\x00")),
		implicitElement(0x0008, 0x0060, []byte("MR")),
		implicitElement(0x0028, 0x0010, us(2)),
		implicitElement(0x0028, 0x0011, us(2)),
		implicitElement(0x0028, 0x0100, us(8)),
		implicitElement(0x7FE0, 0x0010, []byte{9, 8, 7, 6}),
	}

	rec, err := Decode(dicomFile(els...))
	if err != nil {
		t.Fatalf("Decode failed on implicit VR: %v", err)
	}
	if rec.TransferSyntax != ImplicitVRLittleEndian {
		t.Errorf("Expected implicit transfer syntax, got %q", rec.TransferSyntax)
	}
	if rec.Modality != "MR" {
		t.Errorf("Expected modality MR, got %q", rec.Modality)
	}
	if !bytes.Equal(rec.PixelData, []byte{9, 8, 7, 6}) {
		t.Errorf("Expected pixel data [9 8 7 6], got %v", rec.PixelData)
	}
}

func TestDecodeCompressedTransferSyntax(t *testing.T) {
	els := [][]byte{
		// JPEG baseline.
		explicitElement(0x0002, 0x0010, "UI", []byte("1.2.840.10008.1.2.4.50")),
	}

	if _, err := Decode(dicomFile(els...)); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("Expected ErrUnsupportedEncoding for a compressed syntax, got %v", err)
	}
}

func TestDecodeEncapsulatedPixelData(t *testing.T) {
	var pixel bytes.Buffer
	pixel.Write(explicitElement(0x7FE0, 0x0010, "OB", nil)[:8])
	binary.Write(&pixel, binary.LittleEndian, uint32(undefinedLength))

	els := append(minimalElements()[:4], pixel.Bytes())

	if _, err := Decode(dicomFile(els...)); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("Expected ErrUnsupportedEncoding for encapsulated pixel data, got %v", err)
	}
}

func TestDecodeMissingDimensions(t *testing.T) {
	els := [][]byte{
		explicitElement(0x0028, 0x0100, "US", us(8)),
		explicitElement(0x7FE0, 0x0010, "OB", []byte{1, 2, 3, 4}),
	}
	if _, err := Decode(dicomFile(els...)); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions when Rows/Columns are absent, got %v", err)
	}
}

func TestDecodeZeroDimensions(t *testing.T) {
	els := [][]byte{
		explicitElement(0x0028, 0x0010, "US", us(0)),
		explicitElement(0x0028, 0x0011, "US", us(2)),
		explicitElement(0x0028, 0x0100, "US", us(8)),
		explicitElement(0x7FE0, 0x0010, "OB", []byte{1, 2, 3, 4}),
	}
	if _, err := Decode(dicomFile(els...)); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions for rows=0, got %v", err)
	}
}

func TestDecodeMissingPixelData(t *testing.T) {
	els := [][]byte{
		explicitElement(0x0028, 0x0010, "US", us(2)),
		explicitElement(0x0028, 0x0011, "US", us(2)),
		explicitElement(0x0028, 0x0100, "US", us(8)),
	}
	if _, err := Decode(dicomFile(els...)); !errors.Is(err, ErrMissingPixelData) {
		t.Errorf("Expected ErrMissingPixelData without a pixel element, got %v", err)
	}
}

func TestDecodeShortPixelData(t *testing.T) {
	els := [][]byte{
		explicitElement(0x0028, 0x0010, "US", us(4)),
		explicitElement(0x0028, 0x0011, "US", us(4)),
		explicitElement(0x0028, 0x0100, "US", us(16)),
		// 4x4 16-bit needs 32 bytes; supply 8.
		explicitElement(0x7FE0, 0x0010, "OW", make([]byte, 8)),
	}
	if _, err := Decode(dicomFile(els...)); !errors.Is(err, ErrMissingPixelData) {
		t.Errorf("Expected ErrMissingPixelData for a short pixel buffer, got %v", err)
	}
}

func TestDecodeTruncatedElement(t *testing.T) {
	buf := dicomFile(minimalElements()...)

	// Chop into the pixel value so its declared length overruns.
	if _, err := Decode(buf[:len(buf)-2]); !errors.Is(err, ErrTruncatedStream) {
		t.Errorf("Expected ErrTruncatedStream, got %v", err)
	}
}

func TestDecodeNotDicom(t *testing.T) {
	if _, err := Decode([]byte("just some bytes")); !errors.Is(err, ErrNotDicom) {
		t.Errorf("Expected ErrNotDicom, got %v", err)
	}
}
