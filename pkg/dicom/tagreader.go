// Package dicom decodes uncompressed DICOM Part 10 files into a flat
// record of image geometry, windowing metadata, and raw pixel samples.
// It performs a single forward scan over the element stream, skipping
// unrecognized (including vendor-private) tags, and never allocates more
// than the input buffer can back.
package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Tag identifies a data element by its group and element numbers.
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag in the conventional (gggg,eeee) form.
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// DataElement is a single tag-length-value entry scanned from the stream.
// Elements are ephemeral: the reader yields one at a time and Value
// aliases the input buffer, so callers must copy anything they retain.
type DataElement struct {
	Tag    Tag
	VR     string
	Length uint32
	Value  []byte
}

// undefinedLength marks a sequence or encapsulated pixel-data element
// whose extent is delimited by a nested terminator instead of the length
// field.
const undefinedLength = 0xFFFFFFFF

// Delimiter tags used by undefined-length sequences and items.
var (
	tagItem          = Tag{0xFFFE, 0xE000}
	tagItemDelim     = Tag{0xFFFE, 0xE00D}
	tagSequenceDelim = Tag{0xFFFE, 0xE0DD}
)

// longFormVRs holds the VR codes whose explicit-VR headers carry two
// reserved bytes followed by a 32-bit length. All other VRs use a 16-bit
// length directly after the VR code.
var longFormVRs = map[string]bool{
	"OB": true, "OD": true, "OF": true, "OL": true, "OV": true,
	"OW": true, "SQ": true, "SV": true, "UC": true, "UN": true,
	"UR": true, "UT": true, "UV": true,
}

// Reader is a restartable cursor over a byte buffer that yields data
// elements one at a time. It is a pure function of the buffer and the
// starting offset; the only state between reads is the advancing cursor.
type Reader struct {
	buf      []byte
	pos      int
	implicit bool
}

// NewReader returns a reader positioned at offset, decoding explicit VR
// little endian headers.
func NewReader(buf []byte, offset int) *Reader {
	return &Reader{buf: buf, pos: offset}
}

// NewImplicitReader returns a reader positioned at offset, decoding
// implicit VR little endian headers. Elements carry VR "UN" since the
// stream does not encode one.
func NewImplicitReader(buf []byte, offset int) *Reader {
	return &Reader{buf: buf, pos: offset, implicit: true}
}

// Pos reports the current cursor offset into the buffer.
func (r *Reader) Pos() int {
	return r.pos
}

// Next scans the element at the cursor and advances past it. It returns
// io.EOF at a clean end of buffer and ErrTruncatedStream when a header or
// declared length would read past the end. Undefined-length sequence
// elements are skipped to and past their sequence delimitation item and
// yielded with a nil Value; undefined-length pixel data is yielded as-is
// for the decoder to reject.
func (r *Reader) Next() (*DataElement, error) {
	if r.pos >= len(r.buf) {
		return nil, io.EOF
	}

	el, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	if el.Length == undefinedLength {
		// Encapsulated pixel data also carries an undefined length; the
		// decoder turns it into ErrUnsupportedEncoding, so there is no
		// value in walking its fragments here.
		if el.Tag == tagPixelData {
			return el, nil
		}
		if err := r.skipUndefinedSequence(); err != nil {
			return nil, err
		}
		return el, nil
	}

	end := r.pos + int(el.Length)
	if end > len(r.buf) || end < r.pos {
		return nil, fmt.Errorf("%w: element %s declares %d value bytes with %d remaining",
			ErrTruncatedStream, el.Tag, el.Length, len(r.buf)-r.pos)
	}
	el.Value = r.buf[r.pos:end]
	r.pos = end

	// Odd lengths are invalid DICOM but occur in vendor files; skip the
	// pad byte so the next header stays aligned.
	if el.Length%2 == 1 && r.pos < len(r.buf) {
		r.pos++
	}

	return el, nil
}

// readHeader consumes the tag, VR, and length fields at the cursor and
// leaves the cursor at the first value byte.
func (r *Reader) readHeader() (*DataElement, error) {
	if r.pos+8 > len(r.buf) {
		return nil, fmt.Errorf("%w: %d bytes left for an element header",
			ErrTruncatedStream, len(r.buf)-r.pos)
	}

	el := &DataElement{
		Tag: Tag{
			Group:   binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2]),
			Element: binary.LittleEndian.Uint16(r.buf[r.pos+2 : r.pos+4]),
		},
	}

	// Delimiter items have no VR in either mode: tag then 32-bit length.
	if el.Tag.Group == 0xFFFE {
		el.VR = "UN"
		el.Length = binary.LittleEndian.Uint32(r.buf[r.pos+4 : r.pos+8])
		r.pos += 8
		return el, nil
	}

	if r.implicit {
		el.VR = "UN"
		el.Length = binary.LittleEndian.Uint32(r.buf[r.pos+4 : r.pos+8])
		r.pos += 8
		return el, nil
	}

	el.VR = string(r.buf[r.pos+4 : r.pos+6])
	if longFormVRs[el.VR] {
		if r.pos+12 > len(r.buf) {
			return nil, fmt.Errorf("%w: %d bytes left for a long-form header of %s",
				ErrTruncatedStream, len(r.buf)-r.pos, el.Tag)
		}
		// Two reserved bytes precede the 32-bit length.
		el.Length = binary.LittleEndian.Uint32(r.buf[r.pos+8 : r.pos+12])
		r.pos += 12
		return el, nil
	}

	el.Length = uint32(binary.LittleEndian.Uint16(r.buf[r.pos+6 : r.pos+8]))
	r.pos += 8
	return el, nil
}

// skipUndefinedSequence advances the cursor past the sequence
// delimitation item that terminates an undefined-length sequence,
// descending into undefined-length items so that nested sequences cannot
// end the scan early.
func (r *Reader) skipUndefinedSequence() error {
	for {
		if r.pos+8 > len(r.buf) {
			return fmt.Errorf("%w: unterminated undefined-length sequence", ErrTruncatedStream)
		}
		tag := Tag{
			Group:   binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2]),
			Element: binary.LittleEndian.Uint16(r.buf[r.pos+2 : r.pos+4]),
		}
		length := binary.LittleEndian.Uint32(r.buf[r.pos+4 : r.pos+8])
		r.pos += 8

		switch tag {
		case tagSequenceDelim:
			return nil
		case tagItem:
			if length == undefinedLength {
				if err := r.skipUndefinedItem(); err != nil {
					return err
				}
				continue
			}
			end := r.pos + int(length)
			if end > len(r.buf) || end < r.pos {
				return fmt.Errorf("%w: sequence item declares %d bytes with %d remaining",
					ErrTruncatedStream, length, len(r.buf)-r.pos)
			}
			r.pos = end
		default:
			return fmt.Errorf("%w: unexpected tag %s inside undefined-length sequence",
				ErrTruncatedStream, tag)
		}
	}
}

// skipUndefinedItem walks the elements of an undefined-length item until
// its item delimitation tag, recursing through any undefined-length
// sequences found inside.
func (r *Reader) skipUndefinedItem() error {
	for {
		el, err := r.readHeader()
		if err != nil {
			return err
		}
		if el.Tag == tagItemDelim {
			return nil
		}
		if el.Length == undefinedLength {
			if err := r.skipUndefinedSequence(); err != nil {
				return err
			}
			continue
		}
		end := r.pos + int(el.Length)
		if end > len(r.buf) || end < r.pos {
			return fmt.Errorf("%w: element %s declares %d value bytes with %d remaining",
				ErrTruncatedStream, el.Tag, el.Length, len(r.buf)-r.pos)
		}
		r.pos = end
	}
}
