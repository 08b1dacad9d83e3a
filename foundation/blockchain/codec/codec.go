// Package codec provides the canonical binary encoding used for hashing,
// signing, storage and the wire protocol. All integers are big endian and
// variable length byte strings carry a uint32 length prefix.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Set of error variables for decoding.
var (
	ErrUnexpectedEOF  = errors.New("unexpected end of input")
	ErrTooLarge       = errors.New("length prefix exceeds limit")
	ErrBytesRemaining = errors.New("bytes remaining after decode")
)

// MaxFieldSize is the largest length prefixed field a Reader accepts unless
// the caller asks for a smaller bound.
const MaxFieldSize = 1 << 20

// =============================================================================

// Writer appends canonical encodings to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter constructs a writer with the specified initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: make([]byte, 0, capacity),
	}
}

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// PutU8 writes a single byte.
func (w *Writer) PutU8(v uint8) {
	w.buf = append(w.buf, v)
}

// PutBool writes a boolean as a single byte.
func (w *Writer) PutBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// PutU16 writes a big endian uint16.
func (w *Writer) PutU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// PutU32 writes a big endian uint32.
func (w *Writer) PutU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// PutU64 writes a big endian uint64.
func (w *Writer) PutU64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// PutI64 writes a big endian two's complement int64.
func (w *Writer) PutI64(v int64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

// PutRaw writes the bytes without a length prefix. Used for fixed size
// values like digests and keys.
func (w *Writer) PutRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutBytes writes a uint32 length prefix followed by the bytes.
func (w *Writer) PutBytes(b []byte) {
	w.PutU32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// PutString writes the string as length prefixed bytes.
func (w *Writer) PutString(s string) {
	w.PutU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// =============================================================================

// Reader decodes canonical encodings. The first failure is sticky: every
// later call returns a zero value and Err reports the original failure, so
// callers can decode a whole structure and check once.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader constructs a reader over the specified data.
func NewReader(data []byte) *Reader {
	return &Reader{
		data: data,
	}
}

// Err returns the first error encountered while decoding.
func (r *Reader) Err() error {
	return r.err
}

// Pos returns the current read offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Done returns the sticky error if one exists, or ErrBytesRemaining if the
// input was not fully consumed.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}

	if r.pos != len(r.data) {
		return fmt.Errorf("%w: %d", ErrBytesRemaining, len(r.data)-r.pos)
	}

	return nil
}

// take returns the next n bytes or records ErrUnexpectedEOF.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if n < 0 || r.Remaining() < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d", ErrUnexpectedEOF, n, r.pos)
		return nil
	}

	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b
}

// U8 reads a single byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a boolean. Any value other than 0 or 1 is an error.
func (r *Reader) Bool() bool {
	switch v := r.U8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = fmt.Errorf("invalid bool value %d at offset %d", v, r.pos-1)
		}
		return false
	}
}

// U16 reads a big endian uint16.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// U32 reads a big endian uint32.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// U64 reads a big endian uint64.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// I64 reads a big endian two's complement int64.
func (r *Reader) I64() int64 {
	return int64(r.U64())
}

// Raw copies the next len(dst) bytes into dst.
func (r *Reader) Raw(dst []byte) {
	b := r.take(len(dst))
	if b == nil {
		return
	}
	copy(dst, b)
}

// Bytes reads a length prefixed byte string no larger than max bytes. The
// returned slice is a copy.
func (r *Reader) Bytes(max int) []byte {
	n := r.U32()
	if r.err != nil {
		return nil
	}

	if int64(n) > int64(max) {
		r.err = fmt.Errorf("%w: %d > %d at offset %d", ErrTooLarge, n, max, r.pos-4)
		return nil
	}

	b := r.take(int(n))
	if b == nil {
		return nil
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}

// String reads a length prefixed string no larger than max bytes.
func (r *Reader) String(max int) string {
	return string(r.Bytes(max))
}

// Fail records err as the sticky error if none exists. Decoders use it to
// report semantic problems, like an unknown tag, through the same channel.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
