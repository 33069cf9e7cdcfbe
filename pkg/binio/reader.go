// Package binio implements cursor-based reads of the binary field layouts
// used by on-chain instruction payloads.
//
// All multi-byte integers are little-endian. Optional values carry a one-byte
// presence tag (0 = absent, 1 = present). Sequences carry a 4-byte LE length
// prefix. The reader knows nothing about any specific instruction; decoders
// drive it with per-field read procedures.
//
// Every read either returns the value and advances the cursor, or fails
// without advancing. Reads past the end of the input fail with ErrTruncated.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fortiblox/svmtrace/internal/types"
)

var (
	// ErrTruncated is returned when a read needs more bytes than remain.
	ErrTruncated = errors.New("truncated input")

	// ErrOptionTag is returned when an optional value carries a presence
	// tag other than 0 or 1.
	ErrOptionTag = errors.New("invalid option tag")
)

// Reader is a cursor over an immutable byte slice.
// The zero value is an empty reader; use NewReader for real input.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a reader positioned at the start of data.
// The reader does not copy data; callers must not mutate it while reading.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// take returns the next n bytes and advances the cursor, or fails with
// ErrTruncated leaving the cursor in place.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncated, n, r.off, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadUint8 reads one unsigned byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadInt8 reads one signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadInt16 reads a little-endian int16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a little-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadBool reads one byte as a boolean. Any nonzero value is true; decoders
// must not reject nonzero values other than 1.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadOptionTag reads the one-byte presence tag of an optional value.
// Returns false for tag 0, true for tag 1, and ErrOptionTag otherwise.
func (r *Reader) ReadOptionTag() (bool, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %d at offset %d", ErrOptionTag, v, r.off-1)
	}
}

// ReadSeqLen reads the 4-byte little-endian length prefix of a sequence.
func (r *Reader) ReadSeqLen() (int, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// ReadBytes reads exactly n raw bytes (a fixed-size byte array, no prefix).
// The returned slice is a copy and safe to retain.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadPubkey reads a fixed 32-byte public key.
func (r *Reader) ReadPubkey() (types.Pubkey, error) {
	var p types.Pubkey
	b, err := r.take(types.PubkeySize)
	if err != nil {
		return p, err
	}
	copy(p[:], b)
	return p, nil
}

// ReadString reads a borsh-style string: a 4-byte LE length prefix followed
// by that many bytes of UTF-8.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadSeqLen()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadString64 reads a bincode-style string: an 8-byte LE length prefix
// followed by that many bytes of UTF-8. The System Program serializes seed
// strings this way.
func (r *Reader) ReadString64() (string, error) {
	n, err := r.ReadUint64()
	if err != nil {
		return "", err
	}
	if n > uint64(r.Remaining()) {
		return "", fmt.Errorf("%w: string length %d exceeds %d remaining bytes",
			ErrTruncated, n, r.Remaining())
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadVariantTag reads the one-byte discriminant of a tagged variant.
// Types whose discriminant is wider document that and read it directly.
func (r *Reader) ReadVariantTag() (uint8, error) {
	return r.ReadUint8()
}

// ReadOption reads an optional value: a presence tag followed by the value
// when present. Returns nil when the value is absent.
func ReadOption[T any](r *Reader, read func(*Reader) (T, error)) (*T, error) {
	present, err := r.ReadOptionTag()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := read(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ReadSeq reads a length-prefixed sequence of values.
func ReadSeq[T any](r *Reader, read func(*Reader) (T, error)) ([]T, error) {
	n, err := r.ReadSeqLen()
	if err != nil {
		return nil, err
	}
	// A sequence of n elements needs at least n bytes; reject absurd
	// lengths before allocating.
	if n > r.Remaining() {
		return nil, fmt.Errorf("%w: sequence length %d exceeds %d remaining bytes",
			ErrTruncated, n, r.Remaining())
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := read(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
