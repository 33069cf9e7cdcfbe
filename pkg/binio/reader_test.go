package binio

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadIntegers(t *testing.T) {
	data := []byte{
		0x2A,                   // u8 = 42
		0x39, 0x05,             // u16 = 1337
		0x00, 0xCA, 0x9A, 0x3B, // u32 = 1000000000
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // u64 = max
	}
	r := NewReader(data)

	u8, err := r.ReadUint8()
	if err != nil || u8 != 42 {
		t.Fatalf("ReadUint8 = %d, %v; want 42", u8, err)
	}
	u16, err := r.ReadUint16()
	if err != nil || u16 != 1337 {
		t.Fatalf("ReadUint16 = %d, %v; want 1337", u16, err)
	}
	u32, err := r.ReadUint32()
	if err != nil || u32 != 1000000000 {
		t.Fatalf("ReadUint32 = %d, %v; want 1000000000", u32, err)
	}
	u64, err := r.ReadUint64()
	if err != nil || u64 != ^uint64(0) {
		t.Fatalf("ReadUint64 = %d, %v; want max", u64, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected no remaining bytes, have %d", r.Remaining())
	}
}

func TestReadSignedIntegers(t *testing.T) {
	data := []byte{
		0xFF,       // i8 = -1
		0xFE, 0xFF, // i16 = -2
		0xFD, 0xFF, 0xFF, 0xFF, // i32 = -3
		0xFC, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // i64 = -4
	}
	r := NewReader(data)

	if v, _ := r.ReadInt8(); v != -1 {
		t.Errorf("ReadInt8 = %d, want -1", v)
	}
	if v, _ := r.ReadInt16(); v != -2 {
		t.Errorf("ReadInt16 = %d, want -2", v)
	}
	if v, _ := r.ReadInt32(); v != -3 {
		t.Errorf("ReadInt32 = %d, want -3", v)
	}
	if v, _ := r.ReadInt64(); v != -4 {
		t.Errorf("ReadInt64 = %d, want -4", v)
	}
}

func TestReadTruncated(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	if _, err := r.ReadUint32(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	// Failed read must not advance the cursor.
	if r.Offset() != 0 {
		t.Errorf("cursor moved after failed read: offset %d", r.Offset())
	}
	// The two remaining bytes stay readable.
	if v, err := r.ReadUint16(); err != nil || v != 0x0201 {
		t.Errorf("ReadUint16 after failed read = %d, %v", v, err)
	}
}

func TestReadBoolCoercion(t *testing.T) {
	// Nonzero bytes other than 1 coerce to true rather than failing.
	cases := []struct {
		in   byte
		want bool
	}{
		{0x00, false},
		{0x01, true},
		{0x02, true},
		{0xFF, true},
	}
	for _, c := range cases {
		r := NewReader([]byte{c.in})
		got, err := r.ReadBool()
		if err != nil {
			t.Fatalf("ReadBool(%#x): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ReadBool(%#x) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestReadOptionTag(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01, 0x02})

	present, err := r.ReadOptionTag()
	if err != nil || present {
		t.Fatalf("tag 0: got %v, %v; want absent", present, err)
	}
	present, err = r.ReadOptionTag()
	if err != nil || !present {
		t.Fatalf("tag 1: got %v, %v; want present", present, err)
	}
	// Tag 2 is a decode error, unlike booleans.
	if _, err = r.ReadOptionTag(); !errors.Is(err, ErrOptionTag) {
		t.Fatalf("tag 2: expected ErrOptionTag, got %v", err)
	}
}

func TestReadOption(t *testing.T) {
	// Present u64 followed by an absent one.
	data := []byte{
		0x01, 0x2A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00,
	}
	r := NewReader(data)

	v, err := ReadOption(r, (*Reader).ReadUint64)
	if err != nil {
		t.Fatalf("ReadOption: %v", err)
	}
	if v == nil || *v != 42 {
		t.Fatalf("ReadOption = %v, want 42", v)
	}

	v, err = ReadOption(r, (*Reader).ReadUint64)
	if err != nil {
		t.Fatalf("ReadOption absent: %v", err)
	}
	if v != nil {
		t.Fatalf("ReadOption absent = %v, want nil", *v)
	}
}

func TestReadSeq(t *testing.T) {
	// [3, 1, 2] as a u16 sequence: u32 length then elements.
	data := []byte{
		0x03, 0x00, 0x00, 0x00,
		0x03, 0x00,
		0x01, 0x00,
		0x02, 0x00,
	}
	r := NewReader(data)

	vals, err := ReadSeq(r, (*Reader).ReadUint16)
	if err != nil {
		t.Fatalf("ReadSeq: %v", err)
	}
	want := []uint16{3, 1, 2}
	if len(vals) != len(want) {
		t.Fatalf("ReadSeq returned %d elements, want %d", len(vals), len(want))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("vals[%d] = %d, want %d", i, vals[i], want[i])
		}
	}
}

func TestReadSeqAbsurdLength(t *testing.T) {
	// Length prefix claims 2^31 elements with 2 bytes of payload.
	data := []byte{0x00, 0x00, 0x00, 0x80, 0x01, 0x02}
	r := NewReader(data)
	if _, err := ReadSeq(r, (*Reader).ReadUint8); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for absurd length, got %v", err)
	}
}

func TestReadBytesAndPubkey(t *testing.T) {
	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i)
	}
	r := NewReader(data)

	fixed, err := r.ReadBytes(8)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(fixed, data[:8]) {
		t.Error("ReadBytes content mismatch")
	}
	// ReadBytes returns a copy; mutating the source must not change it.
	data[0] = 0xEE
	if fixed[0] != 0x00 {
		t.Error("ReadBytes did not copy")
	}

	pk, err := r.ReadPubkey()
	if err != nil {
		t.Fatalf("ReadPubkey: %v", err)
	}
	if !bytes.Equal(pk.Bytes(), data[8:40]) {
		t.Error("ReadPubkey content mismatch")
	}
}

func TestReadString(t *testing.T) {
	data := []byte{0x05, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o'}
	r := NewReader(data)

	s, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if s != "hello" {
		t.Errorf("ReadString = %q, want %q", s, "hello")
	}
}

func TestReadString64(t *testing.T) {
	data := []byte{0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 's', 'e', 'e', 'd'}
	r := NewReader(data)

	s, err := r.ReadString64()
	if err != nil {
		t.Fatalf("ReadString64: %v", err)
	}
	if s != "seed" {
		t.Errorf("ReadString64 = %q, want %q", s, "seed")
	}

	// Oversized length prefix fails cleanly.
	r = NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F, 'x'})
	if _, err := r.ReadString64(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadVariantTag(t *testing.T) {
	r := NewReader([]byte{0x07})
	tag, err := r.ReadVariantTag()
	if err != nil || tag != 7 {
		t.Fatalf("ReadVariantTag = %d, %v; want 7", tag, err)
	}
}
