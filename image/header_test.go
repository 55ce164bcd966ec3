package image

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{
		Magic:          HeaderMagic,
		LoadAddr:       0x08000000,
		HdrSize:        0x200,
		ProtectTLVSize: 0x40,
		ImgSize:        0x2E00,
		Flags:          0x4,
		Vers: Version{
			Major:    1,
			Minor:    4,
			Revision: 2,
			BuildNum: 77,
		},
	}

	buf := h.Encode()
	if len(buf) != HeaderSize {
		t.Fatalf("Encode() length = %d, want %d", len(buf), HeaderSize)
	}

	got, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader() error: %v", err)
	}
	if *got != *h {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}
	if !got.Valid() {
		t.Error("Valid() = false for header with magic")
	}
}

func TestParseHeaderShortBuffer(t *testing.T) {
	if _, err := ParseHeader(make([]byte, HeaderSize-1)); err == nil {
		t.Error("ParseHeader() accepted a short buffer")
	}
}

func TestHeaderValid(t *testing.T) {
	erased := bytes.Repeat([]byte{0xFF}, HeaderSize)
	h, err := ParseHeader(erased)
	if err != nil {
		t.Fatalf("ParseHeader() error: %v", err)
	}
	if h.Valid() {
		t.Error("Valid() = true for erased header")
	}
}

func TestVersionString(t *testing.T) {
	v := Version{Major: 2, Minor: 1, Revision: 3, BuildNum: 9}
	if got := v.String(); got != "2.1.3+9" {
		t.Errorf("String() = %q, want 2.1.3+9", got)
	}
}
