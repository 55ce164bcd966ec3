// Package image describes the firmware image header placed at the start
// of every slot.
//
// The swap engine treats the header as opaque payload; parsing is
// provided for the header locator, the host tooling and the
// verification collaborator.
package image

import (
	"encoding/binary"
	"fmt"
)

// HeaderMagic marks a valid image header.
const HeaderMagic = 0x96F3B83D

// HeaderSize is the encoded size of the header in bytes.
const HeaderSize = 32

// Version is the semantic version carried in the image header.
type Version struct {
	Major    uint8
	Minor    uint8
	Revision uint16
	BuildNum uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d+%d", v.Major, v.Minor, v.Revision, v.BuildNum)
}

// Header is the metadata block at the start of a slot.
type Header struct {
	// Magic identifies a valid header
	Magic uint32

	// LoadAddr is the execution address for position-dependent images
	LoadAddr uint32

	// HdrSize is the size of the header region preceding the payload
	HdrSize uint16

	// ProtectTLVSize is the size of the protected TLV area following
	// the payload
	ProtectTLVSize uint16

	// ImgSize is the payload size in bytes, excluding header and TLVs
	ImgSize uint32

	// Flags carries image attribute bits; opaque to the swap engine
	Flags uint32

	// Vers is the image version
	Vers Version
}

// Valid reports whether the header carries the image magic.
func (h *Header) Valid() bool {
	return h.Magic == HeaderMagic
}

// ParseHeader decodes a header from the first HeaderSize bytes of a
// slot.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("header needs %d bytes, got %d", HeaderSize, len(buf))
	}

	h := &Header{
		Magic:          binary.LittleEndian.Uint32(buf[0:]),
		LoadAddr:       binary.LittleEndian.Uint32(buf[4:]),
		HdrSize:        binary.LittleEndian.Uint16(buf[8:]),
		ProtectTLVSize: binary.LittleEndian.Uint16(buf[10:]),
		ImgSize:        binary.LittleEndian.Uint32(buf[12:]),
		Flags:          binary.LittleEndian.Uint32(buf[16:]),
		Vers: Version{
			Major:    buf[20],
			Minor:    buf[21],
			Revision: binary.LittleEndian.Uint16(buf[22:]),
			BuildNum: binary.LittleEndian.Uint32(buf[24:]),
		},
	}
	return h, nil
}

// Encode serializes the header into a HeaderSize-byte slice. The final
// four bytes are padding and encode as zero.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.LoadAddr)
	binary.LittleEndian.PutUint16(buf[8:], h.HdrSize)
	binary.LittleEndian.PutUint16(buf[10:], h.ProtectTLVSize)
	binary.LittleEndian.PutUint32(buf[12:], h.ImgSize)
	binary.LittleEndian.PutUint32(buf[16:], h.Flags)
	buf[20] = h.Vers.Major
	buf[21] = h.Vers.Minor
	binary.LittleEndian.PutUint16(buf[22:], h.Vers.Revision)
	binary.LittleEndian.PutUint32(buf[24:], h.Vers.BuildNum)
	return buf
}
