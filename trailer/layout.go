package trailer

import "github.com/loepfe/mcuboot/flash"

// Layout captures the parameters the trailer shape depends on.
//
// Field sizes are derived from the region's write granularity so that
// every field starts on a writable cell boundary and no two fields
// share a cell. The magic field is a fixed MagicSize bytes, so this
// holds only for write granularities of at most MagicSize bytes.
type Layout struct {
	// WriteSize is the flash write granularity W.
	WriteSize uint32

	// MaxEntries is the maximum number of swapped granules tracked per
	// pass. It bounds the progress table of a slot trailer.
	MaxEntries int

	// EncKeySize is the wrapped encryption key length in bytes. Zero
	// disables the key fields.
	EncKeySize uint32
}

// SwapSizeFieldSize returns the aligned size of the swap-size field.
func (l Layout) SwapSizeFieldSize() uint32 {
	return flash.AlignUp(4, l.WriteSize)
}

// FlagFieldSize returns the aligned size of a single-octet flag field
// (swap-info, copy-done, image-ok).
func (l Layout) FlagFieldSize() uint32 {
	return flash.AlignUp(1, l.WriteSize)
}

// EncKeyFieldSize returns the aligned size of one wrapped key field, or
// zero when encryption is disabled.
func (l Layout) EncKeyFieldSize() uint32 {
	if l.EncKeySize == 0 {
		return 0
	}
	return flash.AlignUp(l.EncKeySize, l.WriteSize)
}

// tailSize is the size of everything above the progress table.
func (l Layout) tailSize() uint32 {
	return l.SwapSizeFieldSize() +
		2*l.EncKeyFieldSize() +
		3*l.FlagFieldSize() +
		MagicSize
}

// TrailerSize returns the full trailer size of a slot.
func (l Layout) TrailerSize() uint32 {
	return uint32(l.MaxEntries)*StateCount*l.WriteSize + l.tailSize()
}

// ScratchTrailerSize returns the trailer size of the scratch area,
// whose progress table holds the states of a single granule.
func (l Layout) ScratchTrailerSize() uint32 {
	return StateCount*l.WriteSize + l.tailSize()
}

// StatusCellOff returns the offset of a progress cell relative to the
// start of the progress table. idx is the 1-based granule ordinal and
// state the 1-based phase within it.
func (l Layout) StatusCellOff(idx uint32, state uint8) uint32 {
	entrySize := StateCount * l.WriteSize
	return (idx-1)*entrySize + uint32(state-1)*l.WriteSize
}
