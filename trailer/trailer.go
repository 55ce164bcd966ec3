package trailer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/loepfe/mcuboot/flash"
)

// Region binds a flash area to a trailer layout.
//
// The scratch area carries a shortened trailer (its progress table
// tracks a single granule), so the same layout yields different field
// offsets depending on Scratch.
type Region struct {
	Area    flash.Area
	Layout  Layout
	Scratch bool
}

// SwapState is the decoded durable state of a region's trailer.
type SwapState struct {
	Magic    MagicState
	SwapType SwapType
	ImageNum uint8
	CopyDone Flag
	ImageOk  Flag
}

// TrailerSize returns the trailer size of this region.
func (r Region) TrailerSize() uint32 {
	if r.Scratch {
		return r.Layout.ScratchTrailerSize()
	}
	return r.Layout.TrailerSize()
}

// StatusEntries returns the number of progress cells in this region's
// trailer.
func (r Region) StatusEntries() int {
	if r.Scratch {
		return StateCount
	}
	return r.Layout.MaxEntries * StateCount
}

// StatusOff returns the offset of the progress table, which is also the
// offset of the trailer itself.
func (r Region) StatusOff() uint32 {
	return r.Area.Size() - r.TrailerSize()
}

// MagicOff returns the offset of the magic field.
func (r Region) MagicOff() uint32 {
	return r.Area.Size() - MagicSize
}

// ImageOkOff returns the offset of the image-ok flag.
func (r Region) ImageOkOff() uint32 {
	return r.MagicOff() - r.Layout.FlagFieldSize()
}

// CopyDoneOff returns the offset of the copy-done flag.
func (r Region) CopyDoneOff() uint32 {
	return r.ImageOkOff() - r.Layout.FlagFieldSize()
}

// SwapInfoOff returns the offset of the swap-info field.
func (r Region) SwapInfoOff() uint32 {
	return r.CopyDoneOff() - r.Layout.FlagFieldSize()
}

// SwapSizeOff returns the offset of the swap-size field.
func (r Region) SwapSizeOff() uint32 {
	return r.SwapInfoOff() - 2*r.Layout.EncKeyFieldSize() - r.Layout.SwapSizeFieldSize()
}

// EncKeyOff returns the offset of the wrapped key for the given slot
// (0 or 1). Valid only when the layout enables encryption.
func (r Region) EncKeyOff(slot int) uint32 {
	return r.SwapInfoOff() - uint32(2-slot)*r.Layout.EncKeyFieldSize()
}

// readByte reads the single meaningful octet of a flag field.
func (r Region) readByte(off uint32) (byte, bool, error) {
	buf := make([]byte, 1)
	if err := r.Area.Read(off, buf); err != nil {
		return 0, false, err
	}
	return buf[0], r.Area.IsErased(buf), nil
}

func decodeFlag(b byte, erased bool) Flag {
	switch {
	case erased:
		return FlagUnset
	case b == flagSetByte:
		return FlagSet
	default:
		return FlagBad
	}
}

// ReadMagic classifies the magic field.
func (r Region) ReadMagic() (MagicState, error) {
	buf := make([]byte, MagicSize)
	if err := r.Area.Read(r.MagicOff(), buf); err != nil {
		return 0, fmt.Errorf("read magic: %w", err)
	}
	switch {
	case bytes.Equal(buf, Magic[:]):
		return MagicGood, nil
	case r.Area.IsErased(buf):
		return MagicUnset, nil
	default:
		return MagicBad, nil
	}
}

// ReadSwapState decodes the whole trailer state of the region.
func (r Region) ReadSwapState() (SwapState, error) {
	var st SwapState

	magic, err := r.ReadMagic()
	if err != nil {
		return st, err
	}
	st.Magic = magic

	b, erased, err := r.readByte(r.SwapInfoOff())
	if err != nil {
		return st, fmt.Errorf("read swap info: %w", err)
	}
	st.SwapType, st.ImageNum = SplitSwapInfo(b)
	if erased || st.SwapType > SwapRevert || st.SwapType < SwapNone {
		st.SwapType = SwapNone
		st.ImageNum = 0
	}

	b, erased, err = r.readByte(r.CopyDoneOff())
	if err != nil {
		return st, fmt.Errorf("read copy done: %w", err)
	}
	st.CopyDone = decodeFlag(b, erased)

	b, erased, err = r.readByte(r.ImageOkOff())
	if err != nil {
		return st, fmt.Errorf("read image ok: %w", err)
	}
	st.ImageOk = decodeFlag(b, erased)

	return st, nil
}

// WriteMagic commits the trailer by writing the magic signature. It
// must be the last field written when publishing a trailer; any other
// order creates a window where the region would classify as good while
// the remaining fields are stale.
func (r Region) WriteMagic() error {
	if err := r.Area.Write(r.MagicOff(), Magic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	return nil
}

// writeFlag programs a single-octet flag field. The rest of the cell is
// filled with the same byte so no part of the cell needs a second
// write.
func (r Region) writeFlag(off uint32, v byte) error {
	buf := make([]byte, r.Layout.FlagFieldSize())
	for i := range buf {
		buf[i] = v
	}
	return r.Area.Write(off, buf)
}

// WriteCopyDone records that the primary slot has become
// self-consistent.
func (r Region) WriteCopyDone() error {
	if err := r.writeFlag(r.CopyDoneOff(), flagSetByte); err != nil {
		return fmt.Errorf("write copy done: %w", err)
	}
	return nil
}

// WriteImageOk confirms the running image. Normally written by the
// application, not the bootloader.
func (r Region) WriteImageOk() error {
	if err := r.writeFlag(r.ImageOkOff(), flagSetByte); err != nil {
		return fmt.Errorf("write image ok: %w", err)
	}
	return nil
}

// WriteSwapInfo records the swap type and image number.
func (r Region) WriteSwapInfo(t SwapType, imageNum uint8) error {
	if err := r.writeFlag(r.SwapInfoOff(), SwapInfo(t, imageNum)); err != nil {
		return fmt.Errorf("write swap info: %w", err)
	}
	return nil
}

// WriteSwapSize records the byte length of the payload being swapped.
func (r Region) WriteSwapSize(size uint32) error {
	buf := make([]byte, r.Layout.SwapSizeFieldSize())
	binary.LittleEndian.PutUint32(buf, size)
	for i := 4; i < len(buf); i++ {
		buf[i] = buf[i%4]
	}
	if err := r.Area.Write(r.SwapSizeOff(), buf); err != nil {
		return fmt.Errorf("write swap size: %w", err)
	}
	return nil
}

// ReadSwapSize returns the recorded payload length.
func (r Region) ReadSwapSize() (uint32, error) {
	buf := make([]byte, 4)
	if err := r.Area.Read(r.SwapSizeOff(), buf); err != nil {
		return 0, fmt.Errorf("read swap size: %w", err)
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// WriteEncKey records the wrapped encryption key for the given slot
// (0 or 1).
func (r Region) WriteEncKey(slot int, wrapped []byte) error {
	if r.Layout.EncKeySize == 0 {
		return fmt.Errorf("write enc key: encryption disabled")
	}
	if uint32(len(wrapped)) != r.Layout.EncKeySize {
		return fmt.Errorf("write enc key: key is %d bytes, want %d",
			len(wrapped), r.Layout.EncKeySize)
	}
	buf := make([]byte, r.Layout.EncKeyFieldSize())
	copy(buf, wrapped)
	for i := r.Layout.EncKeySize; i < uint32(len(buf)); i++ {
		buf[i] = wrapped[len(wrapped)-1]
	}
	if err := r.Area.Write(r.EncKeyOff(slot), buf); err != nil {
		return fmt.Errorf("write enc key %d: %w", slot, err)
	}
	return nil
}

// ReadEncKey returns the wrapped encryption key for the given slot and
// whether the field holds one (an erased field means no key was
// recorded).
func (r Region) ReadEncKey(slot int) ([]byte, bool, error) {
	if r.Layout.EncKeySize == 0 {
		return nil, false, nil
	}
	buf := make([]byte, r.Layout.EncKeySize)
	if err := r.Area.Read(r.EncKeyOff(slot), buf); err != nil {
		return nil, false, fmt.Errorf("read enc key %d: %w", slot, err)
	}
	if r.Area.IsErased(buf) {
		return nil, false, nil
	}
	return buf, true, nil
}

// WriteProgressEntry records completion of one phase of one granule.
// idx is the 1-based granule ordinal and state the 1-based phase. The
// cell value is the phase ordinal, but readers only consult the erased
// predicate; the value itself carries no information.
func (r Region) WriteProgressEntry(idx uint32, state uint8) error {
	buf := make([]byte, r.Layout.WriteSize)
	for i := range buf {
		buf[i] = state
	}
	off := r.StatusOff() + r.Layout.StatusCellOff(idx, state)
	if err := r.Area.Write(off, buf); err != nil {
		return fmt.Errorf("write progress entry (%d,%d): %w", idx, state, err)
	}
	return nil
}

// ReadProgressEntry reports whether progress cell i (0-based) has been
// written.
func (r Region) ReadProgressEntry(i int) (bool, error) {
	buf := make([]byte, 1)
	off := r.StatusOff() + uint32(i)*r.Layout.WriteSize
	if err := r.Area.Read(off, buf); err != nil {
		return false, fmt.Errorf("read progress entry %d: %w", i, err)
	}
	return !r.Area.IsErased(buf), nil
}

// ScrambleTrailerSectors destroys the region's trailer by erasing every
// sector that holds trailer bytes. The trailer may span sectors of
// different sizes; all of them are erased.
func (r Region) ScrambleTrailerSectors() error {
	sectors := r.Area.Sectors()
	if len(sectors) == 0 {
		return fmt.Errorf("scramble trailer: area has no sectors")
	}

	trailerSz := r.TrailerSize()
	first := len(sectors) - 1
	accumulated := sectors[first].Size
	for accumulated < trailerSz && first > 0 {
		first--
		accumulated += sectors[first].Size
	}

	off := sectors[first].Off
	if err := r.Area.Erase(off, r.Area.Size()-off, false); err != nil {
		return fmt.Errorf("scramble trailer: %w", err)
	}
	return nil
}
