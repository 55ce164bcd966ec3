package swap

import (
	"github.com/loepfe/mcuboot/flash"
	"github.com/loepfe/mcuboot/image"
)

// ReadImageHeader reads the image header a caller expects at the start
// of the given slot. While a swap is in progress the header may
// physically reside in the other slot or in scratch; the location is
// derived from how many granules have completed.
//
// Granules are copied from the highest sectors down, so the headers are
// the last thing to move: during the final granule the secondary
// header sits in scratch from the move phase on, and the primary header
// sits in the secondary slot from the publish phase on. Once every
// granule is done, the headers have traded slots.
func (e *Engine) ReadImageHeader(slot int, bs *BootStatus) (*image.Header, error) {
	if slot != PrimarySlot && slot != SecondarySlot {
		return nil, &BadArgsError{Reason: "invalid slot index"}
	}

	hdrSlot := slot
	fromScratch := false

	if bs != nil && !bs.IsReset() {
		statusRegion := e.statusRegion(bs.Source)

		swapSize, err := statusRegion.ReadSwapSize()
		if err != nil {
			return nil, &FlashError{Op: "read swap size", Err: err}
		}

		swapCount := e.SwapCount(swapSize)
		done := bs.Idx - StatusIdx0

		switch {
		case done >= swapCount:
			// Every granule has been swapped; the header is in the
			// opposite slot.
			if slot == PrimarySlot {
				hdrSlot = SecondarySlot
			} else {
				hdrSlot = PrimarySlot
			}
		case done == swapCount-1:
			if slot == SecondarySlot && bs.State >= StatusState1 {
				fromScratch = true
			} else if slot == PrimarySlot && bs.State >= StatusState2 {
				hdrSlot = SecondarySlot
			}
		}
	}

	var area flash.Area
	if fromScratch {
		area = e.scratch.Area
	} else {
		area = e.slotRegion(hdrSlot).Area
	}

	buf := make([]byte, image.HeaderSize)
	if err := area.Read(0, buf); err != nil {
		return nil, &FlashError{Op: "read image header", Err: err}
	}
	return image.ParseHeader(buf)
}
