package swap

// AppMaxSize returns the largest application payload that fits in the
// slots, or 0 when the sector layouts cannot be paired into spans or a
// span does not fit in the scratch area. The sector-count bound and the
// equal-total-size check of SlotsCompatible are not applied here.
//
// The walk mirrors SlotsCompatible but accumulates the paired size.
// The result additionally accounts for padding that may be needed
// between the image and the trailer so the scratch trailer fits when
// the last payload-bearing sector passes through the scratch area.
func (e *Engine) AppMaxSize() uint32 {
	primary := e.slotSectors(PrimarySlot)
	secondary := e.slotSectors(SecondarySlot)
	scratchSz := e.scratch.Area.Size()

	var i, j int
	var sz0, sz1 uint32
	var slotSz uint32
	smaller := 0
	for i < len(primary) || j < len(secondary) {
		if sz0 == sz1 {
			if i >= len(primary) || j >= len(secondary) {
				break
			}
			sz0 += primary[i].Size
			sz1 += secondary[j].Size
			i++
			j++
		} else if sz0 < sz1 {
			if i >= len(primary) {
				break
			}
			if smaller == 2 {
				e.cfg.Logger.Warn("cannot upgrade: slots have non-compatible sectors")
				return 0
			}
			sz0 += primary[i].Size
			smaller = 1
			i++
		} else {
			if j >= len(secondary) {
				break
			}
			if smaller == 1 {
				e.cfg.Logger.Warn("cannot upgrade: slots have non-compatible sectors")
				return 0
			}
			sz1 += secondary[j].Size
			smaller = 2
			j++
		}
		if sz0 == sz1 {
			slotSz += sz0
			if sz0 > scratchSz || sz1 > scratchSz {
				e.cfg.Logger.Warn("cannot upgrade: not all sectors fit inside scratch")
				return 0
			}
			smaller = 0
			sz0 = 0
			sz1 = 0
		}
	}

	return e.appMaxSizeAdjustToTrailer(slotSz)
}

// appMaxSizeAdjustToTrailer reduces the usable slot size by the trailer
// and by any padding required to keep the scratch trailer intact while
// the first trailer-bearing sector is staged in scratch.
//
// When the slots have sectors of different sizes, the copy granule ends
// at the common boundary, so the authoritative trailer sector end is
// the larger of the two slots' answers.
func (e *Engine) appMaxSizeAdjustToTrailer(slotSize uint32) uint32 {
	trailerSz := e.layout.TrailerSize()
	trailerOff := slotSize - trailerSz

	endPrimary := e.firstTrailerSectorEndOff(PrimarySlot, trailerSz)
	endSecondary := e.firstTrailerSectorEndOff(SecondarySlot, trailerSz)

	trailerSectorEndOff := endPrimary
	if endSecondary > endPrimary {
		trailerSectorEndOff = endSecondary
	}

	trailerSzInFirstSector := trailerSectorEndOff - trailerOff

	// While the first trailer sector sits in scratch, the scratch
	// trailer occupies the tail of the scratch area. If that trailer is
	// bigger than the slot trailer's share of the sector, the image
	// must stop short by the difference.
	var padding uint32
	scratchTrailerSz := e.layout.ScratchTrailerSize()
	if scratchTrailerSz > trailerSzInFirstSector {
		padding = scratchTrailerSz - trailerSzInFirstSector
	}

	return trailerOff - padding
}
