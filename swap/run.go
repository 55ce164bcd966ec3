package swap

import (
	"github.com/loepfe/mcuboot/trailer"
)

// writeStatus durably records completion of the phase the boot status
// currently describes. The entry goes to the scratch trailer while the
// trailer-bearing granule is using scratch for status, and to the
// primary slot trailer otherwise.
func (e *Engine) writeStatus(bs *BootStatus) error {
	r := e.primary
	if bs.UseScratch {
		r = e.scratch
	}
	if err := r.WriteProgressEntry(bs.Idx, uint8(bs.State)); err != nil {
		return &FlashError{Op: "write boot status", Err: err}
	}
	return nil
}

// statusInit writes an initial trailer into a region: the secondary
// slot's image-ok (carried forward so a confirmed image stays
// confirmed), then swap-info, swap-size, the wrapped keys when
// encryption is enabled, and the magic last.
func (e *Engine) statusInit(r trailer.Region, bs *BootStatus) error {
	secondaryState, err := e.secondary.ReadSwapState()
	if err != nil {
		return &FlashError{Op: "read secondary swap state", Err: err}
	}

	if secondaryState.ImageOk == trailer.FlagSet {
		if err := r.WriteImageOk(); err != nil {
			return &FlashError{Op: "init trailer", Err: err}
		}
	}
	if err := r.WriteSwapInfo(bs.SwapType, e.cfg.ImageIndex); err != nil {
		return &FlashError{Op: "init trailer", Err: err}
	}
	if err := r.WriteSwapSize(bs.SwapSize); err != nil {
		return &FlashError{Op: "init trailer", Err: err}
	}
	if e.cfg.EncKeySize > 0 {
		for slot := 0; slot < NumSlots; slot++ {
			if bs.EncKeys[slot] == nil {
				continue
			}
			if err := r.WriteEncKey(slot, bs.EncKeys[slot]); err != nil {
				return &FlashError{Op: "init trailer", Err: err}
			}
		}
	}
	if err := r.WriteMagic(); err != nil {
		return &FlashError{Op: "init trailer", Err: err}
	}
	return nil
}

// swapSectors exchanges one granule between the slots: the range of
// primary-slot sectors starting at idx, sz bytes long. Each phase ends
// with a durable progress write, so a reset mid-phase repeats the phase
// identically on the next boot.
func (e *Engine) swapSectors(idx int, sz uint32, bs *BootStatus) error {
	primarySectors := e.slotSectors(PrimarySlot)
	imgOff := primarySectors[idx].Off

	copySz := sz
	trailerSz := e.layout.TrailerSize()

	// sz always covers whole sectors. If the range reaches into the
	// first trailer-bearing sector, that sector may hold both image
	// payload and trailer bytes: payload copies must stop at the
	// trailer start, and the trailer is maintained in scratch while the
	// sector is in flight.
	firstTrailerSectorPrimary := e.firstTrailerSector(PrimarySlot, trailerSz)

	if imgOff+sz > primarySectors[firstTrailerSectorPrimary].Off {
		copySz = e.primary.Area.Size() - imgOff - trailerSz

		// If the trailer spans multiple sectors, the payload portion of
		// the first trailer sector can exceed the room below the
		// scratch area's own trailer. Clamp so the scratch trailer
		// survives the staging copy.
		scratchTrailerOff := e.scratch.StatusOff()
		if copySz > scratchTrailerOff {
			copySz = scratchTrailerOff
		}
	}

	bs.UseScratch = bs.Idx == StatusIdx0 && copySz != sz

	if bs.State == StatusState0 {
		e.cfg.Logger.Debug("erasing scratch area")
		if err := e.scratch.Area.Erase(0, e.scratch.Area.Size(), false); err != nil {
			return &FlashError{Op: "erase scratch", Err: err}
		}

		if bs.Idx == StatusIdx0 {
			// Write a trailer to the scratch area even if scratch is
			// not needed for status: the swap type has to survive while
			// the primary trailer is erased.
			if err := e.statusInit(e.scratch, bs); err != nil {
				return err
			}

			if !bs.UseScratch {
				// The last primary sector carries no image data here,
				// so the status area can be prepared in place.
				if err := e.primary.ScrambleTrailerSectors(); err != nil {
					return &FlashError{Op: "scramble primary trailer", Err: err}
				}
				if err := e.statusInit(e.primary, bs); err != nil {
					return err
				}
				if err := e.scratch.Area.Erase(0, e.scratch.Area.Size(), false); err != nil {
					return &FlashError{Op: "erase scratch", Err: err}
				}
			}
		}

		if err := e.copyRegion(e.secondary.Area, e.scratch.Area, imgOff, 0, copySz); err != nil {
			return err
		}

		if err := e.writeStatus(bs); err != nil {
			return err
		}
		bs.State = StatusState1
	}

	if bs.State == StatusState1 {
		eraseSz := sz

		if bs.Idx == StatusIdx0 {
			// Only the primary slot may carry status from here on. The
			// trailer can spread over multiple sectors, so erasing
			// [imgOff, imgOff+sz) would not necessarily clear it all.
			if err := e.secondary.ScrambleTrailerSectors(); err != nil {
				return &FlashError{Op: "scramble secondary trailer", Err: err}
			}

			if bs.UseScratch {
				// The scramble just erased the trailer sectors; keep
				// them out of the range erased below.
				trailerSector := e.firstTrailerSector(SecondarySlot, trailerSz)
				eraseSz = e.slotSectors(SecondarySlot)[trailerSector].Off - imgOff
			}
		}

		if eraseSz > 0 {
			if err := e.secondary.Area.Erase(imgOff, eraseSz, false); err != nil {
				return &FlashError{Op: "erase secondary", Err: err}
			}
		}

		if err := e.copyRegion(e.primary.Area, e.secondary.Area, imgOff, imgOff, copySz); err != nil {
			return err
		}

		if err := e.writeStatus(bs); err != nil {
			return err
		}
		bs.State = StatusState2
	}

	if bs.State == StatusState2 {
		eraseSz := sz

		if bs.UseScratch {
			// Erase every trailer sector of the primary slot, not just
			// the [imgOff, imgOff+sz) overlap, so the whole new trailer
			// can be written.
			if err := e.primary.ScrambleTrailerSectors(); err != nil {
				return &FlashError{Op: "scramble primary trailer", Err: err}
			}

			trailerSectorOff := primarySectors[firstTrailerSectorPrimary].Off
			eraseSz = trailerSectorOff - imgOff
		}

		if eraseSz > 0 {
			if err := e.primary.Area.Erase(imgOff, eraseSz, false); err != nil {
				return &FlashError{Op: "erase primary", Err: err}
			}
		}

		// For the trailer-bearing granule copySz was truncated above,
		// which keeps the trailer out of this payload copy.
		if err := e.copyRegion(e.scratch.Area, e.primary.Area, 0, imgOff, copySz); err != nil {
			return err
		}

		if bs.UseScratch {
			scratchTrailerOff := e.scratch.StatusOff()

			// Carry over the progress entries maintained in scratch.
			if err := e.copyRegion(e.scratch.Area, e.primary.Area,
				scratchTrailerOff, imgOff+copySz,
				(trailer.StateCount-1)*e.layout.WriteSize); err != nil {
				return err
			}

			scratchState, err := e.scratch.ReadSwapState()
			if err != nil {
				return &FlashError{Op: "read scratch swap state", Err: err}
			}

			if scratchState.ImageOk == trailer.FlagSet {
				if err := e.primary.WriteImageOk(); err != nil {
					return &FlashError{Op: "publish trailer", Err: err}
				}
			}
			if scratchState.SwapType != trailer.SwapNone {
				if err := e.primary.WriteSwapInfo(scratchState.SwapType, e.cfg.ImageIndex); err != nil {
					return &FlashError{Op: "publish trailer", Err: err}
				}
			}
			if err := e.primary.WriteSwapSize(bs.SwapSize); err != nil {
				return &FlashError{Op: "publish trailer", Err: err}
			}
			if e.cfg.EncKeySize > 0 {
				for slot := 0; slot < NumSlots; slot++ {
					if bs.EncKeys[slot] == nil {
						continue
					}
					if err := e.primary.WriteEncKey(slot, bs.EncKeys[slot]); err != nil {
						return &FlashError{Op: "publish trailer", Err: err}
					}
				}
			}
			// Magic last: anything else would open a window where the
			// primary classifies as committed with stale fields.
			if err := e.primary.WriteMagic(); err != nil {
				return &FlashError{Op: "publish trailer", Err: err}
			}
		}

		// The scratch trailer must go away once the primary holds one,
		// or an immediate reset would read stale status from scratch.
		eraseScratch := bs.UseScratch
		bs.UseScratch = false

		if err := e.writeStatus(bs); err != nil {
			return err
		}
		bs.Idx++
		bs.State = StatusState0

		if eraseScratch {
			// Erased backwards: a reset during a forward erase could
			// leave a partially-valid scratch trailer that would be
			// wrongly applied to the primary slot on the next boot.
			if err := e.scratch.Area.Erase(0, e.scratch.Area.Size(), true); err != nil {
				return &FlashError{Op: "erase scratch", Err: err}
			}
		}
	}

	return nil
}

// Run performs or resumes a swap of copySize payload bytes. The boot
// status must come from ResumeStatus (or NewBootStatus for a fresh
// swap, with SwapType and SwapSize populated by the caller).
//
// Granules are processed from the highest primary-slot sectors toward
// sector 0. Granules whose ordinal is below the recorded index are
// skipped; the granule at the recorded index re-enters at the recorded
// phase.
func (e *Engine) Run(bs *BootStatus, copySize uint32) error {
	if bs == nil {
		return &BadArgsError{Reason: "nil boot status"}
	}
	if copySize == 0 {
		return &BadArgsError{Reason: "zero copy size"}
	}
	if bs.SwapSize == 0 {
		bs.SwapSize = copySize
	}

	e.cfg.Logger.Info("starting swap using scratch algorithm",
		"copy_size", copySize,
		"resume_idx", bs.Idx,
		"resume_state", uint8(bs.State),
	)

	total := e.SwapCount(copySize)
	lastSectorIdx := e.lastSectorIdx(copySize)

	var swapIdx uint32
	var bytesSwapped uint32
	for lastSectorIdx >= 0 {
		sz, firstSectorIdx := e.copySize(lastSectorIdx)

		if swapIdx >= bs.Idx-StatusIdx0 {
			if err := e.swapSectors(firstSectorIdx, sz, bs); err != nil {
				return err
			}
			bytesSwapped += sz
			e.reportProgress(Progress{
				Granule:      swapIdx + 1,
				Total:        total,
				BytesSwapped: bytesSwapped,
				Percentage:   float64(swapIdx+1) / float64(total) * 100,
			})
		}

		lastSectorIdx = firstSectorIdx - 1
		swapIdx++
	}

	// The primary slot is self-consistent from here on; record it so
	// the status resolver stops treating the swap as pending.
	if err := e.primary.WriteCopyDone(); err != nil {
		return &FlashError{Op: "write copy done", Err: err}
	}

	e.cfg.Logger.Info("swap complete", "granules", total)
	return nil
}
