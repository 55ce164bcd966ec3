package swap

import (
	"github.com/loepfe/mcuboot/trailer"
)

// statusRule maps an observed combination of trailer states to the
// authoritative status source.
type statusRule struct {
	magicPrimary    trailer.MagicState
	magicScratch    trailer.MagicState
	copyDonePrimary trailer.Flag
	source          Source
}

// statusRules is matched in order; the first matching rule wins.
// Reordering changes semantics — the rules are precedence-sensitive.
var statusRules = []statusRule{
	// Primary committed, copy finished: nothing to resume.
	{
		magicPrimary:    trailer.MagicGood,
		magicScratch:    trailer.MagicNotGood,
		copyDonePrimary: trailer.FlagSet,
		source:          SourceNone,
	},
	// Primary committed but copy not finished: resume from the primary
	// slot's progress table.
	{
		magicPrimary:    trailer.MagicGood,
		magicScratch:    trailer.MagicNotGood,
		copyDonePrimary: trailer.FlagUnset,
		source:          SourcePrimary,
	},
	// Scratch committed: the trailer-bearing granule is mid-swap and
	// the scratch trailer is authoritative, whatever primary says.
	{
		magicPrimary:    trailer.MagicAny,
		magicScratch:    trailer.MagicGood,
		copyDonePrimary: trailer.FlagAny,
		source:          SourceScratch,
	},
	// No commitment anywhere: either no swap has ever run (reading
	// primary status is harmless) or a revert is mid-flight with its
	// status in the primary slot.
	{
		magicPrimary:    trailer.MagicUnset,
		magicScratch:    trailer.MagicAny,
		copyDonePrimary: trailer.FlagUnset,
		source:          SourcePrimary,
	},
}

func (e *Engine) logSwapState(name string, st trailer.SwapState) {
	e.cfg.Logger.Info(name+" swap state",
		"magic", st.Magic.String(),
		"swap_type", st.SwapType.String(),
		"copy_done", st.CopyDone.String(),
		"image_ok", st.ImageOk.String(),
	)
}

// StatusSource determines where in flash the most recent boot status is
// stored. The status is necessary for completing a swap that was
// interrupted by a reset.
func (e *Engine) StatusSource() (Source, error) {
	primaryState, err := e.primary.ReadSwapState()
	if err != nil {
		return SourceNone, &FlashError{Op: "read primary swap state", Err: err}
	}
	scratchState, err := e.scratch.ReadSwapState()
	if err != nil {
		return SourceNone, &FlashError{Op: "read scratch swap state", Err: err}
	}

	e.logSwapState("primary image", primaryState)
	e.logSwapState("scratch", scratchState)

	for _, rule := range statusRules {
		if !trailer.MagicCompatible(rule.magicPrimary, primaryState.Magic) ||
			!trailer.MagicCompatible(rule.magicScratch, scratchState.Magic) ||
			!trailer.FlagCompatible(rule.copyDonePrimary, primaryState.CopyDone) {
			continue
		}

		source := rule.source

		// In multi-image configurations, status found on scratch may
		// belong to a different image than the one being examined.
		if e.cfg.ImageCount > 1 && source == SourceScratch &&
			scratchState.ImageNum != e.cfg.ImageIndex {
			source = SourceNone
		}

		e.cfg.Logger.Info("boot source", "source", source.String())
		return source, nil
	}

	e.cfg.Logger.Info("boot source", "source", SourceNone.String())
	return SourceNone, nil
}

// readStatusBytes reconstructs the granule index and phase from a
// region's progress table by locating the boundary between written and
// erased cells.
//
// A written cell after an erased cell means a status write was lost.
// When primary-slot validation is enabled the scan result up to the
// boundary is still used — a bad image is caught by verification —
// otherwise the inconsistency is fatal.
func (e *Engine) readStatusBytes(r trailer.Region, bs *BootStatus) error {
	maxEntries := r.StatusEntries()

	found := false
	foundIdx := 0
	invalid := false

	var i int
	for i = 0; i < maxEntries; i++ {
		written, err := r.ReadProgressEntry(i)
		if err != nil {
			return &FlashError{Op: "read status bytes", Err: err}
		}

		if !written {
			if found && foundIdx == 0 {
				foundIdx = i
			}
		} else if !found {
			found = true
		} else if foundIdx != 0 {
			invalid = true
			break
		}
	}

	if invalid {
		e.cfg.Logger.Error("detected inconsistent status", "cell", i)
		if !e.cfg.ValidatePrimary {
			// With validation of the primary slot disabled, there is no
			// way to be sure the swapped primary slot is OK.
			return &InconsistentStatusError{Cell: i}
		}
	}

	if found {
		if foundIdx == 0 {
			foundIdx = i
		}
		bs.Idx = uint32(foundIdx/trailer.StateCount) + 1
		bs.State = StatusState(foundIdx%trailer.StateCount) + 1
	}

	return nil
}

// ResumeStatus classifies the durable swap state and, when a swap is in
// progress, reconstructs the boot status from the authoritative
// progress table, including the recorded swap size, swap type and
// wrapped keys.
//
// When no swap is pending, or no phase of it has been recorded yet, the
// returned status is reset (IsReset reports true), carries no swap size
// or swap type, and Run starts a fresh swap.
func (e *Engine) ResumeStatus() (*BootStatus, error) {
	bs := NewBootStatus()

	source, err := e.StatusSource()
	if err != nil {
		return nil, err
	}
	bs.Source = source

	if source == SourceNone {
		return bs, nil
	}

	r := e.statusRegion(source)
	if err := e.readStatusBytes(r, bs); err != nil {
		return nil, err
	}
	if bs.IsReset() {
		// No phase has been recorded; the trailer fields may still be
		// erased, so the swap starts over as a fresh one.
		return bs, nil
	}

	swapSize, err := r.ReadSwapSize()
	if err != nil {
		return nil, &FlashError{Op: "read swap size", Err: err}
	}
	bs.SwapSize = swapSize

	st, err := r.ReadSwapState()
	if err != nil {
		return nil, &FlashError{Op: "read swap state", Err: err}
	}
	bs.SwapType = st.SwapType

	if e.cfg.EncKeySize > 0 {
		for slot := 0; slot < NumSlots; slot++ {
			key, ok, err := r.ReadEncKey(slot)
			if err != nil {
				return nil, &FlashError{Op: "read enc key", Err: err}
			}
			if ok {
				bs.EncKeys[slot] = key
			}
		}
	}

	return bs, nil
}
