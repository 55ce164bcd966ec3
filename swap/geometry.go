package swap

// SlotsCompatible reports whether the primary and secondary slots can
// be swapped through the scratch area.
//
// Both sector lists are walked in lock-step; whichever running sum is
// smaller advances by consuming its next sector. Wherever the sums
// meet is a common boundary, and the span between successive common
// boundaries must consist of multiple sectors on at most one side and
// must fit in the scratch area. Incompatibility is also declared when a
// slot exceeds the configured sector bound or the slots' total sizes
// disagree.
func (e *Engine) SlotsCompatible() bool {
	primary := e.slotSectors(PrimarySlot)
	secondary := e.slotSectors(SecondarySlot)

	if len(primary) > e.cfg.MaxSectors || len(secondary) > e.cfg.MaxSectors {
		e.cfg.Logger.Warn("cannot upgrade: more sectors than allowed",
			"primary", len(primary),
			"secondary", len(secondary),
			"max", e.cfg.MaxSectors,
		)
		return false
	}

	scratchSz := e.scratch.Area.Size()

	var i, j int
	var sz0, sz1 uint32
	var primarySlotSz, secondarySlotSz uint32
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
			// Multiple sectors of the secondary slot must fit into one
			// primary span, never the other way around within one span.
			if smaller == 2 {
				e.cfg.Logger.Warn("cannot upgrade: slots have non-compatible sectors")
				return false
			}
			sz0 += primary[i].Size
			smaller = 1
			i++
		} else {
			if j >= len(secondary) {
				// With compressed candidate images the secondary slot
				// may legitimately run out first.
				break
			}
			if smaller == 1 {
				e.cfg.Logger.Warn("cannot upgrade: slots have non-compatible sectors")
				return false
			}
			sz1 += secondary[j].Size
			smaller = 2
			j++
		}
		if sz0 == sz1 {
			primarySlotSz += sz0
			secondarySlotSz += sz1
			// Scratch has to fit each swap operation to the size of the
			// span between common boundaries.
			if sz0 > scratchSz || sz1 > scratchSz {
				e.cfg.Logger.Warn("cannot upgrade: not all sectors fit inside scratch",
					"span", sz0,
					"scratch", scratchSz,
				)
				return false
			}
			smaller = 0
			sz0 = 0
			sz1 = 0
		}
	}

	if !e.cfg.AllowUnequalSlots {
		if i != len(primary) || j != len(secondary) || primarySlotSz != secondarySlotSz {
			e.cfg.Logger.Warn("cannot upgrade: slots are not compatible")
			return false
		}
	}

	return true
}

// copySize computes the granule ending at lastSectorIdx: walking
// backward toward sector 0 of the primary slot, it accumulates sector
// sizes while the total still fits in the scratch area. It returns the
// byte count and the first (lowest) sector index of the granule.
//
// The secondary slot needs no checking here; SlotsCompatible already
// guarantees the granule is compatible with both slots and scratch.
func (e *Engine) copySize(lastSectorIdx int) (uint32, int) {
	sectors := e.slotSectors(PrimarySlot)
	scratchSz := e.scratch.Area.Size()

	var sz uint32
	i := lastSectorIdx
	for ; i >= 0; i-- {
		newSz := sz + sectors[i].Size
		if newSz > scratchSz {
			break
		}
		sz = newSz
	}

	// i refers to a sector that doesn't fit, or is -1 because every
	// sector has been consumed. Exclude it either way.
	return sz, i + 1
}

// lastSectorIdx finds the last primary-slot sector that participates in
// swapping copySize payload bytes. Both slots' cumulative sizes are
// advanced until they cover copySize and agree; compatibility
// guarantees they converge at a common boundary.
func (e *Engine) lastSectorIdx(copySize uint32) int {
	primary := e.slotSectors(PrimarySlot)
	secondary := e.slotSectors(SecondarySlot)

	var primarySz, secondarySz uint32
	var ip, is int
	for {
		if primarySz < copySize || primarySz < secondarySz {
			if ip >= len(primary) {
				break
			}
			primarySz += primary[ip].Size
			ip++
		}
		if secondarySz < copySize || secondarySz < primarySz {
			if is >= len(secondary) {
				break
			}
			secondarySz += secondary[is].Size
			is++
		}
		if primarySz >= copySize && secondarySz >= copySize &&
			primarySz == secondarySz {
			break
		}
	}

	return ip - 1
}

// SwapCount returns the number of granules a swap of copySize bytes
// performs. It equals the number of iterations Run executes.
func (e *Engine) SwapCount(copySize uint32) uint32 {
	last := e.lastSectorIdx(copySize)

	var count uint32
	for last >= 0 {
		_, first := e.copySize(last)
		last = first - 1
		count++
	}
	return count
}

// firstTrailerSector returns the index of the first sector of a slot
// that holds trailer bytes. The trailer may span sectors of different
// sizes.
func (e *Engine) firstTrailerSector(slot int, trailerSz uint32) int {
	sectors := e.slotSectors(slot)

	first := len(sectors) - 1
	accumulated := sectors[first].Size
	for accumulated < trailerSz && first > 0 {
		first--
		accumulated += sectors[first].Size
	}
	return first
}

// firstTrailerSectorEndOff returns the offset one past the end of the
// first trailer-bearing sector of a slot.
func (e *Engine) firstTrailerSectorEndOff(slot int, trailerSz uint32) uint32 {
	return e.slotSectors(slot)[e.firstTrailerSector(slot, trailerSz)].End()
}
