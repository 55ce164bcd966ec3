package swap

import "github.com/loepfe/mcuboot/trailer"

// Slot indices.
const (
	// PrimarySlot is the slot executed at boot.
	PrimarySlot = 0

	// SecondarySlot stages the candidate image.
	SecondarySlot = 1

	// NumSlots is the number of image slots per image.
	NumSlots = 2
)

// StatusState identifies the phase of the three-phase exchange a
// granule is in.
type StatusState uint8

const (
	// StatusState0 stages the secondary sectors into scratch.
	StatusState0 StatusState = 1

	// StatusState1 moves the primary sectors into the secondary slot.
	StatusState1 StatusState = 2

	// StatusState2 writes scratch back into the primary slot and, for
	// the trailer-bearing granule, publishes the trailer.
	StatusState2 StatusState = 3
)

// StatusIdx0 is the ordinal of the first swapped granule.
const StatusIdx0 uint32 = 1

// Source identifies where the authoritative swap status is stored.
type Source uint8

const (
	// SourceNone means no swap is in progress.
	SourceNone Source = iota

	// SourcePrimary means status is read from the primary slot trailer.
	SourcePrimary

	// SourceScratch means the scratch trailer is authoritative; the
	// trailer-bearing granule is mid-swap.
	SourceScratch
)

func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourcePrimary:
		return "primary slot"
	case SourceScratch:
		return "scratch"
	}
	return "unknown"
}

// BootStatus is the in-RAM swap progress record. It is created fresh
// when no swap is active, reconstructed from the progress table on
// resume, and mutated by the engine after every phase.
type BootStatus struct {
	// Idx is the 1-based ordinal of the granule being swapped.
	Idx uint32

	// State is the phase the current granule is in.
	State StatusState

	// UseScratch marks the granule that shares a sector with the
	// trailer and keeps its status in the scratch trailer. It is never
	// persisted.
	UseScratch bool

	// SwapSize is the byte length of the payload being swapped.
	SwapSize uint32

	// SwapType is the kind of swap being performed, recorded in the
	// trailer's swap-info field.
	SwapType trailer.SwapType

	// EncKeys holds the wrapped per-slot encryption keys when image
	// encryption is enabled. A nil entry means no key is carried.
	EncKeys [NumSlots][]byte

	// Source records where the status was read from on resume.
	Source Source
}

// NewBootStatus returns a reset status: first granule, first phase.
func NewBootStatus() *BootStatus {
	return &BootStatus{
		Idx:      StatusIdx0,
		State:    StatusState0,
		SwapType: trailer.SwapNone,
	}
}

// IsReset reports whether the status describes a swap that has not
// performed any durable work yet.
func (bs *BootStatus) IsReset() bool {
	return bs.Idx == StatusIdx0 && bs.State == StatusState0
}
