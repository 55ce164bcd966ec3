package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loepfe/mcuboot/flash/memflash"
)

func TestAppMaxSizeUniform(t *testing.T) {
	rig := standardRig(t)

	trailerSz := rig.engine.Layout().TrailerSize()
	got := rig.engine.AppMaxSize()

	// The trailer fits in the last sector with room to spare, so no
	// padding is needed.
	require.Equal(t, rig.primary.Size()-trailerSz, got)
	require.LessOrEqual(t, got, rig.primary.Size()-trailerSz)
}

func TestAppMaxSizeIncompatible(t *testing.T) {
	rig := newTestRig(t,
		[]uint32{0x1000, 0x3000},
		[]uint32{0x3000, 0x1000},
		[]uint32{0x4000},
	)
	require.Zero(t, rig.engine.AppMaxSize())
}

func TestAppMaxSizeScratchTrailerPadding(t *testing.T) {
	// A large write granularity makes the scratch trailer bigger than
	// the slot trailer's share of its first sector, forcing padding.
	sectors := []uint32{0x1000, 0x1000, 0x800, 0x800}
	p := memflash.New(sectors, memflash.WithAlign(0x80))
	s := memflash.New(sectors, memflash.WithAlign(0x80))
	sc := memflash.New([]uint32{0x1000}, memflash.WithAlign(0x80))

	eng, err := New(p, s, sc, WithMaxSectors(4))
	require.NoError(t, err)

	layout := eng.Layout()
	trailerSz := layout.TrailerSize()
	require.Equal(t, uint32(0x810), trailerSz)
	require.Equal(t, uint32(0x390), layout.ScratchTrailerSize())

	// Trailer start 0x27F0; its first sector ends at 0x2800, so only
	// 0x10 trailer bytes live there and the scratch trailer needs
	// 0x390 - 0x10 = 0x380 bytes of padding.
	slotSize := uint32(0x3000)
	trailerOff := slotSize - trailerSz
	require.Equal(t, uint32(0x2800), eng.firstTrailerSectorEndOff(PrimarySlot, trailerSz))

	want := trailerOff - (layout.ScratchTrailerSize() - (0x2800 - trailerOff))
	require.Equal(t, uint32(0x2470), want)
	require.Equal(t, want, eng.AppMaxSize())
	require.LessOrEqual(t, eng.AppMaxSize(), slotSize-trailerSz)
}
