package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loepfe/mcuboot/image"
)

// headerRig loads distinguishable headers into both slots and scratch
// and records a swap size in the primary trailer, so the locator can be
// exercised with synthetic boot statuses.
func headerRig(t *testing.T) *testRig {
	t.Helper()

	rig := standardRig(t)

	write := func(dev interface{ Load(uint32, []byte) error }, imgSize uint32) {
		h := &image.Header{Magic: image.HeaderMagic, HdrSize: 0x20, ImgSize: imgSize}
		require.NoError(t, dev.Load(0, h.Encode()))
	}
	write(rig.primary, 0x100)
	write(rig.secondary, 0x200)
	write(rig.scratch, 0x300)

	// Three granules of 0x1000 for a 0x3000 swap.
	require.NoError(t, rig.engine.primary.WriteSwapSize(0x3000))

	return rig
}

func TestReadImageHeaderLocations(t *testing.T) {
	tests := []struct {
		name        string
		bs          *BootStatus
		slot        int
		wantImgSize uint32
	}{
		{
			name:        "no swap, primary reads primary",
			bs:          nil,
			slot:        PrimarySlot,
			wantImgSize: 0x100,
		},
		{
			name:        "reset status, secondary reads secondary",
			bs:          NewBootStatus(),
			slot:        SecondarySlot,
			wantImgSize: 0x200,
		},
		{
			name:        "early granule, headers still in place",
			bs:          &BootStatus{Idx: 2, State: StatusState1, Source: SourcePrimary},
			slot:        PrimarySlot,
			wantImgSize: 0x100,
		},
		{
			name:        "final granule staged, secondary header in scratch",
			bs:          &BootStatus{Idx: 3, State: StatusState1, Source: SourcePrimary},
			slot:        SecondarySlot,
			wantImgSize: 0x300,
		},
		{
			name:        "final granule staged, primary header untouched",
			bs:          &BootStatus{Idx: 3, State: StatusState1, Source: SourcePrimary},
			slot:        PrimarySlot,
			wantImgSize: 0x100,
		},
		{
			name:        "final granule publishing, primary header in secondary",
			bs:          &BootStatus{Idx: 3, State: StatusState2, Source: SourcePrimary},
			slot:        PrimarySlot,
			wantImgSize: 0x200,
		},
		{
			name:        "final granule publishing, secondary header in scratch",
			bs:          &BootStatus{Idx: 3, State: StatusState2, Source: SourcePrimary},
			slot:        SecondarySlot,
			wantImgSize: 0x300,
		},
		{
			name:        "all granules done, slots exchanged",
			bs:          &BootStatus{Idx: 4, State: StatusState0, Source: SourcePrimary},
			slot:        PrimarySlot,
			wantImgSize: 0x200,
		},
		{
			name:        "all granules done, secondary reads primary",
			bs:          &BootStatus{Idx: 4, State: StatusState0, Source: SourcePrimary},
			slot:        SecondarySlot,
			wantImgSize: 0x100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := headerRig(t)

			hdr, err := rig.engine.ReadImageHeader(tt.slot, tt.bs)
			require.NoError(t, err)
			require.True(t, hdr.Valid())
			require.Equal(t, tt.wantImgSize, hdr.ImgSize)
		})
	}
}

func TestReadImageHeaderRejectsBadSlot(t *testing.T) {
	rig := headerRig(t)
	_, err := rig.engine.ReadImageHeader(2, nil)
	require.Error(t, err)
	require.IsType(t, &BadArgsError{}, err)
}
