package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loepfe/mcuboot/trailer"
)

func standardRig(t *testing.T, opts ...Option) *testRig {
	t.Helper()
	return newTestRig(t,
		uniformSectors(4, 0x1000),
		uniformSectors(4, 0x1000),
		[]uint32{0x1000},
		opts...,
	)
}

func TestStatusSourceTable(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, rig *testRig)
		want    Source
	}{
		{
			name: "primary committed and copy done",
			prepare: func(t *testing.T, rig *testRig) {
				require.NoError(t, rig.engine.primary.WriteMagic())
				require.NoError(t, rig.engine.primary.WriteCopyDone())
			},
			want: SourceNone,
		},
		{
			name: "primary committed, copy unfinished",
			prepare: func(t *testing.T, rig *testRig) {
				require.NoError(t, rig.engine.primary.WriteMagic())
			},
			want: SourcePrimary,
		},
		{
			name: "scratch committed wins over committed primary",
			prepare: func(t *testing.T, rig *testRig) {
				require.NoError(t, rig.engine.primary.WriteMagic())
				require.NoError(t, rig.engine.primary.WriteCopyDone())
				require.NoError(t, rig.engine.scratch.WriteMagic())
			},
			want: SourceScratch,
		},
		{
			name: "scratch committed alone",
			prepare: func(t *testing.T, rig *testRig) {
				require.NoError(t, rig.engine.scratch.WriteMagic())
			},
			want: SourceScratch,
		},
		{
			name:    "nothing committed",
			prepare: func(t *testing.T, rig *testRig) {},
			want:    SourcePrimary,
		},
		{
			name: "bad primary magic with no scratch status",
			prepare: func(t *testing.T, rig *testRig) {
				r := rig.engine.primary
				require.NoError(t, r.Area.Write(r.MagicOff(), []byte{1, 2, 3, 4}))
			},
			want: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := standardRig(t)
			tt.prepare(t, rig)

			source, err := rig.engine.StatusSource()
			require.NoError(t, err)
			require.Equal(t, tt.want, source)
		})
	}
}

func TestStatusSourceMultiImageDemotion(t *testing.T) {
	// Scratch carries status for image 1 while image 0 is examined.
	rig := standardRig(t,
		WithImageCount(2),
		WithImageIndex(0),
	)
	require.NoError(t, rig.engine.scratch.WriteSwapInfo(trailer.SwapTest, 1))
	require.NoError(t, rig.engine.scratch.WriteMagic())

	source, err := rig.engine.StatusSource()
	require.NoError(t, err)
	require.Equal(t, SourceNone, source)

	// The engine for image 1 claims it.
	rig2 := newTestRig(t,
		uniformSectors(4, 0x1000),
		uniformSectors(4, 0x1000),
		[]uint32{0x1000},
		WithImageCount(2),
		WithImageIndex(1),
	)
	require.NoError(t, rig2.engine.scratch.WriteSwapInfo(trailer.SwapTest, 1))
	require.NoError(t, rig2.engine.scratch.WriteMagic())

	source, err = rig2.engine.StatusSource()
	require.NoError(t, err)
	require.Equal(t, SourceScratch, source)
}

func TestReadStatusBytesRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		cells     int
		wantIdx   uint32
		wantState StatusState
	}{
		{"one phase", 1, 1, StatusState1},
		{"two phases", 2, 1, StatusState2},
		{"first granule done", 3, 2, StatusState0},
		{"mid second granule", 5, 2, StatusState2},
		{"three granules done", 9, 4, StatusState0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := standardRig(t)
			r := rig.engine.primary

			for i := 0; i < tt.cells; i++ {
				idx := uint32(i/trailer.StateCount) + 1
				state := uint8(i%trailer.StateCount) + 1
				require.NoError(t, r.WriteProgressEntry(idx, state))
			}

			bs := NewBootStatus()
			require.NoError(t, rig.engine.readStatusBytes(r, bs))
			require.Equal(t, tt.wantIdx, bs.Idx)
			require.Equal(t, tt.wantState, bs.State)
		})
	}
}

func TestReadStatusBytesCorruption(t *testing.T) {
	corrupt := func(t *testing.T, rig *testRig) trailer.Region {
		r := rig.engine.primary
		// written, written, erased, written: a status write was lost.
		require.NoError(t, r.WriteProgressEntry(1, 1))
		require.NoError(t, r.WriteProgressEntry(1, 2))
		require.NoError(t, r.WriteProgressEntry(2, 1))
		return r
	}

	t.Run("validation disabled aborts", func(t *testing.T) {
		rig := standardRig(t)
		r := corrupt(t, rig)

		bs := NewBootStatus()
		err := rig.engine.readStatusBytes(r, bs)
		require.Error(t, err)
		require.IsType(t, &InconsistentStatusError{}, err)
	})

	t.Run("validation enabled continues", func(t *testing.T) {
		rig := standardRig(t, WithValidatePrimary(true))
		r := corrupt(t, rig)

		bs := NewBootStatus()
		require.NoError(t, rig.engine.readStatusBytes(r, bs))
		// The scan resumes from the first erased cell.
		require.Equal(t, uint32(1), bs.Idx)
		require.Equal(t, StatusState2, bs.State)
	})
}

func TestResumeStatusFresh(t *testing.T) {
	rig := standardRig(t)

	bs, err := rig.engine.ResumeStatus()
	require.NoError(t, err)
	require.True(t, bs.IsReset())
	require.Equal(t, SourcePrimary, bs.Source)
}

func TestResumeStatusFromPrimary(t *testing.T) {
	rig := standardRig(t)
	r := rig.engine.primary

	require.NoError(t, r.WriteSwapSize(0x3000))
	require.NoError(t, r.WriteSwapInfo(trailer.SwapPermanent, 0))
	require.NoError(t, r.WriteMagic())
	require.NoError(t, r.WriteProgressEntry(1, 1))
	require.NoError(t, r.WriteProgressEntry(1, 2))
	require.NoError(t, r.WriteProgressEntry(1, 3))
	require.NoError(t, r.WriteProgressEntry(2, 1))

	bs, err := rig.engine.ResumeStatus()
	require.NoError(t, err)
	require.Equal(t, SourcePrimary, bs.Source)
	require.Equal(t, uint32(2), bs.Idx)
	require.Equal(t, StatusState1, bs.State)
	require.Equal(t, uint32(0x3000), bs.SwapSize)
	require.Equal(t, trailer.SwapPermanent, bs.SwapType)
}
