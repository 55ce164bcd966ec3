package trailer

import "testing"

func TestLayoutSizes(t *testing.T) {
	tests := []struct {
		name               string
		layout             Layout
		wantTrailer        uint32
		wantScratchTrailer uint32
	}{
		{
			name:               "write size 4, 128 entries",
			layout:             Layout{WriteSize: 4, MaxEntries: 128},
			wantTrailer:        128*3*4 + 4 + 3*4 + 16,
			wantScratchTrailer: 3*4 + 4 + 3*4 + 16,
		},
		{
			name:               "write size 8, 128 entries",
			layout:             Layout{WriteSize: 8, MaxEntries: 128},
			wantTrailer:        128*3*8 + 8 + 3*8 + 16,
			wantScratchTrailer: 3*8 + 8 + 3*8 + 16,
		},
		{
			name:               "write size 4, encryption",
			layout:             Layout{WriteSize: 4, MaxEntries: 128, EncKeySize: 24},
			wantTrailer:        128*3*4 + 4 + 2*24 + 3*4 + 16,
			wantScratchTrailer: 3*4 + 4 + 2*24 + 3*4 + 16,
		},
		{
			name:               "write size 16, unaligned key size",
			layout:             Layout{WriteSize: 16, MaxEntries: 8, EncKeySize: 24},
			wantTrailer:        8*3*16 + 16 + 2*32 + 3*16 + 16,
			wantScratchTrailer: 3*16 + 16 + 2*32 + 3*16 + 16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.layout.TrailerSize(); got != tt.wantTrailer {
				t.Errorf("TrailerSize() = 0x%X, want 0x%X", got, tt.wantTrailer)
			}
			if got := tt.layout.ScratchTrailerSize(); got != tt.wantScratchTrailer {
				t.Errorf("ScratchTrailerSize() = 0x%X, want 0x%X", got, tt.wantScratchTrailer)
			}
		})
	}
}

func TestStatusCellOff(t *testing.T) {
	l := Layout{WriteSize: 4, MaxEntries: 128}

	tests := []struct {
		idx   uint32
		state uint8
		want  uint32
	}{
		{1, 1, 0},
		{1, 2, 4},
		{1, 3, 8},
		{2, 1, 12},
		{3, 3, 32},
	}

	for _, tt := range tests {
		if got := l.StatusCellOff(tt.idx, tt.state); got != tt.want {
			t.Errorf("StatusCellOff(%d, %d) = %d, want %d", tt.idx, tt.state, got, tt.want)
		}
	}
}
