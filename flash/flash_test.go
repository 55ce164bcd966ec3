package flash

import "testing"

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n     uint32
		align uint32
		want  uint32
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{24, 16, 32},
		{7, 1, 7},
	}

	for _, tt := range tests {
		if got := AlignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}

func TestSectorAt(t *testing.T) {
	sectors := []Sector{
		{Off: 0, Size: 0x1000},
		{Off: 0x1000, Size: 0x1000},
		{Off: 0x2000, Size: 0x2000},
	}

	tests := []struct {
		off  uint32
		want int
	}{
		{0, 0},
		{0xFFF, 0},
		{0x1000, 1},
		{0x2000, 2},
		{0x3FFF, 2},
		{0x4000, -1},
	}

	for _, tt := range tests {
		if got := SectorAt(sectors, tt.off); got != tt.want {
			t.Errorf("SectorAt(0x%X) = %d, want %d", tt.off, got, tt.want)
		}
	}
}
