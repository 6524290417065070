package df11

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalCodes(t *testing.T) {
	lengths := make([]uint8, 256)
	lengths[5] = 1
	lengths[9] = 2

	codes, err := canonicalCodes(lengths)
	require.NoError(t, err)
	require.Equal(t, uint32(0b0), codes[5])
	require.Equal(t, uint32(0b10), codes[9])
}

func TestCanonicalCodesOrdering(t *testing.T) {
	// Equal lengths take codes in increasing symbol order.
	lengths := []uint8{2, 1, 2}

	codes, err := canonicalCodes(lengths)
	require.NoError(t, err)
	require.Equal(t, uint32(0b0), codes[1])
	require.Equal(t, uint32(0b10), codes[0])
	require.Equal(t, uint32(0b11), codes[2])
}

func TestCanonicalCodesErrors(t *testing.T) {
	t.Run("kraft violation", func(t *testing.T) {
		_, err := canonicalCodes([]uint8{1, 1, 1})
		require.ErrorIs(t, err, ErrBadCode)
	})

	t.Run("code too long", func(t *testing.T) {
		_, err := canonicalCodes([]uint8{uint8(LUTBits + 1)})
		require.ErrorIs(t, err, ErrCodeTooLong)
	})

	t.Run("all zero", func(t *testing.T) {
		codes, err := canonicalCodes(make([]uint8, 256))
		require.NoError(t, err)
		require.Len(t, codes, 256)
	})
}

func TestBuildTable(t *testing.T) {
	lengths := make([]uint8, 256)
	lengths[5] = 1
	lengths[9] = 2

	table, err := BuildTable(lengths)
	require.NoError(t, err)
	require.Len(t, table, TableBytes)

	// Code 0 (1 bit) owns windows 0..2047, code 10 (2 bits) owns
	// 2048..3071, and 3072..4095 is unmapped.
	for _, idx := range []int{0, 1000, 2047} {
		require.Equal(t, byte(5), table[2*idx])
		require.Equal(t, byte(1), table[2*idx+1])
	}
	for _, idx := range []int{2048, 2500, 3071} {
		require.Equal(t, byte(9), table[2*idx])
		require.Equal(t, byte(2), table[2*idx+1])
	}
	for _, idx := range []int{3072, 4095} {
		require.Equal(t, byte(0), table[2*idx+1])
	}
}

func TestBuildTableTooManySymbols(t *testing.T) {
	_, err := BuildTable(make([]uint8, 257))
	require.Error(t, err)
}

func TestChunkBytes(t *testing.T) {
	tests := []struct {
		nBytes, nLUTs, want int
	}{
		{0, 1, 1},
		{1, 1, 1},
		{10, 1, 10},
		{10, 2, 5},
		{10, 3, 4},
		{10, 100, 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, chunkBytes(tt.nBytes, tt.nLUTs),
			"chunkBytes(%d, %d)", tt.nBytes, tt.nLUTs)
	}
}

func TestTableSetClamp(t *testing.T) {
	data := make([]byte, 2*TableBytes)
	data[0] = 11          // table 0, entry 0 symbol
	data[TableBytes] = 22 // table 1, entry 0 symbol

	s := newTableSet(data, 2, 10)

	require.Equal(t, byte(11), s.table(0)[0])
	require.Equal(t, byte(11), s.table(4)[0])
	require.Equal(t, byte(22), s.table(5)[0])

	// Positions past the covered range use the last table.
	require.Equal(t, byte(22), s.table(999)[0])
}
