package df11

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// mustTable builds a lookup table from sparse symbol->length pairs.
func mustTable(t *testing.T, pairs map[int]uint8) []byte {
	t.Helper()
	lengths := make([]uint8, 256)
	for sym, l := range pairs {
		lengths[sym] = l
	}
	table, err := BuildTable(lengths)
	require.NoError(t, err)
	return table
}

// TestDecodeTwoSymbolStream decodes the canonical two-code example by hand:
// code 0 -> exponent 5 (1 bit), code 10 -> exponent 9 (2 bits), stream bits
// 0,10,0,10 packed MSB-first into the single byte 0b01001000.
func TestDecodeTwoSymbolStream(t *testing.T) {
	table := mustTable(t, map[int]uint8{5: 1, 9: 2})

	src := &Compressed{
		LUTs:            table,
		Codes:           []byte{0b01001000},
		SignMantissa:    []byte{0x00, 0x00, 0x00, 0x00},
		PositionOffsets: []uint32{0},
		Gaps:            []byte{0},
		NLUTs:           1,
	}

	dst := make([]uint16, 4)
	require.NoError(t, Decode(dst, src))

	// Exponents 5,9,5,9 with zero sign/mantissa.
	require.Equal(t, []uint16{0x0280, 0x0480, 0x0280, 0x0480}, dst)
}

// TestDecodeMidBytePartition exercises a second partition whose position
// offset points at the same byte as the first (codes are not byte aligned)
// and relies on a nonzero gap to land on the right bit.
func TestDecodeMidBytePartition(t *testing.T) {
	table := mustTable(t, map[int]uint8{5: 1, 9: 2})
	codes := []byte{0b01001000}
	sm := []byte{0x00, 0x00, 0x00, 0x00}

	single := &Compressed{
		LUTs:            table,
		Codes:           codes,
		SignMantissa:    sm,
		PositionOffsets: []uint32{0},
		Gaps:            []byte{0},
		NLUTs:           1,
	}
	split := &Compressed{
		LUTs:            table,
		Codes:           codes,
		SignMantissa:    sm,
		PositionOffsets: []uint32{0, 0},
		Gaps:            []byte{0, 3}, // elements 0,1 consume 1+2 bits
		NLUTs:           1,
	}

	want := make([]uint16, 4)
	got := make([]uint16, 4)
	require.NoError(t, Decode(want, single))
	require.NoError(t, Decode(got, split))
	require.Equal(t, want, got)
	require.Equal(t, want[2:], got[2:])
}

// TestDecodeChunkStraddle places a code whose bits straddle two lookup
// table regions: the table of the region holding the code's first byte
// must win.
func TestDecodeChunkStraddle(t *testing.T) {
	table := mustTable(t, map[int]uint8{5: 1, 9: 2})

	// Seven 1-bit codes, then the 2-bit code 10 spanning bits 7..8.
	codes := []byte{0b00000001, 0b00000000}
	luts := append(append([]byte{}, table...), table...) // two regions, same code

	src := &Compressed{
		LUTs:            luts,
		Codes:           codes,
		SignMantissa:    make([]byte, 8),
		PositionOffsets: []uint32{0},
		Gaps:            []byte{0},
		NLUTs:           2,
	}

	dst := make([]uint16, 8)
	require.NoError(t, Decode(dst, src))

	want := []uint16{
		0x0280, 0x0280, 0x0280, 0x0280, 0x0280, 0x0280, 0x0280, 0x0480,
	}
	require.Equal(t, want, dst)
}

// TestDecodeDistinctChunkTables verifies that table selection really
// follows the cursor's byte region when chunks carry different codes.
func TestDecodeDistinctChunkTables(t *testing.T) {
	table0 := mustTable(t, map[int]uint8{5: 1})   // code 0 -> exponent 5
	table1 := mustTable(t, map[int]uint8{200: 1}) // code 0 -> exponent 200

	src := &Compressed{
		LUTs:            append(append([]byte{}, table0...), table1...),
		Codes:           []byte{0x00, 0x00},
		SignMantissa:    make([]byte, 9),
		PositionOffsets: []uint32{0},
		Gaps:            []byte{0},
		NLUTs:           2,
	}

	dst := make([]uint16, 9)
	require.NoError(t, Decode(dst, src))

	for i := 0; i < 8; i++ {
		require.Equal(t, uint16(5)<<7, dst[i], "element %d decoded in region 0", i)
	}
	require.Equal(t, uint16(200)<<7, dst[8], "element 8 decoded in region 1")
}

// TestDecodeSignMantissa verifies the value reconstructor bit placement.
func TestDecodeSignMantissa(t *testing.T) {
	table := mustTable(t, map[int]uint8{0x80: 1})

	src := &Compressed{
		LUTs:            table,
		Codes:           []byte{0x00},
		SignMantissa:    []byte{0x00, 0x7F, 0x80, 0xFF},
		PositionOffsets: []uint32{0},
		Gaps:            []byte{0},
		NLUTs:           1,
	}

	dst := make([]uint16, 4)
	require.NoError(t, Decode(dst, src))

	require.Equal(t, []uint16{
		0x4000, // +, zero mantissa
		0x407F, // +, full mantissa
		0xC000, // -, zero mantissa
		0xC07F, // -, full mantissa
	}, dst)
}

func TestDecodeValidation(t *testing.T) {
	table := make([]byte, TableBytes)

	tests := []struct {
		name string
		dst  int
		src  Compressed
		want error
	}{
		{
			name: "size mismatch",
			dst:  3,
			src:  Compressed{SignMantissa: make([]byte, 4)},
			want: ErrSizeMismatch,
		},
		{
			name: "gap table mismatch",
			dst:  2,
			src: Compressed{
				SignMantissa:    make([]byte, 2),
				PositionOffsets: []uint32{0, 0},
				Gaps:            []byte{0},
			},
			want: ErrBadPartitions,
		},
		{
			name: "no partitions",
			dst:  2,
			src: Compressed{
				SignMantissa: make([]byte, 2),
			},
			want: ErrBadPartitions,
		},
		{
			name: "lut size mismatch",
			dst:  1,
			src: Compressed{
				SignMantissa:    make([]byte, 1),
				PositionOffsets: []uint32{0},
				Gaps:            []byte{0},
				LUTs:            make([]byte, TableBytes-1),
				NLUTs:           1,
			},
			want: ErrBadLUTs,
		},
		{
			name: "offset past stream",
			dst:  1,
			src: Compressed{
				SignMantissa:    make([]byte, 1),
				PositionOffsets: []uint32{5},
				Gaps:            []byte{0},
				LUTs:            table,
				NLUTs:           1,
				Codes:           []byte{0x00},
			},
			want: ErrBadOffset,
		},
		{
			name: "gap out of range",
			dst:  1,
			src: Compressed{
				SignMantissa:    make([]byte, 1),
				PositionOffsets: []uint32{0},
				Gaps:            []byte{8},
				LUTs:            table,
				NLUTs:           1,
				Codes:           []byte{0x00},
			},
			want: ErrBadGap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]uint16, tt.dst)
			require.ErrorIs(t, Decode(dst, &tt.src), tt.want)
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	require.NoError(t, Decode(nil, &Compressed{}))
}

// TestDecodeCorrupted hits a window no code maps to.
func TestDecodeCorrupted(t *testing.T) {
	// Only code 0 (1 bit) is defined; a stream starting with a 1 bit is
	// undecodable.
	table := mustTable(t, map[int]uint8{5: 1})

	src := &Compressed{
		LUTs:            table,
		Codes:           []byte{0x80},
		SignMantissa:    []byte{0x00},
		PositionOffsets: []uint32{0},
		Gaps:            []byte{0},
		NLUTs:           1,
	}

	dst := make([]uint16, 1)
	require.ErrorIs(t, Decode(dst, src), ErrCorrupted)
}

// TestDecodeIdempotent re-runs a decode and expects identical output.
func TestDecodeIdempotent(t *testing.T) {
	values := randomBFloat16(t, 4096, 7)
	src, err := Encode(values, &EncodeOptions{Partitions: 5, ChunkBytes: 64})
	require.NoError(t, err)

	first := make([]uint16, len(values))
	second := make([]uint16, len(values))
	require.NoError(t, Decode(first, src))
	require.NoError(t, Decode(second, src))
	require.Equal(t, first, second)
	require.Equal(t, values, first)
}

// TestDecodePartitionIndependence decodes the same values with different
// partition counts and worker counts; every combination must agree.
func TestDecodePartitionIndependence(t *testing.T) {
	values := randomBFloat16(t, 10_007, 11) // odd size: last partition absorbs remainder

	var outputs [][]uint16
	for _, parts := range []int{1, 2, 7, 64} {
		src, err := Encode(values, &EncodeOptions{Partitions: parts, ChunkBytes: 128})
		require.NoError(t, err)
		require.Len(t, src.PositionOffsets, parts)

		dst := make([]uint16, len(values))
		require.NoError(t, Decode(dst, src))
		outputs = append(outputs, dst)
	}

	defer SetParallelConfig(DefaultParallelConfig())
	SetParallelConfig(ParallelConfig{NumWorkers: 1})
	src, err := Encode(values, &EncodeOptions{Partitions: 16})
	require.NoError(t, err)
	dst := make([]uint16, len(values))
	require.NoError(t, Decode(dst, src))
	outputs = append(outputs, dst)

	for i, out := range outputs {
		require.Equal(t, values, out, "variant %d", i)
	}
}

// randomBFloat16 produces deterministic pseudo-random bit patterns with a
// skewed exponent distribution, plus the special values a lossless codec
// must preserve exactly.
func randomBFloat16(t *testing.T, n int, seed int64) []uint16 {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	specials := []uint16{
		0x0000, // +0
		0x8000, // -0
		0x7F80, // +Inf
		0xFF80, // -Inf
		0x7FC0, // quiet NaN
		0x7FA5, // NaN payload
		0x0001, // smallest subnormal
		0x7F7F, // max finite
	}

	values := make([]uint16, n)
	for i := range values {
		if i < len(specials) {
			values[i] = specials[i]
			continue
		}
		// Exponents cluster around 120..130 like trained weights do.
		exp := 120 + rng.Intn(11)
		if rng.Intn(50) == 0 {
			exp = rng.Intn(256)
		}
		values[i] = uint16(rng.Intn(2))<<15 | uint16(exp)<<7 | uint16(rng.Intn(128))
	}
	return values
}

func BenchmarkDecode(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	values := make([]uint16, 1<<20)
	for i := range values {
		values[i] = uint16(120+rng.Intn(11))<<7 | uint16(rng.Intn(128))
	}

	src, err := Encode(values, nil)
	if err != nil {
		b.Fatal(err)
	}
	dst := make([]uint16, len(values))

	b.SetBytes(int64(len(values) * 2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Decode(dst, src); err != nil {
			b.Fatal(err)
		}
	}
}
