// Package df11 implements the DFloat11 lossless compression scheme for
// bfloat16 tensors.
//
// DFloat11 splits every 16-bit value into two parts: the sign and mantissa
// bits, which are stored verbatim (one byte per element), and the 8-bit
// exponent, which is entropy-coded with a canonical Huffman code. Trained
// weight tensors concentrate almost all of their exponents in a few dozen
// values, so the coded exponent stream averages around three bits per
// element and the whole representation lands near eleven bits per value.
//
// Decoding is parallel despite the variable-length code: the compressed
// representation carries a position-offset index (one starting byte per
// partition) plus a gap table (a bit-level correction per partition), which
// together let every worker seek directly to the first code of its element
// range and decode independently of all other partitions.
package df11

import (
	"errors"
)

// Lookup table geometry. Every table is a flat array of 2^LUTBits entries,
// two bytes each: the decoded exponent symbol followed by the code length
// in bits. A zero length marks a window no code maps to.
const (
	// LUTBits is the width in bits of the lookup window. All code lengths
	// are limited to at most LUTBits by the encoder.
	LUTBits = 12

	lutSize = 1 << LUTBits
	lutMask = lutSize - 1

	// TableBytes is the size in bytes of one serialized lookup table.
	TableBytes = 2 * lutSize
)

var (
	// ErrCodeTooLong is returned when a code length exceeds LUTBits.
	ErrCodeTooLong = errors.New("df11: code length exceeds lookup window")

	// ErrBadCode is returned when a set of code lengths does not form a
	// valid prefix code (Kraft sum above one).
	ErrBadCode = errors.New("df11: code lengths do not form a prefix code")
)

// canonicalCodes assigns canonical Huffman codes to the given code lengths.
// Codes of equal length are assigned in increasing symbol order, shorter
// codes ordering before longer ones. A zero length means the symbol does
// not occur. Returns ErrBadCode if the lengths violate the Kraft
// inequality and ErrCodeTooLong if any length exceeds LUTBits.
func canonicalCodes(lengths []uint8) ([]uint32, error) {
	maxLen := 0
	for _, l := range lengths {
		if int(l) > maxLen {
			maxLen = int(l)
		}
	}
	if maxLen > LUTBits {
		return nil, ErrCodeTooLong
	}

	codes := make([]uint32, len(lengths))
	if maxLen == 0 {
		return codes, nil
	}

	// Count symbols per length
	lengthCount := make([]int, maxLen+1)
	for _, l := range lengths {
		if l > 0 {
			lengthCount[l]++
		}
	}

	// Calculate starting codes for each length
	code := uint32(0)
	nextCode := make([]uint32, maxLen+1)
	for bits := 1; bits <= maxLen; bits++ {
		code = (code + uint32(lengthCount[bits-1])) << 1
		nextCode[bits] = code
	}

	// Assign codes to symbols in order
	for symbol, l := range lengths {
		if l == 0 {
			continue
		}
		if nextCode[l] >= 1<<l {
			return nil, ErrBadCode
		}
		codes[symbol] = nextCode[l]
		nextCode[l]++
	}

	return codes, nil
}

// BuildTable builds one flat lookup table from canonical code lengths.
// lengths must have at most 256 entries (one per exponent symbol); entry i
// is the code length of exponent i, zero if the exponent does not occur.
//
// Each table entry covering a code's prefix range holds the decoded symbol
// and the code length, so decoding is a single indexed load per element.
func BuildTable(lengths []uint8) ([]byte, error) {
	if len(lengths) > 256 {
		return nil, errors.New("df11: more than 256 exponent symbols")
	}

	codes, err := canonicalCodes(lengths)
	if err != nil {
		return nil, err
	}

	table := make([]byte, TableBytes)
	for symbol, l := range lengths {
		if l == 0 {
			continue
		}

		// Fill every window whose leading bits match this code.
		shift := LUTBits - int(l)
		base := int(codes[symbol]) << shift
		count := 1 << shift
		for i := 0; i < count; i++ {
			idx := base + i
			table[2*idx] = byte(symbol)
			table[2*idx+1] = byte(l)
		}
	}

	return table, nil
}

// tableSet is a read-only view over the flat buffer of per-chunk lookup
// tables. Table k covers bytes [k*chunkBytes, (k+1)*chunkBytes) of the
// compressed exponent stream; the last table absorbs the tail.
type tableSet struct {
	data       []byte
	chunkBytes int
	n          int
}

func newTableSet(data []byte, nLUTs, nBytes int) tableSet {
	return tableSet{
		data:       data,
		chunkBytes: chunkBytes(nBytes, nLUTs),
		n:          nLUTs,
	}
}

// chunkBytes returns the size of the stream region covered by one lookup
// table: ceil(nBytes / nLUTs), minimum one byte.
func chunkBytes(nBytes, nLUTs int) int {
	if nLUTs <= 0 {
		return 1
	}
	c := (nBytes + nLUTs - 1) / nLUTs
	if c < 1 {
		c = 1
	}
	return c
}

// table returns the lookup table covering the given byte position. A code
// straddling two regions is decoded with the table of the region its first
// byte falls in.
func (s tableSet) table(bytePos int) []byte {
	idx := bytePos / s.chunkBytes
	if idx >= s.n {
		idx = s.n - 1
	}
	off := idx * TableBytes
	return s.data[off : off+TableBytes]
}
