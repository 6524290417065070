package df11

import (
	"context"
	"errors"
)

// Decode errors. All invariant violations are detected up front, before any
// output is written; a partial output buffer only ever results from stream
// corruption discovered mid-partition.
var (
	// ErrSizeMismatch is returned when the output buffer and the
	// sign/mantissa buffer disagree on the element count.
	ErrSizeMismatch = errors.New("df11: output and sign/mantissa sizes differ")

	// ErrBadPartitions is returned when the position-offset index and the
	// gap table disagree, or when a non-empty tensor has no partitions.
	ErrBadPartitions = errors.New("df11: invalid partition tables")

	// ErrBadOffset is returned when a position offset points outside the
	// compressed exponent stream.
	ErrBadOffset = errors.New("df11: position offset outside exponent stream")

	// ErrBadGap is returned when a gap correction is not in [0, 8).
	ErrBadGap = errors.New("df11: gap correction out of range")

	// ErrBadLUTs is returned when the lookup table buffer does not hold
	// exactly NLUTs tables.
	ErrBadLUTs = errors.New("df11: lookup table buffer size mismatch")

	// ErrCorrupted is returned when the exponent stream hits a bit window
	// no code maps to, or runs past the end of the stream.
	ErrCorrupted = errors.New("df11: corrupted exponent stream")
)

// Compressed is the DFloat11 representation of a bfloat16 tensor. All
// buffers are owned by the caller and treated as read-only for the duration
// of a decode.
//
// The zero value describes an empty tensor.
type Compressed struct {
	// LUTs is the flat buffer of NLUTs lookup tables (TableBytes each).
	// Table k covers the k-th chunk of the exponent stream.
	LUTs []byte

	// Codes is the entropy-coded exponent stream, MSB-first within each
	// byte.
	Codes []byte

	// SignMantissa holds one byte per element: the sign bit in bit 7 and
	// the 7 mantissa bits in bits 0..6.
	SignMantissa []byte

	// PositionOffsets holds, per partition, the byte offset into Codes at
	// which the partition's first code begins. The offset may be imprecise
	// by up to seven bits; Gaps carries the correction.
	PositionOffsets []uint32

	// Gaps holds, per partition, the number of bits in [0, 8) to skip past
	// PositionOffsets[p]*8 before decoding begins.
	Gaps []byte

	// NLUTs is the number of lookup tables in LUTs.
	NLUTs int
}

// NumElements returns the number of tensor elements.
func (c *Compressed) NumElements() int {
	return len(c.SignMantissa)
}

// NumPartitions returns the number of decode partitions.
func (c *Compressed) NumPartitions() int {
	return len(c.PositionOffsets)
}

// validate checks the cross-buffer invariants once, at the decode boundary.
// Inside a partition the decode loop runs unchecked.
func (c *Compressed) validate(nDst int) error {
	if nDst != len(c.SignMantissa) {
		return ErrSizeMismatch
	}
	if len(c.Gaps) != len(c.PositionOffsets) {
		return ErrBadPartitions
	}
	if nDst == 0 {
		return nil
	}
	if len(c.PositionOffsets) == 0 {
		return ErrBadPartitions
	}
	if c.NLUTs < 1 || len(c.LUTs) != c.NLUTs*TableBytes {
		return ErrBadLUTs
	}
	for _, off := range c.PositionOffsets {
		if int64(off) > int64(len(c.Codes)) {
			return ErrBadOffset
		}
	}
	for _, g := range c.Gaps {
		if g > 7 {
			return ErrBadGap
		}
	}
	return nil
}

// Decode reconstructs the original bfloat16 bit patterns into dst, which
// must hold exactly one uint16 per element. Partitions are decoded in
// parallel; every element is written exactly once and re-running a decode
// on the same inputs yields identical output.
func Decode(dst []uint16, src *Compressed) error {
	return DecodeContext(context.Background(), dst, src)
}

// DecodeContext is Decode with a context. The context is only observed
// between partitions; a partition in flight always runs to completion.
func DecodeContext(ctx context.Context, dst []uint16, src *Compressed) error {
	if err := src.validate(len(dst)); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}

	luts := newTableSet(src.LUTs, src.NLUTs, len(src.Codes))
	nParts := len(src.PositionOffsets)

	return parallelFor(ctx, nParts, func(p int) error {
		start, end := partitionRange(len(dst), nParts, p)
		if start == end {
			return nil
		}
		startBit := uint64(src.PositionOffsets[p])*8 + uint64(src.Gaps[p])
		return decodePartition(dst[start:end], src.SignMantissa[start:end],
			src.Codes, luts, startBit)
	})
}

// partitionRange returns the element range [start, end) owned by partition
// p. Elements divide evenly across partitions, the last partition absorbing
// any remainder. The encoder builds the position-offset index with the same
// convention; the two must never diverge.
func partitionRange(nElements, nParts, p int) (int, int) {
	per := nElements / nParts
	start := p * per
	end := start + per
	if p == nParts-1 {
		end = nElements
	}
	return start, end
}

// decodePartition is the sequential decode kernel for one partition: walk
// the exponent stream from startBit, and for each element combine the
// decoded exponent with its verbatim sign/mantissa byte.
//
// Correctness rests on bit-exact accumulation of consumed code lengths; an
// off-by-one here corrupts every later element of the partition (and only
// this partition).
func decodePartition(out []uint16, sm []byte, codes []byte, luts tableSet, startBit uint64) error {
	endBit := uint64(len(codes)) * 8
	bit := startBit

	for i := range out {
		if bit >= endBit {
			return ErrCorrupted
		}

		table := luts.table(int(bit >> 3))
		idx := peekWindow(codes, bit)
		n := table[2*idx+1]
		if n == 0 {
			return ErrCorrupted
		}

		s := sm[i]
		out[i] = uint16(s&0x80)<<8 | uint16(table[2*idx])<<7 | uint16(s&0x7F)
		bit += uint64(n)
	}

	if bit > endBit {
		return ErrCorrupted
	}
	return nil
}

// peekWindow returns the LUTBits-wide bit window starting at the given
// absolute bit position, MSB-first, zero-padded past the end of the stream.
func peekWindow(codes []byte, bit uint64) uint32 {
	bytePos := int(bit >> 3)
	shift := uint(bit & 7)

	var w uint32
	if bytePos+2 < len(codes) {
		w = uint32(codes[bytePos])<<16 |
			uint32(codes[bytePos+1])<<8 |
			uint32(codes[bytePos+2])
	} else {
		for k := 0; k < 3; k++ {
			w <<= 8
			if bytePos+k < len(codes) {
				w |= uint32(codes[bytePos+k])
			}
		}
	}

	// 24 bits assembled; drop the shift leading bits and keep LUTBits.
	return (w >> (24 - LUTBits - shift)) & lutMask
}
