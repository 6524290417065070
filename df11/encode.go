package df11

import (
	"container/heap"
	"errors"
)

// EncodeOptions controls how a tensor is partitioned for parallel decode.
type EncodeOptions struct {
	// Partitions is the number of decode partitions. 0 picks one partition
	// per defaultPartitionElems elements. Values above the element count
	// are clamped.
	Partitions int

	// ChunkBytes is the size of the exponent-stream region covered by one
	// lookup table. 0 means defaultChunkBytes.
	ChunkBytes int
}

const (
	defaultPartitionElems = 1 << 16
	defaultChunkBytes     = 1 << 16
)

var errBadOptions = errors.New("df11: negative partition or chunk size")

// Encode compresses bfloat16 bit patterns into the DFloat11 representation.
// The result decodes back to exactly the input: the scheme is lossless at
// the bit level, including NaN payloads, infinities and signed zeros.
//
// The reference encoder emits a single canonical code for the whole tensor
// and replicates its lookup table per stream chunk. The format itself
// permits distinct per-chunk tables; Decode honors whichever table covers
// the byte a code starts in.
func Encode(values []uint16, opts *EncodeOptions) (*Compressed, error) {
	var o EncodeOptions
	if opts != nil {
		o = *opts
	}
	if o.Partitions < 0 || o.ChunkBytes < 0 {
		return nil, errBadOptions
	}
	if o.ChunkBytes == 0 {
		o.ChunkBytes = defaultChunkBytes
	}

	n := len(values)
	if n == 0 {
		return &Compressed{}, nil
	}

	nParts := o.Partitions
	if nParts == 0 {
		nParts = (n + defaultPartitionElems - 1) / defaultPartitionElems
	}
	if nParts > n {
		nParts = n
	}

	// Split values into the verbatim and the entropy-coded halves.
	signMantissa := make([]byte, n)
	var freqs [256]uint64
	for i, v := range values {
		signMantissa[i] = byte(v>>8)&0x80 | byte(v&0x7F)
		freqs[(v>>7)&0xFF]++
	}

	lengths := huffmanCodeLengths(freqs[:])
	limitCodeLengths(lengths, LUTBits)

	codes, err := canonicalCodes(lengths)
	if err != nil {
		return nil, err
	}

	// Pack the exponent codes MSB-first, recording the exact bit position
	// at every partition boundary. The byte part goes into the offset
	// index, the sub-byte remainder into the gap table.
	positionOffsets := make([]uint32, nParts)
	gaps := make([]byte, nParts)

	per := n / nParts
	nextPart := 0

	var out []byte
	var bitBuffer uint64
	var bitsInBuffer int

	for i, v := range values {
		if nextPart < nParts && i == nextPart*per {
			bitPos := uint64(len(out))*8 + uint64(bitsInBuffer)
			positionOffsets[nextPart] = uint32(bitPos >> 3)
			gaps[nextPart] = byte(bitPos & 7)
			nextPart++
		}

		symbol := (v >> 7) & 0xFF
		l := lengths[symbol]

		bitBuffer = bitBuffer<<l | uint64(codes[symbol])
		bitsInBuffer += int(l)

		for bitsInBuffer >= 8 {
			bitsInBuffer -= 8
			out = append(out, byte(bitBuffer>>bitsInBuffer))
		}
	}

	// Flush remaining bits, zero-padded
	if bitsInBuffer > 0 {
		out = append(out, byte(bitBuffer<<(8-bitsInBuffer)))
	}

	// One table per chunk of the stream; the reference encoder replicates
	// the global table.
	table, err := BuildTable(lengths)
	if err != nil {
		return nil, err
	}
	nLUTs := (len(out) + o.ChunkBytes - 1) / o.ChunkBytes
	if nLUTs < 1 {
		nLUTs = 1
	}
	luts := make([]byte, 0, nLUTs*TableBytes)
	for k := 0; k < nLUTs; k++ {
		luts = append(luts, table...)
	}

	return &Compressed{
		LUTs:            luts,
		Codes:           out,
		SignMantissa:    signMantissa,
		PositionOffsets: positionOffsets,
		Gaps:            gaps,
		NLUTs:           nLUTs,
	}, nil
}

// huffNode is used for building the Huffman tree.
type huffNode struct {
	symbol int
	count  uint64
	left   *huffNode
	right  *huffNode
}

// huffHeap implements heap.Interface for huffNode (min-heap by count).
type huffHeap []*huffNode

func (h huffHeap) Len() int           { return len(h) }
func (h huffHeap) Less(i, j int) bool { return h[i].count < h[j].count }
func (h huffHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *huffHeap) Push(x any) {
	*h = append(*h, x.(*huffNode))
}

func (h *huffHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[0 : n-1]
	return x
}

// huffmanCodeLengths computes optimal (unlimited) code lengths from symbol
// frequencies. A symbol with zero frequency gets length zero; a lone symbol
// gets length one so the stream is never empty while elements remain.
func huffmanCodeLengths(freqs []uint64) []uint8 {
	lengths := make([]uint8, len(freqs))

	nodes := make(huffHeap, 0, len(freqs))
	for symbol, count := range freqs {
		if count > 0 {
			nodes = append(nodes, &huffNode{symbol: symbol, count: count})
		}
	}

	switch len(nodes) {
	case 0:
		return lengths
	case 1:
		lengths[nodes[0].symbol] = 1
		return lengths
	}

	heap.Init(&nodes)
	for nodes.Len() > 1 {
		left := heap.Pop(&nodes).(*huffNode)
		right := heap.Pop(&nodes).(*huffNode)
		heap.Push(&nodes, &huffNode{
			symbol: -1,
			count:  left.count + right.count,
			left:   left,
			right:  right,
		})
	}

	computeLengths(nodes[0], 0, lengths)
	return lengths
}

// computeLengths computes code lengths by traversing the tree.
func computeLengths(node *huffNode, depth int, lengths []uint8) {
	if node == nil {
		return
	}
	if node.left == nil && node.right == nil {
		if node.symbol >= 0 && node.symbol < len(lengths) {
			lengths[node.symbol] = uint8(depth)
		}
		return
	}
	computeLengths(node.left, depth+1, lengths)
	computeLengths(node.right, depth+1, lengths)
}

// limitCodeLengths caps code lengths at maxBits so every code fits the flat
// lookup window, then repairs the Kraft sum by lengthening the cheapest
// codes until the set is a valid prefix code again. With at most 256
// symbols and maxBits >= 8 this always terminates.
func limitCodeLengths(lengths []uint8, maxBits int) {
	limit := uint64(1) << maxBits

	var kraft uint64
	for i, l := range lengths {
		if l == 0 {
			continue
		}
		if int(l) > maxBits {
			lengths[i] = uint8(maxBits)
			l = uint8(maxBits)
		}
		kraft += 1 << (maxBits - int(l))
	}

	for kraft > limit {
		// Lengthen the longest code below the cap: the smallest possible
		// reduction in the Kraft sum, and the least damage to the ratio.
		best := -1
		for i, l := range lengths {
			if l > 0 && int(l) < maxBits && (best < 0 || l > lengths[best]) {
				best = i
			}
		}
		lengths[best]++
		kraft -= 1 << (maxBits - int(lengths[best]))
	}
}
