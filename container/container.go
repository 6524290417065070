// Package container implements the DF11 binary container format for
// serialized DFloat11 tensors.
//
// A container holds the five decode buffers plus their counts in a single
// self-describing blob:
//
//	magic "DF11" | version u16 | codec u8 | lutBits u8
//	nElements u64 | codesLen u64 | nLUTs u32 | nPartitions u32
//	lookup tables   (section, codec-compressed)
//	exponent stream (raw, already entropy coded)
//	sign/mantissa   (section, codec-compressed)
//	position offsets (delta + StreamVByte)
//	gaps            (raw, one byte per partition)
//
// Sections carry an [uncompressedSize u32][compressedSize u32] header; a
// zero compressedSize marks a raw section. Position offsets are
// monotonically non-decreasing, so they delta-encode well before the
// StreamVByte pass.
package container

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/mhr3/streamvbyte"

	"github.com/mrjoshuak/go-dfloat11/df11"
	"github.com/mrjoshuak/go-dfloat11/internal/xdr"
)

// Magic is the four-byte container signature.
var Magic = [4]byte{'D', 'F', '1', '1'}

// Version is the current container format version.
const Version = 1

var (
	// ErrBadMagic is returned when the data does not start with the DF11
	// signature.
	ErrBadMagic = errors.New("container: bad magic")

	// ErrVersion is returned when the container version is not supported.
	ErrVersion = errors.New("container: unsupported version")

	// ErrUnknownCodec is returned for an unrecognized section codec.
	ErrUnknownCodec = errors.New("container: unknown codec")

	// ErrCorrupted is returned when the container is structurally invalid
	// or a section fails to decompress to its declared size.
	ErrCorrupted = errors.New("container: corrupted data")

	// ErrTooLarge is returned when a buffer exceeds the format's 32-bit
	// section limits.
	ErrTooLarge = errors.New("container: buffer too large for format")
)

const headerSize = 4 + 2 + 1 + 1 + 8 + 8 + 4 + 4

// Marshal serializes a compressed tensor using the given section codec.
func Marshal(c *df11.Compressed, codec Codec) ([]byte, error) {
	if !codec.valid() {
		return nil, ErrUnknownCodec
	}
	if len(c.LUTs) > math.MaxUint32 || len(c.SignMantissa) > math.MaxUint32 ||
		len(c.PositionOffsets) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	lutsSec, err := compressSection(c.LUTs, codec)
	if err != nil {
		return nil, err
	}
	smSec, err := compressSection(c.SignMantissa, codec)
	if err != nil {
		return nil, err
	}

	// Delta-encode the offset index before the StreamVByte pass. The
	// deltas round-trip through uint32 arithmetic, so monotonicity is not
	// required for correctness, only for ratio.
	deltas := make([]uint32, len(c.PositionOffsets))
	var prev uint32
	for i, off := range c.PositionOffsets {
		deltas[i] = off - prev
		prev = off
	}
	var offSec []byte
	if len(deltas) > 0 {
		offSec = streamvbyte.EncodeUint32(deltas, nil)
	}

	size := headerSize +
		sectionSize(len(c.LUTs), lutsSec) +
		len(c.Codes) +
		sectionSize(len(c.SignMantissa), smSec) +
		4 + len(offSec) +
		len(c.Gaps)

	buf := make([]byte, size)
	w := xdr.NewWriter(buf)

	w.WriteBytes(Magic[:])
	w.WriteUint16(Version)
	w.WriteByte(byte(codec))
	w.WriteByte(df11.LUTBits)
	w.WriteUint64(uint64(len(c.SignMantissa)))
	w.WriteUint64(uint64(len(c.Codes)))
	w.WriteUint32(uint32(c.NLUTs))
	w.WriteUint32(uint32(len(c.PositionOffsets)))

	writeSection(w, c.LUTs, lutsSec)
	w.WriteBytes(c.Codes)
	writeSection(w, c.SignMantissa, smSec)
	w.WriteUint32(uint32(len(offSec)))
	w.WriteBytes(offSec)
	if err := w.WriteBytes(c.Gaps); err != nil {
		return nil, err
	}

	if w.Len() != 0 {
		return nil, fmt.Errorf("container: short write: %w", ErrCorrupted)
	}
	return buf, nil
}

// sectionSize returns the serialized size of a section: header plus either
// the compressed payload or the raw bytes.
func sectionSize(rawLen int, compressed []byte) int {
	if compressed == nil {
		return 8 + rawLen
	}
	return 8 + len(compressed)
}

func writeSection(w *xdr.Writer, raw, compressed []byte) {
	w.WriteUint32(uint32(len(raw)))
	if compressed == nil {
		w.WriteUint32(0)
		w.WriteBytes(raw)
		return
	}
	w.WriteUint32(uint32(len(compressed)))
	w.WriteBytes(compressed)
}

// Unmarshal parses a serialized tensor. The returned Compressed owns freshly
// allocated buffers and does not alias data.
func Unmarshal(data []byte) (*df11.Compressed, error) {
	r := xdr.NewReader(data)

	magic, err := r.ReadBytes(4)
	if err != nil {
		return nil, ErrCorrupted
	}
	if string(magic) != string(Magic[:]) {
		return nil, ErrBadMagic
	}
	version, err := r.ReadUint16()
	if err != nil {
		return nil, ErrCorrupted
	}
	if version != Version {
		return nil, ErrVersion
	}
	codecByte, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorrupted
	}
	codec := Codec(codecByte)
	if !codec.valid() {
		return nil, ErrUnknownCodec
	}
	lutBits, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorrupted
	}
	if lutBits != df11.LUTBits {
		return nil, fmt.Errorf("container: lookup window %d not supported: %w",
			lutBits, ErrVersion)
	}

	nElements, err := r.ReadUint64()
	if err != nil {
		return nil, ErrCorrupted
	}
	codesLen, err := r.ReadUint64()
	if err != nil {
		return nil, ErrCorrupted
	}
	nLUTs, err := r.ReadUint32()
	if err != nil {
		return nil, ErrCorrupted
	}
	nPartitions, err := r.ReadUint32()
	if err != nil {
		return nil, ErrCorrupted
	}
	if nElements > math.MaxUint32 || codesLen > uint64(r.Len()) {
		return nil, ErrCorrupted
	}

	luts, err := readSection(r, codec)
	if err != nil {
		return nil, err
	}
	codes, err := r.ReadBytes(int(codesLen))
	if err != nil {
		return nil, ErrCorrupted
	}
	signMantissa, err := readSection(r, codec)
	if err != nil {
		return nil, err
	}
	if uint64(len(signMantissa)) != nElements {
		return nil, ErrCorrupted
	}

	svbLen, err := r.ReadUint32()
	if err != nil {
		return nil, ErrCorrupted
	}
	svbData, err := r.ReadBytes(int(svbLen))
	if err != nil {
		return nil, ErrCorrupted
	}
	offsets := make([]uint32, nPartitions)
	if nPartitions > 0 {
		deltas := streamvbyte.DecodeUint32(svbData, int(nPartitions), nil)
		if len(deltas) != int(nPartitions) {
			return nil, ErrCorrupted
		}
		var prev uint32
		for i, d := range deltas {
			prev += d
			offsets[i] = prev
		}
	}

	gaps, err := r.ReadBytes(int(nPartitions))
	if err != nil {
		return nil, ErrCorrupted
	}
	if r.Len() != 0 {
		return nil, ErrCorrupted
	}

	return &df11.Compressed{
		LUTs:            luts,
		Codes:           codes,
		SignMantissa:    signMantissa,
		PositionOffsets: offsets,
		Gaps:            gaps,
		NLUTs:           int(nLUTs),
	}, nil
}

// readSection reads one [rawLen][storedLen][payload] section.
func readSection(r *xdr.Reader, codec Codec) ([]byte, error) {
	rawLen, err := r.ReadUint32()
	if err != nil {
		return nil, ErrCorrupted
	}
	storedLen, err := r.ReadUint32()
	if err != nil {
		return nil, ErrCorrupted
	}

	if storedLen == 0 {
		raw, err := r.ReadBytes(int(rawLen))
		if err != nil {
			return nil, ErrCorrupted
		}
		return raw, nil
	}

	payload, err := r.ReadBytes(int(storedLen))
	if err != nil {
		return nil, ErrCorrupted
	}
	raw := make([]byte, rawLen)
	if err := decompressSection(raw, payload, codec); err != nil {
		return nil, err
	}
	return raw, nil
}

// Write serializes a compressed tensor to w.
func Write(w io.Writer, c *df11.Compressed, codec Codec) error {
	data, err := Marshal(c, codec)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read parses a serialized tensor from r.
func Read(r io.Reader) (*df11.Compressed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
