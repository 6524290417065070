package container

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the block compression applied to the lookup tables and the
// sign/mantissa section. The exponent stream is never block-compressed: it
// is already entropy coded and does not shrink further.
type Codec uint8

const (
	// CodecNone stores sections uncompressed.
	CodecNone Codec = 0
	// CodecZlib compresses sections with zlib (best compatibility).
	CodecZlib Codec = 1
	// CodecLZ4 compresses sections with LZ4 block compression (fastest).
	CodecLZ4 Codec = 2
	// CodecZstd compresses sections with zstandard (best ratio).
	CodecZstd Codec = 3
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZlib:
		return "zlib"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

func (c Codec) valid() bool {
	return c <= CodecZstd
}

// ZSTD encoder/decoder pools; both are safe for reuse and expensive to build.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compressSection compresses data with the given codec. A nil result with a
// nil error means compression did not help and the section should be stored
// raw.
func compressSection(data []byte, codec Codec) ([]byte, error) {
	if codec == CodecNone || len(data) == 0 {
		return nil, nil
	}

	var compressed []byte
	switch codec {
	case CodecZlib:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		compressed = buf.Bytes()

	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil // incompressible
		}
		compressed = dst[:n]

	case CodecZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)

	default:
		return nil, ErrUnknownCodec
	}

	if len(compressed) >= len(data) {
		return nil, nil // store raw
	}
	return compressed, nil
}

// decompressSection expands a compressed section into dst, which must be
// exactly the uncompressed size.
func decompressSection(dst, src []byte, codec Codec) error {
	switch codec {
	case CodecZlib:
		r, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return ErrCorrupted
		}
		defer r.Close()
		n, err := io.ReadFull(r, dst)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return ErrCorrupted
		}
		if n != len(dst) {
			return ErrCorrupted
		}
		return nil

	case CodecLZ4:
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil || n != len(dst) {
			return ErrCorrupted
		}
		return nil

	case CodecZstd:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(src, nil)
		zstdDecoderPool.Put(dec)
		if err != nil || len(out) != len(dst) {
			return ErrCorrupted
		}
		copy(dst, out)
		return nil

	default:
		return ErrUnknownCodec
	}
}
