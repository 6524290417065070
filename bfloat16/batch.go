package bfloat16

// batchSize is the number of elements processed in each unrolled loop iteration.
const batchSize = 8

// ConvertBatch32 converts a slice of float32 to BFloat16 with loop unrolling.
// This is optimized for large arrays.
func ConvertBatch32(dst []BFloat16, src []float32) {
	n := len(src)
	if len(dst) < n {
		panic("bfloat16: destination slice too small")
	}

	i := 0
	for ; i+batchSize <= n; i += batchSize {
		dst[i] = FromFloat32(src[i])
		dst[i+1] = FromFloat32(src[i+1])
		dst[i+2] = FromFloat32(src[i+2])
		dst[i+3] = FromFloat32(src[i+3])
		dst[i+4] = FromFloat32(src[i+4])
		dst[i+5] = FromFloat32(src[i+5])
		dst[i+6] = FromFloat32(src[i+6])
		dst[i+7] = FromFloat32(src[i+7])
	}

	// Handle remainder
	for ; i < n; i++ {
		dst[i] = FromFloat32(src[i])
	}
}

// ConvertBatchToFloat32 converts a slice of BFloat16 to float32 with loop unrolling.
func ConvertBatchToFloat32(dst []float32, src []BFloat16) {
	n := len(src)
	if len(dst) < n {
		panic("bfloat16: destination slice too small")
	}

	i := 0
	for ; i+batchSize <= n; i += batchSize {
		dst[i] = src[i].Float32()
		dst[i+1] = src[i+1].Float32()
		dst[i+2] = src[i+2].Float32()
		dst[i+3] = src[i+3].Float32()
		dst[i+4] = src[i+4].Float32()
		dst[i+5] = src[i+5].Float32()
		dst[i+6] = src[i+6].Float32()
		dst[i+7] = src[i+7].Float32()
	}

	// Handle remainder
	for ; i < n; i++ {
		dst[i] = src[i].Float32()
	}
}

// MakeSlice32 creates a new slice of BFloat16 values from float32 values.
func MakeSlice32(src []float32) []BFloat16 {
	dst := make([]BFloat16, len(src))
	ConvertBatch32(dst, src)
	return dst
}

// ToFloat32Slice creates a new slice of float32 values from BFloat16 values.
func ToFloat32Slice(src []BFloat16) []float32 {
	dst := make([]float32, len(src))
	ConvertBatchToFloat32(dst, src)
	return dst
}
