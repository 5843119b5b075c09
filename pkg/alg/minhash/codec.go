package minhash

import (
	"encoding/binary"
	"math"
)

const (
	// HeaderSize is the number of bytes for the signature length in serialization.
	HeaderSize = 4

	// BytesPerHash is the number of bytes per 64-bit hash value in serialization.
	BytesPerHash = 8
)

// EncodeSignature64 serializes a 64-bit signature.
// Format: [length as uint32 big-endian] + [values as int64 big-endian].
func EncodeSignature64(sig []int64) []byte {
	data := make([]byte, HeaderSize+len(sig)*BytesPerHash)
	binary.BigEndian.PutUint32(data[:HeaderSize], uint32(len(sig))) //nolint:gosec // signature sizes are small.

	for i, v := range sig {
		offset := HeaderSize + i*BytesPerHash
		binary.BigEndian.PutUint64(data[offset:offset+BytesPerHash], uint64(v)) //nolint:gosec // bit pattern preserved.
	}

	return data
}

// DecodeSignature64 parses the output of EncodeSignature64.
func DecodeSignature64(data []byte) ([]int64, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidData
	}

	n := binary.BigEndian.Uint32(data[:HeaderSize])
	if n == 0 || n > math.MaxInt32 {
		return nil, ErrInvalidData
	}

	if len(data) != HeaderSize+int(n)*BytesPerHash {
		return nil, ErrInvalidData
	}

	sig := make([]int64, n)

	for i := range sig {
		offset := HeaderSize + i*BytesPerHash
		sig[i] = int64(binary.BigEndian.Uint64(data[offset : offset+BytesPerHash])) //nolint:gosec // bit pattern preserved.
	}

	return sig, nil
}
