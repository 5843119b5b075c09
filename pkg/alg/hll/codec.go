package hll

import (
	"github.com/pierrec/lz4/v4"
)

// Serialized sketch layout: [precision][encoding][registers].
const (
	headerSize = 2

	encodingRaw byte = 0
	encodingLZ4 byte = 1
)

// Bytes serializes the sketch. Registers are LZ4 block compressed when that
// makes them smaller, which is the common case for sparse sketches.
func (s *Sketch) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	compressed := make([]byte, headerSize+lz4.CompressBlockBound(len(s.registers)))

	written, err := lz4.CompressBlock(s.registers, compressed[headerSize:], nil)
	if err != nil || written == 0 || written >= len(s.registers) {
		out := make([]byte, headerSize+len(s.registers))
		out[0], out[1] = s.precision, encodingRaw
		copy(out[headerSize:], s.registers)

		return out
	}

	compressed[0], compressed[1] = s.precision, encodingLZ4

	return compressed[:headerSize+written]
}

// FromBytes restores a sketch serialized with Bytes.
func FromBytes(data []byte) (*Sketch, error) {
	if len(data) < headerSize {
		return nil, ErrInvalidData
	}

	s, err := New(data[0])
	if err != nil {
		return nil, ErrInvalidData
	}

	payload := data[headerSize:]

	switch data[1] {
	case encodingRaw:
		if len(payload) != len(s.registers) {
			return nil, ErrInvalidData
		}

		copy(s.registers, payload)
	case encodingLZ4:
		n, uncompressErr := lz4.UncompressBlock(payload, s.registers)
		if uncompressErr != nil || n != len(s.registers) {
			return nil, ErrInvalidData
		}
	default:
		return nil, ErrInvalidData
	}

	return s, nil
}
