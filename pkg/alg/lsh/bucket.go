package lsh

// bucketMask keeps the low 32 bits of a bucket hash.
const bucketMask = 0xffffffff

// BucketHash packs a stage index and a stage hash into one key:
// (stage << 32) | (bucket & 0xffffffff). Equal stage hashes in different
// stages never collide.
func BucketHash(stage int, bucket int32) uint64 {
	return uint64(stage)<<32 | uint64(uint32(bucket)) //nolint:gosec // stage is a small non-negative index.
}

// StageOf returns the stage index of a bucket hash.
func StageOf(hash uint64) int {
	return int(hash >> 32) //nolint:gosec // high half holds a small stage index.
}

// BucketOf returns the stage hash of a bucket hash.
func BucketOf(hash uint64) int32 {
	return int32(uint32(hash & bucketMask)) //nolint:gosec // bit pattern preserved.
}

// Combine packs two stage hashes into one 64-bit value: (a << 32) | (b & 0xffffffff).
func Combine(a, b int32) int64 {
	return int64(a)<<32 | int64(uint32(b))
}
