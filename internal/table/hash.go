package table

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashFunc maps a key to a 64 bit hash. Only the low bits select the slot.
type HashFunc func(key []byte) uint64

const (
	prefixMul  = 0x9E3779B97F4A7C15
	prefixSeed = 0xC2B2AE3D27D4EB4F
)

// PrefixHash mixes the key length with its first 8 bytes. It is cheap and
// weak: keys of equal length sharing an 8 byte prefix always collide.
func PrefixHash(key []byte) uint64 {
	var word uint64
	if len(key) >= 8 {
		word = binary.LittleEndian.Uint64(key)
	} else {
		for i := len(key) - 1; i >= 0; i-- {
			word = word<<8 | uint64(key[i])
		}
	}
	h := (word ^ uint64(len(key))*prefixSeed) * prefixMul
	return h ^ h>>29
}

// XXHash hashes the whole key.
func XXHash(key []byte) uint64 {
	return xxhash.Sum64(key)
}
