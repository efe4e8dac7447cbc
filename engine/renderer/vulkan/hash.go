package vulkan

import (
	"math"
	"unsafe"
)

const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// keyHasher is an allocation-free FNV-1a over 64-bit words. Keys feed it their
// semantically relevant fields one at a time instead of hashing raw memory.
type keyHasher struct {
	sum uint64
}

func newKeyHasher() keyHasher {
	return keyHasher{sum: fnvOffset64}
}

func (h *keyHasher) word(v uint64) {
	for i := 0; i < 8; i++ {
		h.sum ^= v & 0xff
		h.sum *= fnvPrime64
		v >>= 8
	}
}

func (h *keyHasher) handle(p unsafe.Pointer) {
	h.word(uint64(uintptr(p)))
}

func (h *keyHasher) flag(b bool) {
	if b {
		h.word(1)
	} else {
		h.word(0)
	}
}

// float hashes -0 and +0 alike since they compare equal, and every NaN alike
// since key equality treats them as one value.
func (h *keyHasher) float(f float32) {
	switch {
	case f == 0:
		h.word(0)
		return
	case f != f:
		h.word(0x7fc00000)
		return
	}
	h.word(uint64(math.Float32bits(f)))
}
