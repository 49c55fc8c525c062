// Package cache provides the bounded, TTL-based result cache that sits in
// front of the remote recognition service.
package cache

import (
	"hash/fnv"
)

// Fingerprint computes a 64-bit FNV-1a checksum over at most prefixLen bytes
// of the encoded frame. Hashing only a bounded prefix keeps the cost per
// frame constant regardless of image size. The fingerprint is intentionally
// non-cryptographic: a collision merely reuses a cached detection for the
// TTL window, it is not a correctness failure. Raising prefixLen lowers the
// collision rate at a linear cost per frame.
func Fingerprint(encoded []byte, prefixLen int) uint64 {
	if prefixLen <= 0 || prefixLen > len(encoded) {
		prefixLen = len(encoded)
	}

	h := fnv.New64a()
	h.Write(encoded[:prefixLen])
	return h.Sum64()
}
