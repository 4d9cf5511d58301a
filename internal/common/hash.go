package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey digests parts into a fixed-length Redis key suffix. Parts are NUL-separated
// so ("ab","c") and ("a","bc") never collide.
func HashKey(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
