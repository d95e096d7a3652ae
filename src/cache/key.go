package cache

import (
	"strconv"

	"github.com/OneOfOne/xxhash"
)

// HashKey folds arbitrary text into a short fixed-width key. Parts are
// separated so ("ab", "c") and ("a", "bc") differ.
func HashKey(parts ...string) string {
	h := xxhash.NewS64(0)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
