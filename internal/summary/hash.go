package summary

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSource produces the content-address of a summarization request: the
// sha256 over the excerpt strings, each terminated by a zero byte so that
// boundaries can't collide.
func HashSource(parts []string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
