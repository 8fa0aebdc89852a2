package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Fingerprint hashes an ordered list of parts. Each part is length-prefixed so
// that ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(strconv.Itoa(len(p))))
		_, _ = h.Write([]byte{':'})
		_, _ = h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
