package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a stable hex content fingerprint usable as a cache key
// and as a file name in the on-disk cache.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func FingerprintString(s string) string {
	return Fingerprint([]byte(s))
}
