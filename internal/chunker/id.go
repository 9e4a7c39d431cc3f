package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

const fingerprintLen = 8

// Fingerprint returns a short content hash used for change detection only.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// MakeID derives the record ID for a chunk: {filename}_{index}_{fingerprint}.
// The same content at the same position always yields the same ID.
func MakeID(text, filename string, index int) string {
	return fmt.Sprintf("%s_%d_%s", filename, index, Fingerprint(text))
}
