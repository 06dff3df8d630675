package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHashLength is the number of hex characters kept from the digest.
const ContentHashLength = 8

// ContentHash is the file stem used for generated HTML/CSV pairs: the first
// eight hex characters of the SHA-256 of the content. Identical content
// always maps to the same stem.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:ContentHashLength]
}
