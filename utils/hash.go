package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBody returns the hex SHA-256 of a content body. Stored on content
// items and embedding vectors so unchanged pages can skip re-embedding.
func HashBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
