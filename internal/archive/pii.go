package archive

import (
	"crypto/sha256"
	"fmt"
)

// HashContact returns the hex-encoded SHA-256 hash of a normalized contact.
func HashContact(contact string) string {
	h := sha256.Sum256([]byte(contact))
	return fmt.Sprintf("%x", h)
}
