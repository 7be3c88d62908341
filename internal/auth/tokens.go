package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewMailToken generuje losowy token do weryfikacji e-maila / resetu hasła.
// W bazie trzymamy wyłącznie jego hash (HashMailToken).
func NewMailToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func HashMailToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
