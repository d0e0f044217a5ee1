package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const apiKeyPrefix = "rm_"

// GenerateAPIKey returns rm_ followed by 32 random bytes in lowercase hex.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(buf), nil
}

// DigestAPIKey is the form a key is stored and looked up in. Plaintext keys
// are only ever shown to the user once.
func DigestAPIKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
