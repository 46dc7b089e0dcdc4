// Package token generates and hashes the opaque credentials used by the API:
// session tokens and prefixed API keys.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const apiKeyPrefixLen = 10

// Generate returns an opaque session token: 32 random bytes, hex encoded.
func Generate() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// GenerateAPIKey returns a new API key together with the hash stored in the
// database and the short prefix shown in listings. The full key is only ever
// returned to the caller once.
func GenerateAPIKey() (key, hash, prefix string) {
	b := make([]byte, 32)
	rand.Read(b)
	key = "hk_" + hex.EncodeToString(b)
	hash = HashAPIKey(key)
	prefix = key[:apiKeyPrefixLen]
	return key, hash, prefix
}
