package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// MaxMemcacheKey is the memcache protocol key limit in bytes.
const MaxMemcacheKey = 250

const digestPrefix = "nsc:sha256:"

// Digest returns the hex SHA-256 of key.
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Memcache returns key unchanged when the memcache protocol accepts it
// (<= 250 bytes, no whitespace or control bytes). Otherwise a deterministic
// digest form is returned so the key is never truncated. Keys that already
// look like a digest are digested too, so they cannot alias another key.
func Memcache(key string) string {
	if validMemcache(key) && !strings.HasPrefix(key, digestPrefix) {
		return key
	}
	return digestPrefix + Digest(key)
}

func validMemcache(key string) bool {
	if len(key) == 0 || len(key) > MaxMemcacheKey {
		return false
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c <= ' ' || c == 0x7f {
			return false
		}
	}
	return true
}

// FanOut maps key to a relative file path with a two-level directory fan-out:
// "ab/cd/abcd...".
func FanOut(key string) string {
	d := Digest(key)
	return path.Join(d[:2], d[2:4], d)
}
