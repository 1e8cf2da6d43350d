package credentials

import (
	"crypto/subtle"
	"encoding/base64"
)

const legacyPrefix = "obf:"

var legacyKey = []byte("shiptrack")

// Legacy is the deterministic, reversible obfuscation older records were written with.
// It is NOT a password hash: anyone holding the store can recover every password.
// Keep it only for reading such records.
type Legacy struct{}

func (Legacy) Hash(password string) (string, error) {
	return legacyPrefix + base64.StdEncoding.EncodeToString(xorKey([]byte(password))), nil
}

func (l Legacy) Verify(stored, password string) bool {
	want, _ := l.Hash(password)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(want)) == 1
}

func xorKey(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[i] ^ legacyKey[i%len(legacyKey)]
	}
	return out
}
