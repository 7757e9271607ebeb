package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type Hash struct {
	data []byte
}

func NewHash(data []byte) Hash {
	return Hash{data: data}
}

// Of hashes the parts joined by a separator that cannot appear in feed text.
func Of(parts ...string) Hash {
	return NewHash([]byte(strings.Join(parts, "\x00")))
}

func (h Hash) ComputeHash() string {
	sum := sha256.Sum256(h.data)
	return hex.EncodeToString(sum[:])
}

// Short is the first 16 bytes of the digest, hex encoded.
func (h Hash) Short() string {
	sum := sha256.Sum256(h.data)
	return hex.EncodeToString(sum[:16])
}
