package service

import (
	"crypto/rand"
	"encoding/hex"
)

// newID returns a 32-char hex id for user-authored records.
func newID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
