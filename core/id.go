package core

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
)

// NewRecordID returns a 20-character base58 document ID, the shape hosted
// document stores hand out. Used when an implementation has to mint IDs
// itself (memory store, tests).
func NewRecordID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic("core: rand.Read: " + err.Error())
	}
	id := base58.Encode(buf)
	if len(id) > 20 {
		id = id[:20]
	}
	return id
}
