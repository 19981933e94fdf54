package common

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
)

const idLength = 20

// NewId generates an opaque random identifier: 20 random bytes, base58.
// Used for both pull payment and payout ids.
func NewId() string {
	buffer := make([]byte, idLength)
	rand.Read(buffer)
	return base58.Encode(buffer)
}
