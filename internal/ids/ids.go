package ids

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	RoomCodeLength = 6
	// Ambiguous characters (0/O, 1/I/L) are excluded so codes survive being
	// read aloud or copied from a screen.
	codeChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// NewEntityID returns an opaque globally unique identifier usable as a store
// key.
func NewEntityID() string {
	return uuid.New().String()
}

// NewRoomCode returns a 6-character shareable room code. Uniqueness among
// live rooms is the caller's problem; the lifecycle service retries on
// collision.
func NewRoomCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
