package storage

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewID returns an opaque identifier: the current UnixNano in hex followed by
// an 8-hex-char random suffix. The time prefix keeps ids roughly sortable by
// creation; the suffix makes collisions negligible.
func NewID() string {
	var buf [4]byte
	rand.Read(buf[:])
	return strconv.FormatInt(time.Now().UnixNano(), 16) + hex.EncodeToString(buf[:])
}
