package hashdrop

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// HashLength is the length of a resource hash in hex characters.
const HashLength = 8

// ContentHash derives a resource's public lookup key from its creation time
// and canonical payload bytes: the literal URL for shortened URLs, the
// payload's SHA-256 digest for files. The nanosecond timestamp keeps
// collision probability negligible across identical payloads, but callers
// must still retry with a fresh timestamp when an insert reports a
// collision.
func ContentHash(createdAt time.Time, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(createdAt.UnixNano(), 10)))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))[:HashLength]
}
