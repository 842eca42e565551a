package authproxy

import (
	"crypto/rand"

	"github.com/keybase/saltpack/encoding/basex"
	uuid "github.com/satori/go.uuid"
)

// ConnID returns a short, printable per-connection correlation id: 4
// random bytes, base62-encoded. Collisions are harmless (ids are for log
// correlation, not identity), adapted from kr's Rand256Base62 at a
// smaller byte width since it only needs to disambiguate concurrently
// interleaved log lines, not resist guessing.
func ConnID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return basex.Base62StdEncoding.EncodeToString(buf), nil
}

// RunID returns a random v4 UUID identifying one running proxy process,
// logged once at startup so lines from two proxy instances sharing a
// syslog destination can be told apart.
func RunID() string {
	return uuid.NewV4().String()
}
