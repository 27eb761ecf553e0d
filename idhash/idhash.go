// Package idhash derives the stable content-addressed identifiers the
// whole library keys on. The same name yields the same id on every
// machine and every rescan, which is what keeps user state attached to
// items across scans.
package idhash

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"

	"github.com/jxskiss/base62"
)

const idLength = 20

var base = big.NewInt(62)

// IdHash returns a 20-character base62 id for a name: SHA-256, first 16
// digest bytes as a big-endian integer, shifted down to 119 bits, then
// emitted digit by digit (0-9, A-Z, a-z).
func IdHash(name string) string {
	digest := sha256.Sum256([]byte(name))

	n := new(big.Int).SetBytes(digest[:16])
	n.Rsh(n, 9)

	id := make([]byte, idLength)
	mod := new(big.Int)
	for i := range id {
		n.DivMod(n, base, mod)
		id[i] = digitChar(int(mod.Int64()))
	}
	return string(id)
}

func digitChar(d int) byte {
	switch {
	case d < 10:
		return byte('0' + d)
	case d < 36:
		return byte('A' + d - 10)
	default:
		return byte('a' + d - 36)
	}
}

// NewRandomID returns a fresh random base62 id, for identifiers that
// must be unguessable rather than stable.
func NewRandomID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return base62.StdEncoding.EncodeToString(buf[:])
}
