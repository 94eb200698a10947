package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// digest hashes pack files as (path, length, body) records so that moving
// bytes between files changes the sum.
type digest struct{ h hash.Hash }

func newDigest() *digest { return &digest{h: sha256.New()} }

func (d *digest) add(path string, body []byte) {
	d.h.Write([]byte(path))
	d.h.Write([]byte{0})
	var n [8]byte
	l := uint64(len(body))
	for i := 0; i < 8; i++ {
		n[i] = byte(l >> (8 * i))
	}
	d.h.Write(n[:])
	d.h.Write(body)
}

func (d *digest) sum() string { return hex.EncodeToString(d.h.Sum(nil)) }
