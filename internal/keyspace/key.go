package keyspace

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeySize is the length in bytes of an Ultralight C 3DES authentication key.
const KeySize = 16

// Key is a 16-byte authentication key. When iterating the key space it is
// treated as one big-endian unsigned 128-bit integer (byte 0 most
// significant). The zero value is the key 00…00.
type Key [KeySize]byte

// DefaultManufacturerKey is the factory key of Ultralight C cards: the
// ASCII string "BREAKMEIFYOUCAN!" with its two 8-byte halves swapped, as
// the card stores it.
var DefaultManufacturerKey = Key{
	0x49, 0x45, 0x4D, 0x4B, 0x41, 0x45, 0x52, 0x42,
	0x21, 0x4E, 0x41, 0x43, 0x55, 0x4F, 0x59, 0x46,
}

// MaxKey is the last key of the space, FF…FF.
var MaxKey = Key{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// ParseKey reads a key from 32 hex digits. Spaces, tabs, colons and dashes
// between bytes are accepted, so both "00112233…" and "00 11 22 33 …" work.
func ParseKey(s string) (Key, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', '-':
			return -1
		}
		return r
	}, s)

	var k Key
	if len(cleaned) != KeySize*2 {
		return k, fmt.Errorf("key must be %d hex digits, got %d", KeySize*2, len(cleaned))
	}
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return k, fmt.Errorf("invalid hex key: %w", err)
	}
	copy(k[:], raw)
	return k, nil
}

// RandomKey returns a cryptographically random key, for provisioning cards.
func RandomKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("generate key: %w", err)
	}
	return k, nil
}

// String renders the key as space-separated upper-case hex bytes,
// the format the reader documentation uses.
func (k Key) String() string {
	var b strings.Builder
	b.Grow(KeySize*3 - 1)
	for i, c := range k {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	return b.String()
}

// Hex returns the key as 32 continuous lower-case hex digits.
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

// Compare orders two keys as big-endian unsigned integers.
// It returns -1, 0 or 1.
func Compare(a, b Key) int {
	return bytes.Compare(a[:], b[:])
}

// Next returns the key one greater than k in big-endian numeric order.
// ok is false when k is the last key of the space; the space never wraps,
// overflow is a terminal exhaustion signal.
func (k Key) Next() (next Key, ok bool) {
	next = k
	for i := KeySize - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			return next, true
		}
	}
	return k, false
}
