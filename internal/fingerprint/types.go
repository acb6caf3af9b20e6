package fingerprint

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// Fingerprint errors. Callers match them with errors.Is.
var (
	// ErrInvalidFingerprint means an item lacks the data required by a clustering mode.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
	// ErrInvalidFormat means a hash or hex colour string is malformed.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrLengthMismatch means two hashes of different bit length were compared.
	ErrLengthMismatch = errors.New("hash length mismatch")
)

// Hash is a fixed-length perceptual hash stored as a bit string.
// Bit 0 is the leftmost character of the binary representation.
type Hash struct {
	words []uint64
	n     int
}

// HashFromUint64 builds a 64-bit hash, most significant bit first.
func HashFromUint64(v uint64) Hash {
	return Hash{words: []uint64{v}, n: 64}
}

// ParseHash parses a hash string of the given bit length.
//
// Accepted forms are a binary string of exactly bits characters, or a hex
// string of bits/4 characters (optionally prefixed with "0x" or with the
// "p:", "d:" or "a:" kind prefix produced by goimagehash). When bits is 0 any
// binary string is accepted and its length becomes the hash length.
func ParseHash(s string, bits int) (Hash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Hash{}, fmt.Errorf("%w: empty hash", ErrInvalidFingerprint)
	}
	if bits < 0 {
		return Hash{}, fmt.Errorf("%w: negative hash length %d", ErrInvalidFormat, bits)
	}

	if isBinary(s) && (bits == 0 || len(s) == bits) {
		return parseBinary(s), nil
	}

	hex := stripHashPrefix(s)
	if bits == 0 {
		return Hash{}, fmt.Errorf("%w: %q is not a binary hash", ErrInvalidFormat, s)
	}
	if len(hex)*4 != bits {
		return Hash{}, fmt.Errorf("%w: hash %q is not %d bits long", ErrInvalidFormat, s, bits)
	}
	return parseHex(hex)
}

func stripHashPrefix(s string) string {
	for _, prefix := range []string{"0x", "0X", "p:", "d:", "a:"} {
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

func isBinary(s string) bool {
	for i := range len(s) {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}

func parseBinary(s string) Hash {
	h := Hash{words: make([]uint64, (len(s)+63)/64), n: len(s)}
	for i := range len(s) {
		if s[i] == '1' {
			h.words[i/64] |= 1 << (63 - uint(i%64))
		}
	}
	return h
}

func parseHex(s string) (Hash, error) {
	h := Hash{words: make([]uint64, (len(s)*4+63)/64), n: len(s) * 4}
	for i := range len(s) {
		v, ok := hexNibble(s[i])
		if !ok {
			return Hash{}, fmt.Errorf("%w: invalid hex digit %q in hash", ErrInvalidFormat, s[i])
		}
		bit := i * 4
		h.words[bit/64] |= uint64(v) << (60 - uint(bit%64))
	}
	return h, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Len returns the number of bits in the hash.
func (h Hash) Len() int {
	return h.n
}

// IsZero reports whether the hash holds no bits at all.
func (h Hash) IsZero() bool {
	return h.n == 0
}

// Bit returns the value of bit i.
func (h Hash) Bit(i int) bool {
	return h.words[i/64]&(1<<(63-uint(i%64))) != 0
}

// String returns the binary representation, which also serves as the
// exact-equality key of the hash.
func (h Hash) String() string {
	var b strings.Builder
	b.Grow(h.n)
	for i := range h.n {
		if h.Bit(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Hex returns the hash as lowercase hex when its length is a multiple of 4.
func (h Hash) Hex() string {
	if h.n%4 != 0 {
		return h.String()
	}
	var b strings.Builder
	for i := 0; i < h.n; i += 4 {
		nibble := (h.words[i/64] >> (60 - uint(i%64))) & 0xF
		b.WriteByte("0123456789abcdef"[nibble])
	}
	return b.String()
}

// HammingDistance counts the differing bit positions of two equal-length hashes.
func HammingDistance(a, b Hash) (int, error) {
	if a.n != b.n {
		return 0, fmt.Errorf("%w: %d vs %d bits", ErrLengthMismatch, a.n, b.n)
	}
	distance := 0
	for i := range a.words {
		distance += bits.OnesCount64(a.words[i] ^ b.words[i])
	}
	return distance, nil
}

// Similar returns true if two hashes are within the given threshold.
// Hashes of different length are never similar.
func Similar(a, b Hash, threshold int) bool {
	d, err := HammingDistance(a, b)
	return err == nil && d <= threshold
}
