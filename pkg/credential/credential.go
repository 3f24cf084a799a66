// Package credential hashes and verifies user passwords with bcrypt.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput = errors.New("credential: plaintext must not be empty")
	// ErrTooLong bcrypt 只处理前 72 字节，更长的明文直接拒绝
	ErrTooLong = fmt.Errorf("credential: plaintext longer than %d bytes", MaxLength)
)

// MaxLength is the longest plaintext bcrypt accepts, in bytes.
const MaxLength = 72

// Hasher produces salted one-way hashes. The zero value uses bcrypt.DefaultCost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. Every call uses a fresh salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrInvalidInput
	}
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	cost := h.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes never match.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
