// Package hash wraps bcrypt password hashing behind a small service.
//
// bcrypt embeds a random per-call salt and the work factor in its output,
// so Compare is stateless and two hashes of the same plaintext differ.
package hash

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

var ErrFailedToHashPassword = errors.New("failed to hash password")

type HashService struct {
	cost int
}

// NewHashService creates a HashService with the work factor from the
// BCRYPT_COST environment variable (default bcrypt.DefaultCost, i.e. 10).
func NewHashService() *HashService {
	cost := bcrypt.DefaultCost
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err == nil && parsed >= bcrypt.MinCost && parsed <= bcrypt.MaxCost {
			cost = parsed
		}
	}

	return &HashService{
		cost: cost,
	}
}

// HashPassword derives a salted one-way hash from the plaintext password.
// The plaintext is never logged or echoed back in the returned error.
func (hs *HashService) HashPassword(password string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), hs.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToHashPassword, err)
	}
	return h, nil
}

// CheckPasswordHash reports whether the plaintext password matches the
// stored hash.
func (hs *HashService) CheckPasswordHash(password string, hashed []byte) bool {
	return bcrypt.CompareHashAndPassword(hashed, []byte(password)) == nil
}
