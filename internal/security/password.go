package security

import "golang.org/x/crypto/bcrypt"

// DefaultCost matches a work factor of 10 rounds.
const DefaultCost = bcrypt.DefaultCost

type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash hashes a plain text password with bcrypt. Every call salts afresh.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify compares a bcrypt hash with a plaintext password.
func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashPassword hashes with the default cost.
func HashPassword(plain string) (string, error) {
	return NewHasher(DefaultCost).Hash(plain)
}
