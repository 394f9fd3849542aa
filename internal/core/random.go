package core

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// RandomSource supplies participant identifiers and palette picks.
// Tests pass a deterministic implementation.
type RandomSource interface {
	NewID() string
	Intn(n int) int
}

type defaultRandom struct{}

// DefaultRandom returns uuid identifiers and math/rand picks.
func DefaultRandom() RandomSource { return defaultRandom{} }

func (defaultRandom) NewID() string  { return uuid.NewString() }
func (defaultRandom) Intn(n int) int { return rand.IntN(n) }
