// Package random abstracts the randomness behind session code generation and
// the role shuffle, so tests can substitute queued deterministic values.
package random

import (
	"crypto/rand"
	"math/big"
)

// Random is the source of randomness injected into the registry and the role
// assigner
type Random interface {
	// Intn returns a random int in [0, n). The Fisher-Yates shuffle draws
	// its swap indices from here.
	Intn(n int) int

	// String generates a random string of the given length from the given
	// alphabet. Session codes are generated this way.
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand. Session codes are
// user-facing capability tokens, so they come from a CSPRNG rather than
// math/rand.
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	result, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand reads never fail on supported platforms
		return 0
	}
	return int(result.Int64())
}

// String generates a random string of the given length from the given alphabet
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(result)
}
