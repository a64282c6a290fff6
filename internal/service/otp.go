package service

import (
	"crypto/rand"
	"math/big"
)

const defaultOTPLength = 6

// OTPGenerator produces short numeric one-time codes gating the pickup and
// delivery transitions. Code length is a policy parameter, not a security
// boundary: the real mitigations are single use and the short window in
// which a ride is active.
type OTPGenerator struct {
	length int
}

// NewOTPGenerator creates a generator producing codes of the given length.
func NewOTPGenerator(length int) *OTPGenerator {
	if length <= 0 {
		length = defaultOTPLength
	}
	return &OTPGenerator{length: length}
}

// Generate returns a fresh numeric code.
func (g *OTPGenerator) Generate() (string, error) {
	digits := make([]byte, g.length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// GeneratePair returns the pickup and delivery codes for one ride. The two
// codes are regenerated until distinct so neither can stand in for the other.
func (g *OTPGenerator) GeneratePair() (pickup, delivery string, err error) {
	pickup, err = g.Generate()
	if err != nil {
		return "", "", err
	}
	for {
		delivery, err = g.Generate()
		if err != nil {
			return "", "", err
		}
		if delivery != pickup {
			return pickup, delivery, nil
		}
	}
}
