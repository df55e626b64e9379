package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// otpDigits is the length of the pickup code riders read out to drivers.
const otpDigits = 6

// generateOTP returns a uniformly random numeric code of otpDigits digits,
// zero-padded.
func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
