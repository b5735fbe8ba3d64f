// Package credential issues the one-time access pair (QR payload + OTP)
// bound to an approved permit.
package credential

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// Pair is one issued credential. QRCodeData is globally unique and opaque;
// the OTP is generated independently, so knowledge of one never derives
// the other. Issuing a new Pair for a permit invalidates the previous one
// (the lifecycle engine overwrites the stored pair atomically).
type Pair struct {
	QRCodeData string
	OTPCode    string
}

const (
	// qrPrefix marks payloads from this service so gate scanners can
	// reject foreign codes cheaply.
	qrPrefix   = "WPC1."
	qrEntropyB = 24
	otpDigits  = 6
)

var ErrEmptyPermitID = errors.New("credential: permit id is required")

// Issue generates a fresh credential pair for a permit. Pure computation:
// safe to call while the caller holds the permit lock.
func Issue(permitID string) (Pair, error) {
	if permitID == "" {
		return Pair{}, ErrEmptyPermitID
	}

	buf := make([]byte, qrEntropyB)
	if _, err := rand.Read(buf); err != nil {
		return Pair{}, fmt.Errorf("credential: entropy read failed: %w", err)
	}
	qr := qrPrefix + base64.RawURLEncoding.EncodeToString(buf)

	otp, err := numericCode(otpDigits)
	if err != nil {
		return Pair{}, err
	}
	return Pair{QRCodeData: qr, OTPCode: otp}, nil
}

// numericCode returns a uniformly random n-digit numeric string,
// leading zeros included.
func numericCode(n int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("credential: otp generation failed: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
