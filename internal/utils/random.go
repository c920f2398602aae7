package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
)

// NewVerificationCode returns a six digit human-readable code in
// [100000, 999999].
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// NewOpaqueToken returns 32 random bytes hex-encoded (64 chars).
func NewOpaqueToken() (string, error) { return randomHex(32) }

// NewTempPassword returns an eight character temporary password.
func NewTempPassword() (string, error) { return randomHex(4) }

// randomHex returns n bytes from crypto/rand encoded as hex.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
