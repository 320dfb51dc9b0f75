// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// # Opaque Tokens

// GenerateSecureToken returns a hex-encoded random token of byteLength entropy bytes.
//
// It is used for refresh tokens, confirmation tokens, and reset tokens —
// anything opaque that is handed to a client and later looked up by value.
func GenerateSecureToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Opaque tokens are stored hashed so a database leak does not expose live
// credentials. SHA-256 (not bcrypt) because the input is already high-entropy.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// # Numeric Codes

// GenerateNumericCode returns a zero-padded random numeric code of the given
// number of digits, suitable for out-of-band security code delivery.
func GenerateNumericCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate numeric code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
