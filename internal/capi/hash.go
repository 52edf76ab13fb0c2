package capi

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeEmail lower-cases and trims an email address per the
// Conversions API matching rules.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips every non-digit character.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HashIdentifier returns the lowercase hex SHA-256 digest of an already
// normalized identifier.
func HashIdentifier(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
