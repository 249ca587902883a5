// internal/mailer/token.go
package mailer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// UnsubscribeToken derives the per-recipient opt-out token: hex
// HMAC-SHA256 of the lowercased address. Deterministic, so links in
// old emails keep working.
func UnsubscribeToken(secret, email string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyUnsubscribeToken checks a presented token in constant time.
func VerifyUnsubscribeToken(secret, email, token string) bool {
	expected := UnsubscribeToken(secret, email)
	return hmac.Equal([]byte(expected), []byte(token))
}
