// internal/webhooks/scheduling/verify.go
package scheduling

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tolerance bounds how stale a signed timestamp may be, in either
// direction, before the delivery is rejected as a possible replay.
const Tolerance = 5 * time.Minute

// VerifySignature checks a "t=<unix>,v1=<hex-hmac-sha256>" header
// against the shared secret. The signed message is "<t>.<body>".
func VerifySignature(secret, header string, body []byte, now time.Time) error {
	ts, sig, err := parseHeader(header)
	if err != nil {
		return err
	}

	issued := time.Unix(ts, 0)
	if d := now.Sub(issued); d > Tolerance || d < -Tolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func parseHeader(header string) (ts int64, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("malformed timestamp")
			}
		case "v1":
			sig = value
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", fmt.Errorf("missing t or v1 component")
	}
	return ts, sig, nil
}

// Sign produces a header for the given body, used by tests and by the
// local delivery simulator.
func Sign(secret string, body []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
