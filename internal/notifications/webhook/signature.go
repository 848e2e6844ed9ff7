package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the payload signature.
//
// Format: t=<unix>,v1=<hex hmac-sha256 of "<unix>.<body>">
const SignatureHeader = "X-Airwatch-Signature"

// Sign returns the SignatureHeader value for payload.
func Sign(payload []byte, secret string, now time.Time) string {
	ts := now.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeHMAC(ts, payload, secret))
}

// Verify checks header against payload. Signatures older than tolerance are
// rejected; a zero tolerance disables the age check.
func Verify(payload []byte, header, secret string, now time.Time, tolerance time.Duration) bool {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return false
			}
			ts = n
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return false
	}
	if tolerance > 0 && now.Sub(time.Unix(ts, 0)) > tolerance {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(computeHMAC(ts, payload, secret)))
}

func computeHMAC(ts int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
