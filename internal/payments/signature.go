package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature indicates a webhook payload failed signature verification.
var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// DefaultSignatureTolerance bounds how old a signed webhook timestamp may be.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifySignature checks a webhook signature header against the raw payload.
//
// The header carries a signed timestamp and one or more v1 signatures, each an
// HMAC-SHA256 over "timestamp.payload" with the shared signing secret. The
// check fails closed: any parse error, stale timestamp, or signature mismatch
// rejects the delivery before dispatch.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	return verifySignatureAt(payload, header, secret, tolerance, time.Now())
}

func verifySignatureAt(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if strings.TrimSpace(header) == "" {
		return ErrInvalidSignature
	}

	var timestamp int64
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			parsed, errParse := strconv.ParseInt(pair[1], 10, 64)
			if errParse != nil {
				return ErrInvalidSignature
			}
			timestamp = parsed
		case "v1":
			decoded, errDecode := hex.DecodeString(pair[1])
			if errDecode != nil {
				continue
			}
			signatures = append(signatures, decoded)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.", timestamp)
	_, _ = mac.Write(payload)
	expected := mac.Sum(nil)

	for _, signature := range signatures {
		if hmac.Equal(expected, signature) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// SignPayload produces a signature header for a payload, used by tests and tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.", at.Unix())
	_, _ = mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
