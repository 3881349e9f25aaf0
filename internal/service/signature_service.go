package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
// The signed string is "<timestamp>.<body>" and the header value carries the
// timestamp alongside the digest so receivers can reject stale deliveries.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the signature header value: t=<timestamp>,v1=<hex digest>.
func (s *HMACSignatureService) Sign(secret string, timestamp int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, s.digest(secret, timestamp, body))
}

// Verify checks a header value produced by Sign. Uses constant-time
// comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(secret string, timestamp int64, body []byte, header string) bool {
	ts, sig, ok := parseSignatureHeader(header)
	if !ok || ts != timestamp {
		return false
	}
	expected := s.digest(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *HMACSignatureService) digest(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (int64, string, bool) {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(part, "=")
		if !found {
			return 0, "", false
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", false
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", false
	}
	return ts, sig, true
}
