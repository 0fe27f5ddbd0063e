package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks the provider's X-Hub-Signature-256 header against
// the raw request body using the configured app secret.
func VerifySignature(appSecret string, body []byte, header string) bool {
	header = strings.TrimSpace(header)
	if appSecret == "" || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	got := strings.TrimPrefix(header, signaturePrefix)
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(expected))
}
