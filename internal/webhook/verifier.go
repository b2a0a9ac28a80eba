package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// SignatureHeader is the HTTP header containing the HMAC signature.
const SignatureHeader = "X-Webhook-Signature"

// Verifier checks webhook payload signatures.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier with the shared webhook secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the hex-encoded HMAC-SHA256 signature of the raw body.
// Uses hmac.Equal for constant-time comparison to prevent timing attacks.
func (v *Verifier) Verify(signature string, body []byte) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature", domain.ErrInvalidSignature)
	}

	signature = strings.TrimPrefix(signature, "sha256=")

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature encoding", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	actual := mac.Sum(nil)

	if !hmac.Equal(expected, actual) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign computes the hex-encoded HMAC-SHA256 signature for a body.
// Used by tests and outbound webhook tooling.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
