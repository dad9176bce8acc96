package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	ierr "github.com/dinematters/dinematters/internal/errors"
)

// VerifyWebhookSignature checks the gateway signature header against an
// HMAC-SHA256 hex digest of the raw body. The comparison is constant time.
// A missing secret is a configuration error, not an authentication failure.
func VerifyWebhookSignature(body []byte, signatureHeader, secret string) error {
	if secret == "" {
		return ierr.NewError("webhook secret is not configured").
			WithHint("Configure a site-wide or merchant webhook secret").
			Mark(ierr.ErrConfiguration)
	}
	if signatureHeader == "" {
		return ierr.NewError("missing webhook signature header").
			Mark(ierr.ErrPermissionDenied)
	}

	provided, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Webhook signature is not valid hex").
			Mark(ierr.ErrPermissionDenied)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if !hmac.Equal(provided, expected) {
		return ierr.NewError("webhook signature mismatch").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}
