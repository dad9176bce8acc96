package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	ierr "github.com/dinematters/dinematters/internal/errors"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured","event_id":"evt_1"}`)
	secret := "whsec_test"

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, VerifyWebhookSignature(body, sign(body, secret), secret))
	})

	t.Run("tampered body", func(t *testing.T) {
		signature := sign(body, secret)
		tampered := []byte(`{"event":"payment.captured","event_id":"evt_2"}`)
		err := VerifyWebhookSignature(tampered, signature, secret)
		assert.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		err := VerifyWebhookSignature(body, sign(body, "other_secret"), secret)
		assert.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("missing signature header", func(t *testing.T) {
		err := VerifyWebhookSignature(body, "", secret)
		assert.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("non hex signature", func(t *testing.T) {
		err := VerifyWebhookSignature(body, "not-hex!", secret)
		assert.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("missing secret is a configuration error", func(t *testing.T) {
		err := VerifyWebhookSignature(body, sign(body, secret), "")
		assert.Error(t, err)
		assert.True(t, ierr.IsConfiguration(err))
	})
}
