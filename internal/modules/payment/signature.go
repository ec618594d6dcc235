// README: Standard Webhooks signature verification (webhook-id, webhook-timestamp, webhook-signature).
package payment

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
)

const (
	HeaderID        = standardwebhooks.HeaderWebhookID
	HeaderTimestamp = standardwebhooks.HeaderWebhookTimestamp
	HeaderSignature = standardwebhooks.HeaderWebhookSignature
)

type SignatureVerifier struct {
	wh *standardwebhooks.Webhook
}

// NewSignatureVerifier accepts the "whsec_<base64>" form or a raw secret
// that is not valid base64. An empty secret disables verification.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &SignatureVerifier{}
	}
	wh, err := standardwebhooks.NewWebhook(secret)
	if err != nil {
		wh, _ = standardwebhooks.NewWebhookRaw([]byte(secret))
	}
	return &SignatureVerifier{wh: wh}
}

func (v *SignatureVerifier) Enabled() bool {
	return v.wh != nil
}

// Sign returns the webhook-signature header value for a delivery.
func (v *SignatureVerifier) Sign(id string, ts time.Time, body []byte) string {
	if !v.Enabled() {
		return ""
	}
	sig, err := v.wh.Sign(id, ts, body)
	if err != nil {
		return ""
	}
	return sig
}

// Verify checks the three headers against body, rejecting timestamps more
// than five minutes from now. It passes everything when no secret is
// configured.
func (v *SignatureVerifier) Verify(h http.Header, body []byte) error {
	if !v.Enabled() {
		return nil
	}
	if err := v.wh.Verify(body, h); err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}
	return nil
}
