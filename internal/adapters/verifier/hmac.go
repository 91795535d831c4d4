// Package verifier checks payment gateway callback signatures.
package verifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

// HMACVerifier expects a hex HMAC-SHA256 over "order_id|payment_id|amount".
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("payment webhook secret is required")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, cb ports.PaymentCallback) error {
	got, err := hex.DecodeString(strings.TrimSpace(cb.Signature))
	if err != nil || len(got) == 0 {
		return domain.ErrInvalidSignature
	}
	if !hmac.Equal(got, v.mac(cb)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature the gateway would attach to cb.
func (v *HMACVerifier) Sign(cb ports.PaymentCallback) string {
	return hex.EncodeToString(v.mac(cb))
}

func (v *HMACVerifier) mac(cb ports.PaymentCallback) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(signingPayload(cb)))
	return h.Sum(nil)
}

func signingPayload(cb ports.PaymentCallback) string {
	return strings.Join([]string{
		strings.TrimSpace(cb.ExternalOrderID),
		strings.TrimSpace(cb.ExternalPaymentID),
		strconv.FormatInt(cb.VerifiedAmount, 10),
	}, "|")
}

var _ ports.PaymentVerifier = (*HMACVerifier)(nil)
