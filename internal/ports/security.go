package ports

import "context"

type AuthClaims struct {
	SubjectID string
	Role      string
	Valid     bool
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (AuthClaims, error)
}

// PaymentCallback is what the gateway reports after a charge.
type PaymentCallback struct {
	ExternalOrderID   string `json:"external_order_id"`
	ExternalPaymentID string `json:"external_payment_id"`
	VerifiedAmount    int64  `json:"verified_amount"`
	Signature         string `json:"signature,omitempty"`
}

type PaymentVerifier interface {
	Verify(ctx context.Context, callback PaymentCallback) error
}
