package domain

import "time"

type PaymentOrderStatus string

const (
	PaymentOrderCreated PaymentOrderStatus = "created"
	PaymentOrderPaid    PaymentOrderStatus = "paid"
)

// PaymentOrder maps a gateway checkout order to the collaboration it pays for.
type PaymentOrder struct {
	ExternalOrderID string             `json:"external_order_id"`
	CollaborationID string             `json:"collaboration_id"`
	PayerID         string             `json:"payer_id"`
	Amount          int64              `json:"amount"`
	Currency        string             `json:"currency"`
	Status          PaymentOrderStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
}

// VerifiedPayment is stored once per external payment id; the unique key is the
// first-writer-wins guard against duplicate callbacks.
type VerifiedPayment struct {
	ExternalPaymentID string    `json:"external_payment_id"`
	ExternalOrderID   string    `json:"external_order_id"`
	CollaborationID   string    `json:"collaboration_id"`
	SettlementID      string    `json:"settlement_id"`
	Amount            int64     `json:"amount"`
	VerifiedAt        time.Time `json:"verified_at"`
}

// CommissionSetting is one platform commission configuration row. At most one is active.
type CommissionSetting struct {
	SettingID   string         `json:"setting_id"`
	Rate        CommissionRate `json:"rate"`
	Active      bool           `json:"active"`
	ActivatedBy string         `json:"activated_by"`
	CreatedAt   time.Time      `json:"created_at"`
}
