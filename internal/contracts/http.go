package contracts

import "time"

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type InitCollaborationRequest struct {
	PayerID  string `json:"payer_id"`
	PayeeID  string `json:"payee_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ActionRequest is the wire form of a flow action. Type selects the variant;
// the remaining fields are read only by the variants that need them.
type ActionRequest struct {
	Type            string `json:"type"`
	Amount          int64  `json:"amount,omitempty"`
	ExternalOrderID string `json:"external_order_id,omitempty"`
	DeliverableRef  string `json:"deliverable_ref,omitempty"`
	Note            string `json:"note,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

type CollaborationResponse struct {
	CollaborationID string     `json:"collaboration_id"`
	PayerID         string     `json:"payer_id"`
	PayeeID         string     `json:"payee_id"`
	Amount          int64      `json:"amount"`
	AmountDisplay   string     `json:"amount_display"`
	Currency        string     `json:"currency"`
	OfferedBy       string     `json:"offered_by"`
	FlowState       string     `json:"flow_state"`
	AwaitingRole    string     `json:"awaiting_role"`
	RevisionCount   int        `json:"revision_count"`
	Version         int64      `json:"version"`
	AllowedActions  []string   `json:"allowed_actions"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

type PaymentVerificationRequest struct {
	ExternalOrderID   string `json:"external_order_id"`
	ExternalPaymentID string `json:"external_payment_id"`
	VerifiedAmount    int64  `json:"verified_amount"`
	Signature         string `json:"signature"`
}

type ConfirmReleaseRequest struct {
	EvidenceRef string `json:"evidence_ref"`
}

type RefundRequest struct {
	Reason string `json:"reason"`
}

type CreditWalletRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type CommissionRateRequest struct {
	RatePercent string `json:"rate_percent"`
}

type BreakdownResponse struct {
	CollaborationID   string `json:"collaboration_id"`
	Currency          string `json:"currency"`
	CommissionRate    string `json:"commission_rate_percent"`
	TotalAmount       int64  `json:"total_amount"`
	CommissionAmount  int64  `json:"commission_amount"`
	NetAmount         int64  `json:"net_amount"`
	AdvanceAmount     int64  `json:"advance_amount"`
	FinalAmount       int64  `json:"final_amount"`
	TotalDisplay      string `json:"total_display"`
	CommissionDisplay string `json:"commission_display"`
	AdvanceDisplay    string `json:"advance_display"`
	FinalDisplay      string `json:"final_display"`
}
