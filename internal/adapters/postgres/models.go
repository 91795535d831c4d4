package postgres

import (
	"time"

	"github.com/google/uuid"
)

type collaborationModel struct {
	CollaborationID string     `gorm:"column:collaboration_id;primaryKey"`
	PayerID         string     `gorm:"column:payer_id"`
	PayeeID         string     `gorm:"column:payee_id"`
	Amount          int64      `gorm:"column:amount"`
	Currency        string     `gorm:"column:currency"`
	OfferedBy       string     `gorm:"column:offered_by"`
	FlowState       string     `gorm:"column:flow_state"`
	AwaitingRole    string     `gorm:"column:awaiting_role"`
	RevisionCount   int        `gorm:"column:revision_count"`
	Version         int64      `gorm:"column:version"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	ClosedAt        *time.Time `gorm:"column:closed_at"`
}

func (collaborationModel) TableName() string { return "collaborations" }

type flowTransitionModel struct {
	TransitionID    string    `gorm:"column:transition_id;primaryKey"`
	CollaborationID string    `gorm:"column:collaboration_id"`
	Action          string    `gorm:"column:action"`
	FromState       string    `gorm:"column:from_state"`
	ToState         string    `gorm:"column:to_state"`
	AwaitingRole    string    `gorm:"column:awaiting_role"`
	ActorID         string    `gorm:"column:actor_id"`
	ActorRole       string    `gorm:"column:actor_role"`
	Reason          string    `gorm:"column:reason"`
	OccurredAt      time.Time `gorm:"column:occurred_at"`
}

func (flowTransitionModel) TableName() string { return "flow_transitions" }

type settlementRecordModel struct {
	SettlementID       string     `gorm:"column:settlement_id;primaryKey"`
	CollaborationID    string     `gorm:"column:collaboration_id"`
	ExternalPaymentID  string     `gorm:"column:external_payment_id"`
	Currency           string     `gorm:"column:currency"`
	TotalAmount        int64      `gorm:"column:total_amount"`
	CommissionRateBps  int64      `gorm:"column:commission_rate_bps"`
	CommissionAmount   int64      `gorm:"column:commission_amount"`
	NetAmount          int64      `gorm:"column:net_amount"`
	AdvanceAmount      int64      `gorm:"column:advance_amount"`
	FinalAmount        int64      `gorm:"column:final_amount"`
	AdvanceStatus      string     `gorm:"column:advance_status"`
	FinalStatus        string     `gorm:"column:final_status"`
	AdvanceEntryID     string     `gorm:"column:advance_entry_id"`
	FinalEntryID       string     `gorm:"column:final_entry_id"`
	EscrowID           string     `gorm:"column:escrow_id"`
	AdvanceEvidenceRef string     `gorm:"column:advance_evidence_ref"`
	AdvanceConfirmedBy string     `gorm:"column:advance_confirmed_by"`
	AdvanceConfirmedAt *time.Time `gorm:"column:advance_confirmed_at"`
	FinalEvidenceRef   string     `gorm:"column:final_evidence_ref"`
	FinalConfirmedBy   string     `gorm:"column:final_confirmed_by"`
	FinalConfirmedAt   *time.Time `gorm:"column:final_confirmed_at"`
	RefundedAmount     int64      `gorm:"column:refunded_amount"`
	RefundReason       string     `gorm:"column:refund_reason"`
	RefundedBy         string     `gorm:"column:refunded_by"`
	RefundedAt         *time.Time `gorm:"column:refunded_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (settlementRecordModel) TableName() string { return "settlement_records" }

type escrowHoldModel struct {
	EscrowID        string    `gorm:"column:escrow_id;primaryKey"`
	CollaborationID string    `gorm:"column:collaboration_id"`
	PayerID         string    `gorm:"column:payer_id"`
	PayeeID         string    `gorm:"column:payee_id"`
	Currency        string    `gorm:"column:currency"`
	OriginalAmount  int64     `gorm:"column:original_amount"`
	ReleasedAmount  int64     `gorm:"column:released_amount"`
	RefundedAmount  int64     `gorm:"column:refunded_amount"`
	Status          string    `gorm:"column:status"`
	HeldAt          time.Time `gorm:"column:held_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (escrowHoldModel) TableName() string { return "escrow_holds" }

type ledgerEntryModel struct {
	EntryID        string     `gorm:"column:entry_id;primaryKey"`
	AccountID      string     `gorm:"column:account_id"`
	Amount         int64      `gorm:"column:amount"`
	Currency       string     `gorm:"column:currency"`
	Direction      string     `gorm:"column:direction"`
	Stage          string     `gorm:"column:stage"`
	Status         string     `gorm:"column:status"`
	SettlementID   string     `gorm:"column:settlement_id"`
	IdempotencyKey string     `gorm:"column:idempotency_key"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
}

func (ledgerEntryModel) TableName() string { return "ledger_entries" }

type walletBalanceModel struct {
	AccountID string    `gorm:"column:account_id;primaryKey"`
	Balance   int64     `gorm:"column:balance"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (walletBalanceModel) TableName() string { return "wallet_balances" }

type paymentOrderModel struct {
	ExternalOrderID string     `gorm:"column:external_order_id;primaryKey"`
	CollaborationID string     `gorm:"column:collaboration_id"`
	PayerID         string     `gorm:"column:payer_id"`
	Amount          int64      `gorm:"column:amount"`
	Currency        string     `gorm:"column:currency"`
	Status          string     `gorm:"column:status"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	PaidAt          *time.Time `gorm:"column:paid_at"`
}

func (paymentOrderModel) TableName() string { return "payment_orders" }

type verifiedPaymentModel struct {
	ExternalPaymentID string    `gorm:"column:external_payment_id;primaryKey"`
	ExternalOrderID   string    `gorm:"column:external_order_id"`
	CollaborationID   string    `gorm:"column:collaboration_id"`
	SettlementID      string    `gorm:"column:settlement_id"`
	Amount            int64     `gorm:"column:amount"`
	VerifiedAt        time.Time `gorm:"column:verified_at"`
}

func (verifiedPaymentModel) TableName() string { return "verified_payments" }

type commissionSettingModel struct {
	SettingID   string    `gorm:"column:setting_id;primaryKey"`
	RateBps     int64     `gorm:"column:rate_bps"`
	Active      bool      `gorm:"column:active"`
	ActivatedBy string    `gorm:"column:activated_by"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (commissionSettingModel) TableName() string { return "commission_settings" }

type settlementOutboxModel struct {
	OutboxID         uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	OutboxSeq        int64      `gorm:"column:outbox_seq;->"`
	EventType        string     `gorm:"column:event_type"`
	EventClass       string     `gorm:"column:event_class"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload"`
	SchemaVersion    string     `gorm:"column:schema_version"`
	TraceID          string     `gorm:"column:trace_id"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	FirstSeenAt      time.Time  `gorm:"column:first_seen_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	RetryCount       int        `gorm:"column:retry_count"`
	LastError        *string    `gorm:"column:last_error"`
	LastErrorAt      *time.Time `gorm:"column:last_error_at"`
}

func (settlementOutboxModel) TableName() string { return "settlement_outbox" }

type settlementIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (settlementIdempotencyModel) TableName() string { return "settlement_idempotency" }

type settlementEventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (settlementEventDedupModel) TableName() string { return "settlement_event_dedup" }
