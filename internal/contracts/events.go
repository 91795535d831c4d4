package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type FlowStateChangedPayload struct {
	CollaborationID string `json:"collaboration_id"`
	PreviousState   string `json:"previous_state"`
	NewState        string `json:"new_state"`
	AwaitingRole    string `json:"awaiting_role"`
	Action          string `json:"action"`
	ActorRole       string `json:"actor_role"`
	Timestamp       string `json:"timestamp"`
}

type SettlementOpenedPayload struct {
	CollaborationID  string `json:"collaboration_id"`
	SettlementID     string `json:"settlement_id"`
	Currency         string `json:"currency"`
	CommissionRate   string `json:"commission_rate_percent"`
	TotalAmount      int64  `json:"total_amount"`
	CommissionAmount int64  `json:"commission_amount"`
	NetAmount        int64  `json:"net_amount"`
	AdvanceAmount    int64  `json:"advance_amount"`
	FinalAmount      int64  `json:"final_amount"`
	OpenedAt         string `json:"opened_at"`
}

// SettlementMilestonePayload carries a human-readable message for the conversation thread.
type SettlementMilestonePayload struct {
	CollaborationID string `json:"collaboration_id"`
	SettlementID    string `json:"settlement_id"`
	Milestone       string `json:"milestone"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Message         string `json:"message"`
	OccurredAt      string `json:"occurred_at"`
}

type PaymentVerifiedPayload struct {
	ExternalOrderID   string `json:"external_order_id"`
	ExternalPaymentID string `json:"external_payment_id"`
	VerifiedAmount    int64  `json:"verified_amount"`
	CollaborationID   string `json:"collaboration_id,omitempty"`
}
