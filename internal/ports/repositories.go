package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

type CollaborationRepository interface {
	Create(ctx context.Context, c domain.Collaboration) error
	Get(ctx context.Context, collaborationID string) (domain.Collaboration, error)
	GetForUpdate(ctx context.Context, collaborationID string) (domain.Collaboration, error)
	// Update writes c only if the stored version still equals expectedVersion,
	// otherwise it returns domain.ErrStaleState.
	Update(ctx context.Context, c domain.Collaboration, expectedVersion int64) error
}

type TransitionRepository interface {
	Append(ctx context.Context, t domain.FlowTransition) error
	ListByCollaboration(ctx context.Context, collaborationID string) ([]domain.FlowTransition, error)
}

type SettlementRepository interface {
	Create(ctx context.Context, r domain.SettlementRecord) error
	Get(ctx context.Context, settlementID string) (domain.SettlementRecord, error)
	GetForUpdate(ctx context.Context, settlementID string) (domain.SettlementRecord, error)
	GetByCollaboration(ctx context.Context, collaborationID string) (domain.SettlementRecord, error)
	Update(ctx context.Context, r domain.SettlementRecord) error
}

type EscrowRepository interface {
	Create(ctx context.Context, h domain.EscrowHold) error
	Get(ctx context.Context, escrowID string) (domain.EscrowHold, error)
	GetForUpdate(ctx context.Context, escrowID string) (domain.EscrowHold, error)
	Update(ctx context.Context, h domain.EscrowHold) error
}

type LedgerRepository interface {
	// Insert returns domain.ErrDuplicateEntryKey when the idempotency key exists.
	Insert(ctx context.Context, e domain.LedgerEntry) error
	Get(ctx context.Context, entryID string) (domain.LedgerEntry, error)
	GetForUpdate(ctx context.Context, entryID string) (domain.LedgerEntry, error)
	GetByKey(ctx context.Context, idempotencyKey string) (domain.LedgerEntry, error)
	Update(ctx context.Context, e domain.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.LedgerEntry, error)
}

type WalletRepository interface {
	Get(ctx context.Context, accountID string) (domain.WalletBalance, error)
	// Increment adds delta to the balance row in a single statement, creating it if absent.
	Increment(ctx context.Context, accountID string, delta int64, at time.Time) (domain.WalletBalance, error)
}

type PaymentOrderRepository interface {
	Create(ctx context.Context, o domain.PaymentOrder) error
	GetForUpdate(ctx context.Context, externalOrderID string) (domain.PaymentOrder, error)
	Update(ctx context.Context, o domain.PaymentOrder) error
}

type VerifiedPaymentRepository interface {
	// Insert returns domain.ErrDuplicatePayment when the external payment id exists.
	Insert(ctx context.Context, p domain.VerifiedPayment) error
	Get(ctx context.Context, externalPaymentID string) (domain.VerifiedPayment, error)
}

type CommissionRepository interface {
	// Active returns domain.ErrConfigurationMissing when no rate is active.
	Active(ctx context.Context) (domain.CommissionSetting, error)
	Activate(ctx context.Context, setting domain.CommissionSetting) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	// Reserve returns domain.ErrConflict when the key is already held.
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	// Release drops an uncompleted reservation so a retry can run again.
	Release(ctx context.Context, key string) error
}
