package domain

import (
	"fmt"
	"strings"
	"time"
)

type EntryDirection string

const (
	DirectionCredit EntryDirection = "credit"
	DirectionDebit  EntryDirection = "debit"
)

type EntryStage string

const (
	StageAdvance       EntryStage = "advance"
	StageFinal         EntryStage = "final"
	StageDirectPayment EntryStage = "direct_payment"
	StageRefund        EntryStage = "refund"
)

func (s EntryStage) Valid() bool {
	switch s {
	case StageAdvance, StageFinal, StageDirectPayment, StageRefund:
		return true
	default:
		return false
	}
}

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryVoided    EntryStatus = "voided"
)

// LedgerEntry is append-only. Status moves pending -> completed or pending -> voided
// exactly once.
type LedgerEntry struct {
	EntryID        string         `json:"entry_id"`
	AccountID      string         `json:"account_id"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Direction      EntryDirection `json:"direction"`
	Stage          EntryStage     `json:"stage"`
	Status         EntryStatus    `json:"status"`
	SettlementID   string         `json:"settlement_id,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

func NewLedgerEntry(id, accountID string, amount int64, currency string, direction EntryDirection, stage EntryStage, key string, now time.Time) (LedgerEntry, error) {
	accountID = strings.TrimSpace(accountID)
	key = strings.TrimSpace(key)
	if accountID == "" || key == "" || amount < 0 || !stage.Valid() {
		return LedgerEntry{}, ErrInvalidInput
	}
	if direction != DirectionCredit && direction != DirectionDebit {
		return LedgerEntry{}, ErrInvalidInput
	}
	return LedgerEntry{
		EntryID:        id,
		AccountID:      accountID,
		Amount:         amount,
		Currency:       currency,
		Direction:      direction,
		Stage:          stage,
		Status:         EntryPending,
		IdempotencyKey: key,
		CreatedAt:      now,
	}, nil
}

// SignedAmount is the balance effect once the entry completes.
func (e LedgerEntry) SignedAmount() int64 {
	if e.Direction == DirectionDebit {
		return -e.Amount
	}
	return e.Amount
}

func (e *LedgerEntry) Complete(at time.Time) error {
	switch e.Status {
	case EntryCompleted:
		return ErrAlreadyConfirmed
	case EntryVoided:
		return fmt.Errorf("%w: entry %s voided", ErrInvalidStateTransition, e.EntryID)
	}
	e.Status = EntryCompleted
	e.CompletedAt = &at
	return nil
}

func (e *LedgerEntry) Void(at time.Time) error {
	switch e.Status {
	case EntryCompleted:
		return fmt.Errorf("%w: entry %s completed", ErrInvalidStateTransition, e.EntryID)
	case EntryVoided:
		return nil
	}
	e.Status = EntryVoided
	e.CompletedAt = &at
	return nil
}

type WalletBalance struct {
	AccountID string    `json:"account_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeriveBalance sums completed entries for one account.
func DeriveBalance(entries []LedgerEntry) int64 {
	var total int64
	for _, e := range entries {
		if e.Status == EntryCompleted {
			total += e.SignedAmount()
		}
	}
	return total
}

type WalletReconciliation struct {
	AccountID      string `json:"account_id"`
	StoredBalance  int64  `json:"stored_balance"`
	DerivedBalance int64  `json:"derived_balance"`
	EntryCount     int    `json:"entry_count"`
	Consistent     bool   `json:"consistent"`
}
