package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/tracing"
)

func settlementEntryKey(settlementID string, stage domain.EntryStage) string {
	return "settlement:" + settlementID + ":" + string(stage)
}

// creditEntry writes a completed entry and bumps the wallet in the same tx. A key
// that already completed is a no-op and returns the stored entry.
func creditEntry(ctx context.Context, tx ports.Tx, entry domain.LedgerEntry, now time.Time) (domain.LedgerEntry, error) {
	existing, err := tx.Ledger().GetByKey(ctx, entry.IdempotencyKey)
	switch {
	case err == nil:
		if existing.Status == domain.EntryCompleted {
			return existing, nil
		}
		return domain.LedgerEntry{}, fmt.Errorf("%w: %s is %s", domain.ErrDuplicateEntryKey, entry.IdempotencyKey, existing.Status)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.LedgerEntry{}, err
	}
	if err := entry.Complete(now); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := tx.Ledger().Insert(ctx, entry); err != nil {
		return domain.LedgerEntry{}, err
	}
	if _, err := tx.Wallets().Increment(ctx, entry.AccountID, entry.SignedAmount(), now); err != nil {
		return domain.LedgerEntry{}, err
	}
	return entry, nil
}

// reserveEntry writes a pending placeholder with no balance effect.
func reserveEntry(ctx context.Context, tx ports.Tx, entry domain.LedgerEntry) error {
	if entry.Status != domain.EntryPending {
		return domain.ErrInvalidInput
	}
	return tx.Ledger().Insert(ctx, entry)
}

func confirmEntry(ctx context.Context, tx ports.Tx, entryID string, now time.Time) (domain.LedgerEntry, error) {
	entry, err := tx.Ledger().GetForUpdate(ctx, entryID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := entry.Complete(now); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := tx.Ledger().Update(ctx, entry); err != nil {
		return domain.LedgerEntry{}, err
	}
	if _, err := tx.Wallets().Increment(ctx, entry.AccountID, entry.SignedAmount(), now); err != nil {
		return domain.LedgerEntry{}, err
	}
	return entry, nil
}

// voidPending cancels a placeholder. Completed entries are left alone.
func voidPending(ctx context.Context, tx ports.Tx, entryID string, now time.Time) error {
	entry, err := tx.Ledger().GetForUpdate(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status != domain.EntryPending {
		return nil
	}
	if err := entry.Void(now); err != nil {
		return err
	}
	return tx.Ledger().Update(ctx, entry)
}

func (s *Service) GetWallet(ctx context.Context, actor Actor, accountID string) (domain.WalletBalance, error) {
	if err := requireSubject(actor); err != nil {
		return domain.WalletBalance{}, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.WalletBalance{}, domain.ErrInvalidInput
	}
	if accountID != actor.SubjectID && !actor.IsAdmin() {
		return domain.WalletBalance{}, domain.ErrForbidden
	}
	var out domain.WalletBalance
	err := s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		w, err := tx.Wallets().Get(ctx, accountID)
		if errors.Is(err, domain.ErrNotFound) {
			out = domain.WalletBalance{AccountID: accountID}
			return nil
		}
		out = w
		return err
	})
	return out, err
}

func (s *Service) ListLedgerEntries(ctx context.Context, actor Actor, accountID string) ([]domain.LedgerEntry, error) {
	if err := requireSubject(actor); err != nil {
		return nil, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidInput
	}
	if accountID != actor.SubjectID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	var out []domain.LedgerEntry
	err := s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		entries, err := tx.Ledger().ListByAccount(ctx, accountID)
		out = entries
		return err
	})
	return out, err
}

// ReconcileWallet compares the stored balance with the sum of completed entries.
func (s *Service) ReconcileWallet(ctx context.Context, actor Actor, accountID string) (domain.WalletReconciliation, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.WalletReconciliation{}, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.WalletReconciliation{}, domain.ErrInvalidInput
	}
	var out domain.WalletReconciliation
	err := s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		entries, err := tx.Ledger().ListByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		var stored int64
		w, err := tx.Wallets().Get(ctx, accountID)
		switch {
		case err == nil:
			stored = w.Balance
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		derived := domain.DeriveBalance(entries)
		out = domain.WalletReconciliation{
			AccountID:      accountID,
			StoredBalance:  stored,
			DerivedBalance: derived,
			EntryCount:     len(entries),
			Consistent:     stored == derived,
		}
		return nil
	})
	if err == nil && !out.Consistent {
		s.logger.ErrorContext(ctx, "wallet balance drift",
			"module", "application",
			"layer", "application",
			"operation", "reconcile_wallet",
			"outcome", "mismatch",
			"account_id", accountID,
			"stored_balance", out.StoredBalance,
			"derived_balance", out.DerivedBalance,
		)
	}
	return out, err
}

// CreditWallet books a direct payment keyed by the caller's idempotency key.
func (s *Service) CreditWallet(ctx context.Context, actor Actor, input CreditWalletInput) (domain.LedgerEntry, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.LedgerEntry{}, err
	}
	input.AccountID = strings.TrimSpace(input.AccountID)
	input.Currency = domain.NormalizeCurrency(input.Currency)
	if input.AccountID == "" || input.Currency == "" || input.Amount <= 0 || input.Amount > domain.MaxTotalAmount {
		return domain.LedgerEntry{}, domain.ErrInvalidInput
	}
	ctx, span := tracing.StartSpan(ctx, "ledger.credit_wallet", map[string]string{"account_id": input.AccountID})
	out, err := withIdempotency(ctx, s, actor, input, func(ctx context.Context) (domain.LedgerEntry, error) {
		var entry domain.LedgerEntry
		err := s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			now := s.nowFn()
			candidate, err := domain.NewLedgerEntry(uuid.NewString(), input.AccountID, input.Amount, input.Currency,
				domain.DirectionCredit, domain.StageDirectPayment, "direct:"+strings.TrimSpace(actor.IdempotencyKey), now)
			if err != nil {
				return err
			}
			entry, err = creditEntry(ctx, tx, candidate, now)
			return err
		})
		return entry, err
	})
	tracing.EndSpan(span, err)
	s.logFailure(ctx, "credit_wallet", err, "account_id", input.AccountID)
	return out, err
}
