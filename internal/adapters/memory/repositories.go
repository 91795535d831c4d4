package memory

import (
	"context"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

type collaborationRepo struct{ st *state }

func (r collaborationRepo) Create(_ context.Context, c domain.Collaboration) error {
	if _, ok := r.st.collaborations[c.CollaborationID]; ok {
		return domain.ErrConflict
	}
	r.st.collaborations[c.CollaborationID] = c
	return nil
}

func (r collaborationRepo) Get(_ context.Context, collaborationID string) (domain.Collaboration, error) {
	c, ok := r.st.collaborations[strings.TrimSpace(collaborationID)]
	if !ok {
		return domain.Collaboration{}, domain.ErrNotFound
	}
	return c, nil
}

func (r collaborationRepo) GetForUpdate(ctx context.Context, collaborationID string) (domain.Collaboration, error) {
	return r.Get(ctx, collaborationID)
}

func (r collaborationRepo) Update(_ context.Context, c domain.Collaboration, expectedVersion int64) error {
	current, ok := r.st.collaborations[c.CollaborationID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrStaleState
	}
	r.st.collaborations[c.CollaborationID] = c
	return nil
}

type transitionRepo struct{ st *state }

func (r transitionRepo) Append(_ context.Context, t domain.FlowTransition) error {
	r.st.transitions[t.CollaborationID] = append(r.st.transitions[t.CollaborationID], t)
	return nil
}

func (r transitionRepo) ListByCollaboration(_ context.Context, collaborationID string) ([]domain.FlowTransition, error) {
	rows := r.st.transitions[strings.TrimSpace(collaborationID)]
	return append([]domain.FlowTransition(nil), rows...), nil
}

type settlementRepo struct{ st *state }

func (r settlementRepo) Create(_ context.Context, rec domain.SettlementRecord) error {
	if _, ok := r.st.settlements[rec.SettlementID]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.st.settlementByCollab[rec.CollaborationID]; ok {
		return domain.ErrConflict
	}
	r.st.settlements[rec.SettlementID] = rec
	r.st.settlementByCollab[rec.CollaborationID] = rec.SettlementID
	return nil
}

func (r settlementRepo) Get(_ context.Context, settlementID string) (domain.SettlementRecord, error) {
	rec, ok := r.st.settlements[strings.TrimSpace(settlementID)]
	if !ok {
		return domain.SettlementRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r settlementRepo) GetForUpdate(ctx context.Context, settlementID string) (domain.SettlementRecord, error) {
	return r.Get(ctx, settlementID)
}

func (r settlementRepo) GetByCollaboration(ctx context.Context, collaborationID string) (domain.SettlementRecord, error) {
	id, ok := r.st.settlementByCollab[strings.TrimSpace(collaborationID)]
	if !ok {
		return domain.SettlementRecord{}, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r settlementRepo) Update(_ context.Context, rec domain.SettlementRecord) error {
	if _, ok := r.st.settlements[rec.SettlementID]; !ok {
		return domain.ErrNotFound
	}
	r.st.settlements[rec.SettlementID] = rec
	return nil
}

type escrowRepo struct{ st *state }

func (r escrowRepo) Create(_ context.Context, h domain.EscrowHold) error {
	if _, ok := r.st.escrows[h.EscrowID]; ok {
		return domain.ErrConflict
	}
	r.st.escrows[h.EscrowID] = h
	return nil
}

func (r escrowRepo) Get(_ context.Context, escrowID string) (domain.EscrowHold, error) {
	h, ok := r.st.escrows[strings.TrimSpace(escrowID)]
	if !ok {
		return domain.EscrowHold{}, domain.ErrNotFound
	}
	return h, nil
}

func (r escrowRepo) GetForUpdate(ctx context.Context, escrowID string) (domain.EscrowHold, error) {
	return r.Get(ctx, escrowID)
}

func (r escrowRepo) Update(_ context.Context, h domain.EscrowHold) error {
	if _, ok := r.st.escrows[h.EscrowID]; !ok {
		return domain.ErrNotFound
	}
	r.st.escrows[h.EscrowID] = h
	return nil
}

type ledgerRepo struct{ st *state }

func (r ledgerRepo) Insert(_ context.Context, e domain.LedgerEntry) error {
	if _, ok := r.st.entryByKey[e.IdempotencyKey]; ok {
		return domain.ErrDuplicateEntryKey
	}
	if _, ok := r.st.entries[e.EntryID]; ok {
		return domain.ErrConflict
	}
	r.st.entries[e.EntryID] = e
	r.st.entryByKey[e.IdempotencyKey] = e.EntryID
	r.st.entryOrder = append(r.st.entryOrder, e.EntryID)
	return nil
}

func (r ledgerRepo) Get(_ context.Context, entryID string) (domain.LedgerEntry, error) {
	e, ok := r.st.entries[strings.TrimSpace(entryID)]
	if !ok {
		return domain.LedgerEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (r ledgerRepo) GetForUpdate(ctx context.Context, entryID string) (domain.LedgerEntry, error) {
	return r.Get(ctx, entryID)
}

func (r ledgerRepo) GetByKey(ctx context.Context, idempotencyKey string) (domain.LedgerEntry, error) {
	id, ok := r.st.entryByKey[strings.TrimSpace(idempotencyKey)]
	if !ok {
		return domain.LedgerEntry{}, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Update only accepts status moves out of pending; completed rows are frozen.
func (r ledgerRepo) Update(_ context.Context, e domain.LedgerEntry) error {
	current, ok := r.st.entries[e.EntryID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != domain.EntryPending {
		return domain.ErrAlreadyConfirmed
	}
	r.st.entries[e.EntryID] = e
	return nil
}

func (r ledgerRepo) ListByAccount(_ context.Context, accountID string) ([]domain.LedgerEntry, error) {
	accountID = strings.TrimSpace(accountID)
	out := make([]domain.LedgerEntry, 0)
	for _, id := range r.st.entryOrder {
		if e := r.st.entries[id]; e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

type walletRepo struct{ st *state }

func (r walletRepo) Get(_ context.Context, accountID string) (domain.WalletBalance, error) {
	w, ok := r.st.wallets[strings.TrimSpace(accountID)]
	if !ok {
		return domain.WalletBalance{}, domain.ErrNotFound
	}
	return w, nil
}

func (r walletRepo) Increment(_ context.Context, accountID string, delta int64, at time.Time) (domain.WalletBalance, error) {
	w := r.st.wallets[accountID]
	w.AccountID = accountID
	w.Balance += delta
	w.UpdatedAt = at
	r.st.wallets[accountID] = w
	return w, nil
}

type paymentOrderRepo struct{ st *state }

func (r paymentOrderRepo) Create(_ context.Context, o domain.PaymentOrder) error {
	if _, ok := r.st.orders[o.ExternalOrderID]; ok {
		return domain.ErrConflict
	}
	r.st.orders[o.ExternalOrderID] = o
	return nil
}

func (r paymentOrderRepo) GetForUpdate(_ context.Context, externalOrderID string) (domain.PaymentOrder, error) {
	o, ok := r.st.orders[strings.TrimSpace(externalOrderID)]
	if !ok {
		return domain.PaymentOrder{}, domain.ErrNotFound
	}
	return o, nil
}

func (r paymentOrderRepo) Update(_ context.Context, o domain.PaymentOrder) error {
	if _, ok := r.st.orders[o.ExternalOrderID]; !ok {
		return domain.ErrNotFound
	}
	r.st.orders[o.ExternalOrderID] = o
	return nil
}

type verifiedPaymentRepo struct{ st *state }

func (r verifiedPaymentRepo) Insert(_ context.Context, p domain.VerifiedPayment) error {
	if _, ok := r.st.payments[p.ExternalPaymentID]; ok {
		return domain.ErrDuplicatePayment
	}
	r.st.payments[p.ExternalPaymentID] = p
	return nil
}

func (r verifiedPaymentRepo) Get(_ context.Context, externalPaymentID string) (domain.VerifiedPayment, error) {
	p, ok := r.st.payments[strings.TrimSpace(externalPaymentID)]
	if !ok {
		return domain.VerifiedPayment{}, domain.ErrNotFound
	}
	return p, nil
}

type commissionRepo struct{ st *state }

func (r commissionRepo) Active(_ context.Context) (domain.CommissionSetting, error) {
	for i := len(r.st.commission) - 1; i >= 0; i-- {
		if r.st.commission[i].Active {
			return r.st.commission[i], nil
		}
	}
	return domain.CommissionSetting{}, domain.ErrConfigurationMissing
}

func (r commissionRepo) Activate(_ context.Context, setting domain.CommissionSetting) error {
	for i := range r.st.commission {
		r.st.commission[i].Active = false
	}
	setting.Active = true
	r.st.commission = append(r.st.commission, setting)
	return nil
}
