package postgres

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func mapReadErr(err error) error {
	if isNotFound(err) {
		return domain.ErrNotFound
	}
	return err
}

type collaborationRepository struct {
	db *gorm.DB
}

func (r *collaborationRepository) Create(ctx context.Context, c domain.Collaboration) error {
	rec := fromDomainCollaboration(c)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *collaborationRepository) Get(ctx context.Context, collaborationID string) (domain.Collaboration, error) {
	var rec collaborationModel
	if err := r.db.WithContext(ctx).Where("collaboration_id = ?", collaborationID).Take(&rec).Error; err != nil {
		return domain.Collaboration{}, mapReadErr(err)
	}
	return toDomainCollaboration(rec), nil
}

func (r *collaborationRepository) GetForUpdate(ctx context.Context, collaborationID string) (domain.Collaboration, error) {
	var rec collaborationModel
	if err := forUpdate(r.db.WithContext(ctx)).Where("collaboration_id = ?", collaborationID).Take(&rec).Error; err != nil {
		return domain.Collaboration{}, mapReadErr(err)
	}
	return toDomainCollaboration(rec), nil
}

func (r *collaborationRepository) Update(ctx context.Context, c domain.Collaboration, expectedVersion int64) error {
	res := r.db.WithContext(ctx).Model(&collaborationModel{}).
		Where("collaboration_id = ? AND version = ?", c.CollaborationID, expectedVersion).
		Updates(map[string]any{
			"amount":         c.Amount,
			"offered_by":     string(c.OfferedBy),
			"flow_state":     string(c.FlowState),
			"awaiting_role":  string(c.AwaitingRole),
			"revision_count": c.RevisionCount,
			"version":        c.Version,
			"updated_at":     c.UpdatedAt,
			"closed_at":      c.ClosedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleState
	}
	return nil
}

type transitionRepository struct {
	db *gorm.DB
}

func (r *transitionRepository) Append(ctx context.Context, t domain.FlowTransition) error {
	rec := fromDomainTransition(t)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *transitionRepository) ListByCollaboration(ctx context.Context, collaborationID string) ([]domain.FlowTransition, error) {
	var rows []flowTransitionModel
	if err := r.db.WithContext(ctx).
		Where("collaboration_id = ?", collaborationID).
		Order("occurred_at ASC").
		Order("transition_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.FlowTransition, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainTransition(row))
	}
	return out, nil
}

type settlementRepository struct {
	db *gorm.DB
}

func (r *settlementRepository) Create(ctx context.Context, rec domain.SettlementRecord) error {
	m := fromDomainSettlement(rec)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *settlementRepository) Get(ctx context.Context, settlementID string) (domain.SettlementRecord, error) {
	var m settlementRecordModel
	if err := r.db.WithContext(ctx).Where("settlement_id = ?", settlementID).Take(&m).Error; err != nil {
		return domain.SettlementRecord{}, mapReadErr(err)
	}
	return toDomainSettlement(m), nil
}

func (r *settlementRepository) GetForUpdate(ctx context.Context, settlementID string) (domain.SettlementRecord, error) {
	var m settlementRecordModel
	if err := forUpdate(r.db.WithContext(ctx)).Where("settlement_id = ?", settlementID).Take(&m).Error; err != nil {
		return domain.SettlementRecord{}, mapReadErr(err)
	}
	return toDomainSettlement(m), nil
}

func (r *settlementRepository) GetByCollaboration(ctx context.Context, collaborationID string) (domain.SettlementRecord, error) {
	var m settlementRecordModel
	if err := r.db.WithContext(ctx).Where("collaboration_id = ?", collaborationID).Take(&m).Error; err != nil {
		return domain.SettlementRecord{}, mapReadErr(err)
	}
	return toDomainSettlement(m), nil
}

// Update persists lifecycle columns only; amounts and the rate snapshot are fixed at open.
func (r *settlementRepository) Update(ctx context.Context, rec domain.SettlementRecord) error {
	res := r.db.WithContext(ctx).Model(&settlementRecordModel{}).
		Where("settlement_id = ?", rec.SettlementID).
		Updates(map[string]any{
			"advance_status":       string(rec.AdvanceStatus),
			"final_status":         string(rec.FinalStatus),
			"advance_evidence_ref": rec.AdvanceEvidenceRef,
			"advance_confirmed_by": rec.AdvanceConfirmedBy,
			"advance_confirmed_at": rec.AdvanceConfirmedAt,
			"final_evidence_ref":   rec.FinalEvidenceRef,
			"final_confirmed_by":   rec.FinalConfirmedBy,
			"final_confirmed_at":   rec.FinalConfirmedAt,
			"refunded_amount":      rec.RefundedAmount,
			"refund_reason":        rec.RefundReason,
			"refunded_by":          rec.RefundedBy,
			"refunded_at":          rec.RefundedAt,
			"updated_at":           rec.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type escrowRepository struct {
	db *gorm.DB
}

func (r *escrowRepository) Create(ctx context.Context, h domain.EscrowHold) error {
	m := fromDomainEscrow(h)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *escrowRepository) Get(ctx context.Context, escrowID string) (domain.EscrowHold, error) {
	var m escrowHoldModel
	if err := r.db.WithContext(ctx).Where("escrow_id = ?", escrowID).Take(&m).Error; err != nil {
		return domain.EscrowHold{}, mapReadErr(err)
	}
	return toDomainEscrow(m), nil
}

func (r *escrowRepository) GetForUpdate(ctx context.Context, escrowID string) (domain.EscrowHold, error) {
	var m escrowHoldModel
	if err := forUpdate(r.db.WithContext(ctx)).Where("escrow_id = ?", escrowID).Take(&m).Error; err != nil {
		return domain.EscrowHold{}, mapReadErr(err)
	}
	return toDomainEscrow(m), nil
}

func (r *escrowRepository) Update(ctx context.Context, h domain.EscrowHold) error {
	res := r.db.WithContext(ctx).Model(&escrowHoldModel{}).
		Where("escrow_id = ?", h.EscrowID).
		Updates(map[string]any{
			"released_amount": h.ReleasedAmount,
			"refunded_amount": h.RefundedAmount,
			"status":          string(h.Status),
			"updated_at":      h.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) Insert(ctx context.Context, e domain.LedgerEntry) error {
	m := fromDomainLedgerEntry(e)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntryKey
		}
		return err
	}
	return nil
}

func (r *ledgerRepository) Get(ctx context.Context, entryID string) (domain.LedgerEntry, error) {
	var m ledgerEntryModel
	if err := r.db.WithContext(ctx).Where("entry_id = ?", entryID).Take(&m).Error; err != nil {
		return domain.LedgerEntry{}, mapReadErr(err)
	}
	return toDomainLedgerEntry(m), nil
}

func (r *ledgerRepository) GetForUpdate(ctx context.Context, entryID string) (domain.LedgerEntry, error) {
	var m ledgerEntryModel
	if err := forUpdate(r.db.WithContext(ctx)).Where("entry_id = ?", entryID).Take(&m).Error; err != nil {
		return domain.LedgerEntry{}, mapReadErr(err)
	}
	return toDomainLedgerEntry(m), nil
}

func (r *ledgerRepository) GetByKey(ctx context.Context, idempotencyKey string) (domain.LedgerEntry, error) {
	var m ledgerEntryModel
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", idempotencyKey).Take(&m).Error; err != nil {
		return domain.LedgerEntry{}, mapReadErr(err)
	}
	return toDomainLedgerEntry(m), nil
}

// Update moves a pending entry to its terminal status. Rows already out of
// pending are left untouched and reported as already confirmed.
func (r *ledgerRepository) Update(ctx context.Context, e domain.LedgerEntry) error {
	res := r.db.WithContext(ctx).Model(&ledgerEntryModel{}).
		Where("entry_id = ? AND status = ?", e.EntryID, string(domain.EntryPending)).
		Updates(map[string]any{
			"status":       string(e.Status),
			"completed_at": e.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadyConfirmed
	}
	return nil
}

func (r *ledgerRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Order("entry_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLedgerEntry(row))
	}
	return out, nil
}

type walletRepository struct {
	db *gorm.DB
}

func (r *walletRepository) Get(ctx context.Context, accountID string) (domain.WalletBalance, error) {
	var m walletBalanceModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Take(&m).Error; err != nil {
		return domain.WalletBalance{}, mapReadErr(err)
	}
	return domain.WalletBalance{AccountID: m.AccountID, Balance: m.Balance, UpdatedAt: m.UpdatedAt}, nil
}

func (r *walletRepository) Increment(ctx context.Context, accountID string, delta int64, at time.Time) (domain.WalletBalance, error) {
	rec := walletBalanceModel{AccountID: accountID, Balance: delta, UpdatedAt: at}
	if err := r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance":    gorm.Expr("wallet_balances.balance + ?", delta),
				"updated_at": at,
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "balance"}, {Name: "updated_at"}}},
	).Create(&rec).Error; err != nil {
		return domain.WalletBalance{}, err
	}
	return domain.WalletBalance{AccountID: accountID, Balance: rec.Balance, UpdatedAt: rec.UpdatedAt}, nil
}

type paymentOrderRepository struct {
	db *gorm.DB
}

func (r *paymentOrderRepository) Create(ctx context.Context, o domain.PaymentOrder) error {
	m := fromDomainPaymentOrder(o)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *paymentOrderRepository) GetForUpdate(ctx context.Context, externalOrderID string) (domain.PaymentOrder, error) {
	var m paymentOrderModel
	if err := forUpdate(r.db.WithContext(ctx)).Where("external_order_id = ?", externalOrderID).Take(&m).Error; err != nil {
		return domain.PaymentOrder{}, mapReadErr(err)
	}
	return toDomainPaymentOrder(m), nil
}

func (r *paymentOrderRepository) Update(ctx context.Context, o domain.PaymentOrder) error {
	return r.db.WithContext(ctx).Model(&paymentOrderModel{}).
		Where("external_order_id = ?", o.ExternalOrderID).
		Updates(map[string]any{
			"status":  string(o.Status),
			"paid_at": o.PaidAt,
		}).Error
}

type verifiedPaymentRepository struct {
	db *gorm.DB
}

func (r *verifiedPaymentRepository) Insert(ctx context.Context, p domain.VerifiedPayment) error {
	m := verifiedPaymentModel{
		ExternalPaymentID: p.ExternalPaymentID,
		ExternalOrderID:   p.ExternalOrderID,
		CollaborationID:   p.CollaborationID,
		SettlementID:      p.SettlementID,
		Amount:            p.Amount,
		VerifiedAt:        p.VerifiedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePayment
		}
		return err
	}
	return nil
}

func (r *verifiedPaymentRepository) Get(ctx context.Context, externalPaymentID string) (domain.VerifiedPayment, error) {
	var m verifiedPaymentModel
	if err := r.db.WithContext(ctx).Where("external_payment_id = ?", externalPaymentID).Take(&m).Error; err != nil {
		return domain.VerifiedPayment{}, mapReadErr(err)
	}
	return toDomainVerifiedPayment(m), nil
}

type commissionRepository struct {
	db *gorm.DB
}

func (r *commissionRepository) Active(ctx context.Context) (domain.CommissionSetting, error) {
	var m commissionSettingModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Take(&m).Error; err != nil {
		if isNotFound(err) {
			return domain.CommissionSetting{}, domain.ErrConfigurationMissing
		}
		return domain.CommissionSetting{}, err
	}
	return toDomainCommissionSetting(m), nil
}

func (r *commissionRepository) Activate(ctx context.Context, setting domain.CommissionSetting) error {
	if err := r.db.WithContext(ctx).Model(&commissionSettingModel{}).
		Where("active = ?", true).
		Update("active", false).Error; err != nil {
		return err
	}
	m := commissionSettingModel{
		SettingID:   setting.SettingID,
		RateBps:     setting.Rate.BasisPoints,
		Active:      true,
		ActivatedBy: setting.ActivatedBy,
		CreatedAt:   setting.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

var (
	_ ports.CollaborationRepository   = (*collaborationRepository)(nil)
	_ ports.TransitionRepository      = (*transitionRepository)(nil)
	_ ports.SettlementRepository      = (*settlementRepository)(nil)
	_ ports.EscrowRepository          = (*escrowRepository)(nil)
	_ ports.LedgerRepository          = (*ledgerRepository)(nil)
	_ ports.WalletRepository          = (*walletRepository)(nil)
	_ ports.PaymentOrderRepository    = (*paymentOrderRepository)(nil)
	_ ports.VerifiedPaymentRepository = (*verifiedPaymentRepository)(nil)
	_ ports.CommissionRepository      = (*commissionRepository)(nil)
)
