package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/tracing"
)

type releaseRequest struct {
	Operation    string `json:"operation"`
	SettlementID string `json:"settlement_id"`
	Reference    string `json:"reference"`
}

// ConfirmAdvance is the first human-gated release: the advance entry completes,
// commission and advance leave escrow and work can start.
func (s *Service) ConfirmAdvance(ctx context.Context, actor Actor, settlementID, evidenceRef string) (domain.SettlementRecord, error) {
	return s.settle(ctx, actor, "confirm_advance", settlementID, evidenceRef, domain.ConfirmAdvance{EvidenceRef: evidenceRef},
		func(rec *domain.SettlementRecord, now time.Time) (domain.MilestoneKind, error) {
			return domain.MilestoneAdvanceReleased, rec.ConfirmAdvance(actor.SubjectID, evidenceRef, now)
		},
		func(ctx context.Context, tx ports.Tx, rec *domain.SettlementRecord, hold *domain.EscrowHold, now time.Time) (int64, error) {
			if _, err := confirmEntry(ctx, tx, rec.AdvanceEntryID, now); err != nil {
				return 0, err
			}
			return rec.AdvanceAmount, hold.Release(rec.CommissionAmount+rec.AdvanceAmount, now)
		})
}

// ConfirmFinal completes the final entry and empties the hold, closing the collaboration.
func (s *Service) ConfirmFinal(ctx context.Context, actor Actor, settlementID, evidenceRef string) (domain.SettlementRecord, error) {
	return s.settle(ctx, actor, "confirm_final", settlementID, evidenceRef, domain.ConfirmFinal{EvidenceRef: evidenceRef},
		func(rec *domain.SettlementRecord, now time.Time) (domain.MilestoneKind, error) {
			return domain.MilestoneFinalReleased, rec.ConfirmFinal(actor.SubjectID, evidenceRef, now)
		},
		func(ctx context.Context, tx ports.Tx, rec *domain.SettlementRecord, hold *domain.EscrowHold, now time.Time) (int64, error) {
			if _, err := confirmEntry(ctx, tx, rec.FinalEntryID, now); err != nil {
				return 0, err
			}
			return rec.FinalAmount, hold.Release(rec.FinalAmount, now)
		})
}

// RefundSettlement returns whatever is still held to the payer, voids unpaid
// placeholders and ends the collaboration.
func (s *Service) RefundSettlement(ctx context.Context, actor Actor, settlementID, reason string) (domain.SettlementRecord, error) {
	return s.settle(ctx, actor, "refund_settlement", settlementID, reason, domain.Refund{Reason: reason},
		func(rec *domain.SettlementRecord, _ time.Time) (domain.MilestoneKind, error) {
			if rec.Refunded() {
				return "", domain.ErrAlreadyConfirmed
			}
			return domain.MilestoneRefunded, nil
		},
		func(ctx context.Context, tx ports.Tx, rec *domain.SettlementRecord, hold *domain.EscrowHold, now time.Time) (int64, error) {
			amount, err := hold.Refund(now)
			if err != nil {
				return 0, err
			}
			if err := rec.MarkRefunded(actor.SubjectID, reason, amount, now); err != nil {
				return 0, err
			}
			for _, entryID := range []string{rec.AdvanceEntryID, rec.FinalEntryID} {
				if err := voidPending(ctx, tx, entryID, now); err != nil {
					return 0, err
				}
			}
			if amount == 0 {
				return 0, nil
			}
			entry, err := domain.NewLedgerEntry(uuid.NewString(), hold.PayerID, amount, rec.Currency,
				domain.DirectionCredit, domain.StageRefund, settlementEntryKey(rec.SettlementID, domain.StageRefund), now)
			if err != nil {
				return 0, err
			}
			entry.SettlementID = rec.SettlementID
			_, err = creditEntry(ctx, tx, entry, now)
			return amount, err
		})
}

// settleGuard checks and stamps the settlement record before the flow check, so a
// repeated confirmation reports AlreadyConfirmed rather than a state error.
type settleGuard func(rec *domain.SettlementRecord, now time.Time) (domain.MilestoneKind, error)

// settleEffect moves money and returns the amount announced in the milestone.
type settleEffect func(ctx context.Context, tx ports.Tx, rec *domain.SettlementRecord, hold *domain.EscrowHold, now time.Time) (int64, error)

// settle runs one admin release step. Row locks are taken in settlement,
// collaboration, escrow, ledger order.
func (s *Service) settle(ctx context.Context, actor Actor, operation, settlementID, reference string, action domain.Action, guard settleGuard, effect settleEffect) (domain.SettlementRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.SettlementRecord{}, err
	}
	settlementID = strings.TrimSpace(settlementID)
	if settlementID == "" {
		return domain.SettlementRecord{}, domain.ErrInvalidInput
	}
	if err := action.Validate(); err != nil {
		return domain.SettlementRecord{}, err
	}
	ctx, span := tracing.StartSpan(ctx, "settlement."+operation, map[string]string{"settlement_id": settlementID})
	request := releaseRequest{Operation: operation, SettlementID: settlementID, Reference: strings.TrimSpace(reference)}
	out, err := withIdempotency(ctx, s, actor, request, func(ctx context.Context) (domain.SettlementRecord, error) {
		var rec domain.SettlementRecord
		err := s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			var err error
			rec, err = tx.Settlements().GetForUpdate(ctx, settlementID)
			if err != nil {
				return err
			}
			c, err := tx.Collaborations().GetForUpdate(ctx, rec.CollaborationID)
			if err != nil {
				return err
			}
			hold, err := tx.Escrows().GetForUpdate(ctx, rec.EscrowID)
			if err != nil {
				return err
			}
			now := s.nowFn()
			milestone, err := guard(&rec, now)
			if err != nil {
				return err
			}
			next, transition, err := c.Advance(actor.SubjectID, domain.RoleAdmin, action, now)
			if err != nil {
				return err
			}
			amount, err := effect(ctx, tx, &rec, &hold, now)
			if err != nil {
				return err
			}
			if err := hold.CheckInvariant(); err != nil {
				return err
			}
			if err := tx.Escrows().Update(ctx, hold); err != nil {
				return err
			}
			if err := tx.Settlements().Update(ctx, rec); err != nil {
				return err
			}
			if _, err := s.commitTransition(ctx, tx, c, next, transition, actor.RequestID); err != nil {
				return err
			}
			return s.enqueueMilestone(ctx, tx, rec, milestone, amount, actor.RequestID, now)
		})
		return rec, err
	})
	tracing.EndSpan(span, err)
	s.logFailure(ctx, operation, err, "settlement_id", settlementID)
	return out, err
}

func (s *Service) SetCommissionRate(ctx context.Context, actor Actor, ratePercent string) (domain.CommissionSetting, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.CommissionSetting{}, err
	}
	rate, err := domain.ParseCommissionRate(ratePercent)
	if err != nil {
		return domain.CommissionSetting{}, err
	}
	request := map[string]int64{"basis_points": rate.BasisPoints}
	out, err := withIdempotency(ctx, s, actor, request, func(ctx context.Context) (domain.CommissionSetting, error) {
		setting := domain.CommissionSetting{
			SettingID:   uuid.NewString(),
			Rate:        rate,
			Active:      true,
			ActivatedBy: actor.SubjectID,
			CreatedAt:   s.nowFn(),
		}
		err := s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			return tx.Commission().Activate(ctx, setting)
		})
		return setting, err
	})
	s.logFailure(ctx, "set_commission_rate", err)
	return out, err
}

func (s *Service) GetCommissionRate(ctx context.Context, actor Actor) (domain.CommissionSetting, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.CommissionSetting{}, err
	}
	var out domain.CommissionSetting
	err := s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.Commission().Active(ctx)
		return err
	})
	return out, err
}
