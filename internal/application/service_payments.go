package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/tracing"
)

// HandlePaymentCallback authenticates a gateway webhook before recording it.
func (s *Service) HandlePaymentCallback(ctx context.Context, requestID string, cb ports.PaymentCallback) (domain.SettlementRecord, error) {
	if err := validateCallback(cb); err != nil {
		return domain.SettlementRecord{}, err
	}
	if s.verifier == nil {
		return domain.SettlementRecord{}, domain.ErrInvalidSignature
	}
	if err := s.verifier.Verify(ctx, cb); err != nil {
		s.logFailure(ctx, "verify_payment", err, "external_payment_id", cb.ExternalPaymentID)
		return domain.SettlementRecord{}, err
	}
	return s.RecordVerifiedPayment(ctx, SystemActor(requestID), cb)
}

// HandlePaymentEvent consumes a payment.verified envelope from the broker.
// Redelivered event ids and already-recorded payments are acknowledged silently.
func (s *Service) HandlePaymentEvent(ctx context.Context, raw []byte) error {
	var env contracts.EventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.ErrInvalidEnvelope
	}
	if err := validateEnvelope(env); err != nil {
		return err
	}
	if !domain.IsCanonicalInputEvent(env.EventType) {
		return domain.ErrUnsupportedEvent
	}
	now := s.nowFn()
	if s.eventDedup != nil {
		dup, err := s.eventDedup.IsDuplicate(ctx, env.EventID, now)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
	}
	var data contracts.PaymentVerifiedPayload
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return domain.ErrInvalidEnvelope
	}
	_, err := s.RecordVerifiedPayment(ctx, SystemActor(env.TraceID), ports.PaymentCallback{
		ExternalOrderID:   data.ExternalOrderID,
		ExternalPaymentID: data.ExternalPaymentID,
		VerifiedAmount:    data.VerifiedAmount,
	})
	if err != nil && !errors.Is(err, domain.ErrDuplicatePayment) {
		return err
	}
	if s.eventDedup != nil {
		return s.eventDedup.MarkProcessed(ctx, env.EventID, env.EventType, now.Add(s.cfg.EventDedupTTL))
	}
	return nil
}

// RecordVerifiedPayment moves an awaiting_payment collaboration into escrow. The
// payment row, settlement record, both ledger placeholders, the hold and the state
// change commit together or not at all.
func (s *Service) RecordVerifiedPayment(ctx context.Context, actor Actor, cb ports.PaymentCallback) (domain.SettlementRecord, error) {
	if err := validateCallback(cb); err != nil {
		return domain.SettlementRecord{}, err
	}
	cb.ExternalOrderID = strings.TrimSpace(cb.ExternalOrderID)
	cb.ExternalPaymentID = strings.TrimSpace(cb.ExternalPaymentID)

	ctx, span := tracing.StartSpan(ctx, "settlement.open", map[string]string{
		"external_order_id":   cb.ExternalOrderID,
		"external_payment_id": cb.ExternalPaymentID,
	})
	var rec domain.SettlementRecord
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := ensurePaymentUnseen(ctx, tx, cb.ExternalPaymentID); err != nil {
			return err
		}
		order, err := tx.PaymentOrders().GetForUpdate(ctx, cb.ExternalOrderID)
		if err != nil {
			return err
		}
		if order.Status == domain.PaymentOrderPaid {
			return fmt.Errorf("%w: order %s already paid", domain.ErrDuplicatePayment, order.ExternalOrderID)
		}
		c, err := tx.Collaborations().GetForUpdate(ctx, order.CollaborationID)
		if err != nil {
			return err
		}
		// a concurrent callback may have committed while we waited on the locks
		if err := ensurePaymentUnseen(ctx, tx, cb.ExternalPaymentID); err != nil {
			return err
		}
		if cb.VerifiedAmount != order.Amount || cb.VerifiedAmount != c.Amount {
			return fmt.Errorf("%w: verified %d, agreed %d", domain.ErrAmountMismatch, cb.VerifiedAmount, c.Amount)
		}
		now := s.nowFn()
		next, transition, err := c.Advance(actor.SubjectID, domain.RoleSystem, domain.PaymentVerified{
			ExternalPaymentID: cb.ExternalPaymentID,
			Amount:            cb.VerifiedAmount,
		}, now)
		if err != nil {
			return err
		}
		setting, err := tx.Commission().Active(ctx)
		if err != nil {
			return err
		}

		rec, err = s.openSettlement(ctx, tx, c, cb.ExternalPaymentID, cb.VerifiedAmount, setting.Rate, now)
		if err != nil {
			if domainFailure(err) {
				return err
			}
			return fmt.Errorf("%w: %w", domain.ErrPartialWriteFailure, err)
		}
		if err := tx.VerifiedPayments().Insert(ctx, domain.VerifiedPayment{
			ExternalPaymentID: cb.ExternalPaymentID,
			ExternalOrderID:   order.ExternalOrderID,
			CollaborationID:   c.CollaborationID,
			SettlementID:      rec.SettlementID,
			Amount:            cb.VerifiedAmount,
			VerifiedAt:        now,
		}); err != nil {
			return err
		}
		order.Status = domain.PaymentOrderPaid
		order.PaidAt = &now
		if err := tx.PaymentOrders().Update(ctx, order); err != nil {
			return err
		}
		if _, err := s.commitTransition(ctx, tx, c, next, transition, actor.RequestID); err != nil {
			return err
		}
		if err := s.enqueueSettlementOpened(ctx, tx, rec, actor.RequestID); err != nil {
			return err
		}
		return s.enqueueMilestone(ctx, tx, rec, domain.MilestonePaymentReceived, rec.TotalAmount, actor.RequestID, now)
	})
	tracing.EndSpan(span, err)
	if err != nil {
		s.logFailure(ctx, "record_verified_payment", err, "external_payment_id", cb.ExternalPaymentID)
		return domain.SettlementRecord{}, err
	}
	s.cacheBreakdown(ctx, rec.Breakdown())
	return rec, nil
}

func ensurePaymentUnseen(ctx context.Context, tx ports.Tx, externalPaymentID string) error {
	_, err := tx.VerifiedPayments().Get(ctx, externalPaymentID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: payment %s", domain.ErrDuplicatePayment, externalPaymentID)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func validateCallback(cb ports.PaymentCallback) error {
	if strings.TrimSpace(cb.ExternalOrderID) == "" || strings.TrimSpace(cb.ExternalPaymentID) == "" {
		return domain.ErrInvalidInput
	}
	if cb.VerifiedAmount <= 0 || cb.VerifiedAmount > domain.MaxTotalAmount {
		return domain.ErrInvalidInput
	}
	return nil
}

// domainFailure reports rule violations that must surface unwrapped.
func domainFailure(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput,
		domain.ErrConfigurationMissing,
		domain.ErrDuplicatePayment,
		domain.ErrDuplicateEntryKey,
		domain.ErrEscrowOverrelease,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
