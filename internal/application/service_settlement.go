package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

// openSettlement computes the breakdown and writes the record, the hold and the two
// payee placeholders. The rate is snapshotted into the record here and never re-read.
func (s *Service) openSettlement(ctx context.Context, tx ports.Tx, c domain.Collaboration, externalPaymentID string, total int64, rate domain.CommissionRate, now time.Time) (domain.SettlementRecord, error) {
	breakdown, err := domain.ComputeBreakdown(total, rate)
	if err != nil {
		return domain.SettlementRecord{}, err
	}
	rec := domain.NewSettlementRecord(uuid.NewString(), c, externalPaymentID, breakdown, now)
	hold, err := domain.NewEscrowHold(uuid.NewString(), c, total, now)
	if err != nil {
		return domain.SettlementRecord{}, err
	}
	advance, err := domain.NewLedgerEntry(uuid.NewString(), c.PayeeID, breakdown.AdvanceAmount, c.Currency,
		domain.DirectionCredit, domain.StageAdvance, settlementEntryKey(rec.SettlementID, domain.StageAdvance), now)
	if err != nil {
		return domain.SettlementRecord{}, err
	}
	final, err := domain.NewLedgerEntry(uuid.NewString(), c.PayeeID, breakdown.FinalAmount, c.Currency,
		domain.DirectionCredit, domain.StageFinal, settlementEntryKey(rec.SettlementID, domain.StageFinal), now)
	if err != nil {
		return domain.SettlementRecord{}, err
	}
	advance.SettlementID = rec.SettlementID
	final.SettlementID = rec.SettlementID
	rec.AdvanceEntryID = advance.EntryID
	rec.FinalEntryID = final.EntryID
	rec.EscrowID = hold.EscrowID

	if err := tx.Settlements().Create(ctx, rec); err != nil {
		return domain.SettlementRecord{}, err
	}
	if err := reserveEntry(ctx, tx, advance); err != nil {
		return domain.SettlementRecord{}, err
	}
	if err := reserveEntry(ctx, tx, final); err != nil {
		return domain.SettlementRecord{}, err
	}
	if err := tx.Escrows().Create(ctx, hold); err != nil {
		return domain.SettlementRecord{}, err
	}
	return rec, nil
}

// GetBreakdown serves the settlement split for document rendering. It is available
// as soon as the settlement opens and never changes afterwards.
func (s *Service) GetBreakdown(ctx context.Context, actor Actor, collaborationID string) (domain.Breakdown, error) {
	c, err := s.GetCollaboration(ctx, actor, collaborationID)
	if err != nil {
		return domain.Breakdown{}, err
	}
	if s.cache != nil {
		if b, ok, err := s.cache.Get(ctx, c.CollaborationID); err == nil && ok {
			return b, nil
		}
	}
	var rec domain.SettlementRecord
	err = s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		rec, err = tx.Settlements().GetByCollaboration(ctx, c.CollaborationID)
		return err
	})
	if err != nil {
		return domain.Breakdown{}, err
	}
	b := rec.Breakdown()
	s.cacheBreakdown(ctx, b)
	return b, nil
}

func (s *Service) GetSettlement(ctx context.Context, actor Actor, settlementID string) (domain.SettlementRecord, error) {
	if err := requireSubject(actor); err != nil {
		return domain.SettlementRecord{}, err
	}
	settlementID = strings.TrimSpace(settlementID)
	if settlementID == "" {
		return domain.SettlementRecord{}, domain.ErrInvalidInput
	}
	var rec domain.SettlementRecord
	err := s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		r, err := tx.Settlements().Get(ctx, settlementID)
		if err != nil {
			return err
		}
		c, err := tx.Collaborations().Get(ctx, r.CollaborationID)
		if err != nil {
			return err
		}
		switch flowRole(actor, c) {
		case domain.RoleNone:
			return domain.ErrForbidden
		case domain.RolePayer, domain.RolePayee:
			r = r.PartyView()
		}
		rec = r
		return nil
	})
	return rec, err
}

func (s *Service) GetEscrowHold(ctx context.Context, actor Actor, settlementID string) (domain.EscrowHold, error) {
	rec, err := s.GetSettlement(ctx, actor, settlementID)
	if err != nil {
		return domain.EscrowHold{}, err
	}
	var hold domain.EscrowHold
	err = s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		hold, err = tx.Escrows().Get(ctx, rec.EscrowID)
		return err
	})
	return hold, err
}

func (s *Service) cacheBreakdown(ctx context.Context, b domain.Breakdown) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, b, s.cfg.BreakdownCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "breakdown cache write failed",
			"module", "application",
			"layer", "application",
			"operation", "cache_breakdown",
			"outcome", "failure",
			"collaboration_id", b.CollaborationID,
			"error", err,
		)
	}
}
