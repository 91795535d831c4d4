package postgres

import (
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

func toDomainCollaboration(m collaborationModel) domain.Collaboration {
	return domain.Collaboration{
		CollaborationID: m.CollaborationID, PayerID: m.PayerID, PayeeID: m.PayeeID, Amount: m.Amount,
		Currency: m.Currency, OfferedBy: domain.Role(m.OfferedBy), FlowState: domain.FlowState(m.FlowState),
		AwaitingRole: domain.Role(m.AwaitingRole), RevisionCount: m.RevisionCount, Version: m.Version,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, ClosedAt: m.ClosedAt,
	}
}

func fromDomainCollaboration(c domain.Collaboration) collaborationModel {
	return collaborationModel{
		CollaborationID: c.CollaborationID, PayerID: c.PayerID, PayeeID: c.PayeeID, Amount: c.Amount,
		Currency: c.Currency, OfferedBy: string(c.OfferedBy), FlowState: string(c.FlowState),
		AwaitingRole: string(c.AwaitingRole), RevisionCount: c.RevisionCount, Version: c.Version,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt, ClosedAt: c.ClosedAt,
	}
}

func toDomainTransition(m flowTransitionModel) domain.FlowTransition {
	return domain.FlowTransition{
		TransitionID: m.TransitionID, CollaborationID: m.CollaborationID, Action: domain.ActionKind(m.Action),
		FromState: domain.FlowState(m.FromState), ToState: domain.FlowState(m.ToState),
		AwaitingRole: domain.Role(m.AwaitingRole), ActorID: m.ActorID, ActorRole: domain.Role(m.ActorRole),
		Reason: m.Reason, OccurredAt: m.OccurredAt,
	}
}

func fromDomainTransition(t domain.FlowTransition) flowTransitionModel {
	return flowTransitionModel{
		TransitionID: t.TransitionID, CollaborationID: t.CollaborationID, Action: string(t.Action),
		FromState: string(t.FromState), ToState: string(t.ToState), AwaitingRole: string(t.AwaitingRole),
		ActorID: t.ActorID, ActorRole: string(t.ActorRole), Reason: t.Reason, OccurredAt: t.OccurredAt,
	}
}

func toDomainSettlement(m settlementRecordModel) domain.SettlementRecord {
	return domain.SettlementRecord{
		SettlementID: m.SettlementID, CollaborationID: m.CollaborationID, ExternalPaymentID: m.ExternalPaymentID,
		Currency: m.Currency, TotalAmount: m.TotalAmount,
		CommissionRate:   domain.CommissionRate{BasisPoints: m.CommissionRateBps},
		CommissionAmount: m.CommissionAmount, NetAmount: m.NetAmount, AdvanceAmount: m.AdvanceAmount,
		FinalAmount: m.FinalAmount, AdvanceStatus: domain.AdvanceStatus(m.AdvanceStatus),
		FinalStatus: domain.FinalStatus(m.FinalStatus), AdvanceEntryID: m.AdvanceEntryID,
		FinalEntryID: m.FinalEntryID, EscrowID: m.EscrowID, AdvanceEvidenceRef: m.AdvanceEvidenceRef,
		AdvanceConfirmedBy: m.AdvanceConfirmedBy, AdvanceConfirmedAt: m.AdvanceConfirmedAt,
		FinalEvidenceRef: m.FinalEvidenceRef, FinalConfirmedBy: m.FinalConfirmedBy,
		FinalConfirmedAt: m.FinalConfirmedAt, RefundedAmount: m.RefundedAmount, RefundReason: m.RefundReason,
		RefundedBy: m.RefundedBy, RefundedAt: m.RefundedAt, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func fromDomainSettlement(r domain.SettlementRecord) settlementRecordModel {
	return settlementRecordModel{
		SettlementID: r.SettlementID, CollaborationID: r.CollaborationID, ExternalPaymentID: r.ExternalPaymentID,
		Currency: r.Currency, TotalAmount: r.TotalAmount, CommissionRateBps: r.CommissionRate.BasisPoints,
		CommissionAmount: r.CommissionAmount, NetAmount: r.NetAmount, AdvanceAmount: r.AdvanceAmount,
		FinalAmount: r.FinalAmount, AdvanceStatus: string(r.AdvanceStatus), FinalStatus: string(r.FinalStatus),
		AdvanceEntryID: r.AdvanceEntryID, FinalEntryID: r.FinalEntryID, EscrowID: r.EscrowID,
		AdvanceEvidenceRef: r.AdvanceEvidenceRef, AdvanceConfirmedBy: r.AdvanceConfirmedBy,
		AdvanceConfirmedAt: r.AdvanceConfirmedAt, FinalEvidenceRef: r.FinalEvidenceRef,
		FinalConfirmedBy: r.FinalConfirmedBy, FinalConfirmedAt: r.FinalConfirmedAt,
		RefundedAmount: r.RefundedAmount, RefundReason: r.RefundReason, RefundedBy: r.RefundedBy,
		RefundedAt: r.RefundedAt, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toDomainEscrow(m escrowHoldModel) domain.EscrowHold {
	return domain.EscrowHold{
		EscrowID: m.EscrowID, CollaborationID: m.CollaborationID, PayerID: m.PayerID, PayeeID: m.PayeeID,
		Currency: m.Currency, OriginalAmount: m.OriginalAmount, ReleasedAmount: m.ReleasedAmount,
		RefundedAmount: m.RefundedAmount, Status: domain.HoldStatus(m.Status), HeldAt: m.HeldAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromDomainEscrow(h domain.EscrowHold) escrowHoldModel {
	return escrowHoldModel{
		EscrowID: h.EscrowID, CollaborationID: h.CollaborationID, PayerID: h.PayerID, PayeeID: h.PayeeID,
		Currency: h.Currency, OriginalAmount: h.OriginalAmount, ReleasedAmount: h.ReleasedAmount,
		RefundedAmount: h.RefundedAmount, Status: string(h.Status), HeldAt: h.HeldAt, UpdatedAt: h.UpdatedAt,
	}
}

func toDomainLedgerEntry(m ledgerEntryModel) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID: m.EntryID, AccountID: m.AccountID, Amount: m.Amount, Currency: m.Currency,
		Direction: domain.EntryDirection(m.Direction), Stage: domain.EntryStage(m.Stage),
		Status: domain.EntryStatus(m.Status), SettlementID: m.SettlementID, IdempotencyKey: m.IdempotencyKey,
		CreatedAt: m.CreatedAt, CompletedAt: m.CompletedAt,
	}
}

func fromDomainLedgerEntry(e domain.LedgerEntry) ledgerEntryModel {
	return ledgerEntryModel{
		EntryID: e.EntryID, AccountID: e.AccountID, Amount: e.Amount, Currency: e.Currency,
		Direction: string(e.Direction), Stage: string(e.Stage), Status: string(e.Status),
		SettlementID: e.SettlementID, IdempotencyKey: e.IdempotencyKey, CreatedAt: e.CreatedAt,
		CompletedAt: e.CompletedAt,
	}
}

func toDomainPaymentOrder(m paymentOrderModel) domain.PaymentOrder {
	return domain.PaymentOrder{
		ExternalOrderID: m.ExternalOrderID, CollaborationID: m.CollaborationID, PayerID: m.PayerID,
		Amount: m.Amount, Currency: m.Currency, Status: domain.PaymentOrderStatus(m.Status),
		CreatedAt: m.CreatedAt, PaidAt: m.PaidAt,
	}
}

func fromDomainPaymentOrder(o domain.PaymentOrder) paymentOrderModel {
	return paymentOrderModel{
		ExternalOrderID: o.ExternalOrderID, CollaborationID: o.CollaborationID, PayerID: o.PayerID,
		Amount: o.Amount, Currency: o.Currency, Status: string(o.Status), CreatedAt: o.CreatedAt, PaidAt: o.PaidAt,
	}
}

func toDomainVerifiedPayment(m verifiedPaymentModel) domain.VerifiedPayment {
	return domain.VerifiedPayment{
		ExternalPaymentID: m.ExternalPaymentID, ExternalOrderID: m.ExternalOrderID,
		CollaborationID: m.CollaborationID, SettlementID: m.SettlementID, Amount: m.Amount,
		VerifiedAt: m.VerifiedAt,
	}
}

func toDomainCommissionSetting(m commissionSettingModel) domain.CommissionSetting {
	return domain.CommissionSetting{
		SettingID: m.SettingID, Rate: domain.CommissionRate{BasisPoints: m.RateBps}, Active: m.Active,
		ActivatedBy: m.ActivatedBy, CreatedAt: m.CreatedAt,
	}
}

func toOutboxRecord(m settlementOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      []byte(m.Payload),
		RetryCount:   m.RetryCount,
		PublishedAt:  m.PublishedAt,
		LastError:    m.LastError,
		LastErrorAt:  m.LastErrorAt,
		FirstSeenAt:  m.FirstSeenAt,
	}
}
