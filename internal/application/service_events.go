package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/tracing"
)

func (s *Service) enqueueEvent(ctx context.Context, outbox ports.OutboxWriter, eventType, traceID, partitionKey string, data any, now time.Time) error {
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrUnsupportedEvent
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = tracing.TraceID(ctx)
	}
	if traceID == "" {
		traceID = uuid.NewString()
	}
	eventID := uuid.New()
	env := contracts.EventEnvelope{
		EventID:          eventID.String(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return domain.ErrInvalidInput
	}
	return outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:          eventID,
		EventType:        eventType,
		EventClass:       env.EventClass,
		PartitionKey:     partitionKey,
		PartitionKeyPath: env.PartitionKeyPath,
		Payload:          payload,
		OccurredAt:       now,
		SchemaVersion:    env.SchemaVersion,
		TraceID:          traceID,
	})
}

func (s *Service) enqueueFlowStateChanged(ctx context.Context, tx ports.Tx, t domain.FlowTransition, traceID string) error {
	return s.enqueueEvent(ctx, tx.Outbox(), domain.EventFlowStateChanged, traceID, t.CollaborationID, contracts.FlowStateChangedPayload{
		CollaborationID: t.CollaborationID,
		PreviousState:   string(t.FromState),
		NewState:        string(t.ToState),
		AwaitingRole:    string(t.AwaitingRole),
		Action:          string(t.Action),
		ActorRole:       string(t.ActorRole),
		Timestamp:       t.OccurredAt.UTC().Format(time.RFC3339),
	}, t.OccurredAt)
}

func (s *Service) enqueueSettlementOpened(ctx context.Context, tx ports.Tx, rec domain.SettlementRecord, traceID string) error {
	return s.enqueueEvent(ctx, tx.Outbox(), domain.EventSettlementOpened, traceID, rec.CollaborationID, contracts.SettlementOpenedPayload{
		CollaborationID:  rec.CollaborationID,
		SettlementID:     rec.SettlementID,
		Currency:         rec.Currency,
		CommissionRate:   rec.CommissionRate.String(),
		TotalAmount:      rec.TotalAmount,
		CommissionAmount: rec.CommissionAmount,
		NetAmount:        rec.NetAmount,
		AdvanceAmount:    rec.AdvanceAmount,
		FinalAmount:      rec.FinalAmount,
		OpenedAt:         rec.CreatedAt.UTC().Format(time.RFC3339),
	}, rec.CreatedAt)
}

func (s *Service) enqueueMilestone(ctx context.Context, tx ports.Tx, rec domain.SettlementRecord, milestone domain.MilestoneKind, amount int64, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, tx.Outbox(), domain.EventSettlementMilestone, traceID, rec.CollaborationID, contracts.SettlementMilestonePayload{
		CollaborationID: rec.CollaborationID,
		SettlementID:    rec.SettlementID,
		Milestone:       string(milestone),
		Amount:          amount,
		Currency:        rec.Currency,
		Message:         milestoneMessage(rec, milestone, amount),
		OccurredAt:      now.UTC().Format(time.RFC3339),
	}, now)
}

func milestoneMessage(rec domain.SettlementRecord, milestone domain.MilestoneKind, amount int64) string {
	money := func(v int64) string { return domain.FormatMinor(v, rec.Currency) }
	switch milestone {
	case domain.MilestonePaymentReceived:
		return fmt.Sprintf("Payment of %s received. Platform commission %s%% (%s). Advance %s awaits admin release; final %s is paid on approval.",
			money(rec.TotalAmount), rec.CommissionRate, money(rec.CommissionAmount), money(rec.AdvanceAmount), money(rec.FinalAmount))
	case domain.MilestoneAdvanceReleased:
		return fmt.Sprintf("Advance of %s released to the payee. Work can begin.", money(amount))
	case domain.MilestoneFinalReleased:
		return fmt.Sprintf("Final payment of %s released. Total paid out %s. Collaboration closed.", money(amount), money(rec.NetAmount))
	case domain.MilestoneRefunded:
		return fmt.Sprintf("%s refunded to the payer. Collaboration ended.", money(amount))
	default:
		return ""
	}
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() {
		return domain.ErrInvalidEnvelope
	}
	if strings.TrimSpace(event.SourceService) == "" || strings.TrimSpace(event.SchemaVersion) == "" {
		return domain.ErrInvalidEnvelope
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidEnvelope
	}
	return nil
}
