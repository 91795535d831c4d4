package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/tracing"
)

// InitCollaboration opens a negotiation. The caller must be one of the two
// parties; their amount is the standing offer.
func (s *Service) InitCollaboration(ctx context.Context, actor Actor, input InitCollaborationInput) (domain.Collaboration, error) {
	if err := requireSubject(actor); err != nil {
		return domain.Collaboration{}, err
	}
	input.PayerID = strings.TrimSpace(input.PayerID)
	input.PayeeID = strings.TrimSpace(input.PayeeID)
	input.Currency = domain.NormalizeCurrency(input.Currency)
	if input.Currency == "" {
		return domain.Collaboration{}, domain.ErrInvalidInput
	}
	var initiator domain.Role
	switch actor.SubjectID {
	case input.PayerID:
		initiator = domain.RolePayer
	case input.PayeeID:
		initiator = domain.RolePayee
	default:
		return domain.Collaboration{}, domain.ErrForbidden
	}

	ctx, span := tracing.StartSpan(ctx, "collaboration.init", nil)
	out, err := withIdempotency(ctx, s, actor, input, func(ctx context.Context) (domain.Collaboration, error) {
		now := s.nowFn()
		c, err := domain.NewCollaboration(uuid.NewString(), input.PayerID, input.PayeeID, input.Amount, input.Currency, initiator, now)
		if err != nil {
			return domain.Collaboration{}, err
		}
		opened := domain.FlowTransition{
			TransitionID:    uuid.NewString(),
			CollaborationID: c.CollaborationID,
			Action:          domain.ActionProposePrice,
			ToState:         c.FlowState,
			AwaitingRole:    c.AwaitingRole,
			ActorID:         actor.SubjectID,
			ActorRole:       initiator,
			OccurredAt:      now,
		}
		err = s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			if err := tx.Collaborations().Create(ctx, c); err != nil {
				return err
			}
			if err := tx.Transitions().Append(ctx, opened); err != nil {
				return err
			}
			return s.enqueueFlowStateChanged(ctx, tx, opened, actor.RequestID)
		})
		return c, err
	})
	tracing.EndSpan(span, err)
	s.logFailure(ctx, "init_collaboration", err)
	return out, err
}

func (s *Service) GetCollaboration(ctx context.Context, actor Actor, collaborationID string) (domain.Collaboration, error) {
	if err := requireSubject(actor); err != nil {
		return domain.Collaboration{}, err
	}
	collaborationID = strings.TrimSpace(collaborationID)
	if collaborationID == "" {
		return domain.Collaboration{}, domain.ErrInvalidInput
	}
	var out domain.Collaboration
	err := s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		c, err := tx.Collaborations().Get(ctx, collaborationID)
		if err != nil {
			return err
		}
		if flowRole(actor, c) == domain.RoleNone {
			return domain.ErrForbidden
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Service) ListTransitions(ctx context.Context, actor Actor, collaborationID string) ([]domain.FlowTransition, error) {
	if _, err := s.GetCollaboration(ctx, actor, collaborationID); err != nil {
		return nil, err
	}
	var out []domain.FlowTransition
	err := s.uow.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		items, err := tx.Transitions().ListByCollaboration(ctx, strings.TrimSpace(collaborationID))
		out = items
		return err
	})
	return out, err
}

// Perform applies a negotiation, checkout or work-review action. Money-moving
// actions are only reachable through the payment and settlement operations.
func (s *Service) Perform(ctx context.Context, actor Actor, collaborationID string, action domain.Action) (domain.Collaboration, error) {
	if err := requireSubject(actor); err != nil {
		return domain.Collaboration{}, err
	}
	collaborationID = strings.TrimSpace(collaborationID)
	if collaborationID == "" || action == nil {
		return domain.Collaboration{}, domain.ErrInvalidInput
	}
	if !domain.PartyAction(action) {
		return domain.Collaboration{}, domain.ErrForbidden
	}
	if err := action.Validate(); err != nil {
		return domain.Collaboration{}, err
	}
	// membership is checked before a cached response can be replayed
	if _, err := s.GetCollaboration(ctx, actor, collaborationID); err != nil {
		return domain.Collaboration{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "collaboration.perform", map[string]string{
		"collaboration_id": collaborationID,
		"action":           string(action.Kind()),
	})
	request := struct {
		CollaborationID string            `json:"collaboration_id"`
		Kind            domain.ActionKind `json:"kind"`
		Action          domain.Action     `json:"action"`
	}{collaborationID, action.Kind(), action}
	out, err := withIdempotency(ctx, s, actor, request, func(ctx context.Context) (domain.Collaboration, error) {
		var updated domain.Collaboration
		err := s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			c, err := tx.Collaborations().GetForUpdate(ctx, collaborationID)
			if err != nil {
				return err
			}
			role := flowRole(actor, c)
			if role == domain.RoleNone {
				return domain.ErrForbidden
			}
			now := s.nowFn()
			next, transition, err := c.Advance(actor.SubjectID, role, action, now)
			if err != nil {
				return err
			}
			if start, ok := action.(domain.StartPayment); ok {
				if err := tx.PaymentOrders().Create(ctx, domain.PaymentOrder{
					ExternalOrderID: strings.TrimSpace(start.ExternalOrderID),
					CollaborationID: c.CollaborationID,
					PayerID:         c.PayerID,
					Amount:          c.Amount,
					Currency:        c.Currency,
					Status:          domain.PaymentOrderCreated,
					CreatedAt:       now,
				}); err != nil {
					return err
				}
			}
			updated, err = s.commitTransition(ctx, tx, c, next, transition, actor.RequestID)
			return err
		})
		return updated, err
	})
	tracing.EndSpan(span, err)
	s.logFailure(ctx, "perform_action", err, "collaboration_id", collaborationID, "action", string(action.Kind()))
	return out, err
}

// commitTransition persists next against prev's version and records the audit
// row and state-changed event in the same tx.
func (s *Service) commitTransition(ctx context.Context, tx ports.Tx, prev, next domain.Collaboration, t domain.FlowTransition, traceID string) (domain.Collaboration, error) {
	if err := tx.Collaborations().Update(ctx, next, prev.Version); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Collaboration{}, domain.ErrStaleState
		}
		return domain.Collaboration{}, err
	}
	t.TransitionID = uuid.NewString()
	if err := tx.Transitions().Append(ctx, t); err != nil {
		return domain.Collaboration{}, err
	}
	if err := s.enqueueFlowStateChanged(ctx, tx, t, traceID); err != nil {
		return domain.Collaboration{}, err
	}
	return next, nil
}
