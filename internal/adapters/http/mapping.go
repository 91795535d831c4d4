package http

import (
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

func toDomainAction(req contracts.ActionRequest) (domain.Action, error) {
	switch domain.ActionKind(strings.ToLower(strings.TrimSpace(req.Type))) {
	case domain.ActionProposePrice:
		return domain.ProposePrice{Amount: req.Amount}, nil
	case domain.ActionAcceptPrice:
		return domain.AcceptPrice{}, nil
	case domain.ActionStartPayment:
		return domain.StartPayment{ExternalOrderID: req.ExternalOrderID}, nil
	case domain.ActionSubmitWork:
		return domain.SubmitWork{DeliverableRef: req.DeliverableRef, Note: req.Note}, nil
	case domain.ActionApproveWork:
		return domain.ApproveWork{}, nil
	case domain.ActionRequestRevision:
		return domain.RequestRevision{Reason: req.Reason}, nil
	case domain.ActionCancel:
		return domain.Cancel{Reason: req.Reason}, nil
	case domain.ActionPaymentVerified:
		return domain.PaymentVerified{Amount: req.Amount}, nil
	case domain.ActionConfirmAdvance:
		return domain.ConfirmAdvance{}, nil
	case domain.ActionConfirmFinal:
		return domain.ConfirmFinal{}, nil
	case domain.ActionRefund:
		return domain.Refund{Reason: req.Reason}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", domain.ErrInvalidInput, req.Type)
	}
}

func toCollaborationResponse(c domain.Collaboration) contracts.CollaborationResponse {
	allowed := domain.AllowedActions(c.FlowState)
	actions := make([]string, 0, len(allowed))
	for _, a := range allowed {
		actions = append(actions, string(a))
	}
	return contracts.CollaborationResponse{
		CollaborationID: c.CollaborationID,
		PayerID:         c.PayerID,
		PayeeID:         c.PayeeID,
		Amount:          c.Amount,
		AmountDisplay:   domain.FormatMinor(c.Amount, c.Currency),
		Currency:        c.Currency,
		OfferedBy:       string(c.OfferedBy),
		FlowState:       string(c.FlowState),
		AwaitingRole:    string(c.AwaitingRole),
		RevisionCount:   c.RevisionCount,
		Version:         c.Version,
		AllowedActions:  actions,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		ClosedAt:        c.ClosedAt,
	}
}

func toBreakdownResponse(b domain.Breakdown) contracts.BreakdownResponse {
	return contracts.BreakdownResponse{
		CollaborationID:   b.CollaborationID,
		Currency:          b.Currency,
		CommissionRate:    b.CommissionRate.String(),
		TotalAmount:       b.TotalAmount,
		CommissionAmount:  b.CommissionAmount,
		NetAmount:         b.NetAmount,
		AdvanceAmount:     b.AdvanceAmount,
		FinalAmount:       b.FinalAmount,
		TotalDisplay:      domain.FormatMinor(b.TotalAmount, b.Currency),
		CommissionDisplay: domain.FormatMinor(b.CommissionAmount, b.Currency),
		AdvanceDisplay:    domain.FormatMinor(b.AdvanceAmount, b.Currency),
		FinalDisplay:      domain.FormatMinor(b.FinalAmount, b.Currency),
	}
}
