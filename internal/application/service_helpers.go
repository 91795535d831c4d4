package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// withIdempotency replays the stored response for a repeated key and request.
// The hash binds the caller, so another subject reusing a key gets a conflict
// instead of the cached body. A failed run releases the reservation so the
// same key can be retried.
func withIdempotency[T any](ctx context.Context, s *Service, actor Actor, request any, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	key := strings.TrimSpace(actor.IdempotencyKey)
	if key == "" {
		return zero, domain.ErrIdempotencyRequired
	}
	if s.idempotency == nil {
		return fn(ctx)
	}
	requestHash := hashJSON(struct {
		SubjectID string `json:"subject_id"`
		Role      string `json:"role"`
		Request   any    `json:"request"`
	}{actor.SubjectID, actor.Role, request})
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil {
		return zero, err
	}
	if rec != nil {
		if rec.RequestHash != requestHash || len(rec.ResponseBody) == 0 {
			return zero, domain.ErrIdempotencyConflict
		}
		var out T
		if err := json.Unmarshal(rec.ResponseBody, &out); err != nil {
			return zero, domain.ErrIdempotencyConflict
		}
		return out, nil
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return zero, domain.ErrIdempotencyConflict
		}
		return zero, err
	}
	out, err := fn(ctx)
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			s.logger.WarnContext(ctx, "idempotency release failed",
				"module", "application",
				"layer", "application",
				"operation", "idempotency_release",
				"outcome", "failure",
				"error", releaseErr,
			)
		}
		return zero, err
	}
	body, _ := json.Marshal(out)
	if err := s.idempotency.Complete(ctx, key, 200, body, s.nowFn()); err != nil {
		s.logger.WarnContext(ctx, "idempotency complete failed",
			"module", "application",
			"layer", "application",
			"operation", "idempotency_complete",
			"outcome", "failure",
			"error", err,
		)
	}
	return out, nil
}

func requireSubject(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func requireAdmin(actor Actor) error {
	if err := requireSubject(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

// flowRole is the role the actor plays on c, or RoleNone for outsiders.
func flowRole(actor Actor, c domain.Collaboration) domain.Role {
	switch actor.Role {
	case actorRoleAdmin:
		return domain.RoleAdmin
	case actorRoleSystem:
		return domain.RoleSystem
	default:
		return c.PartyRole(actor.SubjectID)
	}
}

func (s *Service) logFailure(ctx context.Context, operation string, err error, attrs ...any) {
	if err == nil || domain.IsBenignConflict(err) {
		return
	}
	args := append([]any{
		"module", "application",
		"layer", "application",
		"operation", operation,
		"outcome", "failure",
		"error", err,
	}, attrs...)
	if errors.Is(err, domain.ErrEscrowOverrelease) || errors.Is(err, domain.ErrPartialWriteFailure) {
		// needs manual reconciliation
		s.logger.ErrorContext(ctx, operation+" failed", args...)
		return
	}
	s.logger.WarnContext(ctx, operation+" failed", args...)
}
