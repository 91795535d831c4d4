package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

type BreakdownCache interface {
	Get(ctx context.Context, collaborationID string) (domain.Breakdown, bool, error)
	Set(ctx context.Context, b domain.Breakdown, ttl time.Duration) error
}
