package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

type Config struct {
	ServiceName       string
	IdempotencyTTL    time.Duration
	EventDedupTTL     time.Duration
	BreakdownCacheTTL time.Duration
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

const (
	actorRoleAdmin  = "admin"
	actorRoleSystem = "system"
)

func (a Actor) IsAdmin() bool { return a.Role == actorRoleAdmin }

// SystemActor is used for gateway callbacks and consumed events.
func SystemActor(requestID string) Actor {
	return Actor{SubjectID: "payment-verifier", Role: actorRoleSystem, RequestID: requestID}
}

type InitCollaborationInput struct {
	PayerID  string `json:"payer_id"`
	PayeeID  string `json:"payee_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type CreditWalletInput struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type Service struct {
	cfg         Config
	uow         ports.UnitOfWork
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
	cache       ports.BreakdownCache
	verifier    ports.PaymentVerifier
	logger      *slog.Logger
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	UnitOfWork  ports.UnitOfWork
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Cache       ports.BreakdownCache
	Verifier    ports.PaymentVerifier
	Logger      *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M46-Collaboration-Settlement-Service"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.BreakdownCacheTTL <= 0 {
		cfg.BreakdownCacheTTL = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:         cfg,
		uow:         deps.UnitOfWork,
		idempotency: deps.Idempotency,
		eventDedup:  deps.EventDedup,
		cache:       deps.Cache,
		verifier:    deps.Verifier,
		logger:      logger,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
