package postgres

import (
	"context"
	"database/sql"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	UnitOfWork  *Store
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		UnitOfWork:  &Store{db: db},
		Idempotency: &idempotencyRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}

// Store runs units of work inside a gorm transaction. Repositories handed to fn
// share that transaction.
type Store struct {
	db *gorm.DB
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, txRepositories{db: gtx})
	})
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, txRepositories{db: gtx})
	}, &sql.TxOptions{ReadOnly: true})
}

type txRepositories struct {
	db *gorm.DB
}

func (t txRepositories) Collaborations() ports.CollaborationRepository {
	return &collaborationRepository{db: t.db}
}

func (t txRepositories) Transitions() ports.TransitionRepository {
	return &transitionRepository{db: t.db}
}

func (t txRepositories) Settlements() ports.SettlementRepository {
	return &settlementRepository{db: t.db}
}

func (t txRepositories) Escrows() ports.EscrowRepository { return &escrowRepository{db: t.db} }

func (t txRepositories) Ledger() ports.LedgerRepository { return &ledgerRepository{db: t.db} }

func (t txRepositories) Wallets() ports.WalletRepository { return &walletRepository{db: t.db} }

func (t txRepositories) PaymentOrders() ports.PaymentOrderRepository {
	return &paymentOrderRepository{db: t.db}
}

func (t txRepositories) VerifiedPayments() ports.VerifiedPaymentRepository {
	return &verifiedPaymentRepository{db: t.db}
}

func (t txRepositories) Commission() ports.CommissionRepository {
	return &commissionRepository{db: t.db}
}

func (t txRepositories) Outbox() ports.OutboxWriter { return &outboxRepository{db: t.db} }

var (
	_ ports.UnitOfWork = (*Store)(nil)
	_ ports.Tx         = txRepositories{}
)
