package ports

import "context"

// Tx exposes every repository bound to one storage transaction.
type Tx interface {
	Collaborations() CollaborationRepository
	Transitions() TransitionRepository
	Settlements() SettlementRepository
	Escrows() EscrowRepository
	Ledger() LedgerRepository
	Wallets() WalletRepository
	PaymentOrders() PaymentOrderRepository
	VerifiedPayments() VerifiedPaymentRepository
	Commission() CommissionRepository
	Outbox() OutboxWriter
}

// UnitOfWork runs fn in one transaction. A non-nil error from fn rolls back
// every write made through tx.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn against committed state without taking write locks.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
