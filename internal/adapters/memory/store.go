// Package memory is a process-local store used by tests and STORAGE_DRIVER=memory.
// Transactions work on a copy of the state and swap it in on success, so a
// failed unit of work leaves nothing behind.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

type state struct {
	collaborations     map[string]domain.Collaboration
	transitions        map[string][]domain.FlowTransition
	settlements        map[string]domain.SettlementRecord
	settlementByCollab map[string]string
	escrows            map[string]domain.EscrowHold
	entries            map[string]domain.LedgerEntry
	entryByKey         map[string]string
	entryOrder         []string
	wallets            map[string]domain.WalletBalance
	orders             map[string]domain.PaymentOrder
	payments           map[string]domain.VerifiedPayment
	commission         []domain.CommissionSetting
}

func newState() *state {
	return &state{
		collaborations:     map[string]domain.Collaboration{},
		transitions:        map[string][]domain.FlowTransition{},
		settlements:        map[string]domain.SettlementRecord{},
		settlementByCollab: map[string]string{},
		escrows:            map[string]domain.EscrowHold{},
		entries:            map[string]domain.LedgerEntry{},
		entryByKey:         map[string]string{},
		wallets:            map[string]domain.WalletBalance{},
		orders:             map[string]domain.PaymentOrder{},
		payments:           map[string]domain.VerifiedPayment{},
	}
}

func (s *state) clone() *state {
	out := &state{
		collaborations:     copyMap(s.collaborations),
		transitions:        make(map[string][]domain.FlowTransition, len(s.transitions)),
		settlements:        copyMap(s.settlements),
		settlementByCollab: copyMap(s.settlementByCollab),
		escrows:            copyMap(s.escrows),
		entries:            copyMap(s.entries),
		entryByKey:         copyMap(s.entryByKey),
		entryOrder:         append([]string(nil), s.entryOrder...),
		wallets:            copyMap(s.wallets),
		orders:             copyMap(s.orders),
		payments:           copyMap(s.payments),
		commission:         append([]domain.CommissionSetting(nil), s.commission...),
	}
	for k, v := range s.transitions {
		out.transitions[k] = append([]domain.FlowTransition(nil), v...)
	}
	return out
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Store serialises every unit of work behind one mutex. The outbox is kept
// outside the cloned state: a unit of work stages its events and they are
// appended only on commit, and relayed rows are dropped.
type Store struct {
	mu          sync.Mutex
	state       *state
	outbox      []outboxRow
	outboxIDs   map[uuid.UUID]struct{}
	idempotency *IdempotencyRepository
	eventDedup  *EventDedupRepository
}

func NewStore() *Store {
	return &Store{
		state:       newState(),
		outboxIDs:   map[uuid.UUID]struct{}{},
		idempotency: &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
		eventDedup:  &EventDedupRepository{rows: map[string]eventDedupRow{}},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := &tx{st: s.state.clone(), committed: s.outboxIDs}
	if err := fn(ctx, work); err != nil {
		return err
	}
	s.state = work.st
	for _, row := range work.staged {
		s.outbox = append(s.outbox, row)
		s.outboxIDs[row.record.OutboxID] = struct{}{}
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()
	return fn(ctx, &tx{st: snapshot})
}

func (s *Store) Idempotency() *IdempotencyRepository { return s.idempotency }

func (s *Store) EventDedup() *EventDedupRepository { return s.eventDedup }

func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{store: s} }

type tx struct {
	st        *state
	committed map[uuid.UUID]struct{}
	staged    []outboxRow
}

func (t *tx) Collaborations() ports.CollaborationRepository     { return collaborationRepo{t.st} }
func (t *tx) Transitions() ports.TransitionRepository           { return transitionRepo{t.st} }
func (t *tx) Settlements() ports.SettlementRepository           { return settlementRepo{t.st} }
func (t *tx) Escrows() ports.EscrowRepository                   { return escrowRepo{t.st} }
func (t *tx) Ledger() ports.LedgerRepository                    { return ledgerRepo{t.st} }
func (t *tx) Wallets() ports.WalletRepository                   { return walletRepo{t.st} }
func (t *tx) PaymentOrders() ports.PaymentOrderRepository       { return paymentOrderRepo{t.st} }
func (t *tx) VerifiedPayments() ports.VerifiedPaymentRepository { return verifiedPaymentRepo{t.st} }
func (t *tx) Commission() ports.CommissionRepository            { return commissionRepo{t.st} }
func (t *tx) Outbox() ports.OutboxWriter                        { return outboxWriter{t} }
