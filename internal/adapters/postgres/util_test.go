package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "ledger_entries_idempotency_key_key"`)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("get: %w", gorm.ErrRecordNotFound)))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestMigrationCarriesSettlementInvariants(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/0001_init.sql")
	assert.NoError(t, err)
	sql := string(raw)
	for _, fragment := range []string{
		"CHECK (commission_amount + net_amount = total_amount)",
		"CHECK (advance_amount + final_amount = net_amount)",
		"CHECK (released_amount + refunded_amount <= original_amount)",
		"idempotency_key TEXT NOT NULL UNIQUE",
		"uq_commission_settings_active",
	} {
		assert.Contains(t, sql, fragment)
	}
}

func TestPendingMigrationsSkipsApplied(t *testing.T) {
	names, err := migrationNames()
	assert.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql"}, names)

	all := []string{"0001_init.sql", "0002_payout_index.sql", "0003_refund_reason.sql"}
	assert.Equal(t, all, pendingMigrations(all, nil))
	assert.Equal(t, []string{"0002_payout_index.sql", "0003_refund_reason.sql"}, pendingMigrations(all, []string{"0001_init.sql"}))
	assert.Empty(t, pendingMigrations(all, all))
}
