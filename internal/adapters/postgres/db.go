package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockKey serialises schema changes between the api and worker
// processes, which both migrate on start.
const migrationLockKey int64 = 46_000_001

const migrationTable = "settlement_schema_migrations"

// Connect opens the pool. Statements are not prepared because migrations
// carry several commands per file.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(int(maxConns))
		sqlDB.SetMaxIdleConns(max(1, int(maxConns)/2))
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func migrationNames() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// pendingMigrations keeps lexical order and drops names already recorded.
func pendingMigrations(all, applied []string) []string {
	done := make(map[string]struct{}, len(applied))
	for _, name := range applied {
		done[name] = struct{}{}
	}
	out := make([]string, 0, len(all))
	for _, name := range all {
		if _, ok := done[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// RunMigrations applies embedded migrations not yet recorded in the
// migration table. The whole run holds a transaction-scoped advisory lock,
// and each file commits with its ledger row.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}
	logger := slog.Default()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		if err := tx.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`).Error; err != nil {
			return fmt.Errorf("create migration table: %w", err)
		}
		var applied []string
		if err := tx.Table(migrationTable).Order("name").Pluck("name", &applied).Error; err != nil {
			return fmt.Errorf("read applied migrations: %w", err)
		}
		pending := pendingMigrations(names, applied)
		for _, name := range pending {
			raw, err := migrationFS.ReadFile("migrations/" + name)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}
			err = tx.Transaction(func(step *gorm.DB) error {
				if err := step.Exec(string(raw)).Error; err != nil {
					return err
				}
				return step.Exec("INSERT INTO "+migrationTable+" (name) VALUES (?)", name).Error
			})
			if err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			logger.InfoContext(ctx, "migration applied",
				"module", "postgres",
				"layer", "adapter",
				"operation", "apply_migration",
				"outcome", "success",
				"migration", name,
			)
		}
		logger.InfoContext(ctx, "postgres schema current",
			"module", "postgres",
			"layer", "adapter",
			"operation", "run_migrations",
			"outcome", "success",
			"applied", len(pending),
			"skipped", len(names)-len(pending),
		)
		return nil
	})
}
