/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists the catalog, the partner directory and the batch ledger. Every
  ledger operation runs inside one database transaction, so a failed
  resale or reversal leaves no partial rows behind.

KEY TABLES:
  products:            Catalog with warehouse stock
  partners:            Reseller directory with current tier
  orders:              Order headers (receivable/collected split)
  order_batches:       Order lines; seq is the FIFO order
  resale_reports:      Partner resales to end customers
  resale_consumptions: Which batches each resale drew from

INDEXES:
  - idx_batches_partner_product_open: FIFO walk (hot path)
  - idx_orders_created / idx_reports_created: period reports
  - idx_consumptions_order: reverse-order guard

CONCURRENCY:
  Uses sync.RWMutex for thread-safety: WithTx is exclusive, View is
  shared. The pool is limited to one connection, which also keeps a
  ":memory:" database from splitting into one database per connection.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

STORAGE FORMATS:
  - Money: decimal text, never REAL
  - Time:  fixed-width UTC text, so string order is time order

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/partner-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		stock_on_hand INTEGER NOT NULL CHECK (stock_on_hand >= 0),
		initial_stock INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS partners (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		tier TEXT NOT NULL,
		is_vip INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Samples have no partner.
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		partner_id TEXT REFERENCES partners(id),
		total_receivable TEXT NOT NULL,
		total_collected TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		is_sample INTEGER NOT NULL DEFAULT 0,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_partner
		ON orders(partner_id);
	CREATE INDEX IF NOT EXISTS idx_orders_created
		ON orders(created_at);

	-- seq is the FIFO order: assigned on insert, never reused.
	CREATE TABLE IF NOT EXISTS order_batches (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		partner_id TEXT REFERENCES partners(id),
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity_original INTEGER NOT NULL CHECK (quantity_original > 0),
		quantity_remaining INTEGER NOT NULL
			CHECK (quantity_remaining >= 0 AND quantity_remaining <= quantity_original),
		unit_value_at_time TEXT NOT NULL,
		tier_at_order TEXT,
		payment_method TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_order
		ON order_batches(order_id);
	CREATE INDEX IF NOT EXISTS idx_batches_partner_product_open
		ON order_batches(partner_id, product_id, seq) WHERE quantity_remaining > 0;

	CREATE TABLE IF NOT EXISTS resale_reports (
		id TEXT PRIMARY KEY,
		partner_id TEXT NOT NULL REFERENCES partners(id),
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity_sold INTEGER NOT NULL CHECK (quantity_sold > 0),
		total_sale_value TEXT NOT NULL,
		unit_cost_basis TEXT NOT NULL,
		commission_per_unit TEXT NOT NULL,
		base_price_at_time TEXT NOT NULL,
		commission_paid INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_partner
		ON resale_reports(partner_id);
	CREATE INDEX IF NOT EXISTS idx_reports_created
		ON resale_reports(created_at);

	CREATE TABLE IF NOT EXISTS resale_consumptions (
		report_id TEXT NOT NULL REFERENCES resale_reports(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		batch_id TEXT NOT NULL REFERENCES order_batches(id),
		order_id TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_value TEXT NOT NULL,
		shifted TEXT NOT NULL,
		PRIMARY KEY (report_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_consumptions_batch
		ON resale_consumptions(batch_id);
	CREATE INDEX IF NOT EXISTS idx_consumptions_order
		ON resale_consumptions(order_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS (ledger.Store interface)
// =============================================================================

// View runs fn inside a read transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(ledger.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(&txStore{q: sqlTx})
}

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is the subset of *sql.Tx the statements need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txStore struct {
	q querier
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"resale_consumptions", "resale_reports", "order_batches", "orders", "partners", "products"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isCheckConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// writeErr maps constraint failures onto ledger errors.
func writeErr(op string, err error) error {
	switch {
	case isUniqueConstraintError(err), isCheckConstraintError(err):
		return fmt.Errorf("%w: %s: %v", ledger.ErrValidation, op, err)
	case isForeignKeyError(err):
		return fmt.Errorf("%w: %s: %v", ledger.ErrEntityNotFound, op, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// periodClause appends inclusive bounds on col for the non-zero ends of p.
func periodClause(where []string, args []any, col string, p ledger.Period) ([]string, []any) {
	if !p.Start.IsZero() {
		where = append(where, col+" >= ?")
		args = append(args, formatTime(p.Start))
	}
	if !p.End.IsZero() {
		where = append(where, col+" <= ?")
		args = append(args, formatTime(p.End))
	}
	return where, args
}

func whereSQL(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}
