/*
Package sqlite provides the SQLite-backed record store.

PURPOSE:
  Implements every persistence contract in core (CustomerStore,
  BookingStore, OrderStore, Querier, TxStore) using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  customers, locations, products, ticket_types, party_packages,
  package_inclusions, resources, policies:  catalog/CRM records
  party_bookings:     the central scheduling entity
  party_reschedules:  append-only schedule-change audit trail
  orders, order_items: order ledger with running totals
  payments, refunds:  append-only money trail

DB-LEVEL INVARIANTS:
  - order_items CHECK: exactly one of product_id/ticket_type_id/
    booking_id is set per row
  - idx_bookings_resource_window: makes the conflict query an index scan

CONCURRENCY:
  sync.RWMutex guards the connection; WithTx additionally holds the
  write lock for the whole transaction, so a conflict check and the
  insert it guards execute as one atomic unit. Two concurrent booking
  attempts on the same room serialize here - the loser's check sees the
  winner's committed row.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, single writer at a time, better crash recovery.

TIME AND MONEY:
  Timestamps are stored as RFC3339 UTC text (lexicographic order ==
  chronological order, which the window queries rely on). Money is
  bound from decimal.Decimal strings into NUMERIC columns and parsed
  back through decimal on scan.

ERROR MAPPING:
  Driver failures surface as core.ErrTransport wrapped with the
  operation; undecodable stored values surface as core.ErrDataIntegrity.

USAGE:
  store, err := sqlite.New("./data/venue.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - core/store.go: Interface definitions
  - bookings.go, orders.go: Domain record methods
  - query.go: Generic filtered-query implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/funzone/venue-engine/core"
)

// Store implements core.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ core.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

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
	-- Customers (one record per household)
	CREATE TABLE IF NOT EXISTS customers (
		customer_id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		guardian_name TEXT,
		child_name TEXT,
		child_birthdate TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- Locations
	CREATE TABLE IF NOT EXISTS locations (
		location_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address_line TEXT,
		city TEXT,
		state TEXT,
		postal_code TEXT,
		country TEXT,
		phone TEXT,
		email TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Products (read-only from the core's perspective)
	CREATE TABLE IF NOT EXISTS products (
		product_id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_name TEXT NOT NULL,
		brand TEXT,
		sku TEXT,
		category TEXT,
		age_group TEXT,
		material TEXT,
		color TEXT,
		country TEXT,
		description TEXT,
		features TEXT,
		price_usd NUMERIC NOT NULL,
		stock_qty INTEGER NOT NULL DEFAULT 0,
		rating REAL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_products_active
		ON products(is_active);

	-- Admission ticket types
	CREATE TABLE IF NOT EXISTS ticket_types (
		ticket_type_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		base_price_usd NUMERIC NOT NULL,
		location_id INTEGER REFERENCES locations(location_id),
		requires_waiver BOOLEAN NOT NULL DEFAULT FALSE,
		requires_grip_socks BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Party packages and their inclusion lists
	CREATE TABLE IF NOT EXISTS party_packages (
		package_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price_usd NUMERIC NOT NULL,
		base_children INTEGER NOT NULL DEFAULT 0,
		base_room_hours REAL NOT NULL DEFAULT 0,
		includes_food BOOLEAN NOT NULL DEFAULT FALSE,
		includes_drinks BOOLEAN NOT NULL DEFAULT FALSE,
		includes_decor BOOLEAN NOT NULL DEFAULT FALSE,
		location_id INTEGER REFERENCES locations(location_id),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS package_inclusions (
		inclusion_id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_id INTEGER NOT NULL REFERENCES party_packages(package_id),
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_inclusions_package
		ON package_inclusions(package_id);

	-- Resources (bookable party rooms)
	CREATE TABLE IF NOT EXISTS resources (
		resource_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		location_id INTEGER REFERENCES locations(location_id)
	);

	-- Store policy notes
	CREATE TABLE IF NOT EXISTS policies (
		policy_id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Party bookings (never deleted; lifecycle via status)
	CREATE TABLE IF NOT EXISTS party_bookings (
		booking_id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_id INTEGER NOT NULL REFERENCES party_packages(package_id),
		resource_id INTEGER NOT NULL REFERENCES resources(resource_id),
		customer_id INTEGER NOT NULL REFERENCES customers(customer_id),
		scheduled_start TEXT NOT NULL,
		scheduled_end TEXT NOT NULL,
		status TEXT NOT NULL,
		additional_kids INTEGER NOT NULL DEFAULT 0,
		additional_guests INTEGER NOT NULL DEFAULT 0,
		special_requests TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: the conflict query filters by resource and window bounds
	CREATE INDEX IF NOT EXISTS idx_bookings_resource_window
		ON party_bookings(resource_id, scheduled_start, scheduled_end);
	CREATE INDEX IF NOT EXISTS idx_bookings_status
		ON party_bookings(status);

	-- Reschedule audit trail (append-only)
	CREATE TABLE IF NOT EXISTS party_reschedules (
		reschedule_id INTEGER PRIMARY KEY AUTOINCREMENT,
		booking_id INTEGER NOT NULL REFERENCES party_bookings(booking_id),
		old_start TEXT NOT NULL,
		old_end TEXT NOT NULL,
		new_start TEXT NOT NULL,
		new_end TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reschedules_booking
		ON party_reschedules(booking_id);

	-- Orders (never deleted; running totals maintained transactionally)
	CREATE TABLE IF NOT EXISTS orders (
		order_id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES customers(customer_id),
		location_id INTEGER REFERENCES locations(location_id),
		order_type TEXT NOT NULL,
		status TEXT NOT NULL,
		subtotal_usd NUMERIC NOT NULL,
		discount_usd NUMERIC NOT NULL DEFAULT 0,
		tax_usd NUMERIC NOT NULL DEFAULT 0,
		total_usd NUMERIC NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer
		ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status
		ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_created
		ON orders(created_at DESC);

	-- Order items (immutable once created)
	-- CRITICAL: exactly one reference slot is set per row
	CREATE TABLE IF NOT EXISTS order_items (
		order_item_id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL REFERENCES orders(order_id),
		item_type TEXT NOT NULL,
		product_id INTEGER REFERENCES products(product_id),
		ticket_type_id INTEGER REFERENCES ticket_types(ticket_type_id),
		booking_id INTEGER REFERENCES party_bookings(booking_id),
		name_override TEXT,
		quantity INTEGER NOT NULL,
		unit_price_usd NUMERIC NOT NULL,
		line_total_usd NUMERIC NOT NULL,
		CHECK ((product_id IS NOT NULL) + (ticket_type_id IS NOT NULL) + (booking_id IS NOT NULL) = 1)
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order
		ON order_items(order_id);

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		payment_id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL REFERENCES orders(order_id),
		provider TEXT NOT NULL,
		provider_payment_id TEXT,
		status TEXT NOT NULL,
		amount_usd NUMERIC NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_order
		ON payments(order_id);

	-- Refunds (append-only)
	CREATE TABLE IF NOT EXISTS refunds (
		refund_id INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_id INTEGER REFERENCES payments(payment_id),
		order_id INTEGER NOT NULL REFERENCES orders(order_id),
		status TEXT NOT NULL,
		reason TEXT,
		amount_usd NUMERIC NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refunds_order
		ON refunds(order_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (core.TxStore interface)
// =============================================================================

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx executes fn within a database transaction, holding the write
// lock for its duration. Check-and-write sequences (booking conflicts,
// order totals) MUST run through here.
func (s *Store) WithTx(ctx context.Context, fn func(core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.TransportErrorf("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{h: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return core.TransportErrorf("commit transaction", err)
	}
	return nil
}

// txStore runs every operation on the open transaction. No locking:
// WithTx already holds the write lock.
type txStore struct {
	h *sql.Tx
}

var _ core.Store = (*txStore)(nil)

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *Store) InsertCustomer(ctx context.Context, c core.Customer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCustomer(ctx, s.db, c)
}

func (t *txStore) InsertCustomer(ctx context.Context, c core.Customer) (int64, error) {
	return insertCustomer(ctx, t.h, c)
}

func insertCustomer(ctx context.Context, h dbtx, c core.Customer) (int64, error) {
	res, err := h.ExecContext(ctx, `
		INSERT INTO customers
		(full_name, email, phone, guardian_name, child_name, child_birthdate, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FullName,
		nullString(c.Email),
		nullString(c.Phone),
		nullString(c.GuardianName),
		nullString(c.ChildName),
		nullString(c.ChildBirthdate),
		nullString(c.Notes),
		fmtTime(time.Now()),
	)
	if err != nil {
		return 0, core.TransportErrorf("insert customers", err)
	}
	return lastID(res, "insert customers")
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*core.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCustomer(ctx, s.db, id)
}

func (t *txStore) GetCustomer(ctx context.Context, id int64) (*core.Customer, error) {
	return getCustomer(ctx, t.h, id)
}

func getCustomer(ctx context.Context, h dbtx, id int64) (*core.Customer, error) {
	var (
		c                                          core.Customer
		email, phone, guardian, child, birth, note sql.NullString
		createdAt                                  string
	)
	err := h.QueryRowContext(ctx, `
		SELECT customer_id, full_name, email, phone, guardian_name, child_name,
		       child_birthdate, notes, created_at
		FROM customers WHERE customer_id = ?`, id,
	).Scan(&c.ID, &c.FullName, &email, &phone, &guardian, &child, &birth, &note, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, core.TransportErrorf("select customers", err)
	}

	c.Email = email.String
	c.Phone = phone.String
	c.GuardianName = guardian.String
	c.ChildName = child.String
	c.ChildBirthdate = birth.String
	c.Notes = note.String
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"refunds", "payments", "order_items", "orders",
		"party_reschedules", "party_bookings",
		"package_inclusions", "party_packages", "ticket_types",
		"products", "resources", "policies", "customers", "locations",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return core.TransportErrorf("reset "+table, err)
		}
	}
	return nil
}

// Helper functions

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime reads stored RFC3339 text; offsets such as +00:00 come back
// normalized to UTC so the Z designator and the offset notation are
// interchangeable.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, core.IntegrityErrorf("money value %q is not decimal", s)
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func lastID(res sql.Result, op string) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.TransportErrorf(op, err)
	}
	return id, nil
}
