package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

// MemoryPath keeps the ledger in process memory only.
const MemoryPath = ":memory:"

// SQLiteStore implements OrderLedger using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the ledger at dbPath, creating it when missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = MemoryPath
	}
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == MemoryPath {
		dsn = dbPath + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == MemoryPath {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		branch_no TEXT,
		asset_class TEXT NOT NULL,
		environment TEXT NOT NULL,
		exchange TEXT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		status TEXT NOT NULL,
		tr_id TEXT,
		message TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
	CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveOrder inserts or replaces an order. Zero timestamps are stamped now.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *models.LedgerOrder) error {
	if order.ID == "" {
		return errors.NewValidationError("id", "", "must not be empty")
	}
	now := s.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders (id, branch_no, asset_class, environment, exchange, symbol, side, kind, quantity, price, status, tr_id, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, order.ID, order.BranchNo, order.AssetClass, order.Environment, order.Exchange, order.Symbol, order.Side, order.Kind,
		order.Quantity, order.Price.String(), order.Status, order.TransactionCode, order.Message, order.CreatedAt.UTC(), order.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save order: %w: %v", errors.ErrDatabaseError, err)
	}
	return nil
}

const orderColumns = "id, branch_no, asset_class, environment, exchange, symbol, side, kind, quantity, price, status, tr_id, message, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.LedgerOrder, error) {
	var (
		o                           models.LedgerOrder
		branch, exchange, tr, msg   sql.NullString
		assetClass, env, side, kind string
		price                       string
	)
	if err := row.Scan(&o.ID, &branch, &assetClass, &env, &exchange, &o.Symbol, &side, &kind,
		&o.Quantity, &price, &o.Status, &tr, &msg, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("order %s has invalid price %q: %w", o.ID, price, err)
	}
	o.Price = p
	o.BranchNo = branch.String
	o.AssetClass = models.AssetClass(assetClass)
	o.Environment = models.Environment(env)
	o.Exchange = models.Exchange(exchange.String)
	o.Side = models.Side(side)
	o.Kind = models.PriceKind(kind)
	o.TransactionCode = tr.String
	o.Message = msg.String
	return &o, nil
}

// GetOrder returns one order, or ErrOrderNotFound.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*models.LedgerOrder, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", errors.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListOrders returns orders newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.LedgerOrder, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE 1=1"
	args := []interface{}{}

	if filter.AssetClass != "" {
		query += " AND asset_class = ?"
		args = append(args, filter.AssetClass)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.LedgerOrder{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	return orders, rows.Err()
}

// UpdateOrderStatus records a revise, cancel or rejection of an order.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id, status, message string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, message = ?, updated_at = ? WHERE id = ?
	`, status, message, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", errors.ErrOrderNotFound, id)
	}

	return nil
}
