package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

const schema = `
	CREATE TABLE IF NOT EXISTS print_orders (
		order_id     UUID PRIMARY KEY,
		customer_id  TEXT NOT NULL,
		file_count   INTEGER NOT NULL,
		total_pages  INTEGER NOT NULL,
		total_cost   NUMERIC(10, 2) NOT NULL,
		file_names   TEXT[] NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_print_orders_customer_completed
		ON print_orders (customer_id, completed_at DESC);
`

// orderRow is the print_orders row layout
type orderRow struct {
	OrderID     string          `db:"order_id"`
	CustomerID  string          `db:"customer_id"`
	FileCount   int             `db:"file_count"`
	TotalPages  int             `db:"total_pages"`
	TotalCost   decimal.Decimal `db:"total_cost"`
	FileNames   pq.StringArray  `db:"file_names"`
	CompletedAt time.Time       `db:"completed_at"`
}

// Ledger records completed print orders in PostgreSQL.
// Jobs themselves stay in memory; this is only an audit trail.
type Ledger struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a ledger over an open database handle
func New(db *sqlx.DB, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the print_orders table if it does not exist
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create print_orders table: %w", err)
	}
	return nil
}

// RecordOrder inserts a completed order
func (l *Ledger) RecordOrder(ctx context.Context, order domain.Order) error {
	query := `
		INSERT INTO print_orders (
			order_id, customer_id, file_count, total_pages,
			total_cost, file_names, completed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err := l.db.ExecContext(
		ctx,
		query,
		order.OrderID,
		order.CustomerID,
		order.FileCount,
		order.TotalPages,
		order.TotalCost,
		pq.Array(order.FileNames),
		order.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}

	l.logger.Info("Recorded order",
		slog.String("order_id", order.OrderID),
		slog.String("customer_id", order.CustomerID),
		slog.Int("total_pages", order.TotalPages),
	)
	return nil
}

// ListOrders returns the most recent orders, optionally for one customer
func (l *Ledger) ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT
			order_id, customer_id, file_count, total_pages,
			total_cost, file_names, completed_at
		FROM print_orders
	`
	args := []interface{}{}
	if customerID != "" {
		query += " WHERE customer_id = $1 ORDER BY completed_at DESC LIMIT $2"
		args = append(args, customerID, limit)
	} else {
		query += " ORDER BY completed_at DESC LIMIT $1"
		args = append(args, limit)
	}

	var rows []orderRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]domain.Order, len(rows))
	for i, r := range rows {
		orders[i] = domain.Order{
			OrderID:     r.OrderID,
			CustomerID:  r.CustomerID,
			FileNames:   []string(r.FileNames),
			FileCount:   r.FileCount,
			TotalPages:  r.TotalPages,
			TotalCost:   r.TotalCost,
			CompletedAt: r.CompletedAt,
		}
	}
	return orders, nil
}
