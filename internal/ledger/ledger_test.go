package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "postgres"), slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestEnsureSchema(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS print_orders")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, l.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOrder(t *testing.T) {
	l, mock := newMockLedger(t)
	order := domain.Order{
		OrderID:     "3f2b8c1e-6d4a-4c8e-9b7f-2a1d5e6f7a8b",
		CustomerID:  "628111",
		FileNames:   []string{"a.pdf", "b.pdf"},
		FileCount:   2,
		TotalPages:  6,
		TotalCost:   decimal.RequireFromString("3.00"),
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO print_orders")).
		WithArgs(order.OrderID, order.CustomerID, 2, 6, sqlmock.AnyArg(), sqlmock.AnyArg(), order.CompletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, l.RecordOrder(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOrder_Error(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO print_orders")).
		WillReturnError(errors.New("connection refused"))

	err := l.RecordOrder(context.Background(), domain.Order{OrderID: "x"})
	assert.ErrorContains(t, err, "failed to record order")
}

func TestListOrders(t *testing.T) {
	completed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	columns := []string{"order_id", "customer_id", "file_count", "total_pages", "total_cost", "file_names", "completed_at"}

	t.Run("by customer", func(t *testing.T) {
		l, mock := newMockLedger(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE customer_id = $1 ORDER BY completed_at DESC LIMIT $2")).
			WithArgs("628111", 10).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("3f2b8c1e-6d4a-4c8e-9b7f-2a1d5e6f7a8b", "628111", 1, 4, "2.00", "{b.pdf}", completed))

		orders, err := l.ListOrders(context.Background(), "628111", 10)
		require.NoError(t, err)
		require.Len(t, orders, 1)

		assert.Equal(t, "628111", orders[0].CustomerID)
		assert.Equal(t, []string{"b.pdf"}, orders[0].FileNames)
		assert.Equal(t, 4, orders[0].TotalPages)
		assert.True(t, orders[0].TotalCost.Equal(decimal.RequireFromString("2")))
		assert.True(t, orders[0].CompletedAt.Equal(completed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all customers with default limit", func(t *testing.T) {
		l, mock := newMockLedger(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM print_orders")).
			WithArgs(defaultListLimit).
			WillReturnRows(sqlmock.NewRows(columns))

		orders, err := l.ListOrders(context.Background(), "", 0)
		require.NoError(t, err)
		assert.Empty(t, orders)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit is capped", func(t *testing.T) {
		l, mock := newMockLedger(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM print_orders")).
			WithArgs(maxListLimit).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := l.ListOrders(context.Background(), "", 10000)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
