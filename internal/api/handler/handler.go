package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/cuongbtq/printdesk/internal/gateway"
	"github.com/cuongbtq/printdesk/internal/workflow"
	"github.com/shopspring/decimal"
)

// JobStore is the view of the in-memory job registry used by the API
type JobStore interface {
	List() []domain.Job
	Get(customerID string) (domain.Job, bool)
	DeleteIf(customerID string, allow func(domain.State) bool) (domain.Job, bool)
	SweepExpired(ctx context.Context, now time.Time) int
}

// Canceler abandons a job that has not started printing
type Canceler interface {
	Cancel(customerID string) (domain.Job, error)
}

// EventDispatcher hands chat events to the workflow
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev *gateway.Event) (workflow.Result, error)
}

// OrderLister reads the completed-order ledger
type OrderLister interface {
	ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
}

// StorageCleaner removes a customer's files
type StorageCleaner interface {
	DeleteCustomerStorage(customerID string) error
}

// Disarmer cancels a pending upload summary
type Disarmer interface {
	Disarm(customerID string)
}

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	ServiceName    string
	Jobs           JobStore
	Canceler       Canceler
	Events         EventDispatcher
	Orders         OrderLister // nil when the ledger is disabled
	Cleaner        StorageCleaner
	Notifier       Disarmer
	Rate           decimal.Decimal
	MaxUploadBytes int64
	HealthChecks   map[string]HealthCheck
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger   *slog.Logger
	jobs     JobStore
	canceler Canceler
	cleaner  StorageCleaner
	notifier Disarmer
	rate     decimal.Decimal
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:   deps.Logger,
		jobs:     deps.Jobs,
		canceler: deps.Canceler,
		cleaner:  deps.Cleaner,
		notifier: deps.Notifier,
		rate:     deps.Rate,
	}
}

// EventHandler accepts chat events over HTTP
type EventHandler struct {
	logger         *slog.Logger
	events         EventDispatcher
	maxUploadBytes int64
}

// NewEventHandler creates a new EventHandler instance
func NewEventHandler(deps *Dependencies) *EventHandler {
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &EventHandler{
		logger:         deps.Logger,
		events:         deps.Events,
		maxUploadBytes: maxUpload,
	}
}

// OrderHandler serves the order ledger
type OrderHandler struct {
	logger *slog.Logger
	orders OrderLister
}

// NewOrderHandler creates a new OrderHandler instance
func NewOrderHandler(deps *Dependencies) *OrderHandler {
	return &OrderHandler{
		logger: deps.Logger,
		orders: deps.Orders,
	}
}
