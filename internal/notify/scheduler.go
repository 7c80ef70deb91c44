package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/cuongbtq/printdesk/internal/pricing"
)

// DefaultDelay is the quiet period after the last upload before the summary goes out
const DefaultDelay = 30 * time.Second

// JobReader looks up the current job for a customer
type JobReader interface {
	Get(customerID string) (domain.Job, bool)
}

// Sender delivers a chat message
type Sender interface {
	SendText(ctx context.Context, customerID, text string) error
}

// Config holds scheduler configuration
type Config struct {
	Logger      *slog.Logger
	Jobs        JobReader
	Sender      Sender
	Formatter   pricing.Formatter
	Delay       time.Duration
	OwnerID     string
	NotifyOwner bool
}

// task is one armed notification; cancel is its cancellation token
type task struct {
	customerID string
	ctx        context.Context
	cancel     context.CancelFunc
	timer      *time.Timer
}

// Scheduler keeps at most one deferred "files received" notification per customer
type Scheduler struct {
	logger      *slog.Logger
	jobs        JobReader
	sender      Sender
	formatter   pricing.Formatter
	delay       time.Duration
	ownerID     string
	notifyOwner bool

	mu    sync.Mutex
	tasks map[string]*task
	base  context.Context
	stop  context.CancelFunc
	wg    sync.WaitGroup
}

// NewScheduler creates a notification scheduler
func NewScheduler(cfg *Config) *Scheduler {
	base, stop := context.WithCancel(context.Background())

	s := &Scheduler{
		logger:      cfg.Logger,
		jobs:        cfg.Jobs,
		sender:      cfg.Sender,
		formatter:   cfg.Formatter,
		delay:       cfg.Delay,
		ownerID:     cfg.OwnerID,
		notifyOwner: cfg.NotifyOwner && cfg.OwnerID != "",
		tasks:       make(map[string]*task),
		base:        base,
		stop:        stop,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.delay <= 0 {
		s.delay = DefaultDelay
	}
	return s
}

// Arm replaces any pending notification for the customer with a fresh one
func (s *Scheduler) Arm(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base.Err() != nil {
		return
	}

	s.cancelLocked(customerID)

	ctx, cancel := context.WithCancel(s.base)
	t := &task{customerID: customerID, ctx: ctx, cancel: cancel}
	s.wg.Add(1)
	t.timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.fire(t)
	})
	s.tasks[customerID] = t

	s.logger.Debug("Notification armed",
		slog.String("customer_id", customerID),
		slog.Duration("delay", s.delay),
	)
}

// Disarm cancels the customer's pending notification, if any
func (s *Scheduler) Disarm(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelLocked(customerID) {
		s.logger.Debug("Notification cancelled", slog.String("customer_id", customerID))
	}
}

// Pending reports whether a notification is armed for the customer
func (s *Scheduler) Pending(customerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[customerID]
	return ok
}

// cancelLocked must be called with s.mu held
func (s *Scheduler) cancelLocked(customerID string) bool {
	t, ok := s.tasks[customerID]
	if !ok {
		return false
	}
	t.cancel()
	if t.timer.Stop() {
		// the callback will never run, so release its WaitGroup slot here
		s.wg.Done()
	}
	delete(s.tasks, customerID)
	return true
}

func (s *Scheduler) fire(t *task) {
	s.mu.Lock()
	if t.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.tasks[t.customerID] == t {
		delete(s.tasks, t.customerID)
	}
	s.mu.Unlock()

	defer t.cancel()

	job, ok := s.jobs.Get(t.customerID)
	if !ok || len(job.Files) == 0 {
		s.logger.Debug("Notification skipped - no files",
			slog.String("customer_id", t.customerID),
		)
		return
	}

	if err := s.sender.SendText(t.ctx, t.customerID, s.formatter.FilesReceived(job.Files)); err != nil {
		s.logger.Error("Failed to send files received summary",
			slog.String("customer_id", t.customerID),
			slog.String("error", err.Error()),
		)
	}

	if s.notifyOwner {
		if err := s.sender.SendText(t.ctx, s.ownerID, s.formatter.OwnerFilesReceived(t.customerID, job.Files)); err != nil {
			s.logger.Error("Failed to notify owner of uploads",
				slog.String("customer_id", t.customerID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Files received summary sent",
		slog.String("customer_id", t.customerID),
		slog.Int("file_count", len(job.Files)),
	)
}

// Stop cancels every pending notification and waits for running ones to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id := range s.tasks {
		s.cancelLocked(id)
	}
	s.stop()
	s.mu.Unlock()

	s.wg.Wait()
}
