package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
)

// DefaultRetention is how long a job lives before the sweep reclaims it
const DefaultRetention = 24 * time.Hour

// StorageCleaner removes a customer's on-disk artifacts
type StorageCleaner interface {
	DeleteCustomerStorage(customerID string) error
}

// Config holds job store configuration
type Config struct {
	Logger    *slog.Logger
	Cleaner   StorageCleaner
	Retention time.Duration
	Clock     func() time.Time
}

// Store is the in-memory registry of one active job per customer
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	logger    *slog.Logger
	cleaner   StorageCleaner
	retention time.Duration
	now       func() time.Time
}

// New creates a new job store
func New(cfg *Config) *Store {
	s := &Store{
		jobs:      make(map[string]*domain.Job),
		logger:    cfg.Logger,
		cleaner:   cfg.Cleaner,
		retention: cfg.Retention,
		now:       cfg.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// getOrCreateLocked must be called with the write lock held
func (s *Store) getOrCreateLocked(customerID string) *domain.Job {
	job, ok := s.jobs[customerID]
	if !ok {
		job = domain.NewJob(customerID, s.now(), s.retention)
		s.jobs[customerID] = job
		s.logger.Info("Created new job",
			slog.String("customer_id", customerID),
			slog.Time("expires_at", job.ExpiresAt),
		)
	}
	return job
}

// GetOrCreate returns the customer's job, creating a PENDING one if needed
func (s *Store) GetOrCreate(customerID string) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(customerID).Clone()
}

// Get returns a snapshot of the customer's job
func (s *Store) Get(customerID string) (domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[customerID]
	if !ok {
		return domain.Job{}, false
	}
	return job.Clone(), true
}

// SetState updates the job state; it is a no-op when the job is absent
func (s *Store) SetState(customerID string, state domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[customerID]
	if !ok {
		return
	}
	s.setStateLocked(job, state)
}

func (s *Store) setStateLocked(job *domain.Job, state domain.State) {
	prev := job.State
	job.State = state
	job.LastActivityAt = s.now()
	s.logger.Info("Updated job state",
		slog.String("customer_id", job.CustomerID),
		slog.String("from", string(prev)),
		slog.String("to", string(state)),
	)
}

// AddFile appends an uploaded file, starting a fresh order if the previous one finished
func (s *Store) AddFile(customerID string, file domain.FileDescriptor) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.getOrCreateLocked(customerID)
	if job.State.Terminal() {
		s.logger.Info("Resetting finished job for new upload",
			slog.String("customer_id", customerID),
			slog.String("previous_state", string(job.State)),
		)
		*job = *domain.NewJob(customerID, s.now(), s.retention)
	}

	job.Files = append(job.Files, file)
	job.LastActivityAt = s.now()

	s.logger.Info("Added file to job",
		slog.String("customer_id", customerID),
		slog.String("file_name", file.FileName),
		slog.Int("file_count", len(job.Files)),
	)

	return job.Clone()
}

// Update applies fn to the job atomically; an error from fn leaves the job untouched
func (s *Store) Update(customerID string, fn func(job *domain.Job) error) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[customerID]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}

	working := job.Clone()
	if err := fn(&working); err != nil {
		return job.Clone(), err
	}

	for name := range working.Excluded {
		if !working.HasFile(name) {
			return job.Clone(), fmt.Errorf("excluded file %q is not part of the job", name)
		}
	}

	if working.State != job.State {
		s.logger.Info("Updated job state",
			slog.String("customer_id", customerID),
			slog.String("from", string(job.State)),
			slog.String("to", string(working.State)),
		)
	}
	working.LastActivityAt = s.now()
	*job = working

	return job.Clone(), nil
}

// Transition moves the job to state `to` only if it currently sits in one of `from`
func (s *Store) Transition(customerID string, from []domain.State, to domain.State) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[customerID]
	if !ok {
		return domain.Job{}, false
	}

	for _, st := range from {
		if job.State == st {
			s.setStateLocked(job, to)
			return job.Clone(), true
		}
	}
	return job.Clone(), false
}

// Delete removes the job; on-disk files are left to the caller
func (s *Store) Delete(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[customerID]; ok {
		delete(s.jobs, customerID)
		s.logger.Info("Deleted job", slog.String("customer_id", customerID))
	}
}

// DeleteIfState removes the job only while it is still in the given state
func (s *Store) DeleteIfState(customerID string, state domain.State) bool {
	_, ok := s.DeleteIf(customerID, func(current domain.State) bool {
		return current == state
	})
	return ok
}

// DeleteIf removes the job when allow accepts its current state.
// The returned snapshot is the removed job, or the kept one when refused;
// it is empty when no job exists.
func (s *Store) DeleteIf(customerID string, allow func(domain.State) bool) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[customerID]
	if !ok {
		return domain.Job{}, false
	}
	if !allow(job.State) {
		return job.Clone(), false
	}

	delete(s.jobs, customerID)
	s.logger.Info("Deleted job",
		slog.String("customer_id", customerID),
		slog.String("state", string(job.State)),
	)
	return job.Clone(), true
}

// List returns snapshots of all jobs ordered by customer id
func (s *Store) List() []domain.Job {
	s.mu.RLock()
	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CustomerID < jobs[j].CustomerID
	})
	return jobs
}

// Len returns the number of tracked jobs
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// SweepExpired removes every job whose expiry is before now, together with its files
func (s *Store) SweepExpired(ctx context.Context, now time.Time) int {
	s.mu.RLock()
	var expired []string
	for id, job := range s.jobs {
		if job.ExpiresAt.Before(now) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	cleaned := 0
	for _, customerID := range expired {
		if ctx.Err() != nil {
			break
		}

		if s.cleaner != nil {
			if err := s.cleaner.DeleteCustomerStorage(customerID); err != nil {
				s.logger.Error("Failed to delete customer storage",
					slog.String("customer_id", customerID),
					slog.String("error", err.Error()),
				)
			}
		}

		s.mu.Lock()
		if job, ok := s.jobs[customerID]; ok && job.ExpiresAt.Before(now) {
			delete(s.jobs, customerID)
			cleaned++
			s.logger.Info("Cleaned up expired job",
				slog.String("customer_id", customerID),
				slog.String("state", string(job.State)),
			)
		}
		s.mu.Unlock()
	}

	if cleaned > 0 {
		s.logger.Info("Expired jobs swept", slog.Int("count", cleaned))
	}
	return cleaned
}
