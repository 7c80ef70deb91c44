package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is the period between retention sweeps
const DefaultSweepInterval = time.Hour

// Sweeper periodically reclaims expired jobs
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewSweeper creates a sweeper for the store
func NewSweeper(s *Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = s.logger
	}
	return &Sweeper{
		store:    s,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop; it runs until ctx is canceled or Stop is called
func (w *Sweeper) Start(ctx context.Context) {
	w.logger.Info("Starting job sweeper", slog.Duration("interval", w.interval))

	w.wg.Add(1)
	go w.loop(ctx)
}

func (w *Sweeper) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Job sweeper stopped - context canceled")
			return
		case <-w.stopChan:
			w.logger.Info("Job sweeper stopped")
			return
		case <-ticker.C:
			w.store.SweepExpired(ctx, w.store.now())
		}
	}
}

// Stop halts the loop and waits for it to exit
func (w *Sweeper) Stop() {
	w.once.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
}
