package gateway

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/cuongbtq/printdesk/internal/workflow"
)

// ErrDispatcherStopped is returned when an event arrives after shutdown began
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Handler consumes validated events
type Handler interface {
	HandleText(ctx context.Context, customerID, text string) workflow.Result
	HandleFile(ctx context.Context, customerID, fileName, mimeType string, content []byte) workflow.Result
}

// DispatcherConfig holds dispatcher configuration
type DispatcherConfig struct {
	Logger      *slog.Logger
	Handler     Handler
	Concurrency int
	QueueSize   int
}

type task struct {
	event *Event
	done  func(workflow.Result)
}

// Dispatcher routes events to a fixed pool of workers by customer,
// so events of one customer are handled one at a time and in order.
type Dispatcher struct {
	logger   *slog.Logger
	handler  Handler
	shards   []chan *task
	wg       sync.WaitGroup
	stopChan chan struct{}
	once     sync.Once
}

// NewDispatcher creates a dispatcher; call Start before submitting events
func NewDispatcher(cfg *DispatcherConfig) *Dispatcher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 16
	}

	d := &Dispatcher{
		logger:   cfg.Logger,
		handler:  cfg.Handler,
		shards:   make([]chan *task, concurrency),
		stopChan: make(chan struct{}),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	for i := range d.shards {
		d.shards[i] = make(chan *task, queueSize)
	}
	return d
}

// ShardFor maps a customer to one of n workers
func ShardFor(customerID string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(customerID))
	return int(h.Sum32() % uint32(n))
}

// Start spawns the worker goroutines
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Spawning event workers", slog.Int("concurrency", len(d.shards)))

	for i := range d.shards {
		d.wg.Add(1)
		go d.workerLoop(ctx, i)
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context, workerNum int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopChan:
			d.logger.Debug("Event worker stopping", slog.Int("worker_num", workerNum))
			return

		case <-ctx.Done():
			d.logger.Debug("Event worker stopping - context canceled", slog.Int("worker_num", workerNum))
			return

		case t := <-d.shards[workerNum]:
			res := d.handle(ctx, t.event)
			if t.done != nil {
				t.done(res)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev *Event) workflow.Result {
	logger := d.logger.With(
		slog.String("event_id", ev.EventID),
		slog.String("customer_id", ev.CustomerID),
		slog.String("type", ev.Type),
	)

	var res workflow.Result
	switch ev.Type {
	case EventTypeFile:
		res = d.handler.HandleFile(ctx, ev.CustomerID, ev.FileName, ev.MimeType, ev.Data)
	default:
		res = d.handler.HandleText(ctx, ev.CustomerID, ev.Text)
	}

	if res.Err != nil {
		logger.Info("Event handled with error",
			slog.String("state", string(res.State)),
			slog.String("error", res.Err.Error()),
		)
	} else {
		logger.Debug("Event handled", slog.String("state", string(res.State)))
	}
	return res
}

// Submit queues an event on its customer's worker; done runs after handling
func (d *Dispatcher) Submit(ctx context.Context, ev *Event, done func(workflow.Result)) error {
	t := &task{event: ev, done: done}
	shard := d.shards[ShardFor(ev.CustomerID, len(d.shards))]

	select {
	case <-d.stopChan:
		return ErrDispatcherStopped
	default:
	}

	select {
	case shard <- t:
		return nil
	case <-d.stopChan:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return fmt.Errorf("submit canceled: %w", ctx.Err())
	}
}

// Dispatch submits an event and waits for its result
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) (workflow.Result, error) {
	resultChan := make(chan workflow.Result, 1)
	if err := d.Submit(ctx, ev, func(res workflow.Result) { resultChan <- res }); err != nil {
		return workflow.Result{}, err
	}

	select {
	case res := <-resultChan:
		return res, nil
	case <-d.stopChan:
		return workflow.Result{}, ErrDispatcherStopped
	case <-ctx.Done():
		return workflow.Result{}, fmt.Errorf("dispatch canceled: %w", ctx.Err())
	}
}

// Stop signals the workers and waits for in-flight events to finish
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.stopChan)
	})
	d.wg.Wait()
}
