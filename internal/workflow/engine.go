package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/cuongbtq/printdesk/internal/pricing"
	"github.com/cuongbtq/printdesk/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultPrintPacing is the pause between two consecutive print submissions
	DefaultPrintPacing = 2 * time.Second

	// DefaultCompletionGrace is how long a completed job stays visible before removal
	DefaultCompletionGrace = time.Minute

	commandYes  = "YES"
	commandSkip = "SKIP"
)

var cancellableStates = []domain.State{
	domain.StatePending,
	domain.StateAwaitingConfirmation,
	domain.StateAwaitingRemoval,
	domain.StateAwaitingFinalConfirmation,
}

// PageCounter resolves the number of pages of a stored document
type PageCounter interface {
	PageCount(ctx context.Context, path string) (int, error)
}

// Printer submits one staged file to the print spooler
type Printer interface {
	Submit(ctx context.Context, path string) error
}

// Sender delivers a chat message
type Sender interface {
	SendText(ctx context.Context, customerID, text string) error
}

// FileStore persists uploads, stages finalized files for printing and
// removes them once the job is gone
type FileStore interface {
	SaveUpload(customerID, fileName string, content []byte) (string, error)
	CopyForPrintQueue(src, dstDir, newName string) (string, error)
	RemoveFiles(paths ...string) error
}

// Recorder keeps a ledger of completed orders
type Recorder interface {
	RecordOrder(ctx context.Context, order domain.Order) error
}

// Notifier defers the "files received" summary
type Notifier interface {
	Arm(customerID string)
	Disarm(customerID string)
}

// Config holds workflow engine configuration
type Config struct {
	Logger          *slog.Logger
	Store           *store.Store
	PageCounter     PageCounter
	Printer         Printer
	Sender          Sender
	Files           FileStore
	Recorder        Recorder // optional
	Notifier        Notifier // optional
	Formatter       pricing.Formatter
	Rate            decimal.Decimal
	OwnerID         string
	NotifyOwner     bool
	StagingDir      string
	PrintPacing     time.Duration
	CompletionGrace time.Duration
}

// Result is the outcome of handling one inbound event.
// State is the job state afterwards; it is empty when no job exists.
type Result struct {
	State domain.State
	Err   error
}

// removal is a pending grace-delay deletion of a finished job
type removal struct {
	timer   *time.Timer
	uploads []string
}

// Engine drives the per-customer print job state machine
type Engine struct {
	logger      *slog.Logger
	store       *store.Store
	pages       PageCounter
	printer     Printer
	sender      Sender
	files       FileStore
	recorder    Recorder
	notifier    Notifier
	formatter   pricing.Formatter
	rate        decimal.Decimal
	ownerID     string
	notifyOwner bool
	stagingDir  string
	pacing      time.Duration
	grace       time.Duration

	mu       sync.Mutex
	removals map[string]*removal
	closed   bool
}

// NewEngine creates a workflow engine
func NewEngine(cfg *Config) *Engine {
	e := &Engine{
		logger:      cfg.Logger,
		store:       cfg.Store,
		pages:       cfg.PageCounter,
		printer:     cfg.Printer,
		sender:      cfg.Sender,
		files:       cfg.Files,
		recorder:    cfg.Recorder,
		notifier:    cfg.Notifier,
		formatter:   cfg.Formatter,
		rate:        cfg.Rate,
		ownerID:     cfg.OwnerID,
		notifyOwner: cfg.NotifyOwner && cfg.OwnerID != "",
		stagingDir:  cfg.StagingDir,
		pacing:      cfg.PrintPacing,
		grace:       cfg.CompletionGrace,
		removals:    make(map[string]*removal),
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.pacing < 0 {
		e.pacing = 0
	}
	if e.grace <= 0 {
		e.grace = DefaultCompletionGrace
	}
	return e
}

// IsPDF reports whether an upload looks like a PDF document
func IsPDF(fileName, mimeType string) bool {
	if strings.EqualFold(strings.TrimSpace(mimeType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

// HandleFile accepts an uploaded document into the customer's job
func (e *Engine) HandleFile(ctx context.Context, customerID, fileName, mimeType string, content []byte) Result {
	logger := e.logger.With(slog.String("customer_id", customerID), slog.String("file_name", fileName))

	if !IsPDF(fileName, mimeType) {
		logger.Info("Rejected non-PDF upload", slog.String("mime_type", mimeType))
		e.send(ctx, customerID, e.formatter.PDFOnly())
		return e.result(customerID, fmt.Errorf("%w: %s is not a PDF", domain.ErrInvalidInput, fileName))
	}

	if job, ok := e.store.Get(customerID); ok && job.State.InProgress() {
		logger.Info("Rejected upload while job in progress", slog.String("state", string(job.State)))
		e.send(ctx, customerID, e.formatter.JobInProgress())
		return Result{State: job.State, Err: fmt.Errorf("upload during %s: %w", job.State, domain.ErrStateChanged)}
	}

	path, err := e.files.SaveUpload(customerID, fileName, content)
	if err != nil {
		logger.Error("Failed to save upload", slog.String("error", err.Error()))
		e.send(ctx, customerID, e.formatter.UploadFailed())
		return e.result(customerID, fmt.Errorf("failed to save upload: %w", err))
	}

	job := e.store.AddFile(customerID, domain.FileDescriptor{
		FileName:    fileName,
		StoragePath: path,
	})

	if e.notifier != nil {
		e.notifier.Arm(customerID)
	}

	return Result{State: job.State}
}

// HandleText advances the customer's job according to an inbound text command
func (e *Engine) HandleText(ctx context.Context, customerID, text string) Result {
	if e.notifier != nil {
		e.notifier.Disarm(customerID)
	}

	job, ok := e.store.Get(customerID)
	if !ok {
		e.logger.Debug("Ignoring text without active job", slog.String("customer_id", customerID))
		return Result{}
	}

	command := pricing.Normalize(text)

	var err error
	switch job.State {
	case domain.StatePending:
		err = e.showFileList(ctx, customerID, domain.StatePending, domain.StateAwaitingConfirmation)

	case domain.StateAwaitingConfirmation:
		switch command {
		case commandYes:
			err = e.finalize(ctx, customerID, domain.StateAwaitingConfirmation)
		case commandSkip:
			err = e.askForRemoval(ctx, customerID)
		default:
			err = e.showFileList(ctx, customerID, domain.StateAwaitingConfirmation, domain.StateAwaitingConfirmation)
		}

	case domain.StateAwaitingRemoval:
		err = e.applyRemoval(ctx, customerID, text)

	case domain.StateAwaitingFinalConfirmation:
		if command == commandYes {
			err = e.finalize(ctx, customerID, domain.StateAwaitingFinalConfirmation)
		} else {
			e.send(ctx, customerID, e.formatter.ConfirmPrompt())
		}

	case domain.StateProcessing, domain.StatePrinting:
		e.send(ctx, customerID, e.formatter.JobInProgress())

	default:
		e.logger.Debug("Ignoring text for finished job",
			slog.String("customer_id", customerID),
			slog.String("state", string(job.State)),
		)
	}

	if err != nil {
		e.reportError(ctx, customerID, err)
	}
	return e.result(customerID, err)
}

// showFileList resolves missing page counts, moves the job from -> to and sends the list
func (e *Engine) showFileList(ctx context.Context, customerID string, from, to domain.State) error {
	job, ok := e.store.Get(customerID)
	if !ok {
		return domain.ErrJobNotFound
	}

	counts := e.resolvePages(ctx, job.Files)

	job, err := e.store.Update(customerID, func(j *domain.Job) error {
		if j.State != from {
			return fmt.Errorf("expected %s, found %s: %w", from, j.State, domain.ErrStateChanged)
		}
		applyPageCounts(j.Files, counts)
		j.State = to
		return nil
	})
	if err != nil {
		return err
	}

	totalPages := pricing.TotalPages(job.Files)
	e.send(ctx, customerID, e.formatter.FileList(job.Files, totalPages, pricing.Price(totalPages, e.rate)))
	return nil
}

func (e *Engine) askForRemoval(ctx context.Context, customerID string) error {
	_, err := e.store.Update(customerID, func(j *domain.Job) error {
		if j.State != domain.StateAwaitingConfirmation {
			return fmt.Errorf("expected %s, found %s: %w", domain.StateAwaitingConfirmation, j.State, domain.ErrStateChanged)
		}
		j.State = domain.StateAwaitingRemoval
		return nil
	})
	if err != nil {
		return err
	}

	e.send(ctx, customerID, e.formatter.RemovalPrompt())
	return nil
}

// applyRemoval replaces the exclusions with the files named by the customer's numbers.
// Nothing is committed when the numbers are unusable or would exclude every file.
func (e *Engine) applyRemoval(ctx context.Context, customerID, text string) error {
	job, err := e.store.Update(customerID, func(j *domain.Job) error {
		if j.State != domain.StateAwaitingRemoval {
			return fmt.Errorf("expected %s, found %s: %w", domain.StateAwaitingRemoval, j.State, domain.ErrStateChanged)
		}

		numbers := pricing.ParseSelection(text, len(j.Files))
		if len(numbers) == 0 {
			return fmt.Errorf("%w: %q", domain.ErrInvalidInput, text)
		}

		excluded := make(map[string]struct{}, len(numbers))
		for _, n := range numbers {
			excluded[j.Files[n-1].FileName] = struct{}{}
		}
		if len(pricing.Printable(j.Files, excluded)) == 0 {
			return domain.NewSelectionError(domain.StageRemoval)
		}

		j.Excluded = excluded
		j.State = domain.StateAwaitingFinalConfirmation
		return nil
	})
	if err != nil {
		return err
	}

	remaining := pricing.Printable(job.Files, job.Excluded)
	totalPages := pricing.TotalPages(remaining)
	e.send(ctx, customerID, e.formatter.FilesRemoved(job.ExcludedNames(), remaining, totalPages, pricing.Price(totalPages, e.rate)))
	return nil
}

// finalize runs the print sequence. PROCESSING and PRINTING are never rolled back.
func (e *Engine) finalize(ctx context.Context, customerID string, from domain.State) error {
	logger := e.logger.With(slog.String("customer_id", customerID))

	// Step 1: Claim the job so no other command can start a second run
	job, ok := e.store.Transition(customerID, []domain.State{from}, domain.StateProcessing)
	if !ok {
		if job.CustomerID == "" {
			return domain.ErrJobNotFound
		}
		return fmt.Errorf("expected %s, found %s: %w", from, job.State, domain.ErrStateChanged)
	}
	e.send(ctx, customerID, e.formatter.Processing())

	// Step 2: Compute the printable subset
	printable := pricing.Printable(job.Files, job.Excluded)
	if len(printable) == 0 {
		e.store.Delete(customerID)
		e.removeFiles(customerID, uploadPaths(job.Files))
		return domain.NewSelectionError(domain.StageFinalize)
	}

	counts := e.resolvePages(ctx, printable)
	if len(counts) > 0 {
		applyPageCounts(printable, counts)
		if _, err := e.store.Update(customerID, func(j *domain.Job) error {
			applyPageCounts(j.Files, counts)
			return nil
		}); err != nil {
			logger.Warn("Failed to store resolved page counts", slog.String("error", err.Error()))
		}
	}

	// Step 3: Stage every file under a customer-prefixed name; the position
	// keeps same-named uploads apart
	dir := filepath.Join(e.stagingDir, customerID)
	staged := make([]string, 0, len(printable))
	for i, f := range printable {
		name := fmt.Sprintf("%s_%d_%s", customerID, i+1, f.FileName)
		path, err := e.files.CopyForPrintQueue(f.StoragePath, dir, name)
		if err != nil {
			return fmt.Errorf("failed to stage %s: %w", f.FileName, err)
		}
		staged = append(staged, path)
	}

	// Step 4: Submit sequentially with pacing between files
	e.store.SetState(customerID, domain.StatePrinting)
	for i, path := range staged {
		if i > 0 && e.pacing > 0 {
			select {
			case <-time.After(e.pacing):
			case <-ctx.Done():
				return fmt.Errorf("print run canceled: %w", ctx.Err())
			}
		}

		if err := e.printer.Submit(ctx, path); err != nil {
			if !errors.Is(err, domain.ErrPrinter) {
				err = fmt.Errorf("%w: %w", domain.ErrPrinter, err)
			}
			return fmt.Errorf("failed to print %s: %w", printable[i].FileName, err)
		}
		logger.Info("Submitted file to printer",
			slog.String("file_name", printable[i].FileName),
			slog.Int("position", i+1),
			slog.Int("total", len(staged)),
		)
	}

	// Step 5: Complete and notify
	totalPages := pricing.TotalPages(printable)
	cost := pricing.Price(totalPages, e.rate)
	e.store.SetState(customerID, domain.StateCompleted)

	e.send(ctx, customerID, e.formatter.Completed(len(printable), totalPages, cost, customerID))
	if e.notifyOwner {
		e.send(ctx, e.ownerID, e.formatter.OwnerReceipt(customerID, printable, totalPages, cost))
	}

	e.record(ctx, customerID, printable, totalPages, cost)
	e.scheduleRemoval(customerID, domain.StateCompleted, uploadPaths(job.Files), staged)

	logger.Info("Print job completed",
		slog.Int("file_count", len(printable)),
		slog.Int("total_pages", totalPages),
		slog.String("total_cost", cost.StringFixed(2)),
	)
	return nil
}

// resolvePages counts pages for unresolved files; a failed read counts as 0
func (e *Engine) resolvePages(ctx context.Context, files []domain.FileDescriptor) map[string]int {
	counts := make(map[string]int)
	for _, f := range files {
		if f.PagesResolved {
			continue
		}
		if _, done := counts[f.StoragePath]; done {
			continue
		}

		n, err := e.pages.PageCount(ctx, f.StoragePath)
		if err != nil {
			e.logger.Warn("Failed to read page count",
				slog.String("file_name", f.FileName),
				slog.String("error", err.Error()),
			)
			n = 0
		}
		counts[f.StoragePath] = n
	}
	return counts
}

func applyPageCounts(files []domain.FileDescriptor, counts map[string]int) {
	for i := range files {
		if files[i].PagesResolved {
			continue
		}
		if n, ok := counts[files[i].StoragePath]; ok {
			files[i].PageCount = n
			files[i].PagesResolved = true
		}
	}
}

func (e *Engine) record(ctx context.Context, customerID string, files []domain.FileDescriptor, totalPages int, cost decimal.Decimal) {
	if e.recorder == nil {
		return
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.FileName
	}

	order := domain.Order{
		OrderID:     uuid.NewString(),
		CustomerID:  customerID,
		FileNames:   names,
		FileCount:   len(files),
		TotalPages:  totalPages,
		TotalCost:   cost,
		CompletedAt: time.Now().UTC(),
	}
	if err := e.recorder.RecordOrder(ctx, order); err != nil {
		e.logger.Error("Failed to record order",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}
}

// Cancel abandons a job that has not started printing. Like a completed
// job, it stays visible for the grace delay before removal.
func (e *Engine) Cancel(customerID string) (domain.Job, error) {
	job, ok := e.store.Transition(customerID, cancellableStates, domain.StateCancelled)
	if !ok {
		if job.CustomerID == "" {
			return job, domain.ErrJobNotFound
		}
		return job, fmt.Errorf("cannot cancel during %s: %w", job.State, domain.ErrStateChanged)
	}

	if e.notifier != nil {
		e.notifier.Disarm(customerID)
	}
	e.scheduleRemoval(customerID, domain.StateCancelled, uploadPaths(job.Files), nil)

	e.logger.Info("Cancelled job",
		slog.String("customer_id", customerID),
		slog.Int("file_count", len(job.Files)),
	)
	return job, nil
}

func uploadPaths(files []domain.FileDescriptor) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.StoragePath
	}
	return paths
}

// scheduleRemoval deletes the finished job after the grace delay together with its files.
// Uploads are unique per order and always go; staged copies are only removed when the job
// is, since a new order for the customer reuses the staged names. Uploads of a replaced
// timer carry over to the new one.
func (e *Engine) scheduleRemoval(customerID string, state domain.State, uploads, staged []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if prev, ok := e.removals[customerID]; ok && prev.timer.Stop() {
		uploads = append(prev.uploads, uploads...)
	}

	r := &removal{uploads: uploads}
	r.timer = time.AfterFunc(e.grace, func() {
		e.mu.Lock()
		if e.removals[customerID] == r {
			delete(e.removals, customerID)
		}
		e.mu.Unlock()

		paths := r.uploads
		if e.store.DeleteIfState(customerID, state) {
			e.logger.Debug("Removed finished job",
				slog.String("customer_id", customerID),
				slog.String("state", string(state)),
			)
			paths = append(paths, staged...)
		}

		e.removeFiles(customerID, paths)
	})
	e.removals[customerID] = r
}

func (e *Engine) removeFiles(customerID string, paths []string) {
	if e.files == nil || len(paths) == 0 {
		return
	}
	if err := e.files.RemoveFiles(paths...); err != nil {
		e.logger.Warn("Failed to remove job files",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}
}

// reportError turns a handler error into the customer reply
func (e *Engine) reportError(ctx context.Context, customerID string, err error) {
	logger := e.logger.With(slog.String("customer_id", customerID), slog.String("error", err.Error()))

	var selErr *domain.SelectionError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		logger.Info("Invalid removal selection")
		e.send(ctx, customerID, e.formatter.InvalidSelection())

	case errors.As(err, &selErr) && selErr.Stage == domain.StageRemoval:
		logger.Info("Rejected removal of every file")
		e.send(ctx, customerID, e.formatter.CannotRemoveAll())

	case errors.As(err, &selErr):
		logger.Warn("Finalized job had no printable files")
		e.send(ctx, customerID, e.formatter.NoFilesSelected())

	case errors.Is(err, domain.ErrPrinter):
		logger.Error("Print run aborted")
		e.send(ctx, customerID, e.formatter.PrinterFailed())

	case errors.Is(err, domain.ErrStateChanged):
		if job, ok := e.store.Get(customerID); ok && job.State.InProgress() {
			e.send(ctx, customerID, e.formatter.JobInProgress())
			return
		}
		logger.Warn("Job changed state while handling text")

	case errors.Is(err, domain.ErrJobNotFound):
		logger.Debug("Job disappeared while handling text")

	default:
		logger.Error("Failed to handle text")
		e.send(ctx, customerID, e.formatter.GenericError())
	}
}

// send delivers a message; failures are logged and never retried
func (e *Engine) send(ctx context.Context, customerID, text string) {
	if err := e.sender.SendText(ctx, customerID, text); err != nil {
		e.logger.Error("Failed to send message",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) result(customerID string, err error) Result {
	job, ok := e.store.Get(customerID)
	if !ok {
		return Result{Err: err}
	}
	return Result{State: job.State, Err: err}
}

// Close cancels pending post-completion removals
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for id, r := range e.removals {
		r.timer.Stop()
		delete(e.removals, id)
	}
}
