package domain

import "errors"

var (
	// ErrJobNotFound is returned when no job exists for a customer
	ErrJobNotFound = errors.New("job not found")

	// ErrStateChanged is returned when a job left the expected state while a handler was working
	ErrStateChanged = errors.New("job state changed concurrently")

	// ErrPdfRead is returned when a document cannot be parsed for its page count
	ErrPdfRead = errors.New("failed to read PDF")

	// ErrPrinter is returned when a file could not be submitted to the printer
	ErrPrinter = errors.New("printer error")

	// ErrDelivery is returned when an outbound chat message could not be delivered
	ErrDelivery = errors.New("message delivery failed")

	// ErrEmptySelection is returned when no file would be left to print
	ErrEmptySelection = errors.New("no files selected for printing")

	// ErrInvalidInput is returned when a removal list contains no usable file number
	ErrInvalidInput = errors.New("invalid file selection")
)

// SelectionStage tells where an empty selection was detected
type SelectionStage string

const (
	StageRemoval  SelectionStage = "removal"
	StageFinalize SelectionStage = "finalize"
)

// SelectionError wraps ErrEmptySelection with the step that raised it
type SelectionError struct {
	Stage SelectionStage
}

func (e *SelectionError) Error() string {
	return string(e.Stage) + ": " + ErrEmptySelection.Error()
}

func (e *SelectionError) Unwrap() error {
	return ErrEmptySelection
}

// NewSelectionError creates an empty-selection error for the given stage
func NewSelectionError(stage SelectionStage) error {
	return &SelectionError{Stage: stage}
}
