package domain

// State is the lifecycle position of a customer's print job
type State string

// Job state constants
const (
	StatePending                   State = "PENDING"
	StateAwaitingConfirmation      State = "AWAITING_CONFIRMATION"
	StateAwaitingRemoval           State = "AWAITING_REMOVAL"
	StateAwaitingFinalConfirmation State = "AWAITING_FINAL_CONFIRMATION"
	StateProcessing                State = "PROCESSING"
	StatePrinting                  State = "PRINTING"
	StateCompleted                 State = "COMPLETED"
	StateCancelled                 State = "CANCELLED"
)

// InProgress reports whether the job is occupied by a print run
func (s State) InProgress() bool {
	return s == StateProcessing || s == StatePrinting
}

// Terminal reports whether a new upload should start a fresh order
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}
