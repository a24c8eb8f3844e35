package job

// Operation represents the marketplace action a job performs
type Operation string

const (
	// OperationCreate publishes a listing on the target platform
	OperationCreate Operation = "create"
	// OperationDelete removes a listing from the target platform
	OperationDelete Operation = "delete"
)

// IsValid checks if the Operation is a valid value
func (o Operation) IsValid() bool {
	return o == OperationCreate || o == OperationDelete
}

// String returns the string representation of Operation
func (o Operation) String() string {
	return string(o)
}

// Status represents the lifecycle state of a crosslisting job
type Status string

const (
	// StatusQueued means the job is waiting to be claimed by a worker
	StatusQueued Status = "queued"
	// StatusProcessing means exactly one worker is executing the job
	StatusProcessing Status = "processing"
	// StatusCompleted means the marketplace operation succeeded
	StatusCompleted Status = "completed"
	// StatusFailed means the job ended without success
	StatusFailed Status = "failed"
	// StatusPendingVerification means the platform demanded a human
	// challenge; the job is parked until the caller resumes it
	StatusPendingVerification Status = "pending_verification"
)

// IsValid checks if the Status is a valid value
func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusPendingVerification:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this is a terminal status (no further transitions)
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo checks if the status can transition to the target status.
// Processing may return to queued: that is how retryable failures and stale
// claim recovery put a job back on the queue. Parked jobs only ever move
// back to queued, and only through an explicit resume.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusQueued:
		return target == StatusProcessing || target == StatusFailed
	case StatusProcessing:
		return target == StatusCompleted || target == StatusFailed ||
			target == StatusPendingVerification || target == StatusQueued
	case StatusPendingVerification:
		return target == StatusQueued
	case StatusCompleted, StatusFailed:
		return false
	}
	return false
}

// AllStatuses returns all valid Status values
func AllStatuses() []Status {
	return []Status{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusPendingVerification}
}
