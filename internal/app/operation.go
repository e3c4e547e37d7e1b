package app

import "time"

// Operation statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI invocation. Its ID tags every log line the
// invocation writes, so a single run can be grepped out of colstore.log.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	StartedAt  time.Time
	Status     string
	Err        error
}

// NewOperation creates a running operation whose ID is derived from now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		StartedAt:  now,
		Status:     StatusRunning,
	}
}

// Finish records the outcome. Only the first call has an effect.
func (op *Operation) Finish(err error) {
	if op.Finished() {
		return
	}
	op.Err = err
	if err != nil {
		op.Status = StatusError
	} else {
		op.Status = StatusSuccess
	}
}

// Finished returns true once Finish has been called.
func (op *Operation) Finished() bool {
	return op.Status != StatusRunning
}
