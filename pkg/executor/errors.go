package executor

import "fmt"

// StatementError reports the statement of a batch that failed.
type StatementError struct {
	// Index is the zero-based position of the statement in its batch.
	Index int
	SQL   string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("failed to execute statement %d: %s: %v", e.Index+1, e.SQL, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }
