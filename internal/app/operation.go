package app

import "strings"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation is one CLI command as recorded in the operations table.
// Read-only commands keep it in memory with ID=0; mutating commands persist
// it before touching the ledger, and Close finishes it with Status.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

// NewOperation creates an unpersisted operation that has not failed yet.
func NewOperation(operation, parameters string) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail records err against the operation and returns it unchanged.
// A nil err leaves the status alone, so Fail can wrap every return.
func (op *Operation) Fail(err error) error {
	if err != nil {
		op.Status = StatusError
	}
	return err
}

// joinParams builds the parameter column from command arguments, quoting
// the ones that contain spaces. Empty arguments (an omitted profile) are
// skipped.
func joinParams(args ...string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		switch {
		case a == "":
		case strings.ContainsAny(a, " \t"):
			parts = append(parts, `"`+a+`"`)
		default:
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}
