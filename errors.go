package syncview

import (
	"errors"
	"fmt"
)

// Code classifies remote failures so callers can branch without string
// matching. Ownership-gate rejections reuse CodeNotFound on purpose: callers
// must not be able to distinguish "never existed" from "not yours".
type Code string

const (
	// CodeNotFound covers both a missing resource and access denial.
	CodeNotFound Code = "not_found"
	// CodeNotProvisioned means the remote schema/table does not exist yet;
	// callers fall back to a degraded local-only mode rather than fail hard.
	CodeNotProvisioned Code = "not_provisioned"
	// CodeTransient is a network-class failure, safe to retry.
	CodeTransient Code = "transient"
	// CodeValidation means the remote rejected the payload. Never retried.
	CodeValidation Code = "validation"
	// CodeInternal is any other remote failure.
	CodeInternal Code = "internal"
)

// RemoteError is the typed failure surface of the remote persistence service
// and of this layer's own pre-checks.
type RemoteError struct {
	Code Code
	Op   string // e.g. "tasks.update"
	Err  error  // optional cause
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func codeOf(err error) (Code, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeNotFound
}

func IsNotProvisioned(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeNotProvisioned
}

func IsTransient(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeTransient
}

func IsValidation(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeValidation
}

// ErrMutationPending is returned when a mutation targets an entity that
// already has an unsettled mutation in flight.
var ErrMutationPending = errors.New("syncview: mutation already in flight for entity")
