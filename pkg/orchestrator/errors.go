package orchestrator

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Error kinds. Every *Error carries exactly one of them.
var (
	// ErrUnavailable means a list call failed; the cycle must not act on partial state
	ErrUnavailable = errors.New("orchestrator unavailable")

	// ErrMutationFailed means a single create or delete failed
	ErrMutationFailed = errors.New("orchestrator mutation failed")

	// ErrNotFound means the object to delete does not exist
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists means the object to create already exists
	ErrAlreadyExists = errors.New("object already exists")

	// ErrProbeNotReady means the workload cannot accept exec yet
	ErrProbeNotReady = errors.New("workload not ready for exec")
)

// Error is returned by every Client operation
type Error struct {
	Op   string // e.g. "create workload", "list endpoints"
	Name string // object name, empty for list operations
	Kind error
	Err  error
}

func (e *Error) Error() string {
	target := e.Op
	if e.Name != "" {
		target = e.Op + " " + e.Name
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", target, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", target, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// wrapAPIError classifies a Kubernetes API error
func wrapAPIError(op, name string, err error, kind error) error {
	if err == nil {
		return nil
	}
	switch {
	case apierrors.IsNotFound(err):
		kind = ErrNotFound
	case apierrors.IsAlreadyExists(err):
		kind = ErrAlreadyExists
	}
	return &Error{Op: op, Name: name, Kind: kind, Err: err}
}
