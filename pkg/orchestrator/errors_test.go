package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestWrapAPIError(t *testing.T) {
	jobs := schema.GroupResource{Group: "batch", Resource: "jobs"}

	tests := []struct {
		name     string
		err      error
		kind     error
		wantKind error
	}{
		{name: "not found", err: apierrors.NewNotFound(jobs, "notebook-01"), kind: ErrMutationFailed, wantKind: ErrNotFound},
		{name: "already exists", err: apierrors.NewAlreadyExists(jobs, "notebook-01"), kind: ErrMutationFailed, wantKind: ErrAlreadyExists},
		{name: "other mutation", err: apierrors.NewForbidden(jobs, "notebook-01", errors.New("rbac")), kind: ErrMutationFailed, wantKind: ErrMutationFailed},
		{name: "list", err: errors.New("dial tcp: i/o timeout"), kind: ErrUnavailable, wantKind: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapAPIError("op", "notebook-01", tt.err, tt.kind)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, wrapAPIError("op", "x", nil, ErrMutationFailed))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "create endpoint", Name: "nb-entrypoint-03", Kind: ErrMutationFailed, Err: errors.New("quota exceeded")}
	assert.Equal(t, "create endpoint nb-entrypoint-03: orchestrator mutation failed: quota exceeded", err.Error())

	err = &Error{Op: "list workloads", Kind: ErrUnavailable}
	assert.Equal(t, "list workloads: orchestrator unavailable", err.Error())
}
