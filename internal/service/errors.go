package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trialflow/trialflow/internal/domain/patient"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

// ValidationError carries the enumerated list of missing or invalid items so
// the caller can act on each one. Mapped to 400 at the handler boundary.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// PreconditionError reports a state mismatch: the operation assumed one
// patient state and found another. Never retried automatically.
type PreconditionError struct {
	Op       string
	Expected patient.Stage
	Actual   patient.Stage
	Reason   string
}

func (e *PreconditionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: patient is in stage %s, expected %s", e.Op, e.Actual, e.Expected)
}
