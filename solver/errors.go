// ABOUTME: Error types for the attempt boundary and sentinels for engine construction.
// ABOUTME: Collaborator faults are absorbed into history records, never propagated past an attempt.
package solver

import (
	"errors"
	"fmt"
)

// Engine construction errors: a run cannot start without its collaborators.
var (
	ErrNoObserver  = errors.New("solver: no page observer configured")
	ErrNoTiers     = errors.New("solver: no strategy tiers configured")
	ErrNoActuator  = errors.New("solver: no actuator configured")
	ErrNoScanner   = errors.New("solver: no token scanner configured")
	ErrNoSubmitter = errors.New("solver: no submitter configured")
	ErrNoNavigator = errors.New("solver: no navigator configured")
)

// EnvironmentFault wraps an unexpected collaborator error. It fails the
// current attempt and lands in its history record; the run continues.
type EnvironmentFault struct {
	Op  string // collaborator call that faulted: snapshot, execute, submit, ...
	Err error
}

func (f *EnvironmentFault) Error() string {
	return fmt.Sprintf("environment fault in %s: %v", f.Op, f.Err)
}

func (f *EnvironmentFault) Unwrap() error {
	return f.Err
}

func faultErr(op string, err error) *EnvironmentFault {
	return &EnvironmentFault{Op: op, Err: err}
}
