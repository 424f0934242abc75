// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrActionFailed is the sentinel error wrapped by ActionFailedError.
	ErrActionFailed = errors.New("target failed")
	// ErrNoRun is returned by Forward when ctx does not belong to a run.
	ErrNoRun = errors.New("forward called outside of a run")
)

// ActionFailedError reports a failing target action.
type ActionFailedError struct {
	Element string
	Command string
	Err     error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.Element, e.Command, e.Err)
}

// Unwrap exposes both ErrActionFailed and the action's own error.
func (e *ActionFailedError) Unwrap() []error { return []error{ErrActionFailed, e.Err} }
