// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedDefault is the sentinel error wrapped by UnresolvedDefaultError.
	ErrUnresolvedDefault = errors.New("unresolved default target")
	// ErrCommandNotFound is the sentinel error wrapped by CommandNotFoundError.
	ErrCommandNotFound = errors.New("command not found")
	// ErrStop is returned by the help command to end a run successfully.
	ErrStop = errors.New("stop requested")
)

type (
	// UnresolvedDefaultError reports a default target naming no command of its type.
	UnresolvedDefaultError struct {
		Type     string
		Behavior string
		Default  string
	}

	// CommandNotFoundError reports a command name missing from an element's graph.
	CommandNotFoundError struct {
		Element string
		Command string
	}
)

func (e *UnresolvedDefaultError) Error() string {
	return fmt.Sprintf("cannot assign default command %q of %s (declared by %s)", e.Default, e.Type, e.Behavior)
}

func (e *UnresolvedDefaultError) Unwrap() error { return ErrUnresolvedDefault }

func (e *CommandNotFoundError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s has no default command", e.Element)
	}
	return fmt.Sprintf("%s has no command %q", e.Element, e.Command)
}

func (e *CommandNotFoundError) Unwrap() error { return ErrCommandNotFound }
