// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrElementNotFound is the sentinel error wrapped by ElementNotFoundError.
	ErrElementNotFound = errors.New("element not found")
	// ErrInvalidProject is the sentinel error wrapped by InvalidProjectError.
	ErrInvalidProject = errors.New("invalid project")
	// ErrProjectNotFound is returned when a directory holds no project file.
	ErrProjectNotFound = errors.New("project file not found")
)

type (
	// ElementNotFoundError reports a name that is neither a module nor a test module.
	ElementNotFoundError struct {
		Name string
		// Known lists the element names of the project.
		Known []string
	}

	// InvalidProjectError collects every problem found while validating a definition.
	InvalidProjectError struct {
		Path     string
		Problems []string
	}
)

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %q not found", e.Name)
}

func (e *ElementNotFoundError) Unwrap() error { return ErrElementNotFound }

func (e *InvalidProjectError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid project %s", e.Path)
	if len(e.Problems) == 1 {
		fmt.Fprintf(&sb, ": %s", e.Problems[0])
		return sb.String()
	}
	for _, p := range e.Problems {
		fmt.Fprintf(&sb, "\n  - %s", p)
	}
	return sb.String()
}

func (e *InvalidProjectError) Unwrap() error { return ErrInvalidProject }
