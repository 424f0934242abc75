// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// NamespaceSeparator separates the namespace from the local part of a target name.
const NamespaceSeparator = ":"

// ErrInvalidCommandName is the sentinel error wrapped by InvalidCommandNameError.
var ErrInvalidCommandName = errors.New("invalid command name")

type (
	// CommandName is the user-visible name of a build target, optionally
	// namespaced as "ns:name". Names are unique within one command graph.
	CommandName string

	// InvalidCommandNameError is returned when a CommandName is empty, contains
	// whitespace, or has an empty namespace or local part.
	InvalidCommandNameError struct {
		Value  CommandName
		Reason string
	}
)

// NewCommandName joins a namespace and a local name. An empty namespace
// yields the bare local name.
func NewCommandName(namespace, name string) CommandName {
	if namespace == "" {
		return CommandName(name)
	}
	return CommandName(namespace + NamespaceSeparator + name)
}

// String returns the string representation of the CommandName.
func (n CommandName) String() string { return string(n) }

// HasNamespace reports whether the name carries a namespace prefix.
func (n CommandName) HasNamespace() bool {
	return strings.Contains(string(n), NamespaceSeparator)
}

// Namespace returns the namespace part, or "" for un-namespaced names.
func (n CommandName) Namespace() string {
	ns, _, found := strings.Cut(string(n), NamespaceSeparator)
	if !found {
		return ""
	}
	return ns
}

// Local returns the part after the namespace separator, or the whole name.
func (n CommandName) Local() string {
	_, local, found := strings.Cut(string(n), NamespaceSeparator)
	if !found {
		return string(n)
	}
	return local
}

// IsValid returns whether the CommandName is valid.
func (n CommandName) IsValid() (bool, []error) {
	s := string(n)
	switch {
	case s == "":
		return false, []error{&InvalidCommandNameError{Value: n, Reason: "must not be empty"}}
	case strings.IndexFunc(s, unicode.IsSpace) >= 0:
		return false, []error{&InvalidCommandNameError{Value: n, Reason: "must not contain whitespace"}}
	case strings.Count(s, NamespaceSeparator) > 1:
		return false, []error{&InvalidCommandNameError{Value: n, Reason: "must contain at most one namespace separator"}}
	case n.HasNamespace() && (n.Namespace() == "" || n.Local() == ""):
		return false, []error{&InvalidCommandNameError{Value: n, Reason: "namespace and name must both be non-empty"}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCommandNameError.
func (e *InvalidCommandNameError) Error() string {
	return fmt.Sprintf("invalid command name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidCommandName for errors.Is() compatibility.
func (e *InvalidCommandNameError) Unwrap() error { return ErrInvalidCommandName }
