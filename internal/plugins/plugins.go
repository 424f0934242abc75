// SPDX-License-Identifier: MPL-2.0

package plugins

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/apbuild/apb/internal/command"
)

// ErrUnknownPlugin is the sentinel error wrapped by UnknownPluginError.
var ErrUnknownPlugin = errors.New("unknown plugin")

var builtin = map[string]command.Plugin{
	"info": Info{},
}

// UnknownPluginError reports an enabled plugin name with no built-in plugin.
type UnknownPluginError struct {
	Name      string
	Available []string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("unknown plugin %q (available: %v)", e.Name, e.Available)
}

func (e *UnknownPluginError) Unwrap() error { return ErrUnknownPlugin }

// Names returns the built-in plugin names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(builtin))
}

// Resolve returns the plugins called names, in order.
func Resolve(names []string) ([]command.Plugin, error) {
	out := make([]command.Plugin, 0, len(names))
	for _, name := range names {
		p, ok := builtin[name]
		if !ok {
			return nil, &UnknownPluginError{Name: name, Available: Names()}
		}
		out = append(out, p)
	}
	return out, nil
}

// Extensions builds the extension set of the plugins called names.
func Extensions(names []string) (*command.Extensions, error) {
	ps, err := Resolve(names)
	if err != nil {
		return nil, err
	}
	return command.NewExtensions(ps...)
}
